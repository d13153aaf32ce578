package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PortraitID names a character appearance. The eight presets are the only
// ids eligible for pre-generated content; any other value is a custom upload.
type PortraitID string

const (
	PortraitM1 PortraitID = "m1"
	PortraitM2 PortraitID = "m2"
	PortraitM3 PortraitID = "m3"
	PortraitM4 PortraitID = "m4"
	PortraitF1 PortraitID = "f1"
	PortraitF2 PortraitID = "f2"
	PortraitF3 PortraitID = "f3"
	PortraitF4 PortraitID = "f4"
)

// BuildType enumerates the character classes.
type BuildType string

const (
	BuildWarrior BuildType = "warrior"
	BuildMage    BuildType = "mage"
	BuildRogue   BuildType = "rogue"
	BuildRanger  BuildType = "ranger"
)

// PresetPortraits lists the preset ids in generation order.
var PresetPortraits = []PortraitID{
	PortraitM1, PortraitM2, PortraitM3, PortraitM4,
	PortraitF1, PortraitF2, PortraitF3, PortraitF4,
}

// BuildTypes lists the build types in generation order.
var BuildTypes = []BuildType{BuildWarrior, BuildMage, BuildRogue, BuildRanger}

// Characteristics describes the fixed appearance of a preset portrait.
type Characteristics struct {
	Age      string
	EyeColor string
	Skin     string
	Hair     string
}

var portraitTable = map[PortraitID]Characteristics{
	PortraitM1: {Age: "early twenties", EyeColor: "brown eyes", Skin: "fair skin", Hair: "short black hair"},
	PortraitM2: {Age: "late twenties", EyeColor: "green eyes", Skin: "olive skin", Hair: "messy auburn hair"},
	PortraitM3: {Age: "mid thirties", EyeColor: "grey eyes", Skin: "dark skin", Hair: "close-cropped hair"},
	PortraitM4: {Age: "early forties", EyeColor: "blue eyes", Skin: "weathered tan skin", Hair: "long grey-streaked hair"},
	PortraitF1: {Age: "early twenties", EyeColor: "blue eyes", Skin: "pale skin", Hair: "long blonde hair"},
	PortraitF2: {Age: "mid twenties", EyeColor: "hazel eyes", Skin: "light brown skin", Hair: "curly dark hair"},
	PortraitF3: {Age: "early thirties", EyeColor: "amber eyes", Skin: "deep brown skin", Hair: "braided black hair"},
	PortraitF4: {Age: "late thirties", EyeColor: "green eyes", Skin: "freckled skin", Hair: "short red hair"},
}

var titleCaser = cases.Title(language.English)

// IsPreset reports whether the portrait is one of the eight fixed presets.
func (p PortraitID) IsPreset() bool {
	_, ok := portraitTable[p]
	return ok
}

// Characteristics returns the appearance for a preset portrait.
func (p PortraitID) Characteristics() (Characteristics, bool) {
	c, ok := portraitTable[p]
	return c, ok
}

// Gender derives the gender noun from the id prefix.
func (p PortraitID) Gender() string {
	if strings.HasPrefix(string(p), "f") {
		return "female"
	}
	return "male"
}

// Valid reports whether the build type is one of the known classes.
func (b BuildType) Valid() bool {
	for _, known := range BuildTypes {
		if b == known {
			return true
		}
	}
	return false
}

// Title returns the display form of the build type.
func (b BuildType) Title() string {
	return titleCaser.String(string(b))
}

// ParsePortraitID normalizes raw input. Unknown ids are returned as-is so
// custom portraits can flow through live generation.
func ParsePortraitID(raw string) (PortraitID, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if id == "" {
		return "", fmt.Errorf("%w: portrait id is required", ErrInvalidCombination)
	}
	return PortraitID(id), nil
}

// ParseBuildType normalizes raw input and rejects unknown classes.
func ParseBuildType(raw string) (BuildType, error) {
	b := BuildType(strings.ToLower(strings.TrimSpace(raw)))
	if !b.Valid() {
		return "", fmt.Errorf("%w: unknown build type %q", ErrInvalidCombination, raw)
	}
	return b, nil
}

// Combination identifies one unit of pre-generation work.
type Combination struct {
	PortraitID PortraitID `json:"portrait_id"`
	BuildType  BuildType  `json:"build_type"`
}

// Key returns the stable string form used for logging and map keys.
func (c Combination) Key() string {
	return string(c.PortraitID) + "_" + string(c.BuildType)
}

func (c Combination) String() string {
	return c.Key()
}

// IsPreset reports whether the combination is eligible for pre-generation.
func (c Combination) IsPreset() bool {
	return c.PortraitID.IsPreset() && c.BuildType.Valid()
}

// CharacterDescription renders the prompt fragment describing the character.
func (c Combination) CharacterDescription() string {
	desc := fmt.Sprintf("a %s %s", c.BuildType, c.PortraitID.Gender())
	if ch, ok := c.PortraitID.Characteristics(); ok {
		desc += fmt.Sprintf(" with %s, %s, %s, %s", ch.Age, ch.EyeColor, ch.Skin, ch.Hair)
	}
	return desc
}

// AllCombinations returns the full 8x4 cross product.
func AllCombinations() []Combination {
	out := make([]Combination, 0, len(PresetPortraits)*len(BuildTypes))
	for _, p := range PresetPortraits {
		for _, b := range BuildTypes {
			out = append(out, Combination{PortraitID: p, BuildType: b})
		}
	}
	return out
}

// FilterCombinations narrows the cross product. Empty filters match all.
func FilterCombinations(portrait PortraitID, build BuildType) []Combination {
	all := AllCombinations()
	out := all[:0]
	for _, c := range all {
		if portrait != "" && c.PortraitID != portrait {
			continue
		}
		if build != "" && c.BuildType != build {
			continue
		}
		out = append(out, c)
	}
	return out
}
