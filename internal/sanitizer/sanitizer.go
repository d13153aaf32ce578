// Package sanitizer rewrites prompt text so vendor content-safety filters are
// less likely to reject it, while keeping the narrative readable.
package sanitizer

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ExtremePlaceholder replaces spans matching an extreme pattern.
const ExtremePlaceholder = "[intense scene]"

type replacement struct {
	pattern *regexp.Regexp
	with    string
}

func rule(expr, with string) replacement {
	return replacement{pattern: regexp.MustCompile(`(?i)` + expr), with: with}
}

// replacements are applied in order.
var replacements = []replacement{
	// blood and gore
	rule(`\bblood\b`, "red marks"),
	rule(`\bbloodstain\w*\b`, "red marks"),
	rule(`\bbloody\b`, "marked"),
	rule(`\bbleeding\b`, "wounded"),
	rule(`\bgore\b`, "debris"),
	rule(`\bgory\b`, "messy"),
	rule(`\bcorpse\b`, "fallen figure"),
	rule(`\bcorpses\b`, "fallen figures"),
	rule(`\bdead body\b`, "still figure"),
	rule(`\bdead bodies\b`, "still figures"),
	rule(`\brot\b`, "decay"),
	rule(`\brotting\b`, "weathered"),
	rule(`\bpus\b`, "fluid"),

	// violence
	rule(`\bmassacre\b`, "conflict"),
	rule(`\bmurder\b`, "conflict"),
	rule(`\btorture\b`, "ordeal"),
	rule(`\bbrutally\b`, "harshly"),
	rule(`\bbrutal\b`, "harsh"),
	rule(`\bsavage\b`, "wild"),
	rule(`\bvicious\b`, "fierce"),
	rule(`\bstab\b`, "strike"),
	rule(`\bstabbed\b`, "struck"),
	rule(`\bstabbing\b`, "striking"),
	rule(`\bslash\b`, "cut"),
	rule(`\bslashing\b`, "cutting"),
	rule(`\bslaughter\b`, "defeat"),
	rule(`\bkill\b`, "defeat"),
	rule(`\bkilling\b`, "defeating"),
	rule(`\bdismember\b`, "separate"),
	rule(`\bdecapitat\w*`, "remove"),

	// disturbing descriptors
	rule(`\bugly\b`, "weathered"),
	rule(`\bhideous\b`, "unusual"),
	rule(`\bgrotesk\b`, "strange"),
	rule(`\bgrotesque\b`, "strange"),
	rule(`\bhorrible\b`, "unsettling"),
	rule(`\bhorrific\b`, "mysterious"),
	rule(`\bterrifying\b`, "imposing"),
	rule(`\bterrible\b`, "challenging"),
	rule(`\bnightmarish\b`, "dreamlike"),
	rule(`\bghastly\b`, "pale"),
	rule(`\bmonstrous\b`, "large"),
	rule(`\brepulsive\b`, "unusual"),
	rule(`\brepugnant\b`, "off-putting"),
	rule(`\brevolting\b`, "strange"),

	// death
	rule(`\bdeath\b`, "end"),
	rule(`\bdie\b`, "fall"),
	rule(`\bdying\b`, "fading"),
	rule(`\bdoom\b`, "fate"),
	rule(`\bdoomed\b`, "challenged"),
	rule(`\bperish\b`, "fade"),
	rule(`\bperishing\b`, "fading"),
	rule(`\bdemise\b`, "end"),

	// dark magic
	rule(`\bcursed\b`, "enchanted"),
	rule(`\bdamned\b`, "troubled"),
	rule(`\bpossessed\b`, "influenced"),
	rule(`\bhaunted\b`, "mysterious"),
	rule(`\bnecromancy\b`, "dark magic"),
	rule(`\bzombie\b`, "undead figure"),
	rule(`\bzombies\b`, "undead figures"),
	rule(`\bskeleton\b`, "bone figure"),
	rule(`\bskeletons\b`, "bone figures"),

	// tragedy
	rule(`\btragedy\b`, "misfortune"),
	rule(`\bsuffering\b`, "hardship"),
	rule(`\bagony\b`, "difficulty"),
	rule(`\banguish\b`, "worry"),
	rule(`\btorment\b`, "trouble"),
	rule(`\bmisery\b`, "sadness"),
	rule(`\bpain\b`, "discomfort"),
	rule(`\bpainful\b`, "difficult"),

	// war
	rule(`\bwar\b`, "conflict"),
	rule(`\bbattle\b`, "encounter"),
	rule(`\bfight\b`, "challenge"),
	rule(`\bcombat\b`, "contest"),
	rule(`\battack\b`, "approach"),
	rule(`\bassault\b`, "confrontation"),
	rule(`\binvasion\b`, "arrival"),
	rule(`\braiding\b`, "visiting"),
	rule(`\bsiege\b`, "blockade"),
}

var extremePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bexecutio\w+`),
	regexp.MustCompile(`(?i)\btortur\w+`),
	regexp.MustCompile(`(?i)\bmutilat\w+`),
	regexp.MustCompile(`(?i)\bdisembow\w+`),
	regexp.MustCompile(`(?i)\bcannibal\w+`),
	regexp.MustCompile(`(?i)\bsuicid\w+`),
	regexp.MustCompile(`(?i)\bhomicid\w+`),
	regexp.MustCompile(`(?i)\bgenocid\w+`),
}

var (
	intensifiers = regexp.MustCompile(`(?i)\b(extremely|terribly|horribly|awfully|dreadfully|frighteningly|shockingly|disturbingly|sickeningly)\b`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// maxReplaceableTerms is the number of distinct flagged terms tolerated by
// IsProbablySafe.
const maxReplaceableTerms = 2

// Sanitize applies the replacement table, blanks extreme patterns, collapses
// intensifiers to "very", and normalizes whitespace. It never fails.
func Sanitize(text string) string {
	if text == "" {
		return text
	}
	out := whitespace.ReplaceAllString(norm.NFKC.String(text), " ")
	out = applyAll(replacements, out)
	for _, p := range extremePatterns {
		out = p.ReplaceAllString(out, ExtremePlaceholder)
	}
	return cleanup(out)
}

func cleanup(text string) string {
	text = intensifiers.ReplaceAllString(text, "very")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// IsProbablySafe is a heuristic gate: false when any extreme pattern matches
// or more than two distinct replaceable terms appear.
func IsProbablySafe(text string) bool {
	if text == "" {
		return true
	}
	text = whitespace.ReplaceAllString(norm.NFKC.String(text), " ")
	for _, p := range extremePatterns {
		if p.MatchString(text) {
			return false
		}
	}
	distinct := make(map[string]struct{})
	for _, r := range replacements {
		for _, m := range r.pattern.FindAllString(text, -1) {
			distinct[strings.ToLower(m)] = struct{}{}
		}
	}
	return len(distinct) <= maxReplaceableTerms
}
