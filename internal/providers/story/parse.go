package story

import (
	"fmt"
	"strings"

	"scenegen/internal/domain"
)

const (
	prefixNarration   = "NARRATION:"
	prefixVisualScene = "VISUAL_SCENE:"
	prefixChoice      = "CHOICE_"
)

// ParseScene reads the NARRATION/VISUAL_SCENE/CHOICE_n line protocol. A missing
// visual scene is derived from the narration; at most four choices are kept.
// The result is rejected unless it is complete.
func ParseScene(text string) (*domain.StoryScene, error) {
	scene := &domain.StoryScene{}
	for _, raw := range strings.Split(trimCodeFence(text), "\n") {
		line := strings.TrimSpace(strings.ReplaceAll(raw, "**", ""))
		switch {
		case hasPrefixFold(line, prefixNarration):
			scene.Narration = strings.TrimSpace(line[len(prefixNarration):])
		case hasPrefixFold(line, prefixVisualScene):
			scene.VisualScene = strings.TrimSpace(line[len(prefixVisualScene):])
		case hasPrefixFold(line, prefixChoice):
			if _, choice, ok := strings.Cut(line, ":"); ok {
				if choice = strings.TrimSpace(choice); choice != "" {
					scene.Choices = append(scene.Choices, choice)
				}
			}
		}
	}

	if scene.VisualScene == "" && scene.Narration != "" {
		scene.VisualScene = FallbackVisualScene(scene.Narration)
	}
	if len(scene.Choices) > domain.ChoicesPerScene {
		scene.Choices = scene.Choices[:domain.ChoicesPerScene]
	}
	if !scene.Complete() {
		return nil, fmt.Errorf("story: %w: narration=%t choices=%d",
			domain.ErrIncompleteStoryText, scene.Narration != "", len(scene.Choices))
	}
	return scene, nil
}

var fallbackScenes = []struct {
	keywords []string
	scene    string
}{
	{[]string{"forest", "trees"}, "Dense forest with ancient trees towering overhead. Dappled sunlight filters through the canopy. Moss-covered ground with fallen logs."},
	{[]string{"dungeon", "stone", "chamber"}, "Dark stone chamber with rough-hewn walls. Flickering torchlight casts dancing shadows. Cold, damp air fills the ancient space."},
	{[]string{"tavern", "inn"}, "Dimly lit tavern with wooden tables and chairs. Warm firelight glows from the hearth. Shadows dance on weathered stone walls."},
	{[]string{"road", "path"}, "Winding dirt path through rolling countryside. Scattered rocks and wild grass line the route. Overcast sky creates moody atmosphere."},
	{[]string{"village", "town"}, "Medieval village with cobblestone streets. Thatched-roof buildings line the narrow pathways. Soft lantern light from windows."},
	{[]string{"castle", "tower"}, "Grand castle courtyard with high stone walls. Ancient banners flutter in the breeze. Weathered stairs lead to imposing structures."},
}

const genericVisualScene = "Mysterious medieval environment shrouded in mist. Ancient stonework and weathered surfaces. Moody lighting creates atmospheric shadows."

// FallbackVisualScene picks a stock environment description by keyword.
func FallbackVisualScene(narration string) string {
	lower := strings.ToLower(narration)
	for _, f := range fallbackScenes {
		for _, kw := range f.keywords {
			if strings.Contains(lower, kw) {
				return f.scene
			}
		}
	}
	return genericVisualScene
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func trimCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}
