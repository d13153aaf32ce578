package story

import (
	"strings"

	"scenegen/internal/domain"
)

func buildPrompt(req domain.StoryRequest) string {
	var b strings.Builder
	b.WriteString("You are the narrator of a choice-driven fantasy role-playing game.\n\n")
	b.WriteString("CHARACTER: ")
	b.WriteString(strings.TrimSpace(req.CharacterDescription))
	b.WriteString("\n")
	if ctx := strings.TrimSpace(req.SceneContext); ctx != "" {
		b.WriteString("SITUATION: ")
		b.WriteString(ctx)
		b.WriteString("\n")
	}
	if prev := strings.TrimSpace(req.PreviousChoice); prev != "" {
		b.WriteString("PREVIOUS CHOICE: ")
		b.WriteString(prev)
		b.WriteString("\n")
	}
	b.WriteString(`
Write the next scene as the character's internal monologue. Reply with exactly these lines and nothing else:
NARRATION: [40-60 words, first person, present tense]
VISUAL_SCENE: [30-50 words describing the environment for an illustrator: location, lighting, objects, mood]
CHOICE_1: [a careful survival action]
CHOICE_2: [an investigative action]
CHOICE_3: [a defensive action]
CHOICE_4: [a reflective action]
`)
	return b.String()
}
