package sanitizer

// ForestFallback is the content-neutral description used once every other
// mitigation has been tried.
const ForestFallback = "A character awakens in a peaceful forest clearing. " +
	"They are confused about their identity and past. " +
	"The environment is calm and mysterious."

// euphemisms soften the amnesia premise itself. They run before Sanitize so
// "bandit attack" is seen before "attack" is rewritten.
var euphemisms = []replacement{
	rule(`\bbandit attack\b`, "unexpected event"),
	rule(`\bunconscious\b`, "resting"),
	rule(`\bamnesia\b`, "memory loss"),
	rule(`\brobbed\b`, "things taken"),
	rule(`\bhit\b`, "affected"),
	rule(`\bwound\b`, "mark"),
	rule(`\bpain\b`, "discomfort"),
}

// ApplyProgressive escalates with level: 0 runs Sanitize, 1 also applies the
// premise euphemisms, and 2 or more returns ForestFallback regardless of input.
func ApplyProgressive(text string, level int) string {
	if level >= 2 {
		return ForestFallback
	}
	if level >= 1 {
		text = applyAll(euphemisms, whitespace.ReplaceAllString(text, " "))
	}
	return Sanitize(text)
}

func applyAll(rules []replacement, text string) string {
	for _, r := range rules {
		text = r.pattern.ReplaceAllString(text, r.with)
	}
	return text
}
