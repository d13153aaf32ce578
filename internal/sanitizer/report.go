package sanitizer

import "golang.org/x/text/unicode/norm"

// Change records one replacement rule that fired on the original text.
type Change struct {
	Terms       []string `json:"original_terms"`
	Replacement string   `json:"replacement"`
	Count       int      `json:"count"`
}

// Report describes what Sanitize did to a piece of text. It is diagnostic only.
type Report struct {
	OriginalLength  int      `json:"original_length"`
	SanitizedLength int      `json:"sanitized_length"`
	Changes         []Change `json:"changes"`
	IsSafe          bool     `json:"is_safe"`
}

// NewReport compares original and sanitized text. The safety verdict is for
// the sanitized text.
func NewReport(original, sanitized string) Report {
	rep := Report{
		OriginalLength:  len([]rune(original)),
		SanitizedLength: len([]rune(sanitized)),
		IsSafe:          IsProbablySafe(sanitized),
	}
	normalized := whitespace.ReplaceAllString(norm.NFKC.String(original), " ")
	for _, r := range replacements {
		matches := r.pattern.FindAllString(normalized, -1)
		if len(matches) == 0 {
			continue
		}
		rep.Changes = append(rep.Changes, Change{
			Terms:       matches,
			Replacement: r.with,
			Count:       len(matches),
		})
	}
	return rep
}
