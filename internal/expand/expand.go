// Package expand provides keyword-triggered query expansion.
package expand

import "strings"

// rule maps a trigger keyword to the phrase appended when the keyword
// occurs in a question.
type rule struct {
	trigger   string
	expansion string
}

// rules is scanned in order; the first trigger found as a substring of the
// lower-cased question wins and no further rules are applied. Slice order
// is the deterministic iteration order downstream embedding depends on.
var rules = []rule{
	{"contact", "contact email phone address office"},
	{"reach", "contact email phone"},
	{"email", "contact email address"},
	{"phone", "contact phone number"},
	{"price", "pricing fees rates packages"},
	{"cost", "pricing fees rates packages"},
	{"service", "services offerings consulting"},
	{"hire", "services engagement consulting"},
	{"who", "team founders about company"},
	{"team", "team members founders"},
	{"where", "location address office"},
	{"location", "location address office"},
}

// Expand rewrites short or vague questions by appending an expansion
// phrase for the first matching trigger keyword. The original casing of
// the question is preserved; when no trigger matches, the question is
// returned unchanged. Pure function, no I/O.
func Expand(question string) string {
	lowered := strings.ToLower(strings.TrimSpace(question))
	for _, r := range rules {
		if strings.Contains(lowered, r.trigger) {
			return question + " " + r.expansion
		}
	}
	return question
}
