package opportunity

import "strings"

// ErrorRule classifies a query error whose text contains every string in
// Contains.
type ErrorRule struct {
	Contains []string
	Status   string
	Label    string
}

// ErrorRules are evaluated top to bottom; the first match wins.
var ErrorRules = []ErrorRule{
	{Contains: []string{"No such column", "__c"}, Status: "CUSTOM_FIELD_ERROR", Label: "Custom field error"},
	{Contains: []string{"INVALID_FIELD"}, Status: "INVALID_FIELD_ERROR", Label: "Invalid field error"},
	{Contains: []string{"MALFORMED_QUERY"}, Status: "MALFORMED_QUERY_ERROR", Label: "Malformed query error"},
	{Contains: []string{"INSUFFICIENT_ACCESS"}, Status: "ACCESS_ERROR", Label: "Insufficient access to query opportunity"},
}

// DefaultErrorRule applies when no rule matches.
var DefaultErrorRule = ErrorRule{Status: "QUERY_ERROR", Label: "Error querying Salesforce"}

func (r ErrorRule) matches(text string) bool {
	if len(r.Contains) == 0 {
		return false
	}
	for _, s := range r.Contains {
		if !strings.Contains(text, s) {
			return false
		}
	}
	return true
}

// Classify returns the error status and message for err. It always
// returns a status, falling back to DefaultErrorRule.
func Classify(err error, rules []ErrorRule) (status, message string) {
	text := "unknown error"
	if err != nil {
		text = err.Error()
	}

	rule := DefaultErrorRule
	for _, r := range rules {
		if r.matches(text) {
			rule = r
			break
		}
	}
	return rule.Status, rule.Label + ": " + text
}
