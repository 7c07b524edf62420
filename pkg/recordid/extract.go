// Package recordid finds Salesforce record ids in URLs and free-form text.
//
// A record id is a three character key prefix ("006" for opportunities,
// "001" for accounts) followed by 12 to 15 alphanumerics, giving the 15
// character case-sensitive form or the 18 character case-insensitive form.
package recordid

import (
	"fmt"
	"regexp"
	"strings"
)

// Extractor locates ids of one entity type.
type Extractor struct {
	Prefix string
	Entity string

	raw      *regexp.Regexp
	patterns []*regexp.Regexp
}

var (
	Opportunity = New("006", "Opportunity")
	Account     = New("001", "Account")
)

// An id starts at the beginning of the string, after a separator, or after
// a percent-encoded slash.
const (
	idBoundaryStart = `(?:^|%2[Ff]|[^A-Za-z0-9])`
	idBoundaryEnd   = `(?:[^A-Za-z0-9]|$)`
)

// New compiles the lookup patterns for an entity. Patterns are tried in
// order: the bare prefixed id anywhere in the string, a /Entity/<id> path
// segment, then the URL-encoded Entity%2F<id> form used in redirect links.
func New(prefix, entity string) *Extractor {
	p := regexp.QuoteMeta(prefix)
	e := regexp.QuoteMeta(entity)
	return &Extractor{
		Prefix: prefix,
		Entity: entity,
		raw:    regexp.MustCompile(fmt.Sprintf(`^%s[A-Za-z0-9]{12,15}$`, p)),
		patterns: []*regexp.Regexp{
			regexp.MustCompile(fmt.Sprintf(`%s(%s[A-Za-z0-9]{12,15})%s`, idBoundaryStart, p, idBoundaryEnd)),
			regexp.MustCompile(fmt.Sprintf(`/%s/([A-Za-z0-9]{15,18})%s`, e, idBoundaryEnd)),
			regexp.MustCompile(fmt.Sprintf(`%s%%2[Ff]([A-Za-z0-9]{15,18})%s`, e, idBoundaryEnd)),
		},
	}
}

// Extract returns the first id found in s. ok is false when no candidate
// carries the expected prefix.
func (x *Extractor) Extract(s string) (id string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if x.raw.MatchString(s) {
		return s, true
	}

	for _, re := range x.patterns {
		for _, m := range re.FindAllStringSubmatch(s, -1) {
			if strings.HasPrefix(m[1], x.Prefix) {
				return m[1], true
			}
		}
	}
	return "", false
}

// ValidateURL reports whether s looks like a Salesforce link to this entity
// and carries an extractable id.
func (x *Extractor) ValidateURL(s string) bool {
	lower := strings.ToLower(s)
	indicators := []string{
		".salesforce.com",
		".lightning.force.com",
		strings.ToLower("/lightning/r/" + x.Entity + "/"),
		strings.ToLower(x.Entity + "%2f"),
	}

	found := false
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	_, ok := x.Extract(s)
	return ok
}
