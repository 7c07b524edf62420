package salesforce

import (
	"strconv"
	"strings"
)

// SOQL builds a SELECT statement.
type SOQL struct {
	Fields  []string
	From    string
	Where   []string
	OrderBy string
	Limit   int
}

// String renders the query. Where conditions are joined with AND.
func (q SOQL) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.Fields, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.From)
	if len(q.Where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.Where, " AND "))
	}
	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.OrderBy)
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
	}
	return b.String()
}

var soqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Quote returns v as a SOQL string literal.
func Quote(v string) string {
	return "'" + soqlEscaper.Replace(v) + "'"
}

// Eq renders `field = 'value'`.
func Eq(field, value string) string {
	return field + " = " + Quote(value)
}
