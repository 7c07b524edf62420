package salesforce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSOQL_String(t *testing.T) {
	q := SOQL{
		Fields:  []string{"Id", "CaseNumber", "Account.Name"},
		From:    "Case",
		Where:   []string{Eq("AccountId", "001Vv00000ABCDEF"), "IsClosed = false"},
		OrderBy: "CreatedDate DESC",
		Limit:   100,
	}

	assert.Equal(t,
		"SELECT Id, CaseNumber, Account.Name FROM Case WHERE AccountId = '001Vv00000ABCDEF' AND IsClosed = false ORDER BY CreatedDate DESC LIMIT 100",
		q.String())
}

func TestSOQL_StringMinimal(t *testing.T) {
	q := SOQL{Fields: []string{"Id"}, From: "User"}
	assert.Equal(t, "SELECT Id FROM User", q.String())
}

func TestQuote_Escapes(t *testing.T) {
	assert.Equal(t, `'O\'Brien'`, Quote("O'Brien"))
	assert.Equal(t, `'a\\b'`, Quote(`a\b`))
}
