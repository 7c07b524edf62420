package recordid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_URLShapes(t *testing.T) {
	ids := []string{"006Vv00000ABC12", "006Vv00000ABC123XY"}

	for _, id := range ids {
		inputs := []string{
			id,
			"https://acme.lightning.force.com/lightning/r/Opportunity/" + id + "/view",
			"https://acme.my.salesforce.com/" + id,
			"https://acme.my.salesforce.com/one/one.app#/sObject/Opportunity/" + id,
			"https://acme.my.salesforce.com/lightning/r/Opportunity%2F" + id + "%2Fview",
			"https://acme.my.salesforce.com/secur/frontdoor.jsp?retURL=%2F" + id,
			"https://acme.my.salesforce.com/one/one.app#%2FsObject%2F" + id + "%2Fview",
			"see opportunity " + id + " for details",
		}
		for _, in := range inputs {
			got, ok := Opportunity.Extract(in)
			assert.True(t, ok, in)
			assert.Equal(t, id, got, in)
		}
	}
}

func TestExtract_NotFound(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"https://acme.lightning.force.com/lightning/r/Opportunity/ABCDEFGHIJKLMNOP/view",
		"https://acme.lightning.force.com/lightning/r/Account/001Vv00000XYZ789/view",
		"006Vv00000ABC",           // too short
		"006Vv00000ABC123XYZ789Q", // too long
		"https://acme.my.salesforce.com/?retURL=%2F006Vv00000ABC123XYZ789Q",
		"https://example.com/006-not-an-id",
	}
	for _, in := range inputs {
		got, ok := Opportunity.Extract(in)
		assert.False(t, ok, in)
		assert.Empty(t, got, in)
	}
}

func TestExtract_PrefixIsCaseSensitive(t *testing.T) {
	_, ok := Account.Extract("https://acme.lightning.force.com/lightning/r/Account/00aVv00000XYZ789/view")
	assert.False(t, ok)

	id, ok := Account.Extract("https://acme.lightning.force.com/lightning/r/Account/001Vv00000XYZ789/view")
	assert.True(t, ok)
	assert.Equal(t, "001Vv00000XYZ789", id)
}

func TestExtract_SkipsForeignIDsInPath(t *testing.T) {
	// an account id in the path must not hide the opportunity id in the query
	in := "https://acme.lightning.force.com/lightning/r/Account/001Vv00000XYZ789/view?opp=006Vv00000ABC123"
	id, ok := Opportunity.Extract(in)
	assert.True(t, ok)
	assert.Equal(t, "006Vv00000ABC123", id)
}

func TestValidateURL(t *testing.T) {
	assert.True(t, Opportunity.ValidateURL("https://acme.lightning.force.com/lightning/r/Opportunity/006Vv00000ABC123/view"))
	assert.True(t, Opportunity.ValidateURL("https://acme.my.salesforce.com/006Vv00000ABC123"))
	assert.True(t, Opportunity.ValidateURL("https://login.example.com/?startURL=%2Flightning%2Fr%2FOpportunity%2F006Vv00000ABC123%2Fview"))

	assert.True(t, Opportunity.ValidateURL("https://acme.my.salesforce.com/secur/frontdoor.jsp?retURL=%2F006Vv00000ABC123"))
	assert.True(t, Opportunity.ValidateURL("https://acme.my.salesforce.com/one/one.app#%2FsObject%2F006Vv00000ABC123XY%2Fview"))

	assert.False(t, Opportunity.ValidateURL("006Vv00000ABC123"), "bare id is not a URL")
	assert.False(t, Opportunity.ValidateURL("https://example.com/006Vv00000ABC123"))
	assert.False(t, Opportunity.ValidateURL("https://acme.lightning.force.com/lightning/r/Opportunity/home"))
}
