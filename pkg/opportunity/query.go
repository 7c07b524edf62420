package opportunity

import "github.com/natserract/sfsearch/pkg/salesforce"

// Fields are the standard Opportunity fields available in every org.
var Fields = []string{
	"Id",
	"Name",
	"Account.Id",
	"Account.Name",
	"CloseDate",
	"Amount",
	"CurrencyIsoCode",
	"StageName",
	"Type",
	"Probability",
	"IsWon",
	"IsClosed",
	"CreatedDate",
	"LastModifiedDate",
	"Owner.Name",
	"Owner.Id",
	"Description",
}

// QueryByID returns the SOQL selecting one opportunity.
func QueryByID(id string) string {
	return salesforce.SOQL{
		Fields: Fields,
		From:   "Opportunity",
		Where:  []string{salesforce.Eq("Id", id)},
		Limit:  1,
	}.String()
}
