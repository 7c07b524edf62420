// Package opportunity maps Salesforce opportunity records into flat
// documents for indexing and JSON export.
//
// Every outcome of a lookup (found, not found, query failed) produces the
// same Document shape, so consumers never branch on missing keys.
package opportunity

import (
	"time"

	"github.com/natserract/sfsearch/pkg/salesforce"
)

const (
	SourceFound    = "salesforce_opportunity_integration"
	SourceNotFound = SourceFound + "_not_found"
	SourceError    = SourceFound + "_error"

	StatusNotFound = "OPPORTUNITY_NOT_FOUND"
)

// Document is the flat, analytics-ready form of an opportunity.
// Nullable fields are pointers and are written as JSON null.
type Document struct {
	OpportunityID   string  `json:"opportunity_id"`
	OpportunityName string  `json:"opportunity_name"`
	Description     *string `json:"description"`

	Amount               float64 `json:"amount"`
	CurrencyISOCode      string  `json:"currency_iso_code"`
	AmountConverted      float64 `json:"amount_converted"`
	ConvertedCurrency    string  `json:"converted_currency"`
	ConversionRate       float64 `json:"conversion_rate"`
	ConversionSuccessful bool    `json:"conversion_successful"`
	ConversionNote       string  `json:"conversion_note"`
	CloseDate            *string `json:"close_date"`

	StageName   *string `json:"stage_name"`
	Type        *string `json:"type"`
	Probability float64 `json:"probability"`
	IsWon       bool    `json:"is_won"`
	IsClosed    bool    `json:"is_closed"`

	AccountID   *string `json:"account_id"`
	AccountName *string `json:"account_name"`
	OwnerID     *string `json:"owner_id"`
	OwnerName   *string `json:"owner_name"`

	CreatedDate      salesforce.APITime `json:"created_date"`
	LastModifiedDate salesforce.APITime `json:"last_modified_date"`

	ExtractedAt  time.Time `json:"extracted_at"`
	Source       string    `json:"source"`
	ErrorStatus  *string   `json:"error_status"`
	ErrorMessage *string   `json:"error_message"`
}

// Failed reports whether the document stands in for a record that could
// not be read.
func (d Document) Failed() bool {
	return d.ErrorStatus != nil
}

func ptr(s string) *string {
	return &s
}
