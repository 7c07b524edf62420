package opportunity

import (
	"time"

	"github.com/natserract/sfsearch/pkg/config"
	"github.com/natserract/sfsearch/pkg/currency"
	"github.com/natserract/sfsearch/pkg/salesforce"
)

// Mapper builds Documents. The zero value is not usable; see NewMapper.
type Mapper struct {
	TargetCurrency  string
	DefaultCurrency string
	Rules           []ErrorRule
	Now             func() time.Time
}

// NewMapper creates a Mapper converting into target. Records without a
// CurrencyIsoCode are assumed to be in defaultCurrency.
func NewMapper(target, defaultCurrency string) *Mapper {
	return &Mapper{
		TargetCurrency:  config.NormalizeCurrency(target),
		DefaultCurrency: config.NormalizeCurrency(defaultCurrency),
		Rules:           ErrorRules,
		Now:             time.Now,
	}
}

// Money returns the record's amount and currency code. A missing amount
// is 0 and a missing code is the mapper's default currency.
func (m *Mapper) Money(record salesforce.Record) (float64, string) {
	amount, _ := record.Float("Amount")
	code := config.NormalizeCurrency(record.StringOr("CurrencyIsoCode", ""))
	if code == "" {
		code = m.DefaultCurrency
	}
	return amount, code
}

// Map builds the document for id. A non-nil queryErr yields an error
// document, a nil record a not-found document, and anything else the
// mapped record. conversion may be nil when no conversion was attempted.
func (m *Mapper) Map(id string, record salesforce.Record, conversion *currency.ConversionResult, queryErr error) Document {
	switch {
	case queryErr != nil:
		return m.errorDocument(id, queryErr)
	case record == nil:
		return m.notFoundDocument(id)
	default:
		return m.found(id, record, conversion)
	}
}

func (m *Mapper) found(id string, record salesforce.Record, conversion *currency.ConversionResult) Document {
	amount, code := m.Money(record)
	probability, _ := record.Float("Probability")
	account := record.Related("Account")
	owner := record.Related("Owner")

	doc := Document{
		OpportunityID:   record.StringOr("Id", id),
		OpportunityName: record.StringOr("Name", ""),
		Description:     record.String("Description"),

		Amount:          amount,
		CurrencyISOCode: code,
		CloseDate:       record.String("CloseDate"),

		StageName:   record.String("StageName"),
		Type:        record.String("Type"),
		Probability: probability,
		IsWon:       record.Bool("IsWon"),
		IsClosed:    record.Bool("IsClosed"),

		AccountID:   account.String("Id"),
		AccountName: account.String("Name"),
		OwnerID:     owner.String("Id"),
		OwnerName:   owner.String("Name"),

		CreatedDate:      record.Time("CreatedDate"),
		LastModifiedDate: record.Time("LastModifiedDate"),

		ExtractedAt: m.now(),
		Source:      SourceFound,
	}

	if conversion != nil {
		doc.AmountConverted = conversion.ConvertedAmount
		doc.ConvertedCurrency = conversion.TargetCurrency
		doc.ConversionRate = conversion.Rate
		doc.ConversionSuccessful = conversion.Success
		doc.ConversionNote = conversion.Note
	} else {
		doc.AmountConverted = amount
		doc.ConvertedCurrency = code
		doc.ConversionRate = 1.0
		doc.ConversionNote = "conversion not attempted"
	}
	return doc
}

func (m *Mapper) notFoundDocument(id string) Document {
	doc := m.placeholder(id)
	doc.OpportunityName = "OPPORTUNITY NOT FOUND"
	doc.Description = ptr("opportunity deleted or not found")
	doc.ConversionNote = "No amount to convert"
	doc.StageName = ptr("NOT_FOUND")
	doc.Type = ptr("MISSING")
	doc.AccountName = ptr("UNKNOWN")
	doc.OwnerName = ptr("UNKNOWN")
	doc.Source = SourceNotFound
	doc.ErrorStatus = ptr(StatusNotFound)
	doc.ErrorMessage = ptr("opportunity deleted or not found")
	return doc
}

func (m *Mapper) errorDocument(id string, queryErr error) Document {
	rules := m.Rules
	if rules == nil {
		rules = ErrorRules
	}
	status, message := Classify(queryErr, rules)

	doc := m.placeholder(id)
	doc.OpportunityName = "ERROR: " + status
	doc.Description = ptr(message)
	doc.ConversionNote = "No amount to convert (error)"
	doc.StageName = ptr("ERROR")
	doc.Type = ptr("ERROR")
	doc.AccountName = ptr("ERROR")
	doc.OwnerName = ptr("ERROR")
	doc.Source = SourceError
	doc.ErrorStatus = ptr(status)
	doc.ErrorMessage = ptr(message)
	return doc
}

// placeholder holds the sentinel values shared by not-found and error
// documents.
func (m *Mapper) placeholder(id string) Document {
	return Document{
		OpportunityID:        id,
		Amount:               0,
		CurrencyISOCode:      "USD",
		AmountConverted:      0,
		ConvertedCurrency:    m.TargetCurrency,
		ConversionRate:       1.0,
		ConversionSuccessful: true,
		ExtractedAt:          m.now(),
	}
}

func (m *Mapper) now() time.Time {
	if m.Now == nil {
		return time.Now().UTC()
	}
	return m.Now().UTC()
}
