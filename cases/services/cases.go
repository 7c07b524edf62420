package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/natserract/sfsearch/pkg/salesforce"
	"go.uber.org/zap"
)

const (
	DefaultLimit = 1000
	topCaseCount = 10
)

// CaseFields are the Case columns the analysis needs.
var CaseFields = []string{
	"Id", "CaseNumber", "Subject", "Status", "Priority", "Type", "Origin",
	"AccountId", "Account.Name",
	"CreatedDate", "ClosedDate", "IsClosed", "IsEscalated",
	"Owner.Name", "CreatedBy.Name",
}

// Filter selects the cases to retrieve.
type Filter struct {
	AccountID  string `json:"account_id,omitempty"`
	OpenOnly   bool   `json:"open_only"`
	ClosedOnly bool   `json:"closed_only"`
	Limit      int    `json:"limit"`
}

func (f Filter) Validate() error {
	if f.OpenOnly && f.ClosedOnly {
		return errors.New("open-only and closed-only are mutually exclusive")
	}
	if f.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", f.Limit)
	}
	return nil
}

// SOQL renders the Case query, newest first.
func (f Filter) SOQL() string {
	q := salesforce.SOQL{
		Fields:  CaseFields,
		From:    "Case",
		OrderBy: "CreatedDate DESC",
		Limit:   f.Limit,
	}
	if f.AccountID != "" {
		q.Where = append(q.Where, salesforce.Eq("AccountId", f.AccountID))
	}
	switch {
	case f.OpenOnly:
		q.Where = append(q.Where, "IsClosed = false")
	case f.ClosedOnly:
		q.Where = append(q.Where, "IsClosed = true")
	}
	return q.String()
}

// Case is the flattened form of a Case record.
type Case struct {
	ID            string             `json:"case_id"`
	CaseNumber    string             `json:"case_number"`
	Subject       *string            `json:"subject"`
	Status        *string            `json:"status"`
	Priority      *string            `json:"priority"`
	Type          *string            `json:"type"`
	Origin        *string            `json:"origin"`
	AccountID     *string            `json:"account_id"`
	AccountName   *string            `json:"account_name"`
	CreatedDate   salesforce.APITime `json:"created_date"`
	ClosedDate    salesforce.APITime `json:"closed_date"`
	IsClosed      bool               `json:"is_closed"`
	IsEscalated   bool               `json:"is_escalated"`
	OwnerName     *string            `json:"owner_name"`
	CreatedByName *string            `json:"created_by_name"`
}

func MapCase(r salesforce.Record) Case {
	return Case{
		ID:            r.StringOr("Id", ""),
		CaseNumber:    r.StringOr("CaseNumber", ""),
		Subject:       r.String("Subject"),
		Status:        r.String("Status"),
		Priority:      r.String("Priority"),
		Type:          r.String("Type"),
		Origin:        r.String("Origin"),
		AccountID:     r.String("AccountId"),
		AccountName:   r.Related("Account").String("Name"),
		CreatedDate:   r.Time("CreatedDate"),
		ClosedDate:    r.Time("ClosedDate"),
		IsClosed:      r.Bool("IsClosed"),
		IsEscalated:   r.Bool("IsEscalated"),
		OwnerName:     r.Related("Owner").String("Name"),
		CreatedByName: r.Related("CreatedBy").String("Name"),
	}
}

// CaseService retrieves cases from Salesforce.
type CaseService struct {
	client salesforce.SalesforceClient
	logger *zap.Logger
}

func NewCaseService(client salesforce.SalesforceClient, logger *zap.Logger) *CaseService {
	return &CaseService{client: client, logger: logger}
}

// Fetch runs the filter's query across all result pages.
func (s *CaseService) Fetch(ctx context.Context, f Filter) ([]Case, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	soql := f.SOQL()
	s.logger.Info("Querying cases",
		zap.String("account_id", f.AccountID),
		zap.Bool("open_only", f.OpenOnly),
		zap.Bool("closed_only", f.ClosedOnly),
		zap.Int("limit", f.Limit))
	s.logger.Debug("Case query", zap.String("soql", soql))

	records, err := s.client.QueryAll(ctx, soql)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}

	cases := make([]Case, 0, len(records))
	for _, r := range records {
		cases = append(cases, MapCase(r))
	}
	s.logger.Info("Retrieved cases", zap.Int("count", len(cases)))
	return cases, nil
}
