package salesforce

import "context"

// SalesforceClient defines the interface for Salesforce API operations
type SalesforceClient interface {
	// Query runs a SOQL query and returns the first page of results
	Query(ctx context.Context, soql string) (*QueryResponse, error)

	// QueryAll runs a SOQL query and returns the records of every page
	QueryAll(ctx context.Context, soql string) ([]Record, error)
}
