package services

import (
	"context"

	"github.com/natserract/sfsearch/pkg/salesforce"
	"github.com/stretchr/testify/mock"
)

type MockSalesforceClient struct {
	mock.Mock
}

func (m *MockSalesforceClient) Query(ctx context.Context, soql string) (*salesforce.QueryResponse, error) {
	args := m.Called(ctx, soql)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesforce.QueryResponse), args.Error(1)
}

func (m *MockSalesforceClient) QueryAll(ctx context.Context, soql string) ([]salesforce.Record, error) {
	args := m.Called(ctx, soql)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]salesforce.Record), args.Error(1)
}
