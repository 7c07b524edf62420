package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/natserract/sfsearch/pkg/currency"
	"github.com/natserract/sfsearch/pkg/opportunity"
	"github.com/natserract/sfsearch/pkg/salesforce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	oppID  = "006Vv00000ABC123"
	oppURL = "https://acme.lightning.force.com/lightning/r/Opportunity/006Vv00000ABC123/view"
)

type countingFetcher struct {
	calls atomic.Int32
}

func (f *countingFetcher) Fetch(ctx context.Context, base string) currency.FetchOutcome {
	f.calls.Add(1)
	return currency.FetchOutcome{Err: errors.New("offline")}
}

func setupPipeline(t *testing.T, sink Sink) (*Pipeline, *MockSalesforceClient, *countingFetcher) {
	t.Helper()
	client := new(MockSalesforceClient)
	fetcher := &countingFetcher{}
	normalizer := currency.NewNormalizer(currency.DefaultFallbackRates(), fetcher, zap.NewNop())
	mapper := opportunity.NewMapper("USD", "USD")
	return NewPipeline(client, normalizer, mapper, sink, zap.NewNop()), client, fetcher
}

func eurRecord(id string) *salesforce.QueryResponse {
	return &salesforce.QueryResponse{
		TotalSize: 1,
		Done:      true,
		Records: []salesforce.Record{{
			"Id":              id,
			"Name":            "Acme renewal",
			"Amount":          1000.0,
			"CurrencyIsoCode": "EUR",
			"StageName":       "Prospecting",
			"Account":         map[string]any{"Id": "001Vv00000XYZ789", "Name": "Acme"},
		}},
	}
}

func TestProcess_FoundAndIndexed(t *testing.T) {
	sink := new(MockSink)
	p, client, _ := setupPipeline(t, sink)
	ctx := context.Background()

	client.On("Query", ctx, opportunity.QueryByID(oppID)).Return(eurRecord(oppID), nil)
	sink.On("Upsert", ctx, oppID, mock.AnythingOfType("opportunity.Document")).Return(nil)

	r := p.Process(ctx, oppURL)

	assert.True(t, r.Success)
	assert.True(t, r.Indexed)
	assert.Empty(t, r.Error)
	assert.Equal(t, oppID, r.ID)
	assert.Equal(t, "Acme renewal", r.Name)
	require.NotNil(t, r.Document)
	assert.Equal(t, 1180.0, r.Document.AmountConverted)
	assert.Equal(t, "USD", r.Document.ConvertedCurrency)
	assert.True(t, r.Document.ConversionSuccessful)
	assert.Equal(t, "Acme", *r.Document.AccountName)

	client.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestProcess_InvalidURL(t *testing.T) {
	p, client, _ := setupPipeline(t, nil)

	r := p.Process(context.Background(), "https://example.com/not-an-opportunity")

	assert.False(t, r.Success)
	assert.Equal(t, "could not extract opportunity ID from URL", r.Error)
	assert.Nil(t, r.Document)
	client.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestProcess_NotFoundIsStillIndexed(t *testing.T) {
	sink := new(MockSink)
	p, client, fetcher := setupPipeline(t, sink)
	ctx := context.Background()

	client.On("Query", ctx, mock.Anything).Return(&salesforce.QueryResponse{Done: true}, nil)
	sink.On("Upsert", ctx, oppID, mock.Anything).Return(nil)

	r := p.Process(ctx, oppURL)

	assert.True(t, r.Success)
	assert.True(t, r.Indexed)
	assert.Equal(t, "opportunity deleted or not found", r.Error)
	assert.Equal(t, opportunity.StatusNotFound, *r.Document.ErrorStatus)
	assert.Equal(t, int32(0), fetcher.calls.Load(), "rates are not needed without a record")
	sink.AssertExpectations(t)
}

func TestProcess_QueryErrorBecomesDocument(t *testing.T) {
	p, client, _ := setupPipeline(t, nil)
	ctx := context.Background()

	apiErr := &salesforce.APIError{StatusCode: 400, ErrorCode: "MALFORMED_QUERY", Message: "unexpected token"}
	client.On("Query", ctx, mock.Anything).Return(nil, apiErr)

	r := p.Process(ctx, oppURL)

	assert.True(t, r.Success)
	assert.False(t, r.Indexed)
	assert.Equal(t, "MALFORMED_QUERY_ERROR", *r.Document.ErrorStatus)
	assert.Equal(t, "Malformed query error: MALFORMED_QUERY: unexpected token", r.Error)
}

func TestProcess_SinkFailureIsReported(t *testing.T) {
	sink := new(MockSink)
	p, client, _ := setupPipeline(t, sink)
	ctx := context.Background()

	client.On("Query", ctx, mock.Anything).Return(eurRecord(oppID), nil)
	sink.On("Upsert", ctx, oppID, mock.Anything).Return(errors.New("cluster unavailable"))

	r := p.Process(ctx, oppURL)

	assert.True(t, r.Success)
	assert.False(t, r.Indexed)
	assert.Equal(t, "failed to index to mock sink: cluster unavailable", r.IndexError)
	assert.Equal(t, r.IndexError, r.Error)
}

func TestProcessBatch_FetchesRatesOnce(t *testing.T) {
	p, client, fetcher := setupPipeline(t, nil)
	ids := []string{"006Vv00000AAA111", "006Vv00000BBB222", "006Vv00000CCC333"}

	var urls []string
	for _, id := range ids {
		urls = append(urls, "https://acme.my.salesforce.com/"+id)
		client.On("Query", mock.Anything, opportunity.QueryByID(id)).Return(eurRecord(id), nil)
	}

	results, metrics, err := p.ProcessBatch(context.Background(), urls, BatchOptions{MaxWorkers: 3})

	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, ids[i], r.ID)
	}
	assert.Equal(t, 3, metrics.Processed)
	assert.Equal(t, 3, metrics.Succeeded)
	assert.NotEmpty(t, metrics.RunID)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestProcessBatch_StopsOnFailure(t *testing.T) {
	p, client, _ := setupPipeline(t, nil)
	client.On("Query", mock.Anything, mock.Anything).Return(eurRecord(oppID), nil)

	urls := []string{oppURL, "not a url", oppURL}
	results, metrics, err := p.ProcessBatch(context.Background(), urls, BatchOptions{MaxWorkers: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "processing failed for not a url")
	assert.Len(t, results, 2)
	assert.Equal(t, 1, metrics.Failed)
	assert.Equal(t, 1, metrics.Succeeded)
}

func TestProcessBatch_ContinueOnError(t *testing.T) {
	p, client, _ := setupPipeline(t, nil)
	client.On("Query", mock.Anything, mock.Anything).Return(&salesforce.QueryResponse{Done: true}, nil)

	urls := []string{"not a url", oppURL}
	results, metrics, err := p.ProcessBatch(context.Background(), urls, BatchOptions{MaxWorkers: 1, ContinueOnError: true})

	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 1, metrics.Failed)
	assert.Equal(t, 1, metrics.Succeeded)
	assert.Equal(t, 1, metrics.ErrorDocuments)
}

func TestProcess_CancelledContextSkipsLookup(t *testing.T) {
	sink := new(MockSink)
	p, client, _ := setupPipeline(t, sink)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := p.Process(ctx, oppURL)

	assert.False(t, r.Success)
	assert.Nil(t, r.Document)
	assert.Contains(t, r.Error, "cancelled before lookup")
	client.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
	sink.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_CancelledLookupIsNotIndexed(t *testing.T) {
	sink := new(MockSink)
	p, client, _ := setupPipeline(t, sink)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client.On("Query", ctx, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	r := p.Process(ctx, oppURL)

	assert.False(t, r.Success)
	assert.False(t, r.Indexed)
	assert.Nil(t, r.Document)
	assert.Contains(t, r.Error, "cancelled during lookup")
	sink.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessBatch_CancelledLookupsAreNotRecorded(t *testing.T) {
	sink := new(MockSink)
	p, client, _ := setupPipeline(t, sink)

	// the lookup, when it gets to run, only returns once the batch is cancelled
	client.On("Query", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()

	urls := []string{oppURL, "not a url"}
	results, metrics, err := p.ProcessBatch(context.Background(), urls, BatchOptions{MaxWorkers: 2})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "processing failed for not a url")
	require.Len(t, results, 1)
	assert.Equal(t, "not a url", results[0].URL)
	assert.Equal(t, 1, metrics.Failed)
	assert.Equal(t, 0, metrics.Succeeded)
	sink.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}
