package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/natserract/sfsearch/pkg/currency"
	"github.com/natserract/sfsearch/pkg/opportunity"
	"github.com/natserract/sfsearch/pkg/recordid"
	"github.com/natserract/sfsearch/pkg/salesforce"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Sink receives every document produced, keyed by opportunity id.
type Sink interface {
	Upsert(ctx context.Context, id string, doc any) error
	Name() string
}

// Result is the outcome of processing one URL. Success is true whenever a
// document was produced, including not-found and error documents.
type Result struct {
	URL        string
	Success    bool
	ID         string
	Name       string
	Error      string
	Indexed    bool
	IndexError string
	Document   *opportunity.Document
}

// BatchMetrics tracks the outcome of a batch run
type BatchMetrics struct {
	RunID          string
	Processed      int
	Succeeded      int
	ErrorDocuments int
	Failed         int
	Indexed        int
	IndexFailures  int
	Duration       time.Duration
	mu             sync.Mutex
}

// Add records one result
func (m *BatchMetrics) Add(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Processed++
	if !r.Success {
		m.Failed++
		return
	}
	m.Succeeded++
	if r.Document != nil && r.Document.Failed() {
		m.ErrorDocuments++
	}
	if r.Indexed {
		m.Indexed++
	}
	if r.IndexError != "" {
		m.IndexFailures++
	}
}

// BatchOptions controls ProcessBatch.
type BatchOptions struct {
	// MaxWorkers bounds concurrent lookups; 1 or less processes URLs in order.
	MaxWorkers      int
	ContinueOnError bool
}

// Pipeline turns opportunity URLs into documents and hands them to a sink.
type Pipeline struct {
	client     salesforce.SalesforceClient
	normalizer *currency.Normalizer
	mapper     *opportunity.Mapper
	sink       Sink
	logger     *zap.Logger

	ratesOnce sync.Once
	rates     currency.RateTable
}

// NewPipeline creates a pipeline. sink may be nil for JSON-only runs.
func NewPipeline(client salesforce.SalesforceClient, normalizer *currency.Normalizer, mapper *opportunity.Mapper, sink Sink, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		client:     client,
		normalizer: normalizer,
		mapper:     mapper,
		sink:       sink,
		logger:     logger,
	}
}

// Rates returns the rate table for the mapper's target currency. It is
// fetched once per pipeline.
func (p *Pipeline) Rates(ctx context.Context) currency.RateTable {
	p.ratesOnce.Do(func() {
		p.rates = p.normalizer.GetRates(ctx, p.mapper.TargetCurrency)
	})
	return p.rates
}

// Lookup queries one opportunity and maps it. Query failures become error
// documents.
func (p *Pipeline) Lookup(ctx context.Context, id string) opportunity.Document {
	p.logger.Info("Querying Salesforce for opportunity", zap.String("opportunity_id", id))

	resp, err := p.client.Query(ctx, opportunity.QueryByID(id))
	if err != nil {
		doc := p.mapper.Map(id, nil, nil, err)
		p.logger.Error("Failed to query opportunity",
			zap.String("opportunity_id", id),
			zap.String("error_status", *doc.ErrorStatus),
			zap.Error(err))
		return doc
	}

	if len(resp.Records) == 0 {
		p.logger.Warn("No opportunity found, creating not found record", zap.String("opportunity_id", id))
		return p.mapper.Map(id, nil, nil, nil)
	}

	record := resp.Records[0]
	amount, code := p.mapper.Money(record)
	conversion := p.normalizer.Convert(amount, code, p.mapper.TargetCurrency, p.Rates(ctx))
	if !conversion.Success {
		p.logger.Warn("Currency conversion failed",
			zap.String("opportunity_id", id),
			zap.String("note", conversion.Note))
	}

	doc := p.mapper.Map(id, record, &conversion, nil)
	p.logger.Info("Extracted opportunity data",
		zap.String("opportunity_id", doc.OpportunityID),
		zap.String("opportunity_name", doc.OpportunityName))
	return doc
}

// Process handles one URL: extract the id, look it up and send the
// document to the sink.
func (p *Pipeline) Process(ctx context.Context, url string) Result {
	result := Result{URL: url}

	id, ok := recordid.Opportunity.Extract(url)
	if !ok {
		result.Error = "could not extract opportunity ID from URL"
		p.logger.Warn("Invalid opportunity URL", zap.String("url", url))
		return result
	}
	result.ID = id

	if err := ctx.Err(); err != nil {
		result.Error = fmt.Sprintf("cancelled before lookup: %v", err)
		return result
	}

	doc := p.Lookup(ctx, id)
	// a lookup cut short by cancellation is not an answer from Salesforce
	if err := ctx.Err(); err != nil {
		result.Error = fmt.Sprintf("cancelled during lookup: %v", err)
		p.logger.Warn("Lookup cancelled, document discarded", zap.String("opportunity_id", id), zap.Error(err))
		return result
	}
	result.Document = &doc
	result.Name = doc.OpportunityName
	if doc.Failed() {
		result.Error = *doc.ErrorMessage
	}

	if p.sink != nil {
		if err := p.sink.Upsert(ctx, id, doc); err != nil {
			result.IndexError = fmt.Sprintf("failed to index to %s: %v", p.sink.Name(), err)
			p.logger.Error("Failed to index document",
				zap.String("opportunity_id", id),
				zap.String("sink", p.sink.Name()),
				zap.Error(err))
			if result.Error != "" {
				result.Error += " + " + result.IndexError
			} else {
				result.Error = result.IndexError
			}
		} else {
			result.Indexed = true
		}
	}

	result.Success = true
	if doc.Failed() {
		p.logger.Info("Processed error document",
			zap.String("opportunity_id", id),
			zap.String("error_status", *doc.ErrorStatus))
	} else {
		p.logger.Info("Successfully processed opportunity",
			zap.String("opportunity_id", id),
			zap.String("opportunity_name", doc.OpportunityName))
	}
	return result
}

// ProcessBatch processes urls with up to opts.MaxWorkers concurrent lookups.
// Results keep the order of urls. Unless ContinueOnError is set the first
// failed URL stops the batch and is returned as an error together with the
// results gathered so far.
func (p *Pipeline) ProcessBatch(ctx context.Context, urls []string, opts BatchOptions) ([]Result, *BatchMetrics, error) {
	startTime := time.Now()
	metrics := &BatchMetrics{RunID: uuid.NewString()}
	logger := p.logger.With(zap.String("run_id", metrics.RunID))

	workers := opts.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	logger.Info("Starting batch",
		zap.Int("urls", len(urls)),
		zap.Int("max_workers", workers))

	results := make([]Result, len(urls))
	done := make([]bool, len(urls))

	batchPool := pool.New().WithMaxGoroutines(workers).WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, url := range urls {
		batchPool.Go(func(ctx context.Context) error {
			if ctx.Err() != nil {
				return nil
			}
			r := p.Process(ctx, url)
			if !r.Success && ctx.Err() != nil {
				// cancelled by an earlier failure
				return nil
			}
			results[i] = r
			done[i] = true
			metrics.Add(r)

			if !r.Success && !opts.ContinueOnError {
				return fmt.Errorf("processing failed for %s: %s", url, r.Error)
			}
			return nil
		})
	}
	err := batchPool.Wait()

	processed := make([]Result, 0, len(urls))
	for i := range results {
		if done[i] {
			processed = append(processed, results[i])
		}
	}
	metrics.Duration = time.Since(startTime)

	logger.Info("Completed batch",
		zap.Duration("duration", metrics.Duration),
		zap.Int("processed", metrics.Processed),
		zap.Int("succeeded", metrics.Succeeded),
		zap.Int("error_documents", metrics.ErrorDocuments),
		zap.Int("failed", metrics.Failed),
		zap.Int("indexed", metrics.Indexed),
		zap.Int("index_failures", metrics.IndexFailures))

	return processed, metrics, err
}
