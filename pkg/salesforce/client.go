// Package salesforce provides a client for the Salesforce core REST API.
//
// Sessions come either from the environment (SF_INSTANCE_URL plus
// SF_ACCESS_TOKEN) or from the token the sf CLI stores for an org alias after
// `sf org login web`. Queries are plain SOQL strings sent to the query
// endpoint; results are returned as loosely typed Records so callers can
// flatten relationship fields themselves.
package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/natserract/sfsearch/pkg/config"
	httpclient "github.com/natserract/sfsearch/pkg/http"
	"go.uber.org/zap"
)

// Salesforce is the main client for interacting with the Salesforce REST API
type Salesforce struct {
	config     *config.Config
	httpClient *httpclient.Client
	tokenCache *tokenCache
	run        CommandRunner
	logger     *zap.Logger
}

// tokenCache holds the current session with thread-safe access
type tokenCache struct {
	mu      sync.RWMutex
	session *Session
}

// NewSalesforceWithLogger creates a new Salesforce client with a custom logger
func NewSalesforceWithLogger(cfg *config.Config, logger *zap.Logger) *Salesforce {
	return &Salesforce{
		config:     cfg,
		httpClient: httpclient.NewClientWithLogger(logger),
		tokenCache: &tokenCache{},
		run:        ExecRunner,
		logger:     logger,
	}
}

// WithCommandRunner replaces the runner used to invoke the sf CLI.
func (s *Salesforce) WithCommandRunner(run CommandRunner) *Salesforce {
	s.run = run
	return s
}

// Connect establishes a session up front so authentication problems
// surface before any record is processed.
func (s *Salesforce) Connect(ctx context.Context) error {
	_, err := s.getSession(ctx)
	return err
}

// Query runs a SOQL query and returns the first page of results.
// An expired session is refreshed once.
func (s *Salesforce) Query(ctx context.Context, soql string) (*QueryResponse, error) {
	session, err := s.getSession(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Running SOQL query", zap.String("soql", soql))
	resp, err := s.queryWithSession(ctx, session, soql)
	if err != nil && isSessionExpired(err) && !s.config.HasStaticToken() {
		s.logger.Warn("Session expired, re-authenticating")
		s.invalidateSession()
		if session, err = s.getSession(ctx); err != nil {
			return nil, err
		}
		resp, err = s.queryWithSession(ctx, session, soql)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Query completed",
		zap.Int("total_size", resp.TotalSize),
		zap.Int("records", len(resp.Records)),
		zap.Bool("done", resp.Done))
	return resp, nil
}

// QueryAll runs a SOQL query and follows nextRecordsUrl until every page
// has been read.
func (s *Salesforce) QueryAll(ctx context.Context, soql string) ([]Record, error) {
	resp, err := s.Query(ctx, soql)
	if err != nil {
		return nil, err
	}

	records := append([]Record{}, resp.Records...)
	for !resp.Done && resp.NextRecordsURL != "" {
		session, err := s.getSession(ctx)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("Fetching next query page", zap.String("next_records_url", resp.NextRecordsURL))
		resp, err = s.get(ctx, session, strings.TrimRight(session.InstanceURL, "/")+resp.NextRecordsURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch next records page: %w", err)
		}
		records = append(records, resp.Records...)
	}

	s.logger.Info("Successfully retrieved records", zap.Int("count", len(records)))
	return records, nil
}

func (s *Salesforce) queryWithSession(ctx context.Context, session *Session, soql string) (*QueryResponse, error) {
	endpoint, err := httpclient.BuildURL(session.InstanceURL,
		fmt.Sprintf("/services/data/%s/query", s.config.APIVersion),
		map[string]string{"q": soql})
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	return s.get(ctx, session, endpoint)
}

func (s *Salesforce) get(ctx context.Context, session *Session, endpoint string) (*QueryResponse, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + session.AccessToken,
	}

	resp, err := s.httpClient.Get(ctx, endpoint, headers)
	if err != nil {
		return nil, decodeAPIError(err)
	}

	var queryResp QueryResponse
	if err := json.Unmarshal(resp.Body, &queryResp); err != nil {
		s.logger.Error("Failed to parse query response", zap.Error(err))
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}
	return &queryResp, nil
}

// decodeAPIError turns an HTTP status error carrying the API's JSON error
// array into an *APIError. Other errors are returned unchanged.
func decodeAPIError(err error) error {
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	var apiErrs []APIError
	if jsonErr := json.Unmarshal(statusErr.Body, &apiErrs); jsonErr != nil || len(apiErrs) == 0 {
		return &APIError{StatusCode: statusErr.StatusCode, Message: strings.TrimSpace(string(statusErr.Body))}
	}

	apiErr := apiErrs[0]
	apiErr.StatusCode = statusErr.StatusCode
	return &apiErr
}

func isSessionExpired(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.ErrorCode == "INVALID_SESSION_ID"
}
