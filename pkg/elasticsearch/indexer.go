// Package elasticsearch indexes documents into an Elasticsearch cluster.
package elasticsearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// Indexer writes documents into one index, keyed by document id so that
// re-running an export overwrites instead of duplicating.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger *zap.Logger
}

// ClusterInfo is the subset of the root endpoint response we report.
type ClusterInfo struct {
	ClusterName string `json:"cluster_name"`
	Version     struct {
		Number string `json:"number"`
	} `json:"version"`
}

// NewIndexer creates a client for cfg. It does not contact the cluster;
// call Info to verify connectivity.
func NewIndexer(cfg *Config, logger *zap.Logger) (*Indexer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid elasticsearch config: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.RequestTimeout
	if !cfg.VerifyCerts {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	esCfg := elasticsearch.Config{
		Addresses:  []string{cfg.ClusterURL},
		MaxRetries: cfg.MaxRetries,
		Transport:  transport,
	}
	if cfg.AuthType() == AuthAPIKey {
		esCfg.APIKey = cfg.APIKey
	} else {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	logger.Debug("Created elasticsearch client",
		zap.String("cluster_url", cfg.ClusterURL),
		zap.String("index", cfg.Index),
		zap.String("auth_type", cfg.AuthType()))

	return &Indexer{client: client, index: cfg.Index, logger: logger}, nil
}

// Info fetches cluster information, failing when the cluster is unreachable
// or rejects the credentials.
func (ix *Indexer) Info(ctx context.Context) (*ClusterInfo, error) {
	res, err := ix.client.Info(ix.client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("cluster info", res)
	}

	var info ClusterInfo
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse cluster info: %w", err)
	}

	ix.logger.Info("Connected to elasticsearch",
		zap.String("cluster_name", info.ClusterName),
		zap.String("version", info.Version.Number))
	return &info, nil
}

// EnsureIndex creates the index with dynamic mapping when it is missing.
func (ix *Indexer) EnsureIndex(ctx context.Context) (created bool, err error) {
	res, err := ix.client.Indices.Exists([]string{ix.index}, ix.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check index %s: %w", ix.index, err)
	}
	res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		ix.logger.Debug("Index exists", zap.String("index", ix.index))
		return false, nil
	case res.StatusCode != http.StatusNotFound:
		return false, fmt.Errorf("failed to check index %s: unexpected status %d", ix.index, res.StatusCode)
	}

	res, err = ix.client.Indices.Create(ix.index, ix.client.Indices.Create.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to create index %s: %w", ix.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return false, responseError("create index "+ix.index, res)
	}

	ix.logger.Info("Created index", zap.String("index", ix.index))
	return true, nil
}

// Upsert indexes doc under id, replacing any previous version.
func (ix *Indexer) Upsert(ctx context.Context, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", id, err)
	}

	req := esapi.IndexRequest{
		Index:      ix.index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("failed to index document %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("index document "+id, res)
	}

	var result struct {
		Result  string `json:"result"`
		Version int    `json:"_version"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		ix.logger.Debug("Could not parse index response", zap.Error(err))
	}

	ix.logger.Info("Indexed document",
		zap.String("index", ix.index),
		zap.String("id", id),
		zap.String("result", result.Result),
		zap.Int("version", result.Version))
	return nil
}

// Delete removes the document stored under id. A missing document is not
// an error.
func (ix *Indexer) Delete(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: ix.index, DocumentID: id}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete document "+id, res)
	}
	return nil
}

// Name identifies the sink in logs.
func (ix *Indexer) Name() string {
	return "elasticsearch " + ix.index
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("%s failed: %s: %s", op, res.Status(), bytes.TrimSpace(body))
}
