package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/natserract/sfsearch/opportunities/services"
	"github.com/natserract/sfsearch/pkg/elasticsearch"
	"github.com/natserract/sfsearch/pkg/storage/postgres"
	"go.uber.org/zap"
)

const (
	sinkElasticsearch = "elasticsearch"
	sinkPostgres      = "postgres"
)

// openSink connects to the configured sink and prepares its index or
// table. The returned func releases the connection.
func openSink(ctx context.Context, name string, logger *zap.Logger) (services.Sink, func(), error) {
	switch name {
	case sinkElasticsearch:
		return openElasticsearch(ctx, logger)
	case sinkPostgres:
		return openPostgres(ctx, logger)
	default:
		return nil, nil, fmt.Errorf("unknown sink %q", name)
	}
}

func openElasticsearch(ctx context.Context, logger *zap.Logger) (services.Sink, func(), error) {
	cfg, err := elasticsearch.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Configured() {
		return nil, nil, errors.New("no Elasticsearch configuration provided (ES_CLUSTER_URL)")
	}

	indexer, err := elasticsearch.NewIndexer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if _, err := indexer.Info(ctx); err != nil {
		return nil, nil, err
	}
	if _, err := indexer.EnsureIndex(ctx); err != nil {
		return nil, nil, err
	}
	return indexer, func() {}, nil
}

func openPostgres(ctx context.Context, logger *zap.Logger) (services.Sink, func(), error) {
	cfg, err := postgres.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := postgres.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	store := postgres.NewDocumentStore(db.Pool(), cfg.Table, logger)
	if err := store.InitSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db.Close, nil
}
