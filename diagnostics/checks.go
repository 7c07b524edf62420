package main

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/natserract/sfsearch/pkg/config"
	"github.com/natserract/sfsearch/pkg/elasticsearch"
	"github.com/natserract/sfsearch/pkg/salesforce"
	"github.com/natserract/sfsearch/pkg/storage/postgres"
	"go.uber.org/zap"
)

// Check is the outcome of one diagnostic step.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

type Report struct {
	Checks []Check
}

func (r *Report) Pass(name, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, OK: true, Detail: detail})
}

func (r *Report) Fail(name string, err error) {
	r.Checks = append(r.Checks, Check{Name: name, Detail: err.Error()})
}

func (r *Report) Failed() int {
	n := 0
	for _, c := range r.Checks {
		if !c.OK {
			n++
		}
	}
	return n
}

type envVar struct {
	name   string
	secret bool
}

var envVars = []envVar{
	{"SF_INSTANCE_URL", false},
	{"SF_ACCESS_TOKEN", true},
	{"SF_ORG_ALIAS", false},
	{"SF_TARGET_CURRENCY", false},
	{"ES_CLUSTER_URL", false},
	{"ES_API_KEY", true},
	{"ES_USERNAME", false},
	{"ES_PASSWORD", true},
	{"ES_INDEX", false},
	{"ES_VERIFY_CERTS", false},
	{"DB_HOST", false},
	{"DB_PASSWORD", true},
}

// EnvStatus lists the known variables and whether they are set. Secret
// values are never shown.
func EnvStatus(lookup func(string) (string, bool)) []string {
	lines := make([]string, 0, len(envVars))
	for _, v := range envVars {
		val, ok := lookup(v.name)
		switch {
		case !ok || val == "":
			lines = append(lines, fmt.Sprintf("%-20s not set", v.name))
		case v.secret:
			lines = append(lines, fmt.Sprintf("%-20s set (%s)", v.name, mask(val)))
		default:
			lines = append(lines, fmt.Sprintf("%-20s %s", v.name, val))
		}
	}
	return lines
}

func mask(v string) string {
	if len(v) <= 8 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + strings.Repeat("*", 4) + fmt.Sprintf(" %d chars", len(v))
}

// CheckSFBinary looks for the sf CLI on PATH.
func CheckSFBinary(r *Report, lookPath func(string) (string, error)) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath("sf")
	if err != nil {
		r.Fail("sf CLI", fmt.Errorf("sf not found on PATH: %w", err))
		return
	}
	r.Pass("sf CLI", path)
}

// CheckSalesforce opens a session the same way the export tools do and runs
// a trivial query with it. It never starts a web login; run is wrapped so
// that `sf org login` is refused.
func CheckSalesforce(ctx context.Context, r *Report, cfg *config.Config, run salesforce.CommandRunner, logger *zap.Logger) {
	if run == nil {
		run = salesforce.ExecRunner
	}
	client := salesforce.NewSalesforceWithLogger(cfg, logger).WithCommandRunner(withoutLogin(run))

	if err := client.Connect(ctx); err != nil {
		r.Fail("Salesforce session", err)
		return
	}
	if _, err := client.Query(ctx, "SELECT Id FROM User LIMIT 1"); err != nil {
		r.Fail("Salesforce session", fmt.Errorf("session rejected: %w", err))
		return
	}

	source := "sf CLI org " + cfg.OrgAlias
	if cfg.HasStaticToken() {
		source = "SF_ACCESS_TOKEN for " + cfg.InstanceURL
	}
	r.Pass("Salesforce session", source)
}

func withoutLogin(run salesforce.CommandRunner) salesforce.CommandRunner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if len(args) >= 2 && args[0] == "org" && args[1] == "login" {
			return nil, errors.New("stored sf CLI session is invalid; run `sf org login web` first")
		}
		return run(ctx, name, args...)
	}
}

// ProbeElasticsearch connects to the cluster, makes sure the index exists
// and round-trips a throwaway document.
func ProbeElasticsearch(ctx context.Context, r *Report, cfg *elasticsearch.Config, logger *zap.Logger) {
	if err := cfg.Validate(); err != nil {
		r.Fail("Elasticsearch config", err)
		return
	}
	r.Pass("Elasticsearch config", fmt.Sprintf("%s (%s auth, index %s)", cfg.ClusterURL, cfg.AuthType(), cfg.Index))

	indexer, err := elasticsearch.NewIndexer(cfg, logger)
	if err != nil {
		r.Fail("Elasticsearch client", err)
		return
	}

	info, err := indexer.Info(ctx)
	if err != nil {
		r.Fail("Elasticsearch connection", err)
		return
	}
	r.Pass("Elasticsearch connection", fmt.Sprintf("cluster %s, version %s", info.ClusterName, info.Version.Number))

	created, err := indexer.EnsureIndex(ctx)
	if err != nil {
		r.Fail("Elasticsearch index", err)
		return
	}
	if created {
		r.Pass("Elasticsearch index", "created "+cfg.Index)
	} else {
		r.Pass("Elasticsearch index", "exists "+cfg.Index)
	}

	id := "diagnostic-" + uuid.NewString()
	probe := map[string]any{"diagnostic": true, "created_at": time.Now().UTC()}
	if err := indexer.Upsert(ctx, id, probe); err != nil {
		r.Fail("Elasticsearch write", err)
		return
	}
	if err := indexer.Delete(ctx, id); err != nil {
		r.Fail("Elasticsearch write", fmt.Errorf("probe document %s indexed but not deleted: %w", id, err))
		return
	}
	r.Pass("Elasticsearch write", "indexed and deleted probe document")
}

func ProbePostgres(ctx context.Context, r *Report, logger *zap.Logger) {
	cfg, err := postgres.LoadConfig()
	if err != nil {
		r.Fail("PostgreSQL config", err)
		return
	}
	db, err := postgres.New(ctx, cfg, logger)
	if err != nil {
		r.Fail("PostgreSQL connection", err)
		return
	}
	defer db.Close()

	store := postgres.NewDocumentStore(db.Pool(), cfg.Table, logger)
	if err := store.InitSchema(ctx); err != nil {
		r.Fail("PostgreSQL table", err)
		return
	}
	r.Pass("PostgreSQL table", store.Name())
}
