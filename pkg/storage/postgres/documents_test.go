package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDocumentStore_InitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "opportunity_documents"`)).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	store := NewDocumentStore(mock, "opportunity_documents", zap.NewNop())
	require.NoError(t, store.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStore_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "opportunity_documents" (id, document) VALUES ($1, $2::jsonb)`)).
		WithArgs("006Vv00000ABC123", `{"opportunity_id":"006Vv00000ABC123","amount":100}`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewDocumentStore(mock, "opportunity_documents", zap.NewNop())
	doc := struct {
		ID     string  `json:"opportunity_id"`
		Amount float64 `json:"amount"`
	}{"006Vv00000ABC123", 100}

	require.NoError(t, store.Upsert(context.Background(), "006Vv00000ABC123", doc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStore_UpsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO").
		WithArgs("006Vv00000ABC123", pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	store := NewDocumentStore(mock, "opportunity_documents", zap.NewNop())
	err = store.Upsert(context.Background(), "006Vv00000ABC123", map[string]any{"a": 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert document 006Vv00000ABC123")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentStore_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "probe_docs" WHERE id = $1`)).
		WithArgs("probe").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	store := NewDocumentStore(mock, "probe_docs", zap.NewNop())
	require.NoError(t, store.Delete(context.Background(), "probe"))
	assert.Equal(t, `postgres "probe_docs"`, store.Name())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Host: "localhost", Port: 5432, Database: "sfsearch", Table: "opportunity_documents", MaxConns: 5, MinConns: 1}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing host", func(c *Config) { c.Host = "" }},
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"uppercase table", func(c *Config) { c.Table = "Docs" }},
		{"injected table", func(c *Config) { c.Table = "docs; drop table x" }},
		{"min over max", func(c *Config) { c.MinConns = 10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "opportunity_documents", cfg.Table)
	assert.Equal(t, "host=db.internal port=5432 user=postgres password= dbname=sfsearch sslmode=disable", cfg.DSN())
}
