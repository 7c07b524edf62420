package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_Get_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClientWithLogger(zap.NewNop())
	resp, err := c.Get(context.Background(), srv.URL, map[string]string{"Authorization": "Bearer token"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestClient_Do_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`[{"errorCode":"INVALID_FIELD","message":"No such column"}]`))
	}))
	defer srv.Close()

	c := NewClientWithLogger(zap.NewNop())
	_, err := c.Get(context.Background(), srv.URL, nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "INVALID_FIELD")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Do_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClientWithLogger(zap.NewNop())
	resp, err := c.Do(RequestOptions{
		URL:             srv.URL,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_Do_MaxTries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClientWithLogger(zap.NewNop())
	_, err := c.Do(RequestOptions{
		URL:             srv.URL,
		MaxTries:        2,
		InitialInterval: time.Millisecond,
	})
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_Do_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClientWithLogger(zap.NewNop())
	start := time.Now()
	_, err := c.Do(RequestOptions{URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBuildURL(t *testing.T) {
	u, err := BuildURL("https://example.my.salesforce.com/", "/services/data/v59.0/query", map[string]string{
		"q": "SELECT Id FROM User LIMIT 1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.my.salesforce.com/services/data/v59.0/query?q=SELECT+Id+FROM+User+LIMIT+1", u)

	u, err = BuildURL("https://rates.example.com/v4/latest", "EUR", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://rates.example.com/v4/latest/EUR", u)
}
