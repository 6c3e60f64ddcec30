package httpclient

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoJSONDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"ok"}`))
	}))
	defer srv.Close()

	client := NewClient(5*time.Second, 0)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	var out struct {
		Answer string `json:"answer"`
	}
	require.NoError(t, client.DoJSON(req, &out))
	assert.Equal(t, "ok", out.Answer)
}

func TestDoJSONReportsClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(5*time.Second, 0)
	req, err := http.NewRequest(http.MethodPost, srv.URL, bytes.NewBufferString(`{}`))
	require.NoError(t, err)

	err = client.DoJSON(req, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestRetriesOnServerErrorAndReplaysBody(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, 2)
		_, _ = r.Body.Read(body)
		assert.Equal(t, "{}", string(body))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(5*time.Second, 2)
	req, err := http.NewRequest(http.MethodPost, srv.URL, bytes.NewBufferString(`{}`))
	require.NoError(t, err)

	resp, err := client.DoRequest(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestNoRetryWhenMaxRetriesZero(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(5*time.Second, 0)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = client.DoRequest(req)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
