package director

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/shipwright/internal/config"
	"github.com/cameronsjo/shipwright/internal/stemcell"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewWithOptions(&config.Target{
		URL:      server.URL,
		Username: "admin",
		Password: "secret",
	}, Options{RetryWait: time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func requireBasicAuth(t *testing.T, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "admin", user)
	assert.Equal(t, "secret", pass)
}

func TestClient_Info(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/info", r.URL.Path)
		requireBasicAuth(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"bosh-lite","uuid":"abc-123","cpi":"warden_cpi"}`)
	}))

	info, err := client.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Info{Name: "bosh-lite", UUID: "abc-123", CPI: "warden_cpi"}, info)
}

func TestClient_ListStemcells(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/stemcells", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"name":"bosh-warden-boshlite-ubuntu-trusty-go_agent","operating_system":"ubuntu-trusty","version":"3586.60","cid":"c1"},
			{"name":"bosh-aws-xen-hvm-centos-7-go_agent","operating_system":"centos-7","version":"3421.11","cid":"c2"}
		]`)
	}))

	records, err := client.ListStemcells(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, stemcell.Record{
		Name:           "bosh-warden-boshlite-ubuntu-trusty-go_agent",
		Infrastructure: stemcell.Warden,
		OS:             "ubuntu-trusty",
		Version:        "3586.60",
		CID:            "c1",
	}, records[0])
	assert.Equal(t, stemcell.AWSEC2, records[1].Infrastructure)
}

func TestClient_UploadRemote(t *testing.T) {
	var body map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/stemcells", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
	}))

	err := client.UploadStemcell(context.Background(), "https://bosh.io/d/stemcells/bosh-warden-boshlite-ubuntu-trusty-go_agent")
	require.NoError(t, err)
	assert.Equal(t, "https://bosh.io/d/stemcells/bosh-warden-boshlite-ubuntu-trusty-go_agent", body["location"])
}

func TestClient_UploadFile(t *testing.T) {
	tarball := filepath.Join(t.TempDir(), "bosh-stemcell-warden-boshlite-ubuntu-trusty-go_agent.tgz")
	require.NoError(t, os.WriteFile(tarball, []byte("stemcell bytes"), 0644))

	var received string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("stemcell")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		received = string(data)
		assert.Equal(t, filepath.Base(tarball), header.Filename)
		w.WriteHeader(http.StatusCreated)
	}))

	require.NoError(t, client.UploadStemcell(context.Background(), tarball))
	assert.Equal(t, "stemcell bytes", received)
}

func TestClient_APIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "not authorized")
	}))

	_, err := client.ListStemcells(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDirector)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "/stemcells", apiErr.Path)
	assert.Contains(t, err.Error(), "not authorized")
}

func TestClient_RetriesQueries(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))

	records, err := client.ListStemcells(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewWithOptions(&config.Target{URL: url}, Options{RetryCount: 1, RetryWait: time.Millisecond})
	defer client.Close()

	_, err := client.Info(context.Background())
	assert.ErrorIs(t, err, ErrDirector)
}
