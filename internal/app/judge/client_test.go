package judge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codearena/internal/app/judge"
	"codearena/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execRequest() judge.ExecRequest {
	return judge.ExecRequest{
		SourceCode:     "print(42)",
		LanguageID:     71,
		Stdin:          "",
		ExpectedOutput: "42",
		Limits:         judge.Limits{TimeMs: 1000, MemoryKB: 128000},
	}
}

func TestHTTPClientDecodesBackendResponse(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "/submissions", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		assert.Equal(t, "false", r.URL.Query().Get("base64_encoded"))

		w.Header().Set("Content-Type", "application/json")
		// time arrives as a quoted decimal string of seconds
		w.Write([]byte(`{
			"status": {"id": 3, "description": "Accepted"},
			"stdout": "42\n",
			"stderr": null,
			"exit_code": 0,
			"time": "0.031",
			"memory": 9216.0
		}`))
	}))
	defer srv.Close()

	client := judge.NewHTTPClient(srv.URL, 10*time.Second, testLogger())
	raw, err := client.Execute(context.Background(), execRequest())
	require.NoError(t, err)

	assert.Equal(t, 3, raw.StatusID)
	assert.Equal(t, "42\n", raw.Stdout)
	assert.Equal(t, "", raw.Stderr)
	assert.Equal(t, 31, raw.TimeMs)
	assert.Equal(t, 9216, raw.MemoryKB)

	// limits are forwarded in backend units: seconds and KB
	assert.Equal(t, 1.0, got["cpu_time_limit"])
	assert.Equal(t, float64(128000), got["memory_limit"])
}

func TestHTTPClientNumericTimeField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": {"id": 4}, "time": 1.5}`))
	}))
	defer srv.Close()

	client := judge.NewHTTPClient(srv.URL, 10*time.Second, testLogger())
	raw, err := client.Execute(context.Background(), execRequest())
	require.NoError(t, err)
	assert.Equal(t, 4, raw.StatusID)
	assert.Equal(t, 1500, raw.TimeMs)
}

func TestHTTPClientServerErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := judge.NewHTTPClient(srv.URL, 10*time.Second, testLogger())
	_, err := client.Execute(context.Background(), execRequest())
	assert.ErrorIs(t, err, common.ErrExecutorUnreachable)
}

func TestHTTPClientConnectionRefusedIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nobody listening anymore

	client := judge.NewHTTPClient(srv.URL, time.Second, testLogger())
	_, err := client.Execute(context.Background(), execRequest())
	assert.ErrorIs(t, err, common.ErrExecutorUnreachable)
}

func TestHTTPClientMalformedBodyIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": {`))
	}))
	defer srv.Close()

	client := judge.NewHTTPClient(srv.URL, 10*time.Second, testLogger())
	_, err := client.Execute(context.Background(), execRequest())
	assert.ErrorIs(t, err, common.ErrExecutorProtocol)
}

func TestHTTPClientMissingStatusIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stdout": "42"}`))
	}))
	defer srv.Close()

	client := judge.NewHTTPClient(srv.URL, 10*time.Second, testLogger())
	_, err := client.Execute(context.Background(), execRequest())
	assert.ErrorIs(t, err, common.ErrExecutorProtocol)
}

func TestHTTPClientDeadlineCoversSlowBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"status": {"id": 3}}`))
	}))
	defer srv.Close()

	// 50ms limit + 50ms overhead, the backend takes 500ms
	client := judge.NewHTTPClient(srv.URL, 50*time.Millisecond, testLogger())
	req := execRequest()
	req.Limits.TimeMs = 50

	_, err := client.Execute(context.Background(), req)
	assert.ErrorIs(t, err, common.ErrExecutorUnreachable)
}
