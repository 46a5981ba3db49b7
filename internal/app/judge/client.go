package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"codearena/internal/common"
)

// ExecRequest is one (source, testcase, limits) tuple for the backend.
type ExecRequest struct {
	SourceCode     string
	LanguageID     int
	Stdin          string
	ExpectedOutput string
	Limits         Limits
}

// RawOutcome is the backend's answer for one execution, normalized to the
// engine's units (milliseconds, KB). Missing optional fields arrive as zero
// values.
type RawOutcome struct {
	StatusID          int
	StatusDescription string
	Stdout            string
	Stderr            string
	ExitCode          int
	TimeMs            int
	MemoryKB          int
}

// Client executes one piece of source code against one stdin payload on the
// external execution backend. Implementations are stateless.
type Client interface {
	Execute(ctx context.Context, req ExecRequest) (RawOutcome, error)
}

// HTTPClient talks to a Judge0-compatible backend. The backend is a shared
// black box; this client isolates its protocol quirks (numeric status codes,
// fractional seconds sometimes serialized as strings, inconsistent field
// presence) from the rest of the engine.
type HTTPClient struct {
	baseURL  string
	overhead time.Duration
	http     *http.Client
	logger   *slog.Logger
}

func NewHTTPClient(baseURL string, overhead time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		overhead: overhead,
		http:     &http.Client{},
		logger:   logger,
	}
}

type backendRequest struct {
	SourceCode     string  `json:"source_code"`
	LanguageID     int     `json:"language_id"`
	Stdin          string  `json:"stdin"`
	ExpectedOutput string  `json:"expected_output"`
	CPUTimeLimit   float64 `json:"cpu_time_limit"` // seconds
	MemoryLimit    int     `json:"memory_limit"`   // KB
}

type backendResponse struct {
	Status struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
	Stdout   *string     `json:"stdout"`
	Stderr   *string     `json:"stderr"`
	ExitCode *int        `json:"exit_code"`
	Time     flexSeconds `json:"time"`
	Memory   *float64    `json:"memory"` // KB
}

// flexSeconds tolerates the backend serializing elapsed time as either a JSON
// number or a quoted decimal string ("0.002"), or omitting it entirely.
type flexSeconds float64

func (f *flexSeconds) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexSeconds(v)
	return nil
}

// Execute performs one backend call under a hard deadline of the testcase's
// own time limit plus the configured queuing-overhead allowance, so a wedged
// backend can never block a judge worker indefinitely.
func (c *HTTPClient) Execute(ctx context.Context, req ExecRequest) (RawOutcome, error) {
	body := backendRequest{
		SourceCode:     req.SourceCode,
		LanguageID:     req.LanguageID,
		Stdin:          req.Stdin,
		ExpectedOutput: req.ExpectedOutput,
		CPUTimeLimit:   float64(req.Limits.TimeMs) / 1000.0,
		MemoryLimit:    req.Limits.MemoryKB,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return RawOutcome{}, common.Errorf("marshal backend request: %w", err)
	}

	deadline := time.Duration(req.Limits.TimeMs)*time.Millisecond + c.overhead
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	url := c.baseURL + "/submissions?base64_encoded=false&wait=true"
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return RawOutcome{}, common.Errorf("build backend request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Covers network failures and the deadline above. The submitted
		// program timing out inside the sandbox is a normal backend
		// response, not this path.
		return RawOutcome{}, common.Errorf("backend call failed: %v: %w", err, common.ErrExecutorUnreachable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return RawOutcome{}, common.Errorf("backend returned HTTP %d: %w", resp.StatusCode, common.ErrExecutorUnreachable)
	}

	var out backendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.Warn("execution backend response could not be decoded", "error", err)
		return RawOutcome{}, common.Errorf("decode backend response: %v: %w", err, common.ErrExecutorProtocol)
	}
	if out.Status.ID == 0 {
		c.logger.Warn("execution backend response missing status id")
		return RawOutcome{}, common.Errorf("backend response has no status: %w", common.ErrExecutorProtocol)
	}

	raw := RawOutcome{
		StatusID:          out.Status.ID,
		StatusDescription: out.Status.Description,
		TimeMs:            int(float64(out.Time) * 1000.0),
	}
	if out.Stdout != nil {
		raw.Stdout = *out.Stdout
	}
	if out.Stderr != nil {
		raw.Stderr = *out.Stderr
	}
	if out.ExitCode != nil {
		raw.ExitCode = *out.ExitCode
	}
	if out.Memory != nil {
		raw.MemoryKB = int(*out.Memory)
	}
	return raw, nil
}
