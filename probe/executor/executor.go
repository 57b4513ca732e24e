// Package executor issues test cases against the endpoint under test, one at a time.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"

	"github.com/songquanpeng/contract-tester/common/config"
	"github.com/songquanpeng/contract-tester/common/helper"
	"github.com/songquanpeng/contract-tester/probe/model"
)

// Event is emitted after each executed case.
type Event struct {
	// Index is 1-based.
	Index int
	Total int
	Case  *model.TestCase
}

// Observer receives events synchronously, in execution order.
type Observer func(Event)

// Executor runs test cases sequentially.
type Executor struct {
	client           *http.Client
	timeout          time.Duration
	maxResponseBytes int64
	maxLoggedBytes   int
	userAgent        string
	observers        []Observer
}

type Option func(*Executor)

func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) { e.client = client }
}

// WithTimeout bounds each request. Zero means no per-case timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

func WithObserver(o Observer) Option {
	return func(e *Executor) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

func New(opts ...Option) *Executor {
	e := &Executor{
		client:           &http.Client{},
		timeout:          config.RequestTimeout,
		maxResponseBytes: config.MaxResponseBytes,
		maxLoggedBytes:   config.MaxLoggedBodyBytes,
		userAgent:        config.UserAgent,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes cases in order and returns the executed prefix. When ctx is
// cancelled between cases the remaining ones are left unexecuted and ctx.Err()
// is returned alongside the prefix. Per-case failures never stop the run.
func (e *Executor) Run(ctx context.Context, endpoint string, cases []*model.TestCase) ([]*model.TestCase, error) {
	logger := gmw.GetLogger(ctx).Named("executor")
	logger.Info("executing test cases", zap.String("endpoint", endpoint), zap.Int("total", len(cases)))

	for i, c := range cases {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled",
				zap.Int("executed", i),
				zap.Int("not_executed", len(cases)-i),
				zap.Error(err))
			return cases[:i], errors.Wrap(err, "run cancelled")
		}

		e.Execute(ctx, endpoint, c)
		e.log(logger, c)
		for _, o := range e.observers {
			o(Event{Index: i + 1, Total: len(cases), Case: c})
		}
	}
	return cases, nil
}

// Execute sends one case and records its outcome on c.
func (e *Executor) Execute(ctx context.Context, endpoint string, c *model.TestCase) {
	startAt := time.Now()
	defer func() {
		if c.TestResult != nil {
			c.TestResult.Duration = time.Since(startAt)
		}
	}()

	req, err := e.buildRequest(ctx, endpoint, c)
	if err != nil {
		fail(c, err)
		return
	}

	if e.timeout > 0 {
		reqCtx, cancel := context.WithTimeout(req.Context(), e.timeout)
		defer cancel()
		req = req.WithContext(reqCtx)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		fail(c, errors.Wrapf(model.ErrExecution, "%s %s: %v", req.Method, req.URL.Redacted(), err))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxResponseBytes))
	if err != nil {
		fail(c, errors.Wrapf(model.ErrExecution, "read response: %v", err))
		return
	}

	match := c.ExpectedStatusCode == resp.StatusCode
	c.ActualStatusCode = model.StatusCode(resp.StatusCode)
	c.ActualResponse = decodeResponse(body)
	c.TestResult = &model.TestResult{
		Passed:          match,
		StatusCodeMatch: match,
		Timestamp:       time.Now(),
		Notes:           fmt.Sprintf("Expected %d, got %d", c.ExpectedStatusCode, resp.StatusCode),
	}
}

func (e *Executor) buildRequest(ctx context.Context, endpoint string, c *model.TestCase) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(c.Method))
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, errors.Wrapf(model.ErrUnsupportedMethod, "%q", c.Method)
	}

	target := endpoint
	id := c.Data["id"]
	hasID := id != nil
	if hasID {
		target = strings.TrimRight(endpoint, "/") + "/" + url.PathEscape(fmt.Sprint(id))
	}

	var (
		body        io.Reader
		contentType string
	)
	if method == http.MethodGet {
		if !hasID {
			u, err := url.Parse(target)
			if err != nil {
				return nil, errors.Wrapf(model.ErrExecution, "parse endpoint: %v", err)
			}
			q := u.Query()
			for _, k := range c.Data.Keys() {
				for _, v := range queryValues(c.Data[k]) {
					q.Add(k, v)
				}
			}
			u.RawQuery = q.Encode()
			target = u.String()
		}
	} else {
		payload, err := json.Marshal(c.Data)
		if err != nil {
			return nil, errors.Wrapf(model.ErrExecution, "marshal payload: %v", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrapf(model.ErrExecution, "build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", e.userAgent)
	return req, nil
}

// queryValues encodes a body value as query values. Nulls are left out,
// lists repeat the key and objects are sent as JSON.
func queryValues(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, queryValues(item)...)
		}
		return out
	case map[string]any:
		data, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		return []string{string(data)}
	default:
		return []string{fmt.Sprint(t)}
	}
}

// decodeResponse returns parsed JSON when the body is JSON, the raw text otherwise.
func decodeResponse(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err == nil {
			return model.NormalizeNumbers(v)
		}
	}
	return string(body)
}

func fail(c *model.TestCase, err error) {
	c.ActualStatusCode = model.StatusFailed()
	c.ActualResponse = err.Error()
	c.TestResult = &model.TestResult{
		Passed:    false,
		Timestamp: time.Now(),
		Error:     err.Error(),
	}
}

func (e *Executor) log(logger glog.Logger, c *model.TestCase) {
	fields := []zap.Field{
		zap.String("name", c.Name),
		zap.String("method", c.Method),
		zap.Int("expected", c.ExpectedStatusCode),
		zap.Stringer("actual", c.ActualStatusCode),
		zap.Duration("duration", c.TestResult.Duration),
	}
	if c.Passed() {
		logger.Info("test case passed", fields...)
		return
	}

	reqBody, _ := json.Marshal(c.Data)
	respBody := fmt.Sprint(c.ActualResponse)
	if data, err := json.Marshal(c.ActualResponse); err == nil {
		respBody = string(data)
	}
	fields = append(fields,
		zap.String("error", c.TestResult.Error),
		zap.String("request_body", helper.Truncate(string(reqBody), e.maxLoggedBytes)),
		zap.String("response_body", helper.Truncate(respBody, e.maxLoggedBytes)),
	)
	logger.Warn("test case failed", fields...)
}
