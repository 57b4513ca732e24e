// Package openai implements the advisory oracle on top of an OpenAI-compatible
// chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"

	"github.com/songquanpeng/contract-tester/common/config"
	"github.com/songquanpeng/contract-tester/common/helper"
	"github.com/songquanpeng/contract-tester/probe/advisory"
	"github.com/songquanpeng/contract-tester/probe/model"
)

const maxReplyBytes = 4 << 20

// Client asks a chat model for validation rules and scenarios.
type Client struct {
	httpClient      *http.Client
	apiBase         string
	apiKey          string
	model           string
	temperature     float64
	maxPromptTokens int
	structured      bool
}

var _ advisory.Oracle = (*Client)(nil)

type Option func(*Client)

func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = base }
}

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithModel(name string) Option {
	return func(c *Client) { c.model = name }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithMaxPromptTokens sets the prompt budget. Zero disables token counting.
func WithMaxPromptTokens(n int) Option {
	return func(c *Client) { c.maxPromptTokens = n }
}

// WithStructuredOutput sends a json_schema response_format describing the reply.
func WithStructuredOutput(enabled bool) Option {
	return func(c *Client) { c.structured = enabled }
}

// New builds a client from ORACLE_* settings, then applies opts.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:      &http.Client{Timeout: config.OracleTimeout},
		apiBase:         config.OracleAPIBase,
		apiKey:          config.OracleAPIKey,
		model:           config.OracleModel,
		temperature:     config.OracleTemperature,
		maxPromptTokens: config.OracleMaxPromptTokens,
		structured:      config.OracleStructuredOutput,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig returns a client when the oracle is enabled and has a key, nil otherwise.
func FromConfig() advisory.Oracle {
	if !config.OracleEnabled || config.OracleAPIKey == "" {
		return nil
	}
	return New()
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string `json:"name"`
	Schema any    `json:"schema"`
	Strict bool   `json:"strict"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// SuggestRules implements advisory.Oracle.
func (c *Client) SuggestRules(ctx context.Context, m *model.RequirementsModel) (*model.RuleSet, error) {
	prompt, err := c.budget(rulesPrompt, m)
	if err != nil {
		return nil, err
	}

	content, err := c.complete(ctx, prompt, c.format("validation_rules", rulesSchema))
	if err != nil {
		return nil, err
	}
	return parseRules(content)
}

// SuggestScenarios implements advisory.Oracle.
func (c *Client) SuggestScenarios(ctx context.Context, sc advisory.ScenarioContext) ([]*model.TestCase, error) {
	prompt, err := c.budget(scenariosPrompt, sc.Requirements, sc.Rules, sc.SelectedFields, sc.DefaultBody)
	if err != nil {
		return nil, err
	}

	content, err := c.complete(ctx, prompt, c.format("test_scenarios", scenariosSchema))
	if err != nil {
		return nil, err
	}
	return parseScenarios(content)
}

func (c *Client) format(name string, schema func() any) *responseFormat {
	if !c.structured {
		return nil
	}
	return &responseFormat{
		Type:       "json_schema",
		JSONSchema: &jsonSchemaFormat{Name: name, Schema: schema()},
	}
}

func (c *Client) complete(ctx context.Context, prompt string, format *responseFormat) (string, error) {
	logger := gmw.GetLogger(ctx).Named("oracle").With(zap.String("model", c.model))
	startAt := time.Now()

	payload, err := json.Marshal(chatRequest{
		Model:          c.model,
		Messages:       []message{{Role: "user", Content: prompt}},
		Temperature:    c.temperature,
		ResponseFormat: format,
	})
	if err != nil {
		return "", errors.Wrap(model.ErrOracle, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(model.ErrOracle, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", config.UserAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(model.ErrOracle, "request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", errors.Wrapf(model.ErrOracle, "read reply: %v", err)
	}

	var reply chatResponse
	decodeErr := json.Unmarshal(body, &reply)
	if resp.StatusCode != http.StatusOK {
		msg := helper.Truncate(string(body), 256)
		if decodeErr == nil && reply.Error != nil {
			msg = reply.Error.Message
		}
		logger.Warn("oracle rejected request", zap.Int("status", resp.StatusCode), zap.String("error", msg))
		return "", errors.Wrapf(model.ErrOracle, "status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", errors.Wrapf(model.ErrOracle, "decode reply: %v", decodeErr)
	}
	if len(reply.Choices) == 0 {
		return "", errors.Wrap(model.ErrOracle, "reply has no choices")
	}

	logger.Debug("oracle replied",
		zap.Duration("took", time.Since(startAt)),
		zap.Int("content_len", len(reply.Choices[0].Message.Content)))
	return reply.Choices[0].Message.Content, nil
}

func (c *Client) budget(template string, args ...any) (string, error) {
	prompt, err := render(template, true, args...)
	if err != nil {
		return "", err
	}
	if c.maxPromptTokens <= 0 || countTokens(c.model, prompt) <= c.maxPromptTokens {
		return prompt, nil
	}

	// indentation is the only thing that can go without losing context
	prompt, err = render(template, false, args...)
	if err != nil {
		return "", err
	}
	if n := countTokens(c.model, prompt); n > c.maxPromptTokens {
		return "", errors.Wrapf(model.ErrOracle, "prompt needs %d tokens, budget is %d", n, c.maxPromptTokens)
	}
	return prompt, nil
}

func render(template string, indent bool, args ...any) (string, error) {
	parts := make([]any, 0, len(args))
	for _, arg := range args {
		var (
			data []byte
			err  error
		)
		if indent {
			data, err = json.MarshalIndent(arg, "", "  ")
		} else {
			data, err = json.Marshal(arg)
		}
		if err != nil {
			return "", errors.Wrapf(model.ErrOracle, "encode prompt context: %v", err)
		}
		parts = append(parts, string(data))
	}
	return fmt.Sprintf(template, parts...), nil
}
