package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"

	"github.com/joseph-ayodele/policy-structurer/internal/llm"
)

// Complete implements llm.Completer with a single Responses API call.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Debug("llm.complete.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"system_len", len(system),
		"user_len", len(user),
	)

	params := responses.ResponseNewParams{
		Model:           c.cfg.Model,
		Instructions:    openai.String(system),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(user)},
		MaxOutputTokens: openai.Int(c.cfg.MaxOutputTokens),
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = openai.Float(c.cfg.Temperature)
	}

	resp, err := c.api.Responses.New(ctx, params)
	if err != nil {
		c.logger.Error("llm.complete.error",
			"req_id", rid, "err", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &llm.StatusError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", err
	}

	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		c.logger.Error("llm.complete.empty",
			"req_id", rid, "status", resp.Status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", llm.ErrEmptyCompletion
	}

	c.logger.Info("llm.complete.ok",
		"req_id", rid,
		"model", c.cfg.Model,
		"output_len", len(out),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
