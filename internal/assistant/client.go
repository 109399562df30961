package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/osticket/ai-assistant/internal/config"
)

// EncodingError reports a request payload that could not be serialized.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("Failed to encode request as JSON: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// TransportError reports a connection or timeout failure before any HTTP
// status was received.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Connection error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-200 response from the model API. Message is the
// best-effort error message extracted from the response body.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API Error (%d): %s", e.StatusCode, e.Message)
}

// MalformedResponseError reports a 200 response that lacks the expected
// message-content field.
type MalformedResponseError struct{}

func (e *MalformedResponseError) Error() string {
	return "Invalid API response format"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client issues single-shot chat-completion requests against an
// OpenAI-compatible endpoint. It holds no mutable state and is safe for
// concurrent use; one instance is built per invocation from immutable
// configuration.
type Client struct {
	cfg        config.ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a model API client. httpClient may be nil, in which case
// a default client is used; the request timeout always comes from cfg via a
// per-call context deadline.
func NewClient(cfg config.ClientConfig, logger *slog.Logger, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Complete sends one system+user message pair and returns the raw text
// content of the first completion choice, unparsed. There is no retry: a
// failed call is surfaced immediately as one of the typed errors above.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    c.cfg.Temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	// Encode without HTML escaping so non-ASCII ticket text goes over the
	// wire unescaped.
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", &EncodingError{Err: err}
	}

	if c.cfg.Debug {
		c.logger.Debug("model API request", "payload", body.String())
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.Endpoint, &body)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	if c.cfg.Debug {
		c.logger.Debug("model API response",
			"status", resp.StatusCode,
			"payload", string(respBody))
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{
			StatusCode: resp.StatusCode,
			Message:    extractAPIError(respBody),
		}
	}

	var completion chatResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", &MalformedResponseError{}
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == nil {
		return "", &MalformedResponseError{}
	}

	return *completion.Choices[0].Message.Content, nil
}

// FindBestTemplate runs the full model round trip for one ticket: prompt
// construction, the API call, and validation of the model's choice against
// the candidate set. It always returns a structured Suggestion.
func (c *Client) FindBestTemplate(ctx context.Context, ticket *TicketContext, templates []Template) Suggestion {
	if len(templates) == 0 {
		return failure("No templates available")
	}

	system, user := buildMessages(ticket, templates)

	raw, err := c.Complete(ctx, system, user)
	if err != nil {
		c.logger.Warn("model request failed", "ticket_id", ticket.ID, "error", err)
		return failure(err.Error())
	}

	return parseAnalysis(raw, templates)
}

// extractAPIError pulls the error.message field out of an error response
// body, falling back to a generic message when the body is not in the
// expected shape.
func extractAPIError(body []byte) string {
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return "Unknown error"
}
