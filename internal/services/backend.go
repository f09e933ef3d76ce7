package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Backend is the HTTP client of the transcript backend. It uploads meeting transcripts and forwards chat
// messages, tagging every request with the caller's session identifier.
type Backend struct {
	baseURL string

	client *http.Client

	logger *slog.Logger
}

// APIError is returned when the backend answered with a non-2xx status. Message holds the backend's
// "error" field and is empty when the backend didn't provide one.
type APIError struct {
	StatusCode int
	Message    string
}

type uploadRequest struct {
	Transcript string `json:"transcript"`
	SessionID  string `json:"session_id"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response *string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewBackend creates a new Backend for the server at baseURL, e.g. "http://localhost:5000". If client is
// nil, http.DefaultClient is used, so requests are bounded only by the transport defaults.
func NewBackend(baseURL string, client *http.Client, logger *slog.Logger) Backend {
	if client == nil {
		client = http.DefaultClient
	}
	return Backend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.With(slog.String("module", "backend")),
	}
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Upload sends the transcript to the backend's /upload endpoint. Any informational fields of a successful
// response are ignored.
func (b Backend) Upload(ctx context.Context, sessionID, transcript string) error {
	var res map[string]any
	return b.post(ctx, "/upload", uploadRequest{
		Transcript: transcript,
		SessionID:  sessionID,
	}, &res)
}

// Chat sends a message to the backend's /chat endpoint and returns the assistant reply.
func (b Backend) Chat(ctx context.Context, sessionID, message string) (string, error) {
	var res chatResponse
	if err := b.post(ctx, "/chat", chatRequest{
		Message:   message,
		SessionID: sessionID,
	}, &res); err != nil {
		return "", err
	}
	if res.Response == nil {
		return "", errors.New("malformed response: missing response field")
	}
	return *res.Response, nil
}

// post sends body as JSON to path and decodes a 2xx answer into out. A non-2xx answer with a JSON body is
// reported as *APIError; everything else that goes wrong is a transport error.
func (b Backend) post(ctx context.Context, path string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	resBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	b.logger.Debug("Response",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(resBody)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errRes errorResponse
		if err := json.Unmarshal(resBody, &errRes); err != nil {
			return fmt.Errorf("error decoding error response: %w", err)
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errRes.Error,
		}
	}

	if err := json.Unmarshal(resBody, out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}

	return nil
}
