package tokens

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eternisai/push-bridge/internal/logger"
)

const maxBodyExcerpt = 200

// StatusError is a non-2xx answer from the REST backend.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("token submission failed (%d): %s", e.Code, e.Status)
}

// RESTStore posts tokens to a PostgREST-style endpoint that merges
// duplicates on the token's unique key.
type RESTStore struct {
	url    string
	apiKey string
	client *http.Client
	logger *logger.Logger
}

// NewRESTStore targets url (the table endpoint) with apiKey.
func NewRESTStore(url, apiKey string, timeout time.Duration, logger *logger.Logger) *RESTStore {
	return &RESTStore{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
		logger: logger.WithComponent("token-store"),
	}
}

// Upsert implements Store.
func (s *RESTStore) Upsert(ctx context.Context, reg Registration) (Receipt, error) {
	if err := reg.Validate(); err != nil {
		return Receipt{}, err
	}

	body, err := json.Marshal(reg)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to marshal registration: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to read response: %w", err)
	}

	receipt := Receipt{
		Status: fmt.Sprintf("%d: %s", resp.StatusCode, statusText(resp)),
		Body:   excerpt(string(raw)),
	}

	s.logger.WithContext(ctx).Info("token submitted",
		slog.String("platform", reg.Platform),
		slog.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return receipt, &StatusError{Code: resp.StatusCode, Status: statusText(resp), Body: string(raw)}
	}
	return receipt, nil
}

// statusText strips the numeric prefix from resp.Status.
func statusText(resp *http.Response) string {
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// excerpt keeps the first maxBodyExcerpt characters of s.
func excerpt(s string) string {
	n := 0
	for i := range s {
		if n == maxBodyExcerpt {
			return s[:i]
		}
		n++
	}
	return s
}
