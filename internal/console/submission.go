package console

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/eternisai/push-bridge/internal/tokens"
)

const tokenPreviewLength = 50

// SubmissionResult is the outcome of the last token submission.
type SubmissionResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Platform string `json:"platform"`
	Status   string `json:"status,omitempty"`
	Body     string `json:"body,omitempty"`
}

// SubmitToken upserts the current token into the configured store.
func (c *Console) SubmitToken(ctx context.Context) error {
	if c.tokens == nil {
		return tokens.ErrNoStore
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	token := c.token
	platform := tokens.PlatformWeb
	if c.mode == ModeNative {
		platform = tokens.PlatformNative
	}
	if token == "" {
		c.log.Append("Submission Error", "No token available. Please get FCM token first.")
		c.mu.Unlock()
		c.notify()
		return ErrNoToken
	}

	preview := firstChars(token, tokenPreviewLength)
	c.submission = nil
	c.log.Append("Submitting Token", "Platform: "+platform)
	c.log.Append("Token Preview", fmt.Sprintf("First %d chars: %s...", tokenPreviewLength, preview))
	c.log.Append("Token Length", fmt.Sprintf("Total length: %d chars", utf8.RuneCountInString(token)))
	c.mu.Unlock()
	c.notify()

	receipt, err := c.tokens.Upsert(ctx, tokens.Registration{Token: token, Platform: platform})

	c.finish(func() {
		if receipt.Status != "" {
			c.log.Append("Response Status", receipt.Status)
			c.log.Append("Response Text", receipt.Body)
		}

		result := &SubmissionResult{
			Platform: platform,
			Status:   receipt.Status,
			Body:     receipt.Body,
		}
		c.submission = result

		var statusErr *tokens.StatusError
		switch {
		case err == nil:
			result.Success = true
			result.Message = "Token submitted successfully!"
			c.log.Append("Token Submitted", fmt.Sprintf("Platform: %s, Status: Success", platform))
		case errors.As(err, &statusErr):
			result.Message = fmt.Sprintf("Failed to submit token (%d): %s", statusErr.Code, statusErr.Status)
			c.log.Append("Submission Error", fmt.Sprintf("Platform: %s, Status: %d, Error: %s", platform, statusErr.Code, statusErr.Status))
			c.log.Append("Full Error Response", statusErr.Body)
		default:
			result.Message = err.Error()
			c.log.Append("Submission Error", err.Error())
		}
	})
	return nil
}

// firstChars returns the first n characters of s.
func firstChars(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
