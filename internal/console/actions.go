package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/eternisai/push-bridge/internal/bridge"
	"github.com/eternisai/push-bridge/internal/notifications"
	"github.com/eternisai/push-bridge/internal/webfcm"
)

// User actions return an error only when the action could not be attempted
// (wrong mode, missing confirmation, bad input). Failures of the attempt
// itself land on the error banner and in the log.

func (c *Console) requireMode(m Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.mode != m {
		return fmt.Errorf("%w: requires %s mode", ErrWrongMode, m)
	}
	return nil
}

// finish runs fn under the lock unless the session closed meanwhile, then
// notifies.
func (c *Console) finish(fn func()) {
	c.mu.Lock()
	if !c.closed {
		fn()
	}
	c.mu.Unlock()
	c.notify()
}

// EnableWebPush requests a web token. Success logs the user back in.
func (c *Console) EnableWebPush(ctx context.Context) error {
	if err := c.requireMode(ModeWeb); err != nil {
		return err
	}

	var (
		token string
		err   = webfcm.ErrUnsupported
	)
	if c.web != nil {
		token, err = c.web.RequestToken(ctx)
	}

	c.finish(func() {
		if err != nil {
			c.failLocked("Web FCM Error", err.Error())
			return
		}
		c.token = token
		c.setLoggedInLocked(true)
		c.log.Append("Web FCM", "Token obtained")
	})
	return nil
}

// GetNativeToken asks the host for its token.
func (c *Console) GetNativeToken(ctx context.Context) error {
	if err := c.requireMode(ModeNative); err != nil {
		return err
	}

	token, err := c.bridge.GetFCMToken(ctx)
	if errors.Is(err, bridge.ErrBridgeAbsent) {
		return nil
	}

	c.finish(func() {
		if err != nil {
			c.bridgeFailureLocked("Native FCM Error", "Failed to get token", err)
			return
		}
		c.token = token
		c.log.Append("Native FCM", "Token obtained from native app")
	})
	return nil
}

// ChangeLocale switches the host's language.
func (c *Console) ChangeLocale(ctx context.Context, languageCode string) error {
	languageCode = strings.TrimSpace(languageCode)
	if languageCode == "" {
		return fmt.Errorf("%w: language code is required", ErrInvalidInput)
	}
	if err := c.requireMode(ModeNative); err != nil {
		return err
	}

	err := c.bridge.ChangeLocale(ctx, languageCode)
	if errors.Is(err, bridge.ErrBridgeAbsent) {
		return nil
	}

	c.finish(func() {
		if err != nil {
			c.bridgeFailureLocked("Change Locale Error", "Failed to change locale", err)
			return
		}
		c.locale = localeOf(languageCode, "")
		c.showToastLocked("Language Changed", "App language changed to "+languageCode, notifications.SourceNative)
		c.log.Append("Change Locale", "Changed to "+languageCode)
	})
	return nil
}

// Logout asks the host to delete its token. The host's answer is kept for
// display whether or not it succeeded.
func (c *Console) Logout(ctx context.Context, confirmed bool) error {
	if err := c.requireMode(ModeNative); err != nil {
		return err
	}
	if !confirmed {
		return ErrNotConfirmed
	}

	resp, err := c.bridge.Logout(ctx)
	if errors.Is(err, bridge.ErrBridgeAbsent) {
		return nil
	}

	c.finish(func() {
		var callErr *bridge.CallError
		if err == nil || errors.As(err, &callErr) {
			c.logoutResult = &resp
		}
		if err != nil {
			c.bridgeFailureLocked("Logout Error", "Failed to logout", err)
			return
		}
		c.token = ""
		c.setLoggedInLocked(false)
		c.showToastLocked("Logout Successful",
			"FCM token deleted. You can log in again to receive notifications.",
			notifications.SourceNative)
		c.log.Append("Logout", "FCM token deleted")
	})
	return nil
}

// WebLogout clears the web token locally. No bridge call is made.
func (c *Console) WebLogout(confirmed bool) error {
	if err := c.requireMode(ModeWeb); err != nil {
		return err
	}
	if !confirmed {
		return ErrNotConfirmed
	}

	c.finish(func() {
		c.token = ""
		c.setLoggedInLocked(false)
		c.showToastLocked("Logout Successful",
			`FCM token cleared. Notifications are now disabled. Click "Get Web FCM Token" to enable again.`,
			notifications.SourceWebFCM)
		c.log.Append("Web Logout", "FCM token cleared - notifications disabled")
	})
	return nil
}

// SendLog forwards a message to the host's log.
func (c *Console) SendLog(ctx context.Context, message string, level bridge.LogLevel) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if level == "" {
		level = bridge.LogLevelDebug
	}
	if !level.Valid() {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidInput, level)
	}
	if err := c.requireMode(ModeNative); err != nil {
		return err
	}

	c.logger.WithContext(ctx).Debug("forwarding log to host",
		slog.String("level", string(level)),
		slog.String("message", message))

	err := c.bridge.Log(ctx, message, level)
	if errors.Is(err, bridge.ErrBridgeAbsent) {
		return nil
	}

	c.finish(func() {
		if err != nil {
			c.bridgeFailureLocked("Sent Log Error", "Failed to send log", err)
			return
		}
		c.log.Append("Sent Log", fmt.Sprintf("[%s] %s", strings.ToUpper(string(level)), message))
	})
	return nil
}

// Simulate produces a test notification. In native mode it is injected as a
// push-received signal through the same path real signals take.
func (c *Console) Simulate(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	mode := c.mode
	c.mu.Unlock()

	if mode == ModeNative {
		now := c.clock.Now()
		c.Ingest(notifications.PushReceived{
			MessageID: fmt.Sprintf("sim-%d", now.UnixMilli()),
			Title:     "Test Notification",
			Body:      "This is a simulated notification from native app",
			Data: notifications.Data{
				"type":      "test",
				"deep_link": "/test-page",
			},
			SentTime:     notifications.NewTimestamp(now),
			ReceivedTime: notifications.NewTimestamp(now),
		})
		c.finish(func() {
			c.log.Append("Simulated Notification", "Test notification sent")
		})
		return nil
	}

	c.finish(func() {
		c.showToastLocked("Test Notification", "This is a simulated web notification", notifications.SourceWebFCM)
		c.log.Append("Simulated Notification", "Web notification")
	})
	return nil
}

// CopyToken returns the current token and acknowledges the copy in the log.
func (c *Console) CopyToken() (string, error) {
	c.mu.Lock()
	token := c.token
	if token != "" && !c.closed {
		c.log.Append("Copied", "Token copied to clipboard")
	}
	c.mu.Unlock()

	if token == "" {
		return "", ErrNoToken
	}
	c.notify()
	return token, nil
}

// OpenURL opens target through the host (native mode) or in a new browser
// tab (web mode, or no host attached). internal selects the host's in-app
// browser.
func (c *Console) OpenURL(ctx context.Context, target string, internal bool) error {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidInput, target)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	mode := c.mode
	c.mu.Unlock()

	label := "Open External URL"
	switch {
	case mode == ModeWeb:
		err = c.bridge.OpenInBrowser(ctx, u.String())
	case internal:
		label = "Open Internal URL"
		err = c.bridge.OpenInternalURL(ctx, u.String())
	default:
		err = c.bridge.OpenExternalURL(ctx, u.String())
	}
	if errors.Is(err, bridge.ErrBridgeAbsent) || errors.Is(err, webfcm.ErrUnsupported) {
		return nil
	}

	c.finish(func() {
		if err != nil {
			c.bridgeFailureLocked(label+" Error", "Failed to open URL", err)
			return
		}
		c.log.Append(label, u.String())
	})
	return nil
}

// SendTestPush sends a real push to the current token through FCM.
func (c *Console) SendTestPush(ctx context.Context) error {
	if c.push == nil || !c.push.Enabled() {
		return ErrPushUnavailable
	}

	c.mu.Lock()
	token := c.token
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if token == "" {
		return ErrNoToken
	}

	result, err := c.push.Send(ctx, token, notifications.CompletionNotification{
		Title: "Test Notification",
		Body:  "This is a test push sent from the console",
		Data: map[string]string{
			"type":      "test",
			"deep_link": "/test-page",
		},
	})

	c.finish(func() {
		if err != nil {
			c.failLocked("Test Push Error", err.Error())
			return
		}
		c.log.Append("Test Push", "Sent: "+result.Response)
	})
	return nil
}

// ClearLog empties the event log.
func (c *Console) ClearLog() {
	c.log.Clear()
	c.notify()
}

// CloseToast dismisses the current toast.
func (c *Console) CloseToast() {
	c.toast.Close()
}
