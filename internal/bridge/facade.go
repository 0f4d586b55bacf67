package bridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/eternisai/push-bridge/internal/metrics"
)

// URLOpener opens a URL outside the native host, in a new browser tab.
type URLOpener interface {
	OpenURL(ctx context.Context, url string) error
}

// Facade exposes the host's handlers as typed methods. Every method bounds
// its call by the configured timeout.
type Facade struct {
	caller  Caller
	opener  URLOpener
	timeout time.Duration
	logger  *logger.Logger
}

// NewFacade wraps caller. A nil caller makes every native call return
// ErrBridgeAbsent. opener may be nil.
func NewFacade(caller Caller, opener URLOpener, timeout time.Duration, logger *logger.Logger) *Facade {
	return &Facade{
		caller:  caller,
		opener:  opener,
		timeout: timeout,
		logger:  logger.WithComponent("bridge"),
	}
}

// Available reports whether a host is currently reachable. Callers without a
// notion of connectivity are assumed reachable.
func (f *Facade) Available() bool {
	if f.caller == nil {
		return false
	}
	if c, ok := f.caller.(interface{ Connected() bool }); ok {
		return c.Connected()
	}
	return true
}

// call runs a handler and turns success=false into a *CallError. The
// response is returned in every case it was received.
func (f *Facade) call(ctx context.Context, name string, args ...any) (Response, error) {
	if f.caller == nil {
		metrics.BridgeCalls.WithLabelValues(name, metrics.OutcomeAbsent).Inc()
		return Response{}, ErrBridgeAbsent
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	var resp Response
	err := f.logger.LogOperation(ctx, "bridge."+name, func() error {
		var err error
		resp, err = f.caller.CallHandler(ctx, name, args...)
		return err
	})

	switch {
	case errors.Is(err, ErrBridgeAbsent):
		metrics.BridgeCalls.WithLabelValues(name, metrics.OutcomeAbsent).Inc()
		return resp, err
	case err != nil:
		metrics.BridgeCalls.WithLabelValues(name, metrics.OutcomeError).Inc()
		return resp, err
	case !resp.Success:
		metrics.BridgeCalls.WithLabelValues(name, metrics.OutcomeRejected).Inc()
		f.logger.WithContext(ctx).Warn("bridge handler rejected call",
			slog.String("handler", name),
			slog.String("error", resp.Error))
		return resp, &CallError{Handler: name, Message: resp.Error}
	}

	metrics.BridgeCalls.WithLabelValues(name, metrics.OutcomeSuccess).Inc()
	return resp, nil
}

// GetAppInfo asks the host to identify itself. It doubles as the presence
// probe at startup.
func (f *Facade) GetAppInfo(ctx context.Context) (AppInfo, Response, error) {
	var info AppInfo
	resp, err := f.call(ctx, HandlerGetAppInfo)
	if err != nil {
		return info, resp, err
	}
	err = resp.Decode(&info)
	return info, resp, err
}

// GetLocale returns the host's UI language.
func (f *Facade) GetLocale(ctx context.Context) (Locale, error) {
	var locale Locale
	resp, err := f.call(ctx, HandlerGetLocale)
	if err != nil {
		return locale, err
	}
	err = resp.Decode(&locale)
	return locale, err
}

// GetFCMToken returns the host's messaging token.
func (f *Facade) GetFCMToken(ctx context.Context) (string, error) {
	var body struct {
		Token string `json:"token"`
	}
	resp, err := f.call(ctx, HandlerGetFCMToken)
	if err != nil {
		return "", err
	}
	if err := resp.Decode(&body); err != nil {
		return "", err
	}
	return body.Token, nil
}

// ChangeLocale switches the host's UI language.
func (f *Facade) ChangeLocale(ctx context.Context, languageCode string) error {
	_, err := f.call(ctx, HandlerChangeLocale, languageCode)
	return err
}

// Logout asks the host to delete its token. The host's response is returned
// even when it reports failure so it can be shown to the user.
func (f *Facade) Logout(ctx context.Context) (Response, error) {
	return f.call(ctx, HandlerLogout)
}

// Log forwards a message to the host's log. The host only acknowledges, so
// an empty answer counts as delivered; an explicit error does not.
func (f *Facade) Log(ctx context.Context, message string, level LogLevel) error {
	if !level.Valid() {
		level = LogLevelDebug
	}
	_, err := f.call(ctx, HandlerLog, message, string(level))

	var callErr *CallError
	if errors.As(err, &callErr) && callErr.Message == "" {
		return nil
	}
	return err
}

// OpenExternalURL opens url in the system browser, or in a new tab when no
// host is attached.
func (f *Facade) OpenExternalURL(ctx context.Context, url string) error {
	return f.openURL(ctx, HandlerOpenExternalURL, url)
}

// OpenInternalURL opens url inside the host's in-app browser, or in a new tab
// when no host is attached.
func (f *Facade) OpenInternalURL(ctx context.Context, url string) error {
	return f.openURL(ctx, HandlerOpenInternalURL, url)
}

func (f *Facade) openURL(ctx context.Context, handler, url string) error {
	if f.Available() {
		_, err := f.call(ctx, handler, url)
		if !errors.Is(err, ErrBridgeAbsent) {
			return err
		}
	}
	return f.OpenInBrowser(ctx, url)
}

// OpenInBrowser opens url in a new browser tab without involving the host.
func (f *Facade) OpenInBrowser(ctx context.Context, url string) error {
	if f.opener == nil {
		return ErrBridgeAbsent
	}
	return f.opener.OpenURL(ctx, url)
}
