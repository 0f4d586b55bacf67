// Package console is the reconciliation state machine. One Console is one
// session: it owns the session state, the event log and the toast slot, and
// is the only writer of any of them.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/eternisai/push-bridge/internal/bridge"
	"github.com/eternisai/push-bridge/internal/clock"
	"github.com/eternisai/push-bridge/internal/eventlog"
	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/eternisai/push-bridge/internal/metrics"
	"github.com/eternisai/push-bridge/internal/notifications"
	"github.com/eternisai/push-bridge/internal/toast"
	"github.com/eternisai/push-bridge/internal/tokens"
	"github.com/eternisai/push-bridge/internal/webfcm"
	"github.com/google/uuid"
)

// Mode is fixed at startup: web (browser messaging SDK) or native (host bridge).
type Mode string

const (
	ModeWeb    Mode = "web"
	ModeNative Mode = "native"
)

var (
	ErrWrongMode       = errors.New("action is not available in this mode")
	ErrNotConfirmed    = errors.New("action requires confirmation")
	ErrNoToken         = errors.New("no token available")
	ErrInvalidInput    = errors.New("invalid input")
	ErrPushUnavailable = errors.New("test pushes are not configured")
	ErrClosed          = errors.New("session closed")
)

// syntheticAppInfo stands in for the probe result when native mode is forced
// by the query string.
var syntheticAppInfo = bridge.AppInfo{AppName: "Mobile Webview", Version: "unknown", Platform: "mobile-webview"}

// Options are the per-load inputs, taken from the page URL.
type Options struct {
	// ForceNative skips the bridge probe and the web messaging setup.
	ForceNative bool
}

// OptionsFromQuery reads versioninfo=mobileapp.
func OptionsFromQuery(q url.Values) Options {
	return Options{ForceNative: q.Get("versioninfo") == "mobileapp"}
}

// Navigator asks the user before following a deep link and performs the
// navigation. Confirm may block until the user answers.
type Navigator interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
	Navigate(ctx context.Context, target string) error
}

// Deps are the collaborators a session is built from. Only Bridge and Logger
// are required.
type Deps struct {
	Bridge    *bridge.Facade
	Signals   bridge.SignalSource
	Web       webfcm.Provider
	Navigator Navigator
	Tokens    tokens.Store
	Push      *notifications.Sender
	Clock     clock.Clock
	Logger    *logger.Logger

	ToastTimeout  time.Duration
	DeepLinkDelay time.Duration
	ProbeTimeout  time.Duration
	LogCapacity   int

	// OnChange is called after every state change. It must not block or call
	// back into the console.
	OnChange func()
}

// Console is a live session.
type Console struct {
	id        string
	bridge    *bridge.Facade
	signals   bridge.SignalSource
	web       webfcm.Provider
	navigator Navigator
	tokens    tokens.Store
	push      *notifications.Sender
	clock     clock.Clock
	logger    *logger.Logger
	onChange  func()

	deepLinkDelay time.Duration
	probeTimeout  time.Duration

	log   *eventlog.Log
	toast *toast.Slot

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	mode          Mode
	forced        bool
	loggedIn      bool
	appInfo       *bridge.AppInfo
	token         string
	locale        *bridge.Locale
	networkOnline *bool
	errMsg        string
	logoutResult  *bridge.Response
	submission    *SubmissionResult
	nativeSub     notifications.Subscription
	webSub        notifications.Subscription
	webGen        uint64
	deepLinks     map[uint64]clock.Timer
	deepLinkSeq   uint64
	closed        bool
}

func newConsole(deps Deps) *Console {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.DeepLinkDelay <= 0 {
		deps.DeepLinkDelay = time.Second
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(logger.WithSessionID(context.Background(), id))

	c := &Console{
		id:            id,
		bridge:        deps.Bridge,
		signals:       deps.Signals,
		web:           deps.Web,
		navigator:     deps.Navigator,
		tokens:        deps.Tokens,
		push:          deps.Push,
		clock:         deps.Clock,
		logger:        deps.Logger.WithComponent("console"),
		onChange:      deps.OnChange,
		deepLinkDelay: deps.DeepLinkDelay,
		probeTimeout:  deps.ProbeTimeout,
		ctx:           ctx,
		cancel:        cancel,
		mode:          ModeWeb,
		loggedIn:      true,
		deepLinks:     make(map[uint64]clock.Timer),
	}
	c.log = eventlog.New(deps.LogCapacity, eventlog.WithNow(deps.Clock.Now))
	c.toast = toast.NewSlot(
		toast.WithClock(deps.Clock),
		toast.WithTimeout(deps.ToastTimeout),
		toast.OnChange(func(*toast.Toast) { c.notify() }),
	)
	return c
}

// Start creates a session and runs startup detection. It returns once the
// mode is settled and the matching adapters are subscribed.
func Start(ctx context.Context, deps Deps, opts Options) *Console {
	c := newConsole(deps)
	log := c.logger.WithContext(c.ctx)

	if opts.ForceNative {
		c.startForcedNative()
	} else {
		c.startDetect(ctx)
	}

	c.mu.Lock()
	mode := c.mode
	if mode == ModeNative {
		c.subscribeNativeLocked()
	} else {
		c.resubscribeWebLocked()
	}
	c.mu.Unlock()

	log.Info("session started",
		slog.String("mode", string(mode)),
		slog.Bool("forced", opts.ForceNative))
	c.notify()
	return c
}

func (c *Console) startForcedNative() {
	if w, ok := c.web.(interface{ DisableWorker() }); ok {
		w.DisableWorker()
	}

	info := syntheticAppInfo
	raw, _ := json.Marshal(info)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeNative
	c.forced = true
	c.appInfo = &info
	c.log.Append("Environment", "Detected mobile webview (versioninfo=mobileapp)")
	c.log.Append("App Info", string(raw))
}

func (c *Console) startDetect(ctx context.Context) {
	log := c.logger.WithContext(c.ctx)

	if w, ok := c.web.(webfcm.WorkerConfigurer); ok {
		if err := w.ConfigureWorker(ctx); err != nil {
			log.Warn("failed to hand config to worker", slog.String("error", err.Error()))
		}
	}

	probeCtx, cancel := c.probeContext(ctx)
	defer cancel()

	info, resp, err := c.bridge.GetAppInfo(probeCtx)
	var callErr *bridge.CallError
	switch {
	case errors.Is(err, bridge.ErrBridgeAbsent), errors.As(err, &callErr):
		log.Debug("no native bridge, staying in web mode")
		return
	case err != nil:
		c.mu.Lock()
		c.log.Append("Native Bridge", "Bridge not available or error: "+err.Error())
		c.mu.Unlock()
		return
	}

	appInfoText := string(resp.Raw)
	if appInfoText == "" {
		raw, _ := json.Marshal(info)
		appInfoText = string(raw)
	}

	c.mu.Lock()
	c.mode = ModeNative
	c.appInfo = &info
	c.log.Append("Native Bridge", "Detected native bridge: "+info.String())
	c.log.Append("App Info", appInfoText)
	c.mu.Unlock()

	locale, err := c.bridge.GetLocale(probeCtx)
	switch {
	case err == nil:
		c.mu.Lock()
		c.locale = &locale
		c.log.Append("Locale", locale.String())
		c.mu.Unlock()
	case errors.Is(err, bridge.ErrBridgeAbsent), errors.As(err, &callErr):
	default:
		c.mu.Lock()
		c.log.Append("Native Bridge", "Bridge not available or error: "+err.Error())
		c.mu.Unlock()
	}
}

func (c *Console) probeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.probeTimeout > 0 {
		return context.WithTimeout(ctx, c.probeTimeout)
	}
	return context.WithCancel(ctx)
}

func (c *Console) subscribeNativeLocked() {
	if c.signals == nil {
		return
	}
	sub, err := c.signals.Subscribe(c.Ingest)
	if err != nil {
		c.logger.WithContext(c.ctx).Warn("failed to subscribe to native signals", slog.String("error", err.Error()))
		return
	}
	c.nativeSub = sub
}

// resubscribeWebLocked replaces the foreground listener. The listener
// captures the login state at subscription time, so it is re-established on
// every login change.
func (c *Console) resubscribeWebLocked() {
	if c.mode != ModeWeb || c.web == nil || c.closed {
		return
	}
	if c.webSub != nil {
		c.webSub.Dispose()
		c.webSub = nil
	}

	c.webGen++
	gen := c.webGen
	loggedIn := c.loggedIn

	sub, err := c.web.OnForegroundMessage(func(m notifications.ForegroundMessage) {
		c.ingestForeground(m, gen, loggedIn)
	})
	if err != nil {
		c.logger.WithContext(c.ctx).Warn("foreground messaging not supported or failed to init",
			slog.String("error", err.Error()))
		return
	}
	c.webSub = sub
}

func (c *Console) setLoggedInLocked(v bool) {
	if c.loggedIn == v {
		return
	}
	c.loggedIn = v
	c.resubscribeWebLocked()
}

// ID identifies the session in logs and snapshots.
func (c *Console) ID() string {
	return c.id
}

// Mode returns the session's mode.
func (c *Console) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Close disposes every subscription and stops every pending timer.
func (c *Console) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.nativeSub != nil {
		c.nativeSub.Dispose()
		c.nativeSub = nil
	}
	if c.webSub != nil {
		c.webSub.Dispose()
		c.webSub = nil
	}
	for id, t := range c.deepLinks {
		t.Stop()
		delete(c.deepLinks, id)
	}
	c.mu.Unlock()

	c.toast.Close()
	c.cancel()
	c.logger.WithContext(c.ctx).Info("session closed")
}

func (c *Console) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Console) showToastLocked(title, body string, source notifications.Source) {
	c.toast.Show(title, body, source)
	metrics.ToastsShown.WithLabelValues(string(source)).Inc()
}

// failLocked sets the banner and mirrors it into the log.
func (c *Console) failLocked(label, message string) {
	c.errMsg = message
	c.log.Append(label, message)
	c.logger.WithContext(c.ctx).Warn("action failed",
		slog.String("label", label),
		slog.String("error", message))
}

// bridgeFailureLocked reports a failed bridge call. A rejection without a
// message shows fallback on the banner and "Failed" in the log.
func (c *Console) bridgeFailureLocked(label, fallback string, err error) {
	var callErr *bridge.CallError
	if errors.As(err, &callErr) && callErr.Message == "" {
		c.errMsg = fallback
		c.log.Append(label, "Failed")
		return
	}
	if errors.As(err, &callErr) {
		c.failLocked(label, callErr.Message)
		return
	}
	c.failLocked(label, err.Error())
}
