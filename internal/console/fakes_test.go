package console

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/eternisai/push-bridge/internal/bridge"
	"github.com/eternisai/push-bridge/internal/clock"
	"github.com/eternisai/push-bridge/internal/eventlog"
	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/eternisai/push-bridge/internal/notifications"
	"github.com/eternisai/push-bridge/internal/tokens"
	"github.com/eternisai/push-bridge/internal/webfcm"
)

var epoch = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

type fakeCaller struct {
	mu        sync.Mutex
	absent    bool
	responses map[string]string
	errs      map[string]error
	calls     []string
	args      map[string][]any
}

func (f *fakeCaller) Connected() bool { return !f.absent }

func (f *fakeCaller) CallHandler(ctx context.Context, name string, args ...any) (bridge.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.absent {
		return bridge.Response{}, bridge.ErrBridgeAbsent
	}
	f.calls = append(f.calls, name)
	f.args[name] = args
	if err := f.errs[name]; err != nil {
		return bridge.Response{}, err
	}
	raw, ok := f.responses[name]
	if !ok {
		raw = `{"success":true}`
	}
	return bridge.ParseResponse(json.RawMessage(raw))
}

func (f *fakeCaller) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeSignals struct {
	mu         sync.Mutex
	handler    func(notifications.Signal)
	subscribes int
	disposed   int
}

func (f *fakeSignals) Subscribe(handler func(notifications.Signal)) (notifications.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	f.subscribes++
	return notifications.NewSubscription(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.handler = nil
		f.disposed++
	}), nil
}

func (f *fakeSignals) emit(sig notifications.Signal) bool {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return false
	}
	h(sig)
	return true
}

type fakeWeb struct {
	mu               sync.Mutex
	token            string
	err              error
	nextID           int
	handlers         map[int]func(notifications.ForegroundMessage)
	subscribes       int
	workerConfigured bool
	workerDisabled   bool
	opened           []string
}

var (
	_ webfcm.Provider         = (*fakeWeb)(nil)
	_ webfcm.WorkerConfigurer = (*fakeWeb)(nil)
)

func (f *fakeWeb) RequestToken(ctx context.Context) (string, error) {
	return f.token, f.err
}

func (f *fakeWeb) OnForegroundMessage(handler func(notifications.ForegroundMessage)) (notifications.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.handlers[id] = handler
	f.subscribes++
	return notifications.NewSubscription(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}), nil
}

func (f *fakeWeb) ConfigureWorker(ctx context.Context) error {
	f.workerConfigured = true
	return nil
}

func (f *fakeWeb) DisableWorker() {
	f.workerDisabled = true
}

func (f *fakeWeb) OpenURL(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, url)
	return nil
}

func (f *fakeWeb) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *fakeWeb) emit(m notifications.ForegroundMessage) {
	f.mu.Lock()
	hs := make([]func(notifications.ForegroundMessage), 0, len(f.handlers))
	for _, h := range f.handlers {
		hs = append(hs, h)
	}
	f.mu.Unlock()
	for _, h := range hs {
		h(m)
	}
}

type fakeNavigator struct {
	answer    bool
	prompts   chan string
	navigated chan string
	err       error
}

func newFakeNavigator(answer bool) *fakeNavigator {
	return &fakeNavigator{answer: answer, prompts: make(chan string, 4), navigated: make(chan string, 4)}
}

func (n *fakeNavigator) Confirm(ctx context.Context, prompt string) (bool, error) {
	n.prompts <- prompt
	return n.answer, nil
}

func (n *fakeNavigator) Navigate(ctx context.Context, target string) error {
	n.navigated <- target
	return n.err
}

type fakeStore struct {
	regs    []tokens.Registration
	receipt tokens.Receipt
	err     error
}

func (s *fakeStore) Upsert(ctx context.Context, reg tokens.Registration) (tokens.Receipt, error) {
	s.regs = append(s.regs, reg)
	return s.receipt, s.err
}

type fakeMessageSender struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeMessageSender) Send(ctx context.Context, message *messaging.Message) (string, error) {
	f.sent = append(f.sent, message)
	if f.err != nil {
		return "", f.err
	}
	return "projects/demo/messages/42", nil
}

func (f *fakeMessageSender) SendDryRun(ctx context.Context, message *messaging.Message) (string, error) {
	return f.Send(ctx, message)
}

type fixture struct {
	caller  *fakeCaller
	signals *fakeSignals
	web     *fakeWeb
	nav     *fakeNavigator
	store   *fakeStore
	clock   *clock.Manual
	changes int
	mu      sync.Mutex
}

func newFixture(native bool) *fixture {
	f := &fixture{
		caller: &fakeCaller{
			absent:    !native,
			responses: map[string]string{},
			errs:      map[string]error{},
			args:      map[string][]any{},
		},
		signals: &fakeSignals{},
		web:     &fakeWeb{handlers: map[int]func(notifications.ForegroundMessage){}},
		nav:     newFakeNavigator(true),
		store:   &fakeStore{},
		clock:   clock.NewManual(epoch),
	}
	if native {
		f.caller.responses[bridge.HandlerGetAppInfo] = `{"success":true,"appName":"Shop","version":"2.1.0","platform":"android"}`
		f.caller.responses[bridge.HandlerGetLocale] = `{"success":true,"languageCode":"vi","countryCode":"VN"}`
	}
	return f
}

func (f *fixture) deps() Deps {
	return Deps{
		Bridge:        bridge.NewFacade(f.caller, f.web, time.Second, logger.Nop()),
		Signals:       f.signals,
		Web:           f.web,
		Navigator:     f.nav,
		Tokens:        f.store,
		Clock:         f.clock,
		Logger:        logger.Nop(),
		ToastTimeout:  5 * time.Second,
		DeepLinkDelay: time.Second,
		ProbeTimeout:  time.Second,
		LogCapacity:   eventlog.DefaultCapacity,
		OnChange: func() {
			f.mu.Lock()
			f.changes++
			f.mu.Unlock()
		},
	}
}

func (f *fixture) start(t *testing.T, opts Options) *Console {
	t.Helper()
	c := Start(context.Background(), f.deps(), opts)
	t.Cleanup(c.Close)
	return c
}

// records returns the log newest first.
func records(c *Console) []eventlog.Record {
	return c.log.Records()
}

func hasRecord(c *Console, typ, message string) bool {
	for _, r := range records(c) {
		if r.Type == typ && r.Message == message {
			return true
		}
	}
	return false
}

func countType(c *Console, typ string) int {
	n := 0
	for _, r := range records(c) {
		if r.Type == typ {
			n++
		}
	}
	return n
}
