package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []any
}

type fakeCaller struct {
	responses map[string]string
	errs      map[string]error
	calls     []call
	connected bool
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		responses: map[string]string{},
		errs:      map[string]error{},
		connected: true,
	}
}

func (f *fakeCaller) Connected() bool { return f.connected }

func (f *fakeCaller) CallHandler(ctx context.Context, name string, args ...any) (Response, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if err := f.errs[name]; err != nil {
		return Response{}, err
	}
	raw, ok := f.responses[name]
	if !ok {
		raw = `{"success":true}`
	}
	return ParseResponse(json.RawMessage(raw))
}

type fakeOpener struct {
	urls []string
}

func (o *fakeOpener) OpenURL(ctx context.Context, url string) error {
	o.urls = append(o.urls, url)
	return nil
}

func TestNilCallerIsAbsent(t *testing.T) {
	f := NewFacade(nil, nil, time.Second, logger.Nop())

	assert.False(t, f.Available())
	_, _, err := f.GetAppInfo(context.Background())
	assert.ErrorIs(t, err, ErrBridgeAbsent)
	assert.ErrorIs(t, f.ChangeLocale(context.Background(), "en"), ErrBridgeAbsent)
	assert.ErrorIs(t, f.OpenExternalURL(context.Background(), "https://example.com"), ErrBridgeAbsent)
}

func TestGetAppInfo(t *testing.T) {
	c := newFakeCaller()
	c.responses[HandlerGetAppInfo] = `{"success":true,"appName":"Shop","version":"2.1.0","platform":"android"}`
	f := NewFacade(c, nil, time.Second, logger.Nop())

	info, resp, err := f.GetAppInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AppInfo{AppName: "Shop", Version: "2.1.0", Platform: "android"}, info)
	assert.Equal(t, "Shop v2.1.0 (android)", info.String())
	assert.True(t, resp.Success)
	assert.JSONEq(t, c.responses[HandlerGetAppInfo], string(resp.Raw))
}

func TestAppInfoStringFillsUnknown(t *testing.T) {
	assert.Equal(t, "unknown vunknown (ios)", AppInfo{Platform: "ios"}.String())
}

func TestRejectedCallCarriesHostError(t *testing.T) {
	c := newFakeCaller()
	c.responses[HandlerGetFCMToken] = `{"success":false,"error":"Permission denied"}`
	f := NewFacade(c, nil, time.Second, logger.Nop())

	_, err := f.GetFCMToken(context.Background())

	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, HandlerGetFCMToken, callErr.Handler)
	assert.Equal(t, "Permission denied", callErr.Error())
}

func TestRejectedCallWithoutMessage(t *testing.T) {
	c := newFakeCaller()
	c.responses[HandlerLogout] = `{"success":false}`
	f := NewFacade(c, nil, time.Second, logger.Nop())

	resp, err := f.Logout(context.Background())
	require.Error(t, err)
	assert.Equal(t, "logout failed", err.Error())
	assert.False(t, resp.Success)
}

func TestNullResponseIsRejection(t *testing.T) {
	c := newFakeCaller()
	c.responses[HandlerChangeLocale] = `null`
	f := NewFacade(c, nil, time.Second, logger.Nop())

	err := f.ChangeLocale(context.Background(), "vi")
	var callErr *CallError
	assert.True(t, errors.As(err, &callErr))
}

func TestArgumentsReachHost(t *testing.T) {
	c := newFakeCaller()
	c.responses[HandlerGetFCMToken] = `{"success":true,"token":"tok-123"}`
	f := NewFacade(c, nil, time.Second, logger.Nop())
	ctx := context.Background()

	token, err := f.GetFCMToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	require.NoError(t, f.ChangeLocale(ctx, "vi"))
	require.NoError(t, f.Log(ctx, "hello", LogLevelWarning))
	require.NoError(t, f.Log(ctx, "fallback", LogLevel("verbose")))

	require.Len(t, c.calls, 4)
	assert.Equal(t, []any{"vi"}, c.calls[1].args)
	assert.Equal(t, []any{"hello", "warning"}, c.calls[2].args)
	assert.Equal(t, []any{"fallback", "debug"}, c.calls[3].args)
}

func TestGetLocale(t *testing.T) {
	c := newFakeCaller()
	c.responses[HandlerGetLocale] = `{"success":true,"languageCode":"vi","countryCode":"VN"}`
	f := NewFacade(c, nil, time.Second, logger.Nop())

	locale, err := f.GetLocale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vi-VN", locale.String())
}

func TestTransportErrorPassesThrough(t *testing.T) {
	c := newFakeCaller()
	boom := errors.New("socket closed")
	c.errs[HandlerGetLocale] = boom
	f := NewFacade(c, nil, time.Second, logger.Nop())

	_, err := f.GetLocale(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestOpenURLUsesNativeHandlerWhenConnected(t *testing.T) {
	c := newFakeCaller()
	opener := &fakeOpener{}
	f := NewFacade(c, opener, time.Second, logger.Nop())

	require.NoError(t, f.OpenExternalURL(context.Background(), "https://www.google.com"))
	require.NoError(t, f.OpenInternalURL(context.Background(), "https://www.facebook.com"))

	require.Len(t, c.calls, 2)
	assert.Equal(t, HandlerOpenExternalURL, c.calls[0].name)
	assert.Equal(t, HandlerOpenInternalURL, c.calls[1].name)
	assert.Empty(t, opener.urls)
}

func TestOpenURLFallsBackToBrowser(t *testing.T) {
	c := newFakeCaller()
	c.connected = false
	opener := &fakeOpener{}
	f := NewFacade(c, opener, time.Second, logger.Nop())

	require.NoError(t, f.OpenExternalURL(context.Background(), "https://www.google.com"))

	assert.Empty(t, c.calls)
	assert.Equal(t, []string{"https://www.google.com"}, opener.urls)
}

func TestResponseMarshalKeepsBody(t *testing.T) {
	resp, err := ParseResponse(json.RawMessage(`{"success":true,"deleted":3}`))
	require.NoError(t, err)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"deleted":3}`, string(out))

	out, err = json.Marshal(Response{Error: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"x"}`, string(out))
}

func TestLogAcceptsBareAck(t *testing.T) {
	c := newFakeCaller()
	c.responses[HandlerLog] = `null`
	f := NewFacade(c, nil, time.Second, logger.Nop())
	require.NoError(t, f.Log(context.Background(), "ping", LogLevelDebug))

	c.responses[HandlerLog] = `{"success":false,"error":"logger offline"}`
	assert.EqualError(t, f.Log(context.Background(), "ping", LogLevelDebug), "logger offline")
}
