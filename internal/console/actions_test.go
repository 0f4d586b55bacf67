package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/eternisai/push-bridge/internal/bridge"
	"github.com/eternisai/push-bridge/internal/logger"
	"github.com/eternisai/push-bridge/internal/notifications"
	"github.com/eternisai/push-bridge/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionsRequireMode(t *testing.T) {
	ctx := context.Background()

	web := newFixture(false).start(t, Options{})
	assert.ErrorIs(t, web.GetNativeToken(ctx), ErrWrongMode)
	assert.ErrorIs(t, web.ChangeLocale(ctx, "en"), ErrWrongMode)
	assert.ErrorIs(t, web.Logout(ctx, true), ErrWrongMode)
	assert.ErrorIs(t, web.SendLog(ctx, "hi", bridge.LogLevelDebug), ErrWrongMode)

	native := newFixture(true).start(t, Options{})
	assert.ErrorIs(t, native.EnableWebPush(ctx), ErrWrongMode)
	assert.ErrorIs(t, native.WebLogout(true), ErrWrongMode)
}

func TestGetNativeTokenRejected(t *testing.T) {
	f := newFixture(true)
	f.caller.responses[bridge.HandlerGetFCMToken] = `{"success":false}`
	c := f.start(t, Options{})

	require.NoError(t, c.GetNativeToken(context.Background()))

	s := c.Snapshot()
	assert.Equal(t, "Failed to get token", s.Error)
	assert.Empty(t, s.CurrentToken)
	assert.True(t, hasRecord(c, "Native FCM Error", "Failed"))
}

func TestGetNativeTokenTransportError(t *testing.T) {
	f := newFixture(true)
	c := f.start(t, Options{})
	f.caller.errs[bridge.HandlerGetFCMToken] = errors.New("host timed out")

	require.NoError(t, c.GetNativeToken(context.Background()))

	assert.Equal(t, "host timed out", c.Snapshot().Error)
	assert.True(t, hasRecord(c, "Native FCM Error", "host timed out"))
}

func TestGetNativeTokenWithoutHostIsNoop(t *testing.T) {
	f := newFixture(false)
	c := f.start(t, Options{ForceNative: true})
	n := len(records(c))

	require.NoError(t, c.GetNativeToken(context.Background()))

	assert.Len(t, records(c), n)
	assert.Empty(t, c.Snapshot().Error)
}

func TestGetNativeToken(t *testing.T) {
	f := newFixture(true)
	f.caller.responses[bridge.HandlerGetFCMToken] = `{"success":true,"token":"abc"}`
	c := f.start(t, Options{})

	require.NoError(t, c.GetNativeToken(context.Background()))

	assert.Equal(t, "abc", c.Snapshot().CurrentToken)
	assert.True(t, hasRecord(c, "Native FCM", "Token obtained from native app"))
}

func TestChangeLocale(t *testing.T) {
	f := newFixture(true)
	c := f.start(t, Options{})

	assert.ErrorIs(t, c.ChangeLocale(context.Background(), "  "), ErrInvalidInput)
	require.NoError(t, c.ChangeLocale(context.Background(), "ja"))

	assert.Equal(t, []any{"ja"}, f.caller.args[bridge.HandlerChangeLocale])
	s := c.Snapshot()
	require.NotNil(t, s.CurrentLocale)
	assert.Equal(t, "ja", s.CurrentLocale.LanguageCode)
	assert.Equal(t, "Language Changed", s.Toast.Title)
	assert.True(t, hasRecord(c, "Change Locale", "Changed to ja"))
}

func TestChangeLocaleRejected(t *testing.T) {
	f := newFixture(true)
	f.caller.responses[bridge.HandlerChangeLocale] = `{"success":false,"error":"unsupported language"}`
	c := f.start(t, Options{})

	require.NoError(t, c.ChangeLocale(context.Background(), "xx"))

	s := c.Snapshot()
	assert.Equal(t, "unsupported language", s.Error)
	assert.Equal(t, "vi", s.CurrentLocale.LanguageCode)
	assert.True(t, hasRecord(c, "Change Locale Error", "unsupported language"))
}

func TestSendLog(t *testing.T) {
	f := newFixture(true)
	c := f.start(t, Options{})
	ctx := context.Background()

	assert.ErrorIs(t, c.SendLog(ctx, "", bridge.LogLevelDebug), ErrInvalidInput)
	assert.ErrorIs(t, c.SendLog(ctx, "x", bridge.LogLevel("fatal")), ErrInvalidInput)

	require.NoError(t, c.SendLog(ctx, "hello", bridge.LogLevelWarning))
	assert.Equal(t, []any{"hello", "warning"}, f.caller.args[bridge.HandlerLog])
	assert.True(t, hasRecord(c, "Sent Log", "[WARNING] hello"))

	require.NoError(t, c.SendLog(ctx, "plain", ""))
	assert.True(t, hasRecord(c, "Sent Log", "[DEBUG] plain"))
}

func TestSendLogBareAck(t *testing.T) {
	f := newFixture(true)
	f.caller.responses[bridge.HandlerLog] = `null`
	c := f.start(t, Options{})

	require.NoError(t, c.SendLog(context.Background(), "hi", bridge.LogLevelError))

	assert.Empty(t, c.Snapshot().Error)
	assert.True(t, hasRecord(c, "Sent Log", "[ERROR] hi"))
}

func TestSendLogFailure(t *testing.T) {
	f := newFixture(true)
	f.caller.responses[bridge.HandlerLog] = `{"success":false,"error":"log sink full"}`
	c := f.start(t, Options{})

	require.NoError(t, c.SendLog(context.Background(), "hi", bridge.LogLevelError))

	assert.Equal(t, "log sink full", c.Snapshot().Error)
	assert.True(t, hasRecord(c, "Sent Log Error", "log sink full"))
}

func TestSimulateNative(t *testing.T) {
	f := newFixture(true)
	c := f.start(t, Options{})

	require.NoError(t, c.Simulate(context.Background()))

	s := c.Snapshot()
	require.NotNil(t, s.Toast)
	assert.Equal(t, "Test Notification", s.Toast.Title)
	assert.Equal(t, "This is a simulated notification from native app", s.Toast.Body)
	assert.Equal(t, notifications.SourceNativePush, s.Toast.Source)

	recs := records(c)
	require.GreaterOrEqual(t, len(recs), 3)
	assert.Equal(t, "Simulated Notification", recs[0].Type)
	assert.Equal(t, "Test notification sent", recs[0].Message)
	assert.Equal(t, "Push notification (Native)", recs[1].Type)
	assert.Equal(t, fmt.Sprintf("Test Notification [sim-%d]", epoch.UnixMilli()), recs[1].Message)
	assert.Equal(t, "Push data (Native)", recs[2].Type)
	assert.Equal(t, `{"deep_link":"/test-page","type":"test"}`, recs[2].Message)
}

func TestSimulateWeb(t *testing.T) {
	f := newFixture(false)
	c := f.start(t, Options{})

	require.NoError(t, c.Simulate(context.Background()))

	s := c.Snapshot()
	require.NotNil(t, s.Toast)
	assert.Equal(t, notifications.SourceWebFCM, s.Toast.Source)
	assert.True(t, hasRecord(c, "Simulated Notification", "Web notification"))
}

func TestCopyToken(t *testing.T) {
	f := newFixture(false)
	f.web.token = "copy-me"
	c := f.start(t, Options{})

	_, err := c.CopyToken()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, c.EnableWebPush(context.Background()))
	token, err := c.CopyToken()
	require.NoError(t, err)
	assert.Equal(t, "copy-me", token)
	assert.True(t, hasRecord(c, "Copied", "Token copied to clipboard"))
}

func TestOpenURL(t *testing.T) {
	ctx := context.Background()

	t.Run("native external", func(t *testing.T) {
		f := newFixture(true)
		c := f.start(t, Options{})

		require.NoError(t, c.OpenURL(ctx, "https://example.com/a", false))
		assert.Equal(t, []any{"https://example.com/a"}, f.caller.args[bridge.HandlerOpenExternalURL])
		assert.True(t, hasRecord(c, "Open External URL", "https://example.com/a"))
	})

	t.Run("native internal", func(t *testing.T) {
		f := newFixture(true)
		c := f.start(t, Options{})

		require.NoError(t, c.OpenURL(ctx, "https://example.com/b", true))
		assert.Contains(t, f.caller.called(), bridge.HandlerOpenInternalURL)
		assert.True(t, hasRecord(c, "Open Internal URL", "https://example.com/b"))
	})

	t.Run("native rejected", func(t *testing.T) {
		f := newFixture(true)
		f.caller.responses[bridge.HandlerOpenExternalURL] = `{"success":false}`
		c := f.start(t, Options{})

		require.NoError(t, c.OpenURL(ctx, "https://example.com", false))
		assert.Equal(t, "Failed to open URL", c.Snapshot().Error)
		assert.True(t, hasRecord(c, "Open External URL Error", "Failed"))
	})

	t.Run("web opens a tab", func(t *testing.T) {
		f := newFixture(false)
		c := f.start(t, Options{})

		require.NoError(t, c.OpenURL(ctx, "https://example.com/c", true))
		assert.Equal(t, []string{"https://example.com/c"}, f.web.opened)
		assert.Empty(t, f.caller.called())
	})

	t.Run("invalid", func(t *testing.T) {
		c := newFixture(false).start(t, Options{})
		assert.ErrorIs(t, c.OpenURL(ctx, "javascript:alert(1)", false), ErrInvalidInput)
		assert.ErrorIs(t, c.OpenURL(ctx, "https://", false), ErrInvalidInput)
	})
}

func TestSubmitTokenWithoutStore(t *testing.T) {
	f := newFixture(false)
	deps := f.deps()
	deps.Tokens = nil
	c := Start(context.Background(), deps, Options{})
	defer c.Close()

	assert.ErrorIs(t, c.SubmitToken(context.Background()), tokens.ErrNoStore)
}

func TestSubmitTokenWithoutToken(t *testing.T) {
	f := newFixture(false)
	c := f.start(t, Options{})

	assert.ErrorIs(t, c.SubmitToken(context.Background()), ErrNoToken)
	assert.Empty(t, f.store.regs)
	assert.True(t, hasRecord(c, "Submission Error", "No token available. Please get FCM token first."))
}

func TestSubmitTokenSuccess(t *testing.T) {
	f := newFixture(true)
	token := strings.Repeat("a", 60)
	f.caller.responses[bridge.HandlerGetFCMToken] = `{"success":true,"token":"` + token + `"}`
	f.store.receipt = tokens.Receipt{Status: "201: Created"}
	c := f.start(t, Options{})

	require.NoError(t, c.GetNativeToken(context.Background()))
	require.NoError(t, c.SubmitToken(context.Background()))

	require.Len(t, f.store.regs, 1)
	assert.Equal(t, tokens.Registration{Token: token, Platform: tokens.PlatformNative}, f.store.regs[0])

	recs := records(c)
	assert.Equal(t, "Token Submitted", recs[0].Type)
	assert.Equal(t, "Platform: native, Status: Success", recs[0].Message)
	assert.Equal(t, "Response Text", recs[1].Type)
	assert.Equal(t, "Response Status", recs[2].Type)
	assert.Equal(t, "201: Created", recs[2].Message)
	assert.Equal(t, "Total length: 60 chars", recs[3].Message)
	assert.Equal(t, "First 50 chars: "+strings.Repeat("a", 50)+"...", recs[4].Message)
	assert.Equal(t, "Submitting Token", recs[5].Type)

	s := c.Snapshot()
	require.NotNil(t, s.Submission)
	assert.True(t, s.Submission.Success)
	assert.Equal(t, "Token submitted successfully!", s.Submission.Message)
}

func TestSubmitTokenPreviewKeepsCharactersWhole(t *testing.T) {
	f := newFixture(true)
	token := strings.Repeat("ж", 60)
	f.caller.responses[bridge.HandlerGetFCMToken] = `{"success":true,"token":"` + token + `"}`
	c := f.start(t, Options{})

	require.NoError(t, c.GetNativeToken(context.Background()))
	require.NoError(t, c.SubmitToken(context.Background()))

	assert.True(t, hasRecord(c, "Token Preview", "First 50 chars: "+strings.Repeat("ж", 50)+"..."))
	assert.True(t, hasRecord(c, "Token Length", "Total length: 60 chars"))
}

func TestSubmitTokenStatusError(t *testing.T) {
	f := newFixture(false)
	f.web.token = "web-tok"
	f.store.receipt = tokens.Receipt{Status: "409: Conflict", Body: `{"message":"dup"}`}
	f.store.err = &tokens.StatusError{Code: 409, Status: "Conflict", Body: `{"message":"dup"}`}
	c := f.start(t, Options{})

	require.NoError(t, c.EnableWebPush(context.Background()))
	require.NoError(t, c.SubmitToken(context.Background()))

	assert.Equal(t, tokens.PlatformWeb, f.store.regs[0].Platform)
	assert.True(t, hasRecord(c, "Submission Error", "Platform: web, Status: 409, Error: Conflict"))
	assert.True(t, hasRecord(c, "Full Error Response", `{"message":"dup"}`))

	s := c.Snapshot()
	require.NotNil(t, s.Submission)
	assert.False(t, s.Submission.Success)
	assert.Equal(t, "Failed to submit token (409): Conflict", s.Submission.Message)
}

func TestSubmitTokenNetworkError(t *testing.T) {
	f := newFixture(false)
	f.web.token = "web-tok"
	f.store.err = errors.New("network error: connection refused")
	c := f.start(t, Options{})

	require.NoError(t, c.EnableWebPush(context.Background()))
	require.NoError(t, c.SubmitToken(context.Background()))

	assert.True(t, hasRecord(c, "Submission Error", "network error: connection refused"))
	assert.Zero(t, countType(c, "Response Status"))
}

func TestSendTestPush(t *testing.T) {
	sender := &fakeMessageSender{}
	f := newFixture(true)
	f.caller.responses[bridge.HandlerGetFCMToken] = `{"success":true,"token":"device-token"}`
	deps := f.deps()
	deps.Push = notifications.NewSender(sender, logger.Nop(), notifications.SenderOptions{Enabled: true})
	c := Start(context.Background(), deps, Options{})
	defer c.Close()

	assert.ErrorIs(t, c.SendTestPush(context.Background()), ErrNoToken)

	require.NoError(t, c.GetNativeToken(context.Background()))
	require.NoError(t, c.SendTestPush(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "device-token", sender.sent[0].Token)
	assert.True(t, hasRecord(c, "Test Push", "Sent: projects/demo/messages/42"))

	sender.err = errors.New("registration-token-not-registered")
	require.NoError(t, c.SendTestPush(context.Background()))
	assert.True(t, hasRecord(c, "Test Push Error", "registration-token-not-registered"))
}

func TestSendTestPushUnavailable(t *testing.T) {
	c := newFixture(true).start(t, Options{})
	assert.ErrorIs(t, c.SendTestPush(context.Background()), ErrPushUnavailable)
}
