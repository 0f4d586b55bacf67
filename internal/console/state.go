package console

import (
	"github.com/eternisai/push-bridge/internal/bridge"
	"github.com/eternisai/push-bridge/internal/eventlog"
	"github.com/eternisai/push-bridge/internal/toast"
)

// State is a point-in-time copy of everything a presentation client shows.
type State struct {
	SessionID       string            `json:"sessionId"`
	Mode            Mode              `json:"mode"`
	IsNativeApp     bool              `json:"isNativeApp"`
	Environment     string            `json:"environment"`
	WebInitSkipped  bool              `json:"webInitSkipped"`
	BridgeConnected bool              `json:"bridgeConnected"`
	IsLoggedIn      bool              `json:"isLoggedIn"`
	AppInfo         *bridge.AppInfo   `json:"appInfo,omitempty"`
	CurrentToken    string            `json:"currentToken,omitempty"`
	CurrentLocale   *bridge.Locale    `json:"currentLocale,omitempty"`
	NetworkOnline   *bool             `json:"networkOnline,omitempty"`
	NetworkStatus   string            `json:"networkStatus"`
	Error           string            `json:"error,omitempty"`
	LogoutResult    *bridge.Response  `json:"logoutResult,omitempty"`
	Submission      *SubmissionResult `json:"submission,omitempty"`
	Toast           *toast.View       `json:"toast,omitempty"`
	Log             []eventlog.View   `json:"log"`
}

// Snapshot copies the current state.
func (c *Console) Snapshot() State {
	c.mu.Lock()
	s := State{
		SessionID:      c.id,
		Mode:           c.mode,
		IsNativeApp:    c.mode == ModeNative,
		Environment:    "Web Browser",
		WebInitSkipped: c.forced,
		IsLoggedIn:     c.loggedIn,
		CurrentToken:   c.token,
		NetworkStatus:  "Unknown",
		Error:          c.errMsg,
		LogoutResult:   c.logoutResult,
		Submission:     c.submission,
	}
	if c.mode == ModeNative {
		s.Environment = "Native App"
	}
	if c.appInfo != nil {
		info := *c.appInfo
		s.AppInfo = &info
	}
	if c.locale != nil {
		locale := *c.locale
		s.CurrentLocale = &locale
	}
	if c.networkOnline != nil {
		online := *c.networkOnline
		s.NetworkOnline = &online
		s.NetworkStatus = "Offline"
		if online {
			s.NetworkStatus = "Online"
		}
	}
	if c.submission != nil {
		sub := *c.submission
		s.Submission = &sub
	}
	if c.logoutResult != nil {
		resp := *c.logoutResult
		s.LogoutResult = &resp
	}
	c.mu.Unlock()

	s.BridgeConnected = c.bridge.Available()
	if t, ok := c.toast.Current(); ok {
		v := toast.NewView(t)
		s.Toast = &v
	}
	s.Log = eventlog.Views(c.log.Records())
	return s
}

func localeOf(languageCode, countryCode string) *bridge.Locale {
	return &bridge.Locale{LanguageCode: languageCode, CountryCode: countryCode}
}
