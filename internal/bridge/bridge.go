// Package bridge is the command façade over the native host's named handlers.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Handler names the native host registers.
const (
	HandlerGetAppInfo      = "getAppInfo"
	HandlerGetLocale       = "getLocale"
	HandlerGetFCMToken     = "getFCMToken"
	HandlerChangeLocale    = "changeLocale"
	HandlerLogout          = "logout"
	HandlerLog             = "log"
	HandlerOpenExternalURL = "openExternalUrl"
	HandlerOpenInternalURL = "openInternalUrl"
)

// ErrBridgeAbsent means no native host is reachable. Call sites treat it as a
// no-op rather than a failure.
var ErrBridgeAbsent = errors.New("native bridge not available")

// CallError is a handler that answered with success=false.
type CallError struct {
	Handler string
	Message string
}

func (e *CallError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed", e.Handler)
	}
	return e.Message
}

// Response is a handler's answer. Raw keeps the full JSON body for
// handler-specific fields.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ParseResponse decodes a handler's JSON answer. A JSON null (a handler that
// returned nothing) yields a zero Response.
func ParseResponse(raw json.RawMessage) (Response, error) {
	var r Response
	if len(raw) == 0 || string(raw) == "null" {
		return r, nil
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("failed to decode bridge response: %w", err)
	}
	r.Raw = raw
	return r, nil
}

// Decode unmarshals the full body into v.
func (r Response) Decode(v any) error {
	if len(r.Raw) == 0 {
		return nil
	}
	return json.Unmarshal(r.Raw, v)
}

// MarshalJSON returns the body as received.
func (r Response) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	type plain Response
	return json.Marshal(plain(r))
}

// Caller invokes a named handler on the native host.
type Caller interface {
	CallHandler(ctx context.Context, name string, args ...any) (Response, error)
}

// AppInfo describes the hosting application.
type AppInfo struct {
	AppName  string `json:"appName"`
	Version  string `json:"version"`
	Platform string `json:"platform"`
}

// String renders "<name> v<version> (<platform>)" with "unknown" for blanks.
func (a AppInfo) String() string {
	return fmt.Sprintf("%s v%s (%s)", orUnknown(a.AppName), orUnknown(a.Version), orUnknown(a.Platform))
}

// Locale is the host's UI language.
type Locale struct {
	LanguageCode string `json:"languageCode"`
	CountryCode  string `json:"countryCode,omitempty"`
}

// String renders "<lang>-<country>".
func (l Locale) String() string {
	return l.LanguageCode + "-" + l.CountryCode
}

// LogLevel is the severity passed to the host's log handler.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// Valid reports whether l is a supported level.
func (l LogLevel) Valid() bool {
	switch l {
	case LogLevelDebug, LogLevelWarning, LogLevelError:
		return true
	}
	return false
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
