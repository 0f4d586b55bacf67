package notifications

import (
	"encoding/json"
	"fmt"
)

// SignalKind names one of the fire-and-forget signals a native host sends.
type SignalKind string

const (
	SignalTokenUpdated         SignalKind = "fcmTokenUpdated"
	SignalLocaleChanged        SignalKind = "localeChanged"
	SignalNetworkStatusChanged SignalKind = "networkStatusChanged"
	SignalPushReceived         SignalKind = "pushNotificationReceived"

	// SignalForegroundMessage comes from the web messaging client, not the
	// native host.
	SignalForegroundMessage SignalKind = "foregroundMessage"
)

// SignalKinds lists every native signal, in a stable order.
var SignalKinds = []SignalKind{
	SignalTokenUpdated,
	SignalLocaleChanged,
	SignalNetworkStatusChanged,
	SignalPushReceived,
}

// Signal is the tagged union of inbound events. Exactly one of the concrete
// types in this file implements it per kind.
type Signal interface {
	Kind() SignalKind
}

// TokenUpdated is sent when the host obtains or refreshes its FCM token.
type TokenUpdated struct {
	Success bool       `json:"success"`
	Token   string     `json:"token"`
	TS      *Timestamp `json:"ts,omitempty"`
	Source  string     `json:"source"`
}

// LocaleChanged is sent when the host's UI language changes.
type LocaleChanged struct {
	LanguageCode string `json:"languageCode"`
	CountryCode  string `json:"countryCode,omitempty"`
}

// NetworkStatusChanged is sent on connectivity transitions.
type NetworkStatusChanged struct {
	IsOnline bool `json:"isOnline"`
}

// PushReceived carries a push the host received natively.
type PushReceived struct {
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	Data         Data       `json:"data,omitempty"`
	SentTime     *Timestamp `json:"sentTime,omitempty"`
	ReceivedTime *Timestamp `json:"receivedTime,omitempty"`
	MessageID    string     `json:"messageId,omitempty"`

	// DataText holds a data field that was not an object.
	DataText string `json:"-"`
}

// UnmarshalJSON keeps a non-object data field as text.
func (p *PushReceived) UnmarshalJSON(b []byte) error {
	type plain PushReceived
	aux := struct {
		*plain
		Data json.RawMessage `json:"data,omitempty"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.Data, p.DataText = decodeData(aux.Data)
	return nil
}

func (TokenUpdated) Kind() SignalKind         { return SignalTokenUpdated }
func (LocaleChanged) Kind() SignalKind        { return SignalLocaleChanged }
func (NetworkStatusChanged) Kind() SignalKind { return SignalNetworkStatusChanged }
func (PushReceived) Kind() SignalKind         { return SignalPushReceived }

// Event converts the push into a normalized native_push event.
func (p PushReceived) Event() Event {
	return Event{
		Source:       SourceNativePush,
		Title:        p.Title,
		Body:         p.Body,
		Data:         p.Data,
		SentTime:     p.SentTime,
		ReceivedTime: p.ReceivedTime,
		MessageID:    p.MessageID,
	}.Normalized()
}

// DecodeSignal decodes a signal payload of the given kind.
func DecodeSignal(kind SignalKind, payload json.RawMessage) (Signal, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	var (
		sig Signal
		err error
	)
	switch kind {
	case SignalTokenUpdated:
		var s TokenUpdated
		err = json.Unmarshal(payload, &s)
		sig = s
	case SignalLocaleChanged:
		var s LocaleChanged
		err = json.Unmarshal(payload, &s)
		sig = s
	case SignalNetworkStatusChanged:
		var s NetworkStatusChanged
		err = json.Unmarshal(payload, &s)
		sig = s
	case SignalPushReceived:
		var s PushReceived
		err = json.Unmarshal(payload, &s)
		sig = s
	case SignalForegroundMessage:
		var s ForegroundMessage
		err = json.Unmarshal(payload, &s)
		sig = s
	default:
		return nil, fmt.Errorf("unknown signal kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
	}
	return sig, nil
}

// ForegroundMessage is a push delivered to the web client while it is focused,
// in the messaging SDK's shape.
type ForegroundMessage struct {
	Notification *struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"notification,omitempty"`
	Data      Data   `json:"data,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// UnmarshalJSON drops a data field that is not an object.
func (m *ForegroundMessage) UnmarshalJSON(b []byte) error {
	type plain ForegroundMessage
	aux := struct {
		*plain
		Data json.RawMessage `json:"data,omitempty"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	m.Data, _ = decodeData(aux.Data)
	return nil
}

func (ForegroundMessage) Kind() SignalKind { return SignalForegroundMessage }

// Event converts the message into a normalized web_fcm event.
func (m ForegroundMessage) Event() Event {
	e := Event{
		Source:    SourceWebFCM,
		Data:      m.Data,
		MessageID: m.MessageID,
	}
	if m.Notification != nil {
		e.Title = m.Notification.Title
		e.Body = m.Notification.Body
	}
	return e.Normalized()
}
