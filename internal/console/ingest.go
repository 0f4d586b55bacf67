package console

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/eternisai/push-bridge/internal/eventlog"
	"github.com/eternisai/push-bridge/internal/metrics"
	"github.com/eternisai/push-bridge/internal/notifications"
)

// Ingest applies one inbound event. Native signals are ignored outside native
// mode and foreground messages outside web mode.
func (c *Console) Ingest(sig notifications.Signal) {
	c.mu.Lock()
	changed := c.ingestLocked(sig, c.loggedIn)
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

// ingestForeground is the web listener's entry point. loggedIn is the state
// captured when the listener was registered; a listener that has since been
// replaced falls back to the current state.
func (c *Console) ingestForeground(m notifications.ForegroundMessage, gen uint64, loggedIn bool) {
	c.mu.Lock()
	if gen != c.webGen {
		loggedIn = c.loggedIn
	}
	changed := c.ingestLocked(m, loggedIn)
	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

func (c *Console) ingestLocked(sig notifications.Signal, loggedIn bool) bool {
	if c.closed {
		return false
	}

	if m, ok := sig.(notifications.ForegroundMessage); ok {
		if c.mode != ModeWeb {
			return false
		}
		c.applyForegroundLocked(m, loggedIn)
		return true
	}

	if c.mode != ModeNative {
		c.logger.WithContext(c.ctx).Debug("ignoring native signal in web mode",
			slog.String("signal", string(sig.Kind())))
		return false
	}

	switch s := sig.(type) {
	case notifications.TokenUpdated:
		return c.applyTokenUpdatedLocked(s)
	case notifications.LocaleChanged:
		c.applyLocaleChangedLocked(s)
	case notifications.NetworkStatusChanged:
		c.applyNetworkStatusLocked(s)
	case notifications.PushReceived:
		c.applyPushLocked(s)
	default:
		return false
	}
	return true
}

func (c *Console) applyForegroundLocked(m notifications.ForegroundMessage, loggedIn bool) {
	if !loggedIn {
		metrics.EventsGated.Inc()
		c.log.Append("Web FCM Ignored", "User logged out - notification ignored")
		return
	}

	ev := m.Event()
	metrics.EventsIngested.WithLabelValues(string(ev.Source)).Inc()
	c.showToastLocked(ev.Title, ev.Body, ev.Source)
	c.log.Append("Foreground message (Web FCM)", ev.Title)
}

func (c *Console) applyTokenUpdatedLocked(s notifications.TokenUpdated) bool {
	if !s.Success || s.Token == "" {
		return false
	}

	at := c.clock.Now()
	if s.TS != nil && !s.TS.IsZero() {
		at = s.TS.Time
	}

	c.token = s.Token
	c.showToastLocked("FCM Token Updated",
		fmt.Sprintf("Token received from %s at %s", s.Source, at.Local().Format(eventlog.TimestampLayout)),
		notifications.SourceNative)
	c.log.Append("FCM token updated", "Source: "+s.Source)
	return true
}

func (c *Console) applyLocaleChangedLocked(s notifications.LocaleChanged) {
	c.locale = localeOf(s.LanguageCode, s.CountryCode)
	c.showToastLocked("Language Changed", "App language changed to "+s.LanguageCode, notifications.SourceNative)
	c.log.Append("Locale changed", s.LanguageCode)
}

func (c *Console) applyNetworkStatusLocked(s notifications.NetworkStatusChanged) {
	online := s.IsOnline
	c.networkOnline = &online

	if online {
		c.showToastLocked("Back Online", "Internet connection restored", notifications.SourceNative)
		c.log.Append("Network status", "Online")
		return
	}
	c.showToastLocked("You Are Offline", "No internet connection", notifications.SourceNative)
	c.log.Append("Network status", "Offline")
}

func (c *Console) applyPushLocked(s notifications.PushReceived) {
	ev := s.Event()
	metrics.EventsIngested.WithLabelValues(string(ev.Source)).Inc()

	c.log.Append("Push data (Native)", dataText(s))
	c.showToastLocked(ev.Title, ev.Body, ev.Source)
	c.log.Append("Push notification (Native)", pushSummary(ev))

	if link := ev.DeepLink(); link != "" {
		c.scheduleDeepLinkLocked(link)
	}
}

// dataText renders a push's data field for the log.
func dataText(p notifications.PushReceived) string {
	if p.Data == nil {
		if p.DataText != "" {
			return p.DataText
		}
		return "no data"
	}
	raw, err := json.Marshal(p.Data)
	if err != nil {
		return "Unable to stringify data"
	}
	return string(raw)
}

// pushSummary is "<title>[ [<messageId>]][ (<latency>ms)]".
func pushSummary(ev notifications.Event) string {
	s := ev.Title
	if ev.MessageID != "" {
		s += " [" + ev.MessageID + "]"
	}
	if d, ok := ev.Latency(); ok && d.Milliseconds() != 0 {
		s += fmt.Sprintf(" (%dms)", d.Milliseconds())
	}
	return s
}

// scheduleDeepLinkLocked asks for confirmation after the deep-link delay.
func (c *Console) scheduleDeepLinkLocked(link string) {
	if c.navigator == nil {
		return
	}

	c.deepLinkSeq++
	id := c.deepLinkSeq
	c.deepLinks[id] = c.clock.AfterFunc(c.deepLinkDelay, func() {
		c.mu.Lock()
		delete(c.deepLinks, id)
		closed := c.closed
		c.mu.Unlock()

		if !closed {
			go c.confirmDeepLink(link)
		}
	})
}

func (c *Console) confirmDeepLink(link string) {
	log := c.logger.WithContext(c.ctx)

	ok, err := c.navigator.Confirm(c.ctx, fmt.Sprintf("Navigate to: %s?", link))
	if err != nil {
		log.Debug("deep link confirmation abandoned",
			slog.String("deep_link", link),
			slog.String("error", err.Error()))
		return
	}
	if !ok {
		log.Debug("deep link declined", slog.String("deep_link", link))
		return
	}

	if err := c.navigator.Navigate(c.ctx, link); err != nil {
		c.mu.Lock()
		if !c.closed {
			c.failLocked("Deep Link Error", err.Error())
		}
		c.mu.Unlock()
		c.notify()
		return
	}
	log.Info("navigated to deep link", slog.String("deep_link", link))
}
