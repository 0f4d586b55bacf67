package toast

import "github.com/eternisai/push-bridge/internal/notifications"

// Style is the source-driven look of a toast.
type Style struct {
	Icon  string `json:"icon"`
	Class string `json:"class"`
	Badge string `json:"badge,omitempty"`
}

// StyleFor returns the icon, CSS class and badge for a source.
func StyleFor(source notifications.Source) Style {
	switch source {
	case notifications.SourceNativePush:
		return Style{Icon: "🔔", Class: "toast-native-push", Badge: "Push Notification"}
	case notifications.SourceNative:
		return Style{Icon: "📱", Class: "toast-native", Badge: "Native App"}
	case notifications.SourceWebFCM:
		return Style{Icon: "🌐", Class: "toast-web-fcm", Badge: "Web FCM"}
	default:
		return Style{Icon: "✓", Class: "toast-default"}
	}
}

// View is a toast with its style, as presentation clients receive it.
type View struct {
	Toast
	Style Style `json:"style"`
}

// NewView styles t.
func NewView(t Toast) View {
	return View{Toast: t, Style: StyleFor(t.Source)}
}
