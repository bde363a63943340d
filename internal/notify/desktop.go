package notify

import "github.com/gen2brain/beeep"

// DesktopSink delivers notifications through the operating system's
// notification facility.
type DesktopSink struct{}

// Notify shows a desktop notification.
func (DesktopSink) Notify(title, body string) error {
	return beeep.Notify(title, body, "")
}
