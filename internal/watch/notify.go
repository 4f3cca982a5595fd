package watch

import "github.com/gen2brain/beeep"

// SendNotification shows a desktop notification; failures are non-fatal.
func SendNotification(title, message string) error {
	return beeep.Notify(title, message, "")
}
