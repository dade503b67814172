package daemon

import (
	"strings"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog/log"
)

// Notifier raises desktop notifications for channel activity. Failures are
// logged and swallowed; a missing notification daemon must never stall
// event processing.
type Notifier struct {
	enabled bool
}

func NewNotifier(enabled bool) *Notifier {
	return &Notifier{enabled: enabled}
}

func (n *Notifier) Notify(title, body string) {
	if n == nil || !n.enabled {
		return
	}
	if err := beeep.Notify(title, truncateNotification(body, 100), ""); err != nil {
		log.Debug().Err(err).Msg("desktop notification failed")
	}
}

func truncateNotification(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-1] + "…"
}
