package ws

import (
	"fmt"
	"log/slog"

	"github.com/shareyt/backend/internal/relay"
)

const notificationTitleMax = 70

// Pusher delivers mirror sections and notifications over the Hub.
type Pusher struct {
	hub    *Hub
	logger *slog.Logger
}

func NewPusher(hub *Hub, logger *slog.Logger) *Pusher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pusher{hub: hub, logger: logger}
}

// Push sends a replaced section to every connection the user holds.
func (p *Pusher) Push(uid, section string, payload any) {
	evt, err := NewEvent(EventTypeSection, SectionPayload{Section: section, Data: payload})
	if err != nil {
		p.logger.Error("ws pusher marshal", "section", section, "error", err)
		return
	}
	p.hub.SendToUser(uid, evt)
}

var (
	_ relay.Sink     = (*Pusher)(nil)
	_ relay.Notifier = (*Pusher)(nil)
)

// NotifyVideoSuggested emits the new-suggestion notification.
func (p *Pusher) NotifyVideoSuggested(uid, senderName, title, videoID string) {
	if senderName == "" {
		senderName = "Someone"
	}
	if runes := []rune(title); len(runes) > notificationTitleMax {
		title = string(runes[:notificationTitleMax-3]) + "..."
	}

	evt, err := NewEvent(EventTypeNotification, NotificationPayload{
		Title:   fmt.Sprintf("%s just sent you a video!", senderName),
		Message: fmt.Sprintf("Click to open: %q", title),
		VideoID: videoID,
	})
	if err != nil {
		p.logger.Error("ws pusher marshal", "error", err)
		return
	}
	p.hub.SendToUser(uid, evt)
}
