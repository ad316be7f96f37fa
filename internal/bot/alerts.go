package bot

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"stock-analysis/internal/notify"

	tele "gopkg.in/telebot.v3"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramDispatcher delivers triggered notifications to the configured alert
// chat and to every chat that opted in with /notify on.
type TelegramDispatcher struct {
	sender messageSender

	mu    sync.RWMutex
	chats map[int64]struct{}
}

func NewTelegramDispatcher(sender messageSender, alertChatID int64) *TelegramDispatcher {
	d := &TelegramDispatcher{
		sender: sender,
		chats:  make(map[int64]struct{}),
	}
	if alertChatID != 0 {
		d.chats[alertChatID] = struct{}{}
	}
	return d
}

// NewPushDispatcher connects to Telegram without polling so one-shot tools can
// deliver alerts to a fixed chat.
func NewPushDispatcher(token string, alertChatID int64) (*TelegramDispatcher, error) {
	if token == "" || alertChatID == 0 {
		return nil, fmt.Errorf("telegram token and alert chat id are required")
	}
	b, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return NewTelegramDispatcher(b, alertChatID), nil
}

func (d *TelegramDispatcher) Subscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.chats[chatID]; exists {
		return false
	}
	d.chats[chatID] = struct{}{}
	return true
}

func (d *TelegramDispatcher) Unsubscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.chats[chatID]; !exists {
		return false
	}
	delete(d.chats, chatID)
	return true
}

func (d *TelegramDispatcher) IsSubscribed(chatID int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, exists := d.chats[chatID]
	return exists
}

// Dispatch implements notify.Dispatcher. Every chat is attempted; the
// returned error joins the per-chat failures.
func (d *TelegramDispatcher) Dispatch(ctx context.Context, alert notify.Alert) error {
	if d == nil || d.sender == nil {
		return nil
	}

	msg := formatAlertMessage(alert)
	var errs []error
	for _, chatID := range d.snapshotChats() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := d.sender.Send(&tele.Chat{ID: chatID}, msg); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

func (d *TelegramDispatcher) snapshotChats() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Sorted(maps.Keys(d.chats))
}

func parseAlertMode(args []string) (string, error) {
	if len(args) == 0 {
		return "status", nil
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "on":
		return "on", nil
	case "off":
		return "off", nil
	case "status":
		return "status", nil
	default:
		return "", fmt.Errorf("invalid mode")
	}
}

func formatAlertMessage(alert notify.Alert) string {
	return fmt.Sprintf("Notification for %s:\n%s", alert.Subscription.ContactKey(), alert.Message())
}
