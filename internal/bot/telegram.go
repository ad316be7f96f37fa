package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"stock-analysis/internal/domain"

	tele "gopkg.in/telebot.v3"
)

type StockQuerier interface {
	GetStockData(ctx context.Context, symbol string, from, to *domain.Date) ([]domain.MergedRow, error)
	LatestReadings(ctx context.Context, symbol string) (map[string]float64, error)
}

// SubscriptionFinder is satisfied by the notification stores.
type SubscriptionFinder interface {
	FindByContact(ctx context.Context, contact string) ([]domain.Subscription, error)
}

const stockWindowDays = 60

// StartTelegramBot starts long polling when a token is configured and returns
// the dispatcher that pushes notifications into Telegram. It returns nil when
// the bot is disabled.
func StartTelegramBot(token string, alertChatID int64, stocks StockQuerier, subscriptions SubscriptionFinder) *TelegramDispatcher {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Printf("failed to create Telegram bot: %v", err)
		return nil
	}
	alerts := NewTelegramDispatcher(b, alertChatID)

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/stock", func(c tele.Context) error {
		symbol, err := parseSymbolArg(c.Args())
		if err != nil {
			return c.Send("Usage: /stock AAPL")
		}
		to := domain.DateOf(time.Now().UTC())
		from := to.AddDays(-stockWindowDays)
		rows, err := stocks.GetStockData(context.Background(), symbol, &from, &to)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching %s: %v", symbol, err))
		}
		if len(rows) == 0 {
			return c.Send(fmt.Sprintf("No price data for %s right now.", symbol))
		}
		return c.Send(formatRow(symbol, rows[len(rows)-1]))
	})

	b.Handle("/readings", func(c tele.Context) error {
		symbol, err := parseSymbolArg(c.Args())
		if err != nil {
			return c.Send("Usage: /readings AAPL")
		}
		readings, err := stocks.LatestReadings(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching readings for %s: %v", symbol, err))
		}
		if len(readings) == 0 {
			return c.Send(fmt.Sprintf("No readings available for %s.", symbol))
		}
		return c.Send(formatReadings(symbol, readings))
	})

	b.Handle("/alerts", func(c tele.Context) error {
		if subscriptions == nil {
			return c.Send("Notification service unavailable")
		}
		args := c.Args()
		if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
			return c.Send("Usage: /alerts you@example.com | /alerts +15550100")
		}
		subs, err := subscriptions.FindByContact(context.Background(), args[0])
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching subscriptions: %v", err))
		}
		return c.Send(formatSubscriptions(subs))
	})

	b.Handle("/notify", func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}

		mode, err := parseAlertMode(c.Args())
		if err != nil {
			return c.Send("Usage: /notify on | /notify off | /notify status")
		}

		switch mode {
		case "on":
			if alerts.Subscribe(chat.ID) {
				return c.Send("Notifications enabled for this chat.")
			}
			return c.Send("Notifications are already enabled for this chat.")
		case "off":
			if alerts.Unsubscribe(chat.ID) {
				return c.Send("Notifications disabled for this chat.")
			}
			return c.Send("Notifications are already disabled for this chat.")
		default:
			if alerts.IsSubscribed(chat.ID) {
				return c.Send("Notifications: ON")
			}
			return c.Send("Notifications: OFF")
		}
	})

	log.Println("Telegram bot started")
	go b.Start()
	return alerts
}

func parseSymbolArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one symbol")
	}
	return domain.NormalizeSymbol(args[0])
}

func formatRow(symbol string, row domain.MergedRow) string {
	lines := []string{
		fmt.Sprintf("%s %s", symbol, row.Date),
		fmt.Sprintf("Open %.2f  High %.2f  Low %.2f  Close %.2f", row.Open, row.High, row.Low, row.Close),
		fmt.Sprintf("Volume %.0f", row.Volume),
	}
	if row.RSI != nil {
		lines = append(lines, fmt.Sprintf("RSI %.2f", *row.RSI))
	}
	if row.SMA != nil {
		lines = append(lines, fmt.Sprintf("SMA %.2f", *row.SMA))
	}
	if row.MACD != nil && row.MACDSignal != nil && row.MACDHistogram != nil {
		lines = append(lines, fmt.Sprintf("MACD %.4f  Signal %.4f  Hist %.4f", *row.MACD, *row.MACDSignal, *row.MACDHistogram))
	}
	return strings.Join(lines, "\n")
}

func formatReadings(symbol string, readings map[string]float64) string {
	names := make([]string, 0, len(readings))
	for name := range readings {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names)+1)
	lines = append(lines, symbol+" latest readings:")
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s %.4f", name, readings[name]))
	}
	return strings.Join(lines, "\n")
}

func formatSubscriptions(subs []domain.Subscription) string {
	if len(subs) == 0 {
		return "No subscriptions for this contact."
	}
	lines := make([]string, 0, len(subs))
	for _, s := range subs {
		lines = append(lines, fmt.Sprintf("%s %s %s %.2f (%s)", s.Symbol, s.Indicator, strings.ToLower(string(s.Condition)), s.Threshold, s.ID))
	}
	return strings.Join(lines, "\n")
}
