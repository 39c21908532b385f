package telegram

import (
	"context"
	"fmt"
	"time"

	"channel-market/internal/core/domain"

	"github.com/rs/zerolog"
	"gopkg.in/tucnak/telebot.v2"
)

const sendRetries = 3

// Notifier implements ports.NotificationSink and ports.ChannelVerifier on
// top of the Telegram Bot API.
type Notifier struct {
	bot *telebot.Bot
	log zerolog.Logger
}

// NewNotifier creates a bot client. The bot never polls; it only sends
// messages and queries chat membership.
func NewNotifier(token string, log zerolog.Logger) (*Notifier, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:       token,
		Synchronous: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &Notifier{bot: bot, log: log}, nil
}

// NotifyPurchaseArmed tells both parties that the confirmation window is
// open. Either message may fail independently; the purchase stays armed
// regardless, so only the last error is reported.
func (n *Notifier) NotifyPurchaseArmed(ctx context.Context, purchase *domain.Purchase, buyer, seller *domain.User) error {
	buyerMsg := fmt.Sprintf(
		"Your purchase is ready. Confirm receipt of the channel within 6 hours.\nPurchase: %s\nPrice: %s TON",
		purchase.ID, purchase.Price.String(),
	)
	err := n.send(ctx, buyer.TelegramID, buyerMsg)
	if err != nil {
		n.log.Warn().Err(err).
			Str("purchase_id", purchase.ID.String()).
			Int64("telegram_id", buyer.TelegramID).
			Msg("Buyer notification failed")
	}

	if seller != nil {
		sellerMsg := fmt.Sprintf(
			"A buyer paid for your listing. Transfer ownership and confirm within 6 hours.\nPurchase: %s\nPrice: %s TON",
			purchase.ID, purchase.Price.String(),
		)
		if sellerErr := n.send(ctx, seller.TelegramID, sellerMsg); sellerErr != nil {
			n.log.Warn().Err(sellerErr).
				Str("purchase_id", purchase.ID.String()).
				Int64("telegram_id", seller.TelegramID).
				Msg("Seller notification failed")
			err = sellerErr
		}
	}
	return err
}

// IsChannelAdmin reports whether the Telegram account administers the
// channel behind the given public link.
func (n *Notifier) IsChannelAdmin(ctx context.Context, channelLink string, telegramID int64) (bool, error) {
	chat, err := n.bot.ChatByID(channelLink)
	if err != nil {
		return false, fmt.Errorf("resolving channel %s: %w", channelLink, err)
	}

	admins, err := n.bot.AdminsOf(chat)
	if err != nil {
		return false, fmt.Errorf("listing channel admins: %w", err)
	}

	for _, member := range admins {
		if member.User != nil && int64(member.User.ID) == telegramID {
			return true, nil
		}
	}
	return false, nil
}

func (n *Notifier) send(ctx context.Context, telegramID int64, text string) error {
	recipient := &telebot.User{ID: telegramID}

	var err error
	for attempt := 0; attempt < sendRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err = n.bot.Send(recipient, text); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt+1) * time.Second)
	}
	return fmt.Errorf("sending telegram message: %w", err)
}
