package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the outbound messaging capability the rest of the app
// consumes: deliver a text message to a chat id.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type Client struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

func NewClient(token string, log *zap.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	log.Info("telegram bot connected", zap.String("username", api.Self.UserName))
	return &Client{api: api, log: log}, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

// NopSender logs instead of delivering. Used when no bot token is
// configured (local development only).
type NopSender struct {
	Log *zap.Logger
}

func (s NopSender) SendMessage(_ context.Context, chatID int64, text string) error {
	s.Log.Info("nop sender: message dropped", zap.Int64("chat_id", chatID), zap.String("text", text))
	return nil
}
