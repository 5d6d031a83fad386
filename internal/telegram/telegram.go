// Package telegram adapts the Telegram Bot API to the bot package's
// transport and update model, using long polling.
package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vidyalinkco/studybot/internal/bot"
	"github.com/vidyalinkco/studybot/internal/config"
)

// Bot interface for mocking the telegram bot API
type Bot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetSelf() tgbotapi.User
}

type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return w.bot.GetUpdatesChan(config)
}

func (w *tgBotWrapper) StopReceivingUpdates() {
	w.bot.StopReceivingUpdates()
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return w.bot.Request(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates Bot instances (allows mocking)
type BotFactory func(token, apiEndpoint string, client *http.Client) (Bot, error)

var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (Bot, error) {
	b, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: b}, nil
}

// Handler consumes one mapped inbound message.
type Handler interface {
	Handle(ctx context.Context, msg bot.Message)
}

// Channel is the Telegram transport: it polls for updates, maps them to
// bot.Message values for the handler, and implements bot.Transport for
// the outbound side.
type Channel struct {
	token   string
	proxy   string
	bot     Bot
	factory BotFactory
	handler Handler
	cancel  context.CancelFunc
	mention string
}

func NewChannel(cfg config.TelegramConfig, handler Handler) (*Channel, error) {
	return NewChannelWithFactory(cfg, handler, defaultBotFactory)
}

// NewChannelWithFactory creates a Channel with a custom bot factory (for testing)
func NewChannelWithFactory(cfg config.TelegramConfig, handler Handler, factory BotFactory) (*Channel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	return &Channel{
		token:   cfg.Token,
		proxy:   cfg.Proxy,
		handler: handler,
		factory: factory,
	}, nil
}

func (c *Channel) initBot() error {
	client := http.DefaultClient
	if c.proxy != "" {
		proxyURL, err := url.Parse(c.proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	b, err := c.factory(c.token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	c.bot = b
	c.mention = "@" + b.GetSelf().UserName
	log.Printf("[telegram] authorized as %s", c.mention)
	return nil
}

func (c *Channel) Start(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("telegram handler not set")
	}
	if err := c.initBot(); err != nil {
		return err
	}

	ctx, c.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case update := <-updates:
				if update.Message == nil {
					continue
				}
				// One goroutine per update: a slow moderation call must
				// not stall the poll loop.
				go c.handler.Handle(ctx, c.mapMessage(update.Message))
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Printf("[telegram] polling started")
	return nil
}

func (c *Channel) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.bot != nil {
		c.bot.StopReceivingUpdates()
	}
	log.Printf("[telegram] stopped")
	return nil
}

// SetHandler wires the inbound handler. The router needs this channel as
// its transport, so the handler is attached after construction and must
// be set before Start.
func (c *Channel) SetHandler(h Handler) {
	c.handler = h
}

// SetBot sets the bot (for testing)
func (c *Channel) SetBot(b Bot) {
	c.bot = b
	c.mention = "@" + b.GetSelf().UserName
}

func (c *Channel) mapMessage(msg *tgbotapi.Message) bot.Message {
	kind := bot.ChatKindPrivate
	if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
		kind = bot.ChatKindGroup
	}

	m := bot.Message{
		UserID:     msg.From.ID,
		Username:   msg.From.UserName,
		ChatID:     msg.Chat.ID,
		MessageID:  msg.MessageID,
		ChatKind:   kind,
		ChatTitle:  msg.Chat.Title,
		Text:       msg.Text,
		BotMention: c.mention,
	}
	if msg.IsCommand() {
		m.Command = msg.Command()
	}
	if msg.ReplyToMessage != nil {
		m.ReplyToText = msg.ReplyToMessage.Text
	}
	return m
}

func (c *Channel) Send(_ context.Context, chatID int64, text string) (int, error) {
	if c.bot == nil {
		return 0, fmt.Errorf("telegram bot not initialized")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := c.bot.Send(msg)
	if err != nil {
		// Unbalanced markdown in resource titles breaks parsing; retry plain.
		msg.ParseMode = ""
		sent, err = c.bot.Send(msg)
		if err != nil {
			return 0, fmt.Errorf("send telegram message: %w", err)
		}
	}
	return sent.MessageID, nil
}

func (c *Channel) SendPrivate(ctx context.Context, userID int64, text string) error {
	_, err := c.Send(ctx, userID, text)
	return err
}

func (c *Channel) Delete(_ context.Context, chatID int64, messageID int) error {
	if c.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete telegram message: %w", err)
	}
	return nil
}

func (c *Channel) Ban(_ context.Context, chatID, userID int64) error {
	if c.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}
	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
	}
	if _, err := c.bot.Request(cfg); err != nil {
		return fmt.Errorf("ban telegram user: %w", err)
	}
	return nil
}

// ScheduleDelete removes a message after the delay without blocking the
// caller. Failures (already deleted, missing rights) are logged only.
func (c *Channel) ScheduleDelete(chatID int64, messageID int, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if err := c.Delete(context.Background(), chatID, messageID); err != nil {
			if !strings.Contains(err.Error(), "message to delete not found") {
				log.Printf("[telegram] scheduled delete of %d in chat=%d failed: %v", messageID, chatID, err)
			}
		}
	})
}
