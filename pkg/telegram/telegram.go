// Package telegram pushes plain-text notifications to one Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-crossover/config"
	"golang-crossover/pkg/logger"
	"golang-crossover/pkg/ratelimit"
	"golang-crossover/pkg/utils"

	"gopkg.in/telebot.v3"
)

// Sender is the subset of *telebot.Bot the notifier needs.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Notifier sends messages to the configured chat, at most MaxMessagePerMinute per minute.
type Notifier struct {
	cfg     *config.TelegramConfig
	log     *logger.Logger
	bot     Sender
	chat    *telebot.Chat
	limiter *ratelimit.TokenLimiter
	wg      sync.WaitGroup
}

// NewBot connects to the Bot API. The bot is only used for sending, so no poller is started.
func NewBot(cfg *config.TelegramConfig, log *logger.Logger) (*telebot.Bot, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.BotToken,
		Poller: &telebot.LongPoller{Timeout: cfg.TimeoutDuration},
		OnError: func(err error, c telebot.Context) {
			log.Error("Telegram bot error", logger.ErrorField(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

func NewNotifier(cfg *config.TelegramConfig, log *logger.Logger, bot Sender) *Notifier {
	perMinute := cfg.MaxMessagePerMinute
	if perMinute < 1 {
		perMinute = 1
	}
	return &Notifier{
		cfg:     cfg,
		log:     log,
		bot:     bot,
		chat:    &telebot.Chat{ID: cfg.ChatID},
		limiter: ratelimit.NewTokenLimiter(perMinute, time.Minute),
	}
}

// Send blocks until the rate limit allows the message, then delivers it.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if err := n.limiter.Wait(ctx, 1); err != nil {
		return err
	}
	if _, err := n.bot.Send(n.chat, text, &telebot.SendOptions{DisableWebPagePreview: true}); err != nil {
		n.log.ErrorContext(ctx, "Failed to send telegram message", logger.ErrorField(err))
		return err
	}
	return nil
}

// SendAsync delivers text in the background. Failures are logged.
func (n *Notifier) SendAsync(ctx context.Context, text string) {
	n.wg.Add(1)
	utils.GoSafe(func() {
		defer n.wg.Done()
		timeout := n.cfg.TimeoutDuration
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		_ = n.Send(sendCtx, text)
	})
}

// Alert implements logger.Alerter; alerts are dropped rather than queued when the
// per-minute budget is spent.
func (n *Notifier) Alert(text string) {
	if !n.limiter.TryTake(1) {
		return
	}
	n.wg.Add(1)
	utils.GoSafe(func() {
		defer n.wg.Done()
		if _, err := n.bot.Send(n.chat, text); err != nil {
			n.log.Error("Failed to send telegram alert", logger.ErrorField(err))
		}
	})
}

// Wait blocks until background sends have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
