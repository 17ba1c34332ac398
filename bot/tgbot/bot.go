package tgbot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/goserg/eventhub/internal/config"
	"github.com/goserg/eventhub/internal/service"
)

type Bot struct {
	bot *tgbotapi.BotAPI

	log *logrus.Entry

	// cancel func to stop the bot
	cancel func()

	subs *subscriptions

	commands *Commands
}

var ErrBadRequest = errors.New("unknown command, see /help")

// Services are the read-only views the bot answers queries from.
type Services struct {
	Admission     *service.AdmissionService
	Rating        *service.RatingService
	Subscriptions *service.SubscriptionService
}

func New(services Services, cfg config.TgBot, log *logrus.Logger) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramApiToken)
	if err != nil {
		return nil, fmt.Errorf("env TELEGRAM_APITOKEN: %w", err)
	}

	bot.Debug = cfg.Debug
	if _, err = bot.GetMe(); err != nil {
		return nil, err
	}

	subs := newSubs()
	b := Bot{
		bot:      bot,
		log:      log.WithField("from", "tg_bot"),
		subs:     subs,
		commands: NewCommands(services, subs),
	}
	return &b, nil
}

func (b *Bot) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleMessage(ctx, update)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	chatID := update.Message.Chat.ID
	log := b.log.WithFields(map[string]interface{}{
		"chat_id": chatID,
		"text":    update.Message.Text,
	})

	msg := tgbotapi.NewMessage(chatID, "")
	text, err := b.commands.RunCommand(ctx, chatID, update.Message.Command(), update.Message.CommandArguments())
	if err != nil {
		log.WithError(err).Debug("command failed")
		text = err.Error()
	}
	msg.Text = text
	if _, err := b.bot.Send(msg); err != nil {
		log.WithError(err).Error("send error")
	}
}

func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

// Notify sends text to every subscribed chat.
func (b *Bot) Notify(text string) {
	for _, chatID := range b.subs.ChatIDs() {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := b.bot.Send(msg); err != nil {
			b.log.WithError(err).WithField("chat_id", chatID).Error("notification not sent")
		}
	}
}
