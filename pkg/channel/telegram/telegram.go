package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"relayguard/pkg/bus"
	"relayguard/pkg/channel"
	"relayguard/pkg/config"
	"relayguard/pkg/registry"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const channelName = "telegram"
const webhookPath = "/telegram/updates"
const longPollTimeout = 30

// Adapter bridges Telegram updates into relay inbound messages and
// implements the pipeline's transport operations over the Bot API.
type Adapter struct {
	cfg     config.TelegramConfig
	baseURL string
	bot     *telego.Bot
	log     *slog.Logger
}

// NewAdapter validates Telegram configuration and constructs the bot client.
func NewAdapter(cfg config.TelegramConfig, baseURL string, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("telegram.token is required")
	}

	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:     cfg,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		bot:     bot,
		log:     log.With("component", "channel.telegram"),
	}, nil
}

// Name returns the channel identifier used in logs and status reporting.
func (a *Adapter) Name() string {
	return channelName
}

// Run consumes Telegram updates and forwards each message through the handler.
//
// Updates are processed sequentially, which keeps the relative forwarding
// order per destination stable across successive source messages.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	var updates <-chan telego.Update
	var err error
	switch a.cfg.Mode {
	case config.ModeWebhook:
		updates, err = a.webhookUpdates(ctx)
	default:
		updates, err = a.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{Timeout: longPollTimeout})
	}
	if err != nil {
		return err
	}

	a.log.Info("Telegram channel started", "mode", a.cfg.Mode)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			inbound, ok := inboundFromUpdate(update)
			if !ok {
				continue
			}

			if err := handler(ctx, inbound); err != nil {
				a.log.Error("Failed to process inbound message", "chat_id", inbound.ChatID, "message_id", inbound.MessageID, "error", err)
			}
		}
	}
}

// webhookUpdates registers the webhook with the platform and serves pushed
// updates on the configured port.
func (a *Adapter) webhookUpdates(ctx context.Context) (<-chan telego.Update, error) {
	updates := make(chan telego.Update, 64)

	mux := http.NewServeMux()
	mux.HandleFunc(webhookPath, func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.SecretToken != "" && r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != a.cfg.SecretToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var update telego.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			a.log.Debug("Discarding undecodable webhook payload", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		select {
		case updates <- update:
		case <-ctx.Done():
		}
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(a.cfg.WebhookPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Webhook server failed", "error", err)
			close(updates)
		}
	}()

	if err := a.bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:         a.baseURL + webhookPath,
		SecretToken: a.cfg.SecretToken,
	}); err != nil {
		return nil, fmt.Errorf("register webhook: %w", err)
	}

	return updates, nil
}

// Forward copies one message from its origin chat to a destination chat.
func (a *Adapter) Forward(ctx context.Context, dest registry.DestinationID, fromChatID string, messageID int) error {
	destID, err := chatID(string(dest))
	if err != nil {
		return err
	}
	fromID, err := chatID(fromChatID)
	if err != nil {
		return err
	}

	_, err = a.bot.ForwardMessage(ctx, &telego.ForwardMessageParams{
		ChatID:     tu.ID(destID),
		FromChatID: tu.ID(fromID),
		MessageID:  messageID,
	})
	return err
}

// Delete removes a message at its origin chat.
func (a *Adapter) Delete(ctx context.Context, chat string, messageID int) error {
	id, err := chatID(chat)
	if err != nil {
		return err
	}

	return a.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(id),
		MessageID: messageID,
	})
}

// MemberStatus resolves a user's role in a chat via getChatMember.
func (a *Adapter) MemberStatus(ctx context.Context, chat string, userID string) (string, error) {
	id, err := chatID(chat)
	if err != nil {
		return "", err
	}
	user, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	member, err := a.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(id),
		UserID: user,
	})
	if err != nil {
		return "", fmt.Errorf("get chat member: %w", err)
	}

	return member.MemberStatus(), nil
}

// Reply sends a plain text message into a chat.
func (a *Adapter) Reply(ctx context.Context, chat string, text string) error {
	id, err := chatID(chat)
	if err != nil {
		return err
	}

	_, err = a.bot.SendMessage(ctx, tu.Message(tu.ID(id), text))
	return err
}

func chatID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", value, err)
	}

	return id, nil
}

// inboundFromUpdate converts one update into the relay message value.
//
// Both regular messages and channel posts qualify; anything else is skipped.
func inboundFromUpdate(update telego.Update) (bus.InboundMessage, bool) {
	message := update.Message
	if message == nil {
		message = update.ChannelPost
	}
	if message == nil {
		return bus.InboundMessage{}, false
	}

	senderID := ""
	if message.From != nil {
		senderID = strconv.FormatInt(message.From.ID, 10)
	}

	return bus.InboundMessage{
		ChatID:    strconv.FormatInt(message.Chat.ID, 10),
		ChatType:  message.Chat.Type,
		MessageID: message.MessageID,
		SenderID:  senderID,
		Text:      message.Text,
		Caption:   message.Caption,
		Links:     linkEntities(message),
	}, true
}

// linkEntities maps Telegram entities onto relay link values.
//
// text_link entities carry an explicit hidden target; url entities span the
// displayed text. Caption spans are resolved here because downstream link
// extraction reads spans against the text field only.
func linkEntities(message *telego.Message) []bus.LinkEntity {
	var links []bus.LinkEntity

	for _, entity := range message.Entities {
		switch entity.Type {
		case telego.EntityTypeTextLink:
			links = append(links, bus.LinkEntity{URL: entity.URL})
		case telego.EntityTypeURL:
			links = append(links, bus.LinkEntity{Offset: entity.Offset, Length: entity.Length})
		}
	}

	for _, entity := range message.CaptionEntities {
		switch entity.Type {
		case telego.EntityTypeTextLink:
			links = append(links, bus.LinkEntity{URL: entity.URL})
		case telego.EntityTypeURL:
			if span := bus.UTF16Span(message.Caption, entity.Offset, entity.Length); span != "" {
				links = append(links, bus.LinkEntity{URL: span})
			}
		}
	}

	return links
}
