package relay

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"relayguard/pkg/bus"
	"relayguard/pkg/classifier"
	"relayguard/pkg/config"
	"relayguard/pkg/registry"
)

const (
	registerCommand     = "/register"
	destinationsCommand = "/destinations"
)

// Pipeline is the inbound message path: commands are routed to the
// registration workflow, source-channel messages are classified and either
// dispatched to every destination or suppressed.
type Pipeline struct {
	cfg        config.RelayConfig
	registry   *registry.Registry
	classifier *classifier.Classifier
	transport  Transport
	dispatcher *Dispatcher
	log        *slog.Logger
}

// NewPipeline wires the classifier, registry, and transport into one pipeline.
func NewPipeline(cfg config.RelayConfig, reg *registry.Registry, cls *classifier.Classifier, transport Transport, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}

	sendTimeout := time.Duration(cfg.SendTimeoutSeconds) * time.Second

	return &Pipeline{
		cfg:        cfg,
		registry:   reg,
		classifier: cls,
		transport:  transport,
		dispatcher: NewDispatcher(reg, transport, sendTimeout, log),
		log:        log.With("component", "relay.pipeline"),
	}
}

// HandleInbound processes one received message end to end.
//
// Inbound messages arrive sequentially; fan-out inside one dispatch is the
// only per-message concurrency, which preserves relative forwarding order
// per destination across successive source messages.
func (p *Pipeline) HandleInbound(ctx context.Context, msg bus.InboundMessage) error {
	if command, arg, ok := parseCommand(msg.Text); ok {
		switch command {
		case registerCommand:
			return p.handleRegister(ctx, msg, arg)
		case destinationsCommand:
			return p.handleDestinations(ctx, msg)
		}
	}

	if msg.ChatID != p.cfg.SourceChatID {
		return nil
	}

	verdict := p.classifier.Classify(msg)
	if verdict.Safe() {
		_, err := p.dispatcher.Dispatch(ctx, msg)
		return err
	}

	p.suppress(ctx, msg, verdict)
	return nil
}

// handleRegister runs the registration workflow and replies with the outcome.
func (p *Pipeline) handleRegister(ctx context.Context, msg bus.InboundMessage, suppliedKey string) error {
	already, err := p.register(ctx, msg, suppliedKey)
	if err != nil {
		if reason, ok := ReasonFromError(err); ok {
			p.log.Warn("Registration rejected", "chat_id", msg.ChatID, "sender_id", msg.SenderID, "reason", string(reason))
			p.reply(ctx, msg.ChatID, rejectionText(reason))
			return nil
		}
		// Storage-level failure, escalate past the workflow.
		return err
	}

	if already {
		p.log.Info("Chat already registered", "chat_id", msg.ChatID)
		p.reply(ctx, msg.ChatID, "This chat is already registered.")
		return nil
	}

	p.log.Info("Chat registered for forwarding", "chat_id", msg.ChatID, "sender_id", msg.SenderID)
	p.reply(ctx, msg.ChatID, "Chat registered for forwarding.")
	return nil
}

// handleDestinations lists the registry for the configured owner.
func (p *Pipeline) handleDestinations(ctx context.Context, msg bus.InboundMessage) error {
	if p.cfg.OwnerID == "" || msg.SenderID != p.cfg.OwnerID {
		p.log.Debug("Ignoring destinations command from non-owner", "sender_id", msg.SenderID)
		return nil
	}

	snapshot, err := p.registry.Snapshot(ctx)
	if err != nil {
		return err
	}

	if len(snapshot) == 0 {
		p.reply(ctx, msg.ChatID, "No destinations registered.")
		return nil
	}

	lines := make([]string, 0, len(snapshot)+1)
	lines = append(lines, "Registered destinations:")
	for _, dest := range snapshot {
		lines = append(lines, "- "+string(dest))
	}
	p.reply(ctx, msg.ChatID, strings.Join(lines, "\n"))
	return nil
}

// suppress handles a flagged message: log it and, when configured, try to
// remove it at its origin. Deletion is best-effort and its failure never
// affects other messages.
func (p *Pipeline) suppress(ctx context.Context, msg bus.InboundMessage, verdict classifier.Verdict) {
	p.log.Warn("Suppressed suspicious message", "chat_id", msg.ChatID, "message_id", msg.MessageID, "reason", string(verdict.Reason), "detail", verdict.Detail)

	if !p.cfg.DeleteFlagged {
		return
	}

	if err := p.transport.Delete(ctx, msg.ChatID, msg.MessageID); err != nil {
		p.log.Error("Failed to delete flagged message", "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
	}
}

func (p *Pipeline) reply(ctx context.Context, chatID string, text string) {
	if err := p.transport.Reply(ctx, chatID, text); err != nil {
		p.log.Error("Failed to send reply", "chat_id", chatID, "error", err)
	}
}

// parseCommand splits "/cmd arg" into its command and first argument.
//
// A "@botname" suffix on the command is stripped so commands addressed to
// the bot explicitly still match.
func parseCommand(text string) (command string, arg string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return "", "", false
	}

	fields := strings.Fields(trimmed)
	command = fields[0]
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}
	if len(fields) > 1 {
		arg = fields[1]
	}

	return command, arg, true
}
