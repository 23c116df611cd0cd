package relay

import (
	"context"
	"errors"
	"fmt"

	"relayguard/pkg/bus"
	"relayguard/pkg/registry"
)

// RejectReason is the stable category of a failed registration check.
type RejectReason string

const (
	RejectBadChatType  RejectReason = "bad-chat-type"
	RejectNoSecret     RejectReason = "no-secret"
	RejectBadKey       RejectReason = "bad-key"
	RejectLookupFailed RejectReason = "lookup-failed"
	RejectNotAdmin     RejectReason = "not-admin"
)

// RejectionError reports a registration attempt that failed one of the
// workflow checks. It is reported to the invoking user and never crashes
// the process.
type RejectionError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return string(e.Reason)
	}

	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// ReasonFromError returns the rejection reason when err is a RejectionError.
func ReasonFromError(err error) (RejectReason, bool) {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Reason, true
	}

	return "", false
}

// register runs the registration check chain for one command invocation.
//
// Checks run in order: chat type, shared secret, invoker role. Any failure
// short-circuits with a RejectionError and leaves the registry untouched.
// Registering an already-present chat succeeds and reports already=true.
func (p *Pipeline) register(ctx context.Context, msg bus.InboundMessage, suppliedKey string) (already bool, err error) {
	switch msg.ChatType {
	case "group", "supergroup", "channel":
	default:
		return false, &RejectionError{Reason: RejectBadChatType, Detail: "registration requires a group chat"}
	}

	if p.cfg.RegistrationSecret == "" {
		return false, &RejectionError{Reason: RejectNoSecret, Detail: "no registration secret configured"}
	}
	if suppliedKey != p.cfg.RegistrationSecret {
		return false, &RejectionError{Reason: RejectBadKey, Detail: "registration key does not match"}
	}

	status, lookupErr := p.transport.MemberStatus(ctx, msg.ChatID, msg.SenderID)
	if lookupErr != nil {
		return false, &RejectionError{Reason: RejectLookupFailed, Detail: lookupErr.Error()}
	}
	switch status {
	case MemberStatusCreator, MemberStatusAdministrator:
	default:
		return false, &RejectionError{Reason: RejectNotAdmin, Detail: "only chat administrators can register"}
	}

	added, addErr := p.registry.Add(ctx, registry.DestinationID(msg.ChatID))
	if addErr != nil {
		return false, addErr
	}

	return !added, nil
}

// rejectionText maps a rejection reason to the user-visible reply.
func rejectionText(reason RejectReason) string {
	switch reason {
	case RejectBadChatType:
		return "Registration only works from a group chat."
	case RejectNoSecret:
		return "Registration is disabled: no secret is configured."
	case RejectBadKey:
		return "Wrong registration key."
	case RejectLookupFailed:
		return "Could not verify your role in this chat, try again later."
	case RejectNotAdmin:
		return "Only chat administrators can register this chat."
	default:
		return "Registration failed."
	}
}
