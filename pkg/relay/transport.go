// Package relay implements the forwarding pipeline: classification of source
// messages, fan-out delivery to registered destinations, and the
// authenticated registration workflow that mutates the destination registry.
package relay

import (
	"context"

	"relayguard/pkg/registry"
)

// Member statuses treated as elevated for registration.
const (
	MemberStatusCreator       = "creator"
	MemberStatusAdministrator = "administrator"
)

// Transport is the bot-protocol boundary the pipeline talks through.
//
// Implementations wrap the messaging platform API; the pipeline never
// constructs platform types itself.
type Transport interface {
	// Forward copies one message from its origin chat to a destination.
	Forward(ctx context.Context, dest registry.DestinationID, fromChatID string, messageID int) error
	// Delete removes a message at its origin. Best-effort use only.
	Delete(ctx context.Context, chatID string, messageID int) error
	// MemberStatus resolves a user's role in a chat via live lookup.
	MemberStatus(ctx context.Context, chatID string, userID string) (string, error)
	// Reply sends a plain text response into a chat.
	Reply(ctx context.Context, chatID string, text string) error
}

// Delivery is the per-destination outcome of one forward attempt.
type Delivery struct {
	Destination registry.DestinationID
	Err         error
}

// Delivered reports whether the forward reached its destination.
func (d Delivery) Delivered() bool {
	return d.Err == nil
}
