package bus

// InboundMessage is one received message, scoped to a single pipeline pass.
//
// Text and Caption are empty strings when the platform omitted them; the
// classifier treats every combination of absent fields uniformly.
type InboundMessage struct {
	ChatID    string       `json:"chat_id"`
	ChatType  string       `json:"chat_type"`
	MessageID int          `json:"message_id"`
	SenderID  string       `json:"sender_id"`
	Text      string       `json:"text,omitempty"`
	Caption   string       `json:"caption,omitempty"`
	Links     []LinkEntity `json:"links,omitempty"`
}

// LinkEntity is one structured link attached to a message.
//
// When the client wrapped arbitrary text around a hidden target, URL carries
// the explicit target. When the displayed text is itself the URL, URL is
// empty and Offset/Length span the text in UTF-16 code units (the platform
// convention for entity offsets).
type LinkEntity struct {
	URL    string `json:"url,omitempty"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

// Body concatenates text and caption for content inspection.
func (m InboundMessage) Body() string {
	switch {
	case m.Text == "":
		return m.Caption
	case m.Caption == "":
		return m.Text
	default:
		return m.Text + "\n" + m.Caption
	}
}
