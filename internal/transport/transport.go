// Package transport carries chat messages between the outside world and
// the conversation engine. It owns no wire protocol beyond a generic
// inbound/outbound unit; concrete messengers adapt to these types.
package transport

import "context"

// DocumentRef points at an uploaded file the engine may fetch on demand.
type DocumentRef struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Inbound is one message received from a chat: free text or a document.
type Inbound struct {
	ChatID   int64        `json:"chat_id"`
	Text     string       `json:"text"`
	Document *DocumentRef `json:"document,omitempty"`
}

// Outbound is one message to deliver to a chat. Keyboard rows, when
// present, are selectable reply options.
type Outbound struct {
	ChatID   int64      `json:"chat_id"`
	Text     string     `json:"text"`
	Keyboard [][]string `json:"keyboard,omitempty"`
}

// Sender delivers outbound units. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, out Outbound) error
}

// FileRetriever fetches the payload of an uploaded document.
type FileRetriever interface {
	Retrieve(ctx context.Context, ref DocumentRef) ([]byte, error)
}
