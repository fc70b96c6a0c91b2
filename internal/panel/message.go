// Package panel implements the controller behind the chat panel: it turns
// panel messages into completion calls and document edits and relays the
// results back to the panel.
package panel

import "github.com/Dhanuzh/arrow/internal/document"

// Kind names a panel message, in either direction.
type Kind string

// Inbound kinds, sent by the panel.
const (
	KindChatMessage  Kind = "chatMessage"
	KindGenerateCode Kind = "generateCode"
	KindApplyCode    Kind = "applyCode"
	KindUnapplyCode  Kind = "unapplyCode"
	KindUpdateModel  Kind = "updateModel"
)

// Outbound kinds, sent to the panel.
const (
	KindChatResponse    Kind = "chatResponse"
	KindGeneratedCode   Kind = "generatedCode"
	KindNotify          Kind = "notify"
	KindDocumentChanged Kind = "documentChanged"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification texts shown to the user.
const (
	MsgNoActiveDocument = "No active editor. Open a file to apply AI recommendations."
	MsgApplied          = "AI recommendation applied."
	MsgRemoved          = "AI recommendation removed."
	MsgNoSnapshot       = "No previous state available to restore."
	MsgModelSwitched    = "AI Model switched to: %s"
	MsgEmptyInput       = "Type a message first."
	MsgNothingToApply   = "No generated code to apply."
)

// Inbound is a message from the panel. Position, when set on applyCode,
// overrides the document cursor as the insertion point.
type Inbound struct {
	ID       string             `json:"id,omitempty"`
	Command  Kind               `json:"command"`
	Text     string             `json:"text,omitempty"`
	Model    string             `json:"model,omitempty"`
	Position *document.Position `json:"position,omitempty"`
}

// Outbound is a message to the panel. ID echoes the Inbound that caused it.
type Outbound struct {
	ID      string `json:"id,omitempty"`
	Command Kind   `json:"command"`
	Text    string `json:"text,omitempty"`
	Level   Level  `json:"level,omitempty"`
}

// Sink receives outbound messages.
type Sink interface {
	Send(Outbound)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Outbound)

func (f SinkFunc) Send(o Outbound) { f(o) }

func responseKind(k Kind) Kind {
	if k == KindGenerateCode {
		return KindGeneratedCode
	}
	return KindChatResponse
}
