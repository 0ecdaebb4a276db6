// Package envelope extracts the threading-relevant headers from raw
// messages and adapts stored message rows to the engine's input type.
package envelope

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/oonrumail/threading/thread"
)

// Envelope is the threading view of a stored message: identity, ancestry
// and subject, plus the UID the caller wants back in the tree.
type Envelope struct {
	UID        uint32
	MessageID  string
	InReplyTo  string
	References []string
	Subject    string
	Date       time.Time
}

// Parse reads the headers of a raw RFC 5322 message. Message-IDs are
// normalized (angle brackets and comments removed); a message without a
// Message-ID gets a synthesized one so it can still participate in a
// thread. Unknown charsets in the subject are tolerated.
func Parse(r io.Reader) (*Envelope, error) {
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	header := mail.Header{Header: entity.Header}

	env := &Envelope{}

	env.MessageID, err = header.MessageID()
	if err != nil || env.MessageID == "" {
		env.MessageID = fmt.Sprintf("%s@threading.invalid", uuid.New().String())
	}

	if refs, err := header.MsgIDList("References"); err == nil {
		env.References = refs
	}
	if irt, err := header.MsgIDList("In-Reply-To"); err == nil && len(irt) > 0 {
		env.InReplyTo = irt[0]
	}

	// Best effort for the display headers; a bad date or an exotic
	// charset should not keep the message out of its thread.
	env.Subject, _ = header.Subject()
	env.Date, _ = header.Date()

	return env, nil
}

// ThreadInfo adapts the envelope to the engine's input record. When the
// References header is absent the In-Reply-To id serves as a one-element
// chain. The returned record owns its reference slice; the engine may
// mutate it.
func (e *Envelope) ThreadInfo() *thread.MessageInfo[uint32] {
	refs := append([]string(nil), e.References...)
	if len(refs) == 0 && e.InReplyTo != "" {
		refs = []string{e.InReplyTo}
	}
	return &thread.MessageInfo[uint32]{
		ID:         e.MessageID,
		References: refs,
		Subject:    e.Subject,
		Payload:    e.UID,
	}
}
