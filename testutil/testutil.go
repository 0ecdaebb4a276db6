// Package testutil provides builders for threading tests.
package testutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/oonrumail/threading/envelope"
)

// Env builds a message envelope with the given identity and ancestry.
func Env(uid uint32, msgID string, refs []string, subj string, date time.Time) *envelope.Envelope {
	return &envelope.Envelope{
		UID:        uid,
		MessageID:  msgID,
		References: refs,
		Subject:    subj,
		Date:       date,
	}
}

// RawMessage renders a minimal RFC 5322 message with the given threading
// headers. Empty header values are omitted.
func RawMessage(msgID, inReplyTo, subj string, refs ...string) string {
	var b strings.Builder
	if msgID != "" {
		fmt.Fprintf(&b, "Message-ID: <%s>\r\n", msgID)
	}
	if inReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: <%s>\r\n", inReplyTo)
	}
	if len(refs) > 0 {
		ids := make([]string, 0, len(refs))
		for _, r := range refs {
			ids = append(ids, "<"+r+">")
		}
		fmt.Fprintf(&b, "References: %s\r\n", strings.Join(ids, " "))
	}
	if subj != "" {
		fmt.Fprintf(&b, "Subject: %s\r\n", subj)
	}
	b.WriteString("From: sender@example.com\r\n")
	b.WriteString("To: rcpt@example.com\r\n")
	b.WriteString("Date: Mon, 06 Jul 2026 10:04:05 +0000\r\n")
	b.WriteString("Content-Type: text/plain\r\n")
	b.WriteString("\r\n")
	b.WriteString("body\r\n")
	return b.String()
}
