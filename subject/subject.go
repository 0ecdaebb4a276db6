// Package subject normalizes mail subject lines for thread grouping.
package subject

import (
	"regexp"
	"strings"
)

// replyMarker matches one leading reply marker: "Re:", "RE:", "Re[5]:" and
// the localized variants some clients emit ("Aw:", "Sv:", "Antw:"),
// together with the whitespace around it. Forward markers are deliberately
// not matched; a forward starts a new conversation.
var replyMarker = regexp.MustCompile(`^(?i:re|aw|sv|antw)(?:\[\d+\])?[ \t]*:[ \t]*`)

// StripReplyPrefix removes any sequence of reply markers from the head of
// s and returns the trimmed remainder. It is a pure function.
func StripReplyPrefix(s string) string {
	t := strings.TrimSpace(s)
	for {
		loc := replyMarker.FindStringIndex(t)
		if loc == nil {
			break
		}
		t = strings.TrimSpace(t[loc[1]:])
	}
	return t
}

// IsReply reports whether s carries at least one reply marker, i.e.
// whether stripping strictly shortens the trimmed subject.
func IsReply(s string) bool {
	trimmed := strings.TrimSpace(s)
	return len(StripReplyPrefix(trimmed)) < len(trimmed)
}
