// internal/game/message_log.go
package game

// DefaultMaxLogEntries is the number of messages kept by a MessageLog.
const DefaultMaxLogEntries = 10

// MessageLog is a bounded, newest-first list of player-facing messages.
type MessageLog struct {
	entries []string
	max     int
}

// NewMessageLog returns an empty log keeping at most max entries.
func NewMessageLog(max int) *MessageLog {
	if max <= 0 {
		max = DefaultMaxLogEntries
	}
	return &MessageLog{entries: make([]string, 0, max), max: max}
}

// Add inserts msg at the front, dropping the oldest entry once the log is full.
func (l *MessageLog) Add(msg string) {
	if len(l.entries) < l.max {
		l.entries = append(l.entries, "")
	}
	copy(l.entries[1:], l.entries)
	l.entries[0] = msg
}

// Clear empties the log.
func (l *MessageLog) Clear() {
	l.entries = l.entries[:0]
}

// Entries returns a copy of the messages, newest first.
func (l *MessageLog) Entries() []string {
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Latest returns the newest message, or "" when the log is empty.
func (l *MessageLog) Latest() string {
	if len(l.entries) == 0 {
		return ""
	}
	return l.entries[0]
}

func (l *MessageLog) Len() int {
	return len(l.entries)
}
