package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageLogNewestFirstAndCapped(t *testing.T) {
	l := NewMessageLog(DefaultMaxLogEntries)
	assert.Equal(t, "", l.Latest())

	for i := 0; i < 25; i++ {
		l.Add(fmt.Sprintf("msg %d", i))
		assert.LessOrEqual(t, l.Len(), 10)
	}

	entries := l.Entries()
	assert.Len(t, entries, 10)
	assert.Equal(t, "msg 24", entries[0])
	assert.Equal(t, "msg 15", entries[9])
	assert.Equal(t, "msg 24", l.Latest())

	entries[0] = "mutated"
	assert.Equal(t, "msg 24", l.Latest(), "Entries returns a copy")

	l.Clear()
	assert.Equal(t, 0, l.Len())
}

func TestMessageLogDefaultCapacity(t *testing.T) {
	l := NewMessageLog(0)
	for i := 0; i < 12; i++ {
		l.Add("x")
	}
	assert.Equal(t, DefaultMaxLogEntries, l.Len())
}
