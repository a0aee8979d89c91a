package watcher

import (
	"time"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/prompt"
)

const DefaultLogCapacity = 50

type InjectionRecord struct {
	Signature prompt.Signature `json:"signature"`
	At        time.Time        `json:"at"`
}

// InjectionLog is a bounded, append-only record of recent injections. It is
// owned by a single watcher goroutine and is not safe for concurrent use.
type InjectionLog struct {
	capacity int
	entries  []InjectionRecord
}

func NewInjectionLog(capacity int) *InjectionLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &InjectionLog{capacity: capacity, entries: make([]InjectionRecord, 0, capacity)}
}

// Append records sig and evicts the oldest entries beyond capacity.
func (l *InjectionLog) Append(sig prompt.Signature, at time.Time) {
	l.entries = append(l.entries, InjectionRecord{Signature: sig, At: at})
	if over := len(l.entries) - l.capacity; over > 0 {
		copy(l.entries, l.entries[over:])
		l.entries = l.entries[:l.capacity]
	}
}

// Recent reports whether sig was injected less than cooldown before now.
func (l *InjectionLog) Recent(sig prompt.Signature, now time.Time, cooldown time.Duration) bool {
	for i := len(l.entries) - 1; i >= 0; i-- {
		entry := l.entries[i]
		if entry.Signature != sig {
			continue
		}
		return now.Sub(entry.At) < cooldown
	}
	return false
}

func (l *InjectionLog) Len() int {
	return len(l.entries)
}
