package watcher

import (
	"fmt"
	"testing"
	"time"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/prompt"
)

func TestInjectionLogEvictsOldestBeyondCapacity(t *testing.T) {
	log := NewInjectionLog(0)
	if log.capacity != DefaultLogCapacity {
		t.Fatalf("unexpected default capacity: %d", log.capacity)
	}
	base := time.Unix(1_700_000_000, 0)
	for i := 0; i < 51; i++ {
		log.Append(prompt.Signature(fmt.Sprintf("sig-%02d", i)), base.Add(time.Duration(i)*time.Second))
	}
	if log.Len() != 50 {
		t.Fatalf("expected 50 entries, got %d", log.Len())
	}
	if log.Recent("sig-00", base, time.Hour) {
		t.Fatal("expected oldest entry evicted")
	}
	entries := log.entries
	if entries[0].Signature != "sig-01" || entries[49].Signature != "sig-50" {
		t.Fatalf("unexpected order: first=%s last=%s", entries[0].Signature, entries[49].Signature)
	}
}

func TestInjectionLogRecentHonoursCooldown(t *testing.T) {
	log := NewInjectionLog(4)
	at := time.Unix(1_700_000_000, 0)
	log.Append("abc", at)

	if !log.Recent("abc", at.Add(4*time.Second), 5*time.Second) {
		t.Fatal("expected signature recent inside cooldown")
	}
	if log.Recent("abc", at.Add(5*time.Second), 5*time.Second) {
		t.Fatal("expected signature eligible once cooldown elapsed")
	}
	if log.Recent("other", at, 5*time.Second) {
		t.Fatal("unknown signature must not be recent")
	}
}

func TestInjectionLogRecentUsesLatestEntry(t *testing.T) {
	log := NewInjectionLog(4)
	at := time.Unix(1_700_000_000, 0)
	log.Append("abc", at)
	log.Append("abc", at.Add(10*time.Second))
	if !log.Recent("abc", at.Add(12*time.Second), 5*time.Second) {
		t.Fatal("expected latest entry to drive cooldown")
	}
}
