package prompt

import (
	"testing"
	"time"
)

func TestSignature_StableAcrossUnrelatedRerender(t *testing.T) {
	c := MustClassifier(DefaultOptions())
	first := c.Classify(NewSnapshot("Bash command\n  make test\nDo you want to proceed?\n❯ 1. Yes\n  2. No\n\n⠋ Working (12s · 340 tokens · esc to interrupt)", time.Now()))
	second := c.Classify(NewSnapshot("Bash command\n  make test\nDo you want to proceed?\n❯ 1. Yes\n  2. No\n\n⠙ Working (13s · 355 tokens · esc to interrupt)", time.Now()))
	if !first.Detected() || !second.Detected() {
		t.Fatalf("expected both detected: %+v / %+v", first, second)
	}
	if first.Signature != second.Signature {
		t.Fatalf("signature changed across status-line rerender: %s vs %s", first.Signature, second.Signature)
	}
}

func TestSignature_StableAcrossCursorMovement(t *testing.T) {
	a := ComputeSignature("r", []string{"Proceed?", "❯ 1. Yes", "  2. No"})
	b := ComputeSignature("r", []string{"Proceed?", "  1. Yes", "❯ 2. No"})
	if a != b {
		t.Fatalf("cursor movement changed signature: %s vs %s", a, b)
	}
}

func TestSignature_ChangesWithPromptContent(t *testing.T) {
	a := ComputeSignature("r", []string{"Run make test?", "❯ 1. Yes", "  2. No"})
	b := ComputeSignature("r", []string{"Run make clean?", "❯ 1. Yes", "  2. No"})
	if a == b {
		t.Fatal("different prompt text must change signature")
	}
	c := ComputeSignature("r", []string{"Run make test?", "❯ 1. Yes", "  2. Yes, and don't ask again", "  3. No"})
	if a == c {
		t.Fatal("different options must change signature")
	}
}

func TestSignature_Short(t *testing.T) {
	sig := ComputeSignature("r", []string{"x"})
	if len(sig.Short()) != 8 {
		t.Fatalf("unexpected short signature %q", sig.Short())
	}
}
