package session

import (
	"strings"
	"testing"
	"unicode/utf8"

	"rtl-cli/internal/tools"
)

func TestSink_AppendKeepsOrder(t *testing.T) {
	s := NewSink(0)
	s.Reset(1, tools.KindSimulate)
	s.Append(1, "compiling...\n")
	s.Append(1, "")
	s.Append(1, "done\n")
	if got := s.VisibleText(1); got != "compiling...\ndone\n" {
		t.Fatalf("VisibleText = %q", got)
	}
	if got := s.VisibleText(1); got != "compiling...\ndone\n" {
		t.Fatalf("VisibleText not idempotent: %q", got)
	}
}

func TestSink_UnknownAndFrozenIgnored(t *testing.T) {
	s := NewSink(0)
	s.Append(7, "nobody")
	if s.VisibleText(7) != "" || s.Retained() != 0 {
		t.Fatal("append to unknown id should be ignored")
	}
	s.Reset(1, tools.KindLint)
	s.Append(1, "a")
	s.Freeze(1)
	s.Append(1, "b")
	if got := s.VisibleText(1); got != "a" {
		t.Fatalf("VisibleText = %q, want %q", got, "a")
	}
}

func TestSink_ResetDropsSameKindOnly(t *testing.T) {
	s := NewSink(0)
	s.Reset(1, tools.KindLint)
	s.Append(1, "lint-1")
	s.Reset(2, tools.KindSimulate)
	s.Append(2, "sim-2")
	s.Reset(3, tools.KindLint)

	if s.VisibleText(1) != "" {
		t.Fatal("older lint segment should be discarded")
	}
	if got := s.VisibleText(2); got != "sim-2" {
		t.Fatalf("simulate segment = %q", got)
	}
	if got := s.VisibleText(3); got != "" {
		t.Fatalf("fresh segment = %q", got)
	}
	if s.Retained() != 2 {
		t.Fatalf("Retained = %d, want 2", s.Retained())
	}
}

func TestSink_BoundDropsOldestChunks(t *testing.T) {
	s := NewSink(10)
	s.Reset(1, tools.KindSimulate)
	for _, c := range []string{"aaaa", "bbbb", "cccc"} {
		s.Append(1, c)
	}
	if got := s.VisibleText(1); got != "bbbbcccc" {
		t.Fatalf("VisibleText = %q", got)
	}
	if s.Dropped(1) != 4 {
		t.Fatalf("Dropped = %d, want 4", s.Dropped(1))
	}
}

func TestSink_OversizedChunkKeepsTail(t *testing.T) {
	s := NewSink(5)
	s.Reset(1, tools.KindLint)
	s.Append(1, "0123456789")
	if got := s.VisibleText(1); got != "56789" {
		t.Fatalf("VisibleText = %q", got)
	}

	s.Reset(2, tools.KindSimulate)
	s.Append(2, "xx日本語")
	got := s.VisibleText(2)
	if !utf8.ValidString(got) || len(got) > 5 {
		t.Fatalf("truncated text %q must be valid utf-8 within bound", got)
	}
	if !strings.HasSuffix("xx日本語", got) {
		t.Fatalf("truncated text %q is not a suffix", got)
	}
}

func TestSink_ManyChunksStayBounded(t *testing.T) {
	s := NewSink(100)
	s.Reset(1, tools.KindSimulate)
	for i := 0; i < 1000; i++ {
		s.Append(1, "0123456789")
	}
	if got := len(s.VisibleText(1)); got != 100 {
		t.Fatalf("retained %d bytes, want 100", got)
	}
	if s.Dropped(1) != 9900 {
		t.Fatalf("Dropped = %d", s.Dropped(1))
	}
}
