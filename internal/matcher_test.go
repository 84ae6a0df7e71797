package internal

import (
	"testing"
	"time"
)

func TestMergeConversations(t *testing.T) {
	now := time.Unix(1700000000, 0)
	summaries := []Conversation{
		{Address: "+1 650-253-0000", LastMessage: "latest", LastDate: now, MessageCount: 2},
		{Address: "332", LastMessage: "code", LastDate: now.Add(-time.Minute), MessageCount: 1},
		{Address: "6502530000", LastMessage: "older", LastDate: now.Add(-time.Hour), MessageCount: 5, ContactName: "Google"},
	}

	merged := MergeConversations(summaries)
	if len(merged) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(merged))
	}

	g := merged[0]
	if g.Address != "+1 650-253-0000" || g.LastMessage != "latest" {
		t.Errorf("Unexpected group head: %+v", g)
	}
	if g.MessageCount != 7 {
		t.Errorf("Expected counts summed to 7, got %d", g.MessageCount)
	}
	if g.ContactName != "Google" {
		t.Errorf("Expected contact name from a later member, got %q", g.ContactName)
	}
	if len(g.Addresses) != 2 || g.Addresses[1] != "6502530000" {
		t.Errorf("Unexpected addresses: %v", g.Addresses)
	}
}

func TestMergeConversationsTakesNewestText(t *testing.T) {
	now := time.Unix(1700000000, 0)
	merged := MergeConversations([]Conversation{
		{Address: "6502530000", LastMessage: "old", LastDate: now},
		{Address: "+16502530000", LastMessage: "new", LastDate: now.Add(time.Second)},
	})
	if len(merged) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(merged))
	}
	if merged[0].LastMessage != "new" || !merged[0].LastDate.Equal(now.Add(time.Second)) {
		t.Errorf("Expected newest text to win, got %+v", merged[0])
	}
}

func TestMatchSender(t *testing.T) {
	candidates := []string{"+44 20 7946 0000", "(650) 253-0000"}

	got, ok := MatchSender("+16502530000", candidates)
	if !ok || got != "(650) 253-0000" {
		t.Errorf("Expected (650) 253-0000, got %q %v", got, ok)
	}

	if _, ok := MatchSender("+16502530001", candidates); ok {
		t.Error("Expected no match")
	}
	if _, ok := MatchSender("+16502530000", nil); ok {
		t.Error("Expected no match against no candidates")
	}
}

func TestUniqueNumbers(t *testing.T) {
	got := UniqueNumbers([]string{"+16502530000", "", "650-253-0000", "332", "332", "+16502530001"})
	want := []string{"+16502530000", "332", "+16502530001"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Index %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestDedupCalls(t *testing.T) {
	base := time.Unix(1700000000, 0)
	calls := []CallLog{
		{Number: "+16502530000", Date: base, Type: 1, Duration: 60},
		{Number: "(650) 253-0000", Date: base.Add(2 * time.Second), Type: 1, Duration: 60},
		{Number: "650 253 0000", Date: base.Add(3 * time.Second), Type: 1, Duration: 60},
		{Number: "+16502530000", Date: base, Type: 2, Duration: 60},
		{Number: "+16502530000", Date: base, Type: 1, Duration: 61},
		{Number: "+44 20 7946 0000", Date: base, Type: 1, Duration: 60},
		{Number: "911", Date: base, Type: 1, Duration: 60},
		{Number: "911", Date: base.Add(time.Second), Type: 1, Duration: 60},
	}

	got := DedupCalls(calls)
	// Dropped: the entry 2s later, and the second 911
	if len(got) != 6 {
		t.Fatalf("Expected 6 calls, got %d: %+v", len(got), got)
	}
	if got[1].Number != "650 253 0000" {
		t.Errorf("Expected 3s-later call to be kept, got %+v", got[1])
	}
}

func TestDedupCallsShortKeyAgainstLongKey(t *testing.T) {
	base := time.Unix(1700000000, 0)
	// A short key bucket is still compared, and a bare tail is not the same number
	calls := []CallLog{
		{Number: "2530000", Date: base, Type: 3, Duration: 0},
		{Number: "0000", Date: base, Type: 3, Duration: 0},
	}
	if got := DedupCalls(calls); len(got) != 2 {
		t.Errorf("Expected both calls kept, got %d", len(got))
	}
}

func TestDedupCallsShortInternationalNumber(t *testing.T) {
	base := time.Unix(1700000000, 0)
	calls := []CallLog{
		{Number: "+81 234567", Date: base, Type: 1, Duration: 60},
		{Number: "0234567", Date: base.Add(time.Second), Type: 1, Duration: 60},
	}
	if got := DedupCalls(calls); len(got) != 1 {
		t.Errorf("Expected the repeated call dropped, got %d: %+v", len(got), got)
	}
}
