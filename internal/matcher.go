package internal

import (
	"time"

	"github.com/lowcarbdev/callmatch/internal/phonenumber"
)

// callDateTolerance is how far apart two log entries of the same call may be.
// Backups taken on different phones round call start times differently.
const callDateTolerance = 2 * time.Second

// MergeConversations folds per-address summaries into one conversation per
// number. A summary joins the first earlier group whose address is equal to
// its own; equality is not transitive, so groups are anchored on that first
// address rather than on any member.
func MergeConversations(summaries []Conversation) []Conversation {
	merged := make([]Conversation, 0, len(summaries))
	for _, s := range summaries {
		i := indexOfNumber(merged, s.Address)
		if i < 0 {
			s.Addresses = []string{s.Address}
			merged = append(merged, s)
			continue
		}

		g := &merged[i]
		g.Addresses = append(g.Addresses, s.Address)
		g.MessageCount += s.MessageCount
		if g.ContactName == "" {
			g.ContactName = s.ContactName
		}
		if s.LastDate.After(g.LastDate) {
			g.LastDate = s.LastDate
			g.LastMessage = s.LastMessage
		}
	}
	return merged
}

func indexOfNumber(groups []Conversation, address string) int {
	for i := range groups {
		if phonenumber.Equal(groups[i].Address, address) {
			return i
		}
	}
	return -1
}

// MatchSender returns the first candidate that denotes the same number as
// sender
func MatchSender(sender string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if phonenumber.Equal(sender, c) {
			return c, true
		}
	}
	return "", false
}

// UniqueNumbers drops every address equal to an earlier one, keeping the
// first spelling. Empty addresses are dropped.
func UniqueNumbers(addresses []string) []string {
	unique := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if a == "" {
			continue
		}
		if _, dup := MatchSender(a, unique); !dup {
			unique = append(unique, a)
		}
	}
	return unique
}

// sameCall reports whether two log entries describe the same call
func sameCall(a, b CallLog) bool {
	if a.Type != b.Type || a.Duration != b.Duration {
		return false
	}
	d := a.Date.Sub(b.Date)
	if d < 0 {
		d = -d
	}
	return d <= callDateTolerance && phonenumber.Equal(a.Number, b.Number)
}

// callIndex remembers the calls seen during one import. Calls are bucketed by
// their index key; numbers too short for a full key can equal numbers in
// any bucket and are compared against everything.
type callIndex struct {
	byKey map[string][]CallLog
}

func newCallIndex() *callIndex {
	return &callIndex{byKey: make(map[string][]CallLog)}
}

func (ix *callIndex) seen(c CallLog) bool {
	key := phonenumber.IndexKey(c.Number)
	if len(key) == phonenumber.MinMatch {
		if containsCall(ix.byKey[key], c) {
			return true
		}
		for k, bucket := range ix.byKey {
			if len(k) < phonenumber.MinMatch && containsCall(bucket, c) {
				return true
			}
		}
		return false
	}
	for _, bucket := range ix.byKey {
		if containsCall(bucket, c) {
			return true
		}
	}
	return false
}

func (ix *callIndex) add(c CallLog) {
	key := phonenumber.IndexKey(c.Number)
	ix.byKey[key] = append(ix.byKey[key], c)
}

func containsCall(calls []CallLog, c CallLog) bool {
	for _, other := range calls {
		if sameCall(other, c) {
			return true
		}
	}
	return false
}

// DedupCalls drops log entries that repeat an earlier call, such as the same
// call exported from two phones with differently formatted numbers
func DedupCalls(calls []CallLog) []CallLog {
	ix := newCallIndex()
	unique := make([]CallLog, 0, len(calls))
	for _, c := range calls {
		if ix.seen(c) {
			continue
		}
		ix.add(c)
		unique = append(unique, c)
	}
	return unique
}
