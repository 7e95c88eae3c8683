package trace

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
)

// Event is one trace record.
type Event struct {
	Seq     int64  `json:"seq"`
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Detail  string `json:"detail,omitempty"`
}

// Buffer is an in-memory recorder. It is safe for concurrent use and never
// blocks on anything but its own lock, so it can record from the high tier.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Record appends an event.
func (b *Buffer) Record(seq int64, kind, subject, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, Event{Seq: seq, Kind: kind, Subject: subject, Detail: detail})
}

// Events returns a copy of the recorded events in seq order.
func (b *Buffer) Events() []Event {
	b.mu.Lock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	b.mu.Unlock()

	// Records from different tiers can land out of stamp order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Len returns the number of recorded events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Reset drops all recorded events.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

// Summary counts events per kind.
type Summary struct {
	Total  int
	ByKind map[string]int
}

// Summarize counts events per kind.
func Summarize(events []Event) Summary {
	s := Summary{ByKind: make(map[string]int)}
	for _, e := range events {
		s.Total++
		s.ByKind[e.Kind]++
	}
	return s
}

// Kinds returns the kinds present in s, sorted.
func (s Summary) Kinds() []string {
	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Text renders events one per line as "seq kind subject [detail]".
func Text(events []Event) []byte {
	var buf bytes.Buffer
	for _, e := range events {
		fmt.Fprintf(&buf, "%d %s %s", e.Seq, e.Kind, e.Subject)
		if e.Detail != "" {
			buf.WriteByte(' ')
			buf.WriteString(e.Detail)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Label renders e as "kind:subject".
func (e Event) Label() string {
	return e.Kind + ":" + e.Subject
}
