package testutil

import "sync"

// CallbackLog records HF ready callback invocations by name.
type CallbackLog struct {
	mu    sync.Mutex
	names []string
}

// NewCallbackLog creates an empty log.
func NewCallbackLog() *CallbackLog {
	return &CallbackLog{}
}

// Func returns a callback that records name each time it runs.
func (l *CallbackLog) Func(name string) func() {
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.names = append(l.names, name)
	}
}

// Names returns the recorded names in call order. Never nil.
func (l *CallbackLog) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Count returns how many times name was recorded.
func (l *CallbackLog) Count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, got := range l.names {
		if got == name {
			n++
		}
	}
	return n
}
