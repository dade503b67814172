package planwg

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// LogEntry is one pending notification: the daemon appends them as channel
// events arrive, the CLI drains them on the owner's next sync.
type LogEntry struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
	Kind    string `json:"kind"`
	Text    string `json:"text"`
	TS      string `json:"ts,omitempty"`
	At      string `json:"at"`
}

type eventLogState struct {
	Items []LogEntry `json:"items"`
}

// EventLog is a file-backed pending queue for one channel. The file is
// rewritten whole on every change via temp-and-rename; when the log
// overflows its capacity the oldest entries are dropped, newest win.
type EventLog struct {
	path     string
	capacity int
	mu       sync.Mutex
	items    []LogEntry
}

func NewEventLog(path string, capacity int) (*EventLog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrInvalidInput
	}
	if capacity <= 0 {
		capacity = 256
	}
	l := &EventLog{
		path:     path,
		capacity: capacity,
		items:    []LogEntry{},
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// OpenChannelEventLog opens the pending log for one channel under the
// state directory.
func OpenChannelEventLog(stateDir, channel string, capacity int) (*EventLog, error) {
	return NewEventLog(filepath.Join(stateDir, "pending", sanitizeChannelFile(channel)+".json"), capacity)
}

// Append persists a new entry. A missing ID gets a generated one; At is
// stamped when empty.
func (l *EventLog) Append(entry LogEntry) error {
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.At == "" {
		entry.At = NowISO()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, entry)
	if len(l.items) > l.capacity {
		l.items = append([]LogEntry(nil), l.items[len(l.items)-l.capacity:]...)
	}
	return l.saveLocked()
}

// Drain returns every pending entry and clears the log. The clear persists
// before Drain returns, so redelivery after a crash repeats at most the
// batch the caller already saw.
func (l *EventLog) Drain() ([]LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return nil, nil
	}
	drained := append([]LogEntry(nil), l.items...)
	l.items = []LogEntry{}
	if err := l.saveLocked(); err != nil {
		l.items = drained
		return nil, err
	}
	return drained, nil
}

func (l *EventLog) Depth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *EventLog) Snapshot() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.items...)
}

func (l *EventLog) load() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var snapshot eventLogState
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	if len(snapshot.Items) > l.capacity {
		l.items = append([]LogEntry(nil), snapshot.Items[len(snapshot.Items)-l.capacity:]...)
		return l.saveLocked()
	}
	l.items = append([]LogEntry(nil), snapshot.Items...)
	return nil
}

func (l *EventLog) saveLocked() error {
	snapshot := eventLogState{Items: append([]LogEntry(nil), l.items...)}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}
