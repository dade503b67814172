// Package session keeps the per-directory link between a working tree and
// a plan thread, so plan/reply/sync can run without naming the channel
// every time. The link file is a weak pointer: state lives in the channel
// record, never here.
package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const sessionDirName = ".planwg"

var ErrNotLinked = errors.New("directory is not linked to a plan thread")

// Session points a working directory at one channel and, optionally, one
// thread within it.
type Session struct {
	Channel  string `json:"channel"`
	ThreadTS string `json:"thread_ts,omitempty"`
	LinkedAt string `json:"linked_at"`
}

func sessionPath(dir string) string {
	return filepath.Join(dir, sessionDirName, "session.json")
}

// Load reads the session link for dir. A missing or unreadable link file
// is ErrNotLinked; the caller decides whether that is fatal.
func Load(dir string) (*Session, error) {
	data, err := os.ReadFile(sessionPath(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotLinked
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, ErrNotLinked
	}
	if s.Channel == "" {
		return nil, ErrNotLinked
	}
	return &s, nil
}

// Save writes the session link atomically.
func Save(dir string, s *Session) error {
	if s.LinkedAt == "" {
		s.LinkedAt = time.Now().UTC().Format(time.RFC3339)
	}
	path := sessionPath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Clear removes the link. Clearing an unlinked directory is a no-op.
func Clear(dir string) error {
	err := os.Remove(sessionPath(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ClearIfChannel removes the link only when it points at channel.
func ClearIfChannel(dir, channel string) error {
	s, err := Load(dir)
	if errors.Is(err, ErrNotLinked) {
		return nil
	}
	if err != nil {
		return err
	}
	if s.Channel != channel {
		return nil
	}
	return Clear(dir)
}
