package planwg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

// FileRecordBackend keeps one JSON file per channel under a state
// directory, with a sibling .lock file carrying the flock that serializes
// concurrent CLI invocations and the daemon across processes.
type FileRecordBackend struct {
	dir string
}

func NewFileRecordBackend(dir string) (*FileRecordBackend, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("%w: empty state directory", ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Join(dir, "channels"), 0o755); err != nil {
		return nil, err
	}
	return &FileRecordBackend{dir: dir}, nil
}

func (b *FileRecordBackend) Dir() string { return b.dir }

func (b *FileRecordBackend) recordPath(channel string) string {
	return filepath.Join(b.dir, "channels", sanitizeChannelFile(channel)+".json")
}

func (b *FileRecordBackend) lockPath(channel string) string {
	return filepath.Join(b.dir, "channels", sanitizeChannelFile(channel)+".lock")
}

// Lock blocks until the channel's flock is held and returns its release.
// The lock file is left in place; only the flock is dropped.
func (b *FileRecordBackend) Lock(channel string) (func(), error) {
	f, err := os.OpenFile(b.lockPath(channel), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}, nil
}

func (b *FileRecordBackend) Load(channel string) (*ChannelRecord, error) {
	data, err := os.ReadFile(b.recordPath(channel))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(channel, data)
}

// Save writes the record atomically: marshal to a temp file in the same
// directory, fsync, then rename over the previous version.
func (b *FileRecordBackend) Save(channel string, rec *ChannelRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	path := b.recordPath(channel)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".record-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (b *FileRecordBackend) Delete(channel string) error {
	err := os.Remove(b.recordPath(channel))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (b *FileRecordBackend) List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(b.dir, "channels"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (b *FileRecordBackend) Close() error { return nil }

// sanitizeChannelFile keeps channel-derived filenames flat. Channel names
// are already constrained by the messaging service, so this only guards
// against separators and dot traversal.
func sanitizeChannelFile(channel string) string {
	channel = strings.TrimSpace(channel)
	replacer := strings.NewReplacer("/", "_", string(filepath.Separator), "_", "..", "_")
	channel = replacer.Replace(channel)
	if channel == "" {
		return "_"
	}
	return channel
}
