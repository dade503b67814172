package planwg

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// RecordBackend stores channel records keyed by channel name. Load returns
// (nil, nil) for a channel with no record. Lock takes the channel's
// exclusive cross-process lock and returns its release function; every
// read-modify-write cycle runs inside it.
type RecordBackend interface {
	Lock(channel string) (func(), error)
	Load(channel string) (*ChannelRecord, error)
	Save(channel string, rec *ChannelRecord) error
	Delete(channel string) error
	List() ([]string, error)
	Close() error
}

type RecordBackendFactory func(dsn string) (RecordBackend, error)

var backendFactoryRegistry = struct {
	mu        sync.RWMutex
	factories map[string]RecordBackendFactory
}{
	factories: map[string]RecordBackendFactory{},
}

func RegisterRecordBackendFactory(scheme string, factory RecordBackendFactory) {
	scheme = normalizeBackendScheme(scheme)
	if scheme == "" || factory == nil {
		return
	}
	backendFactoryRegistry.mu.Lock()
	defer backendFactoryRegistry.mu.Unlock()
	backendFactoryRegistry.factories[scheme] = factory
}

func lookupRecordBackendFactory(scheme string) (RecordBackendFactory, bool) {
	scheme = normalizeBackendScheme(scheme)
	backendFactoryRegistry.mu.RLock()
	defer backendFactoryRegistry.mu.RUnlock()
	factory, ok := backendFactoryRegistry.factories[scheme]
	return factory, ok
}

func normalizeBackendScheme(scheme string) string {
	return strings.ToLower(strings.TrimSpace(scheme))
}

// BuildRecordBackendFromDSN selects a backend by DSN scheme. A bare path
// or file:// DSN gets the per-file backend, postgres:// the shared table.
func BuildRecordBackendFromDSN(dsn string) (RecordBackend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty record backend dsn", ErrInvalidInput)
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}
	scheme := normalizeBackendScheme(parsed.Scheme)
	if factory, ok := lookupRecordBackendFactory(scheme); ok {
		return factory(dsn)
	}
	switch scheme {
	case "", "file":
		path, pathErr := dsnPath(parsed, dsn)
		if pathErr != nil {
			return nil, pathErr
		}
		return NewFileRecordBackend(path)
	case "memory", "mem", "inmem":
		return NewMemoryRecordBackend(), nil
	case "postgres", "postgresql":
		return NewPostgresRecordBackend(dsn)
	default:
		return nil, fmt.Errorf("unsupported record backend scheme: %s", scheme)
	}
}

func dsnPath(parsed *url.URL, raw string) (string, error) {
	if parsed == nil {
		return "", ErrInvalidInput
	}
	if strings.TrimSpace(parsed.Scheme) == "" {
		if strings.TrimSpace(raw) == "" {
			return "", ErrInvalidInput
		}
		return strings.TrimSpace(raw), nil
	}
	path := strings.TrimSpace(parsed.Path)
	if path == "" {
		path = strings.TrimSpace(parsed.Opaque)
	}
	if path == "" {
		path = strings.TrimSpace(parsed.Host)
	}
	if path == "" {
		return "", ErrInvalidInput
	}
	return path, nil
}

// MemoryRecordBackend keeps records in memory behind deep copies. It backs
// tests and the memory:// DSN; Lock serializes within the process only.
type MemoryRecordBackend struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	records map[string][]byte
}

func NewMemoryRecordBackend() *MemoryRecordBackend {
	return &MemoryRecordBackend{
		locks:   map[string]*sync.Mutex{},
		records: map[string][]byte{},
	}
}

func (b *MemoryRecordBackend) Lock(channel string) (func(), error) {
	b.mu.Lock()
	l, ok := b.locks[channel]
	if !ok {
		l = &sync.Mutex{}
		b.locks[channel] = l
	}
	b.mu.Unlock()
	l.Lock()
	return l.Unlock, nil
}

func (b *MemoryRecordBackend) Load(channel string) (*ChannelRecord, error) {
	b.mu.Lock()
	data, ok := b.records[channel]
	b.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodeRecord(channel, data)
}

func (b *MemoryRecordBackend) Save(channel string, rec *ChannelRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.records[channel] = data
	b.mu.Unlock()
	return nil
}

func (b *MemoryRecordBackend) Delete(channel string) error {
	b.mu.Lock()
	delete(b.records, channel)
	b.mu.Unlock()
	return nil
}

func (b *MemoryRecordBackend) List() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.records))
	for name := range b.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (b *MemoryRecordBackend) Close() error { return nil }
