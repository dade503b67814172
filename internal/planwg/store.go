package planwg

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Store is the read-modify-write surface over a RecordBackend. Every
// mutation runs under the channel's exclusive lock and re-reads the record
// inside it, so concurrent CLI invocations and the daemon interleave
// safely; either the whole mutation persists or none of it does.
type Store struct {
	backend RecordBackend
}

func NewStore(backend RecordBackend) *Store {
	return &Store{backend: backend}
}

func (s *Store) Backend() RecordBackend { return s.backend }

// Load returns a channel's record without holding its lock. Callers that
// intend to write must use Mutate instead.
func (s *Store) Load(channel string) (*ChannelRecord, error) {
	rec, err := s.backend.Load(channel)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channel)
	}
	return rec, nil
}

// Mutate runs fn on the channel's record under its lock and persists the
// result. An error from fn aborts without saving. The record passed to fn
// is freshly loaded inside the lock; fn must not retain it.
func (s *Store) Mutate(channel string, fn func(rec *ChannelRecord) error) (*ChannelRecord, error) {
	unlock, err := s.backend.Lock(channel)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := s.backend.Load(channel)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channel)
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	if err := s.backend.Save(channel, rec); err != nil {
		return nil, err
	}
	log.Debug().Str("channel", channel).Msg("record saved")
	return rec, nil
}

// Ensure is Mutate for channels that may not have a record yet: when the
// load comes back empty, create supplies the initial record.
func (s *Store) Ensure(channel string, create func() *ChannelRecord, fn func(rec *ChannelRecord) error) (*ChannelRecord, error) {
	unlock, err := s.backend.Lock(channel)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := s.backend.Load(channel)
	if err != nil {
		return nil, err
	}
	created := false
	if rec == nil {
		rec = create()
		if rec == nil {
			return nil, fmt.Errorf("%w: nil initial record for %s", ErrInvalidInput, channel)
		}
		created = true
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	if err := s.backend.Save(channel, rec); err != nil {
		return nil, err
	}
	if created {
		log.Debug().Str("channel", channel).Msg("record created")
	}
	return rec, nil
}

// List returns the names of every channel with a record, sorted.
func (s *Store) List() ([]string, error) {
	return s.backend.List()
}

func (s *Store) Delete(channel string) error {
	unlock, err := s.backend.Lock(channel)
	if err != nil {
		return err
	}
	defer unlock()
	return s.backend.Delete(channel)
}

func (s *Store) Close() error {
	return s.backend.Close()
}
