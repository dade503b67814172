package planwg

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrChannelNotFound    = errors.New("channel not found")
	ErrThreadNotFound     = errors.New("thread not found")
	ErrSectionNotFound    = errors.New("section not found")
	ErrNoOwnedThread      = errors.New("no owned thread")
	ErrAmbiguousOwnership = errors.New("ambiguous ownership")
	ErrCorruptRecord      = errors.New("corrupt record")
	ErrChannelClosed      = errors.New("channel closed")
	ErrInvalidInput       = errors.New("invalid input")
)

// AmbiguousOwnershipError carries every candidate thread so the caller can
// re-invoke with an explicit thread id instead of re-querying state.
type AmbiguousOwnershipError struct {
	Channel    string
	User       string
	Candidates []ThreadSummary
}

func (e *AmbiguousOwnershipError) Error() string {
	ids := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		ids = append(ids, c.TS)
	}
	return fmt.Sprintf("user %s owns %d threads in %s: %s",
		e.User, len(e.Candidates), e.Channel, strings.Join(ids, ", "))
}

func (e *AmbiguousOwnershipError) Is(target error) bool {
	return target == ErrAmbiguousOwnership
}

// CorruptRecordError marks a channel whose on-disk record cannot be parsed
// or fails schema validation. Fatal for that channel only.
type CorruptRecordError struct {
	Channel string
	Err     error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record for channel %s: %v", e.Channel, e.Err)
}

func (e *CorruptRecordError) Is(target error) bool {
	return target == ErrCorruptRecord
}

func (e *CorruptRecordError) Unwrap() error {
	return e.Err
}
