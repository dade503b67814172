// Package channel abstracts the group-messaging service the working-group
// tool posts through. The rest of the system talks to the Service
// interface; the Slack implementation and the in-memory test fake both
// satisfy it.
package channel

import (
	"context"
	"fmt"
)

// Message is one channel message flattened for reconciliation. ThreadTS is
// empty or equal to TS for top-level messages.
type Message struct {
	TS        string
	ThreadTS  string
	Author    string
	Text      string
	Bot       bool
	Reactions []Reaction
}

// Reaction is one emoji name with every user who added it.
type Reaction struct {
	Name  string
	Users []string
}

// Identity is the authenticated caller as the service sees it.
type Identity struct {
	UserID string
	BotID  string
}

// Service is the full remote surface the tool needs. Implementations wrap
// transport failures in RemoteCallError so callers can report which remote
// operation failed without parsing provider errors.
type Service interface {
	AuthInfo(ctx context.Context) (Identity, error)
	LookupChannelID(ctx context.Context, name string) (string, error)
	CreateChannel(ctx context.Context, name string) (string, error)
	InviteUsers(ctx context.Context, channelID string, userIDs []string) error
	ArchiveChannel(ctx context.Context, channelID string) error
	PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error)
	AddReaction(ctx context.Context, channelID, ts, name string) error
	OpenDM(ctx context.Context, userID string) (string, error)
	ResolveUserIDs(ctx context.Context, handles []string) ([]string, error)
	FetchHistory(ctx context.Context, channelID string) ([]Message, error)
}

// RemoteCallError wraps a failure from the messaging service, tagged with
// the operation that failed.
type RemoteCallError struct {
	Op  string
	Err error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("channel service %s: %v", e.Op, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

func remoteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteCallError{Op: op, Err: err}
}
