package channel

import (
	"context"
	"fmt"
	"sync"
)

var _ Service = (*Fake)(nil)

// Fake is an in-memory Service for tests. Message ids are deterministic
// monotonic timestamps so assertions can name them.
type Fake struct {
	mu       sync.Mutex
	Self     Identity
	nextTS   int
	nextChan int
	names    map[string]string // channel name -> id
	archived map[string]bool
	Users    map[string]string // handle -> user id
	Messages map[string][]Message
	DMs      []string // user ids a DM was opened to
	Invites  map[string][]string
}

func NewFake() *Fake {
	return &Fake{
		Self:     Identity{UserID: "USELF", BotID: "BSELF"},
		nextTS:   1000,
		names:    map[string]string{},
		archived: map[string]bool{},
		Users:    map[string]string{},
		Messages: map[string][]Message{},
		Invites:  map[string][]string{},
	}
}

func (f *Fake) nextTimestamp() string {
	f.nextTS++
	return fmt.Sprintf("1700000%03d.000100", f.nextTS)
}

func (f *Fake) AuthInfo(ctx context.Context) (Identity, error) {
	return f.Self, nil
}

func (f *Fake) LookupChannelID(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.names[name], nil
}

func (f *Fake) CreateChannel(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.names[name]; ok {
		return id, &RemoteCallError{Op: "conversations.create", Err: fmt.Errorf("name_taken: %s", name)}
	}
	f.nextChan++
	id := fmt.Sprintf("C%04d", f.nextChan)
	f.names[name] = id
	return id, nil
}

func (f *Fake) InviteUsers(ctx context.Context, channelID string, userIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Invites[channelID] = append(f.Invites[channelID], userIDs...)
	return nil
}

func (f *Fake) ArchiveChannel(ctx context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived[channelID] = true
	return nil
}

func (f *Fake) Archived(channelID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.archived[channelID]
}

func (f *Fake) PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ts := f.nextTimestamp()
	f.Messages[channelID] = append(f.Messages[channelID], Message{
		TS:       ts,
		ThreadTS: threadTS,
		Author:   f.Self.UserID,
		Text:     text,
		Bot:      true,
	})
	return ts, nil
}

func (f *Fake) AddReaction(ctx context.Context, channelID, ts, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.Messages[channelID]
	for i := range msgs {
		if msgs[i].TS != ts {
			continue
		}
		for j := range msgs[i].Reactions {
			if msgs[i].Reactions[j].Name == name {
				msgs[i].Reactions[j].Users = append(msgs[i].Reactions[j].Users, f.Self.UserID)
				return nil
			}
		}
		msgs[i].Reactions = append(msgs[i].Reactions, Reaction{Name: name, Users: []string{f.Self.UserID}})
		return nil
	}
	return &RemoteCallError{Op: "reactions.add", Err: fmt.Errorf("message_not_found: %s", ts)}
}

func (f *Fake) OpenDM(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DMs = append(f.DMs, userID)
	return "D" + userID, nil
}

func (f *Fake) ResolveUserIDs(ctx context.Context, handles []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(handles))
	for _, h := range handles {
		if id, ok := f.Users[h]; ok {
			ids = append(ids, id)
			continue
		}
		ids = append(ids, h)
	}
	return ids, nil
}

func (f *Fake) FetchHistory(ctx context.Context, channelID string) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.Messages[channelID]...), nil
}

// Seed appends a message with a fresh id and returns the id. Tests use it
// to stage remote history.
func (f *Fake) Seed(channelID string, msg Message) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.TS == "" {
		msg.TS = f.nextTimestamp()
	}
	f.Messages[channelID] = append(f.Messages[channelID], msg)
	return msg.TS
}

// SeedChannel registers an existing channel name.
func (f *Fake) SeedChannel(name, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[name] = id
}
