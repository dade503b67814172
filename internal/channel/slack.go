package channel

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
)

var _ Service = (*SlackService)(nil)

// SlackService implements Service over the Slack Web API.
type SlackService struct {
	api *slack.Client
}

func NewSlackService(api *slack.Client) *SlackService {
	return &SlackService{api: api}
}

func (s *SlackService) AuthInfo(ctx context.Context) (Identity, error) {
	resp, err := s.api.AuthTestContext(ctx)
	if err != nil {
		return Identity{}, remoteErr("auth.test", err)
	}
	return Identity{UserID: resp.UserID, BotID: resp.BotID}, nil
}

// LookupChannelID pages through the workspace's private channels looking
// for an exact name match. Returns the empty string when no channel has
// the name.
func (s *SlackService) LookupChannelID(ctx context.Context, name string) (string, error) {
	params := &slack.GetConversationsParameters{
		Types:           []string{"private_channel", "public_channel"},
		Limit:           200,
		ExcludeArchived: true,
	}
	for {
		channels, cursor, err := s.api.GetConversationsContext(ctx, params)
		if err != nil {
			return "", remoteErr("conversations.list", err)
		}
		for _, ch := range channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}
		if cursor == "" {
			return "", nil
		}
		params.Cursor = cursor
	}
}

func (s *SlackService) CreateChannel(ctx context.Context, name string) (string, error) {
	ch, err := s.api.CreateConversationContext(ctx, slack.CreateConversationParams{
		ChannelName: name,
		IsPrivate:   true,
	})
	if err != nil {
		return "", remoteErr("conversations.create", err)
	}
	log.Debug().Str("channel", name).Str("channel_id", ch.ID).Msg("channel created")
	return ch.ID, nil
}

func (s *SlackService) InviteUsers(ctx context.Context, channelID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	if _, err := s.api.InviteUsersToConversationContext(ctx, channelID, userIDs...); err != nil {
		return remoteErr("conversations.invite", err)
	}
	return nil
}

func (s *SlackService) ArchiveChannel(ctx context.Context, channelID string) error {
	if err := s.api.ArchiveConversationContext(ctx, channelID); err != nil {
		return remoteErr("conversations.archive", err)
	}
	return nil
}

// PostMessage posts mrkdwn text, threaded under threadTS when non-empty,
// and returns the new message's id.
func (s *SlackService) PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	_, ts, err := s.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", remoteErr("chat.postMessage", err)
	}
	return ts, nil
}

func (s *SlackService) AddReaction(ctx context.Context, channelID, ts, name string) error {
	err := s.api.AddReactionContext(ctx, name, slack.NewRefToMessage(channelID, ts))
	if err != nil {
		// Re-approving an already reacted message is not an error worth
		// surfacing.
		if strings.Contains(err.Error(), "already_reacted") {
			return nil
		}
		return remoteErr("reactions.add", err)
	}
	return nil
}

func (s *SlackService) OpenDM(ctx context.Context, userID string) (string, error) {
	ch, _, _, err := s.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return "", remoteErr("conversations.open", err)
	}
	return ch.ID, nil
}

// ResolveUserIDs maps @handles and display names to user ids. Inputs that
// already look like user ids (U…/W…) pass through untouched.
func (s *SlackService) ResolveUserIDs(ctx context.Context, handles []string) ([]string, error) {
	needLookup := false
	for _, h := range handles {
		if !looksLikeUserID(h) {
			needLookup = true
			break
		}
	}
	var users []slack.User
	if needLookup {
		var err error
		users, err = s.api.GetUsersContext(ctx)
		if err != nil {
			return nil, remoteErr("users.list", err)
		}
	}

	ids := make([]string, 0, len(handles))
	for _, h := range handles {
		h = strings.TrimPrefix(strings.TrimSpace(h), "@")
		if h == "" {
			continue
		}
		if looksLikeUserID(h) {
			ids = append(ids, h)
			continue
		}
		id := ""
		for _, u := range users {
			if u.Name == h || u.Profile.DisplayName == h || u.RealName == h {
				id = u.ID
				break
			}
		}
		if id == "" {
			return nil, &RemoteCallError{Op: "users.list", Err: fmt.Errorf("unknown user %q", h)}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FetchHistory pulls the channel's full top-level history plus every
// thread's replies, oldest first, flattened for reconciliation.
func (s *SlackService) FetchHistory(ctx context.Context, channelID string) ([]Message, error) {
	var out []Message
	params := &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     200,
	}
	for {
		resp, err := s.api.GetConversationHistoryContext(ctx, params)
		if err != nil {
			return nil, remoteErr("conversations.history", err)
		}
		for _, m := range resp.Messages {
			out = append(out, fromSlackMessage(m))
			if m.ReplyCount > 0 && (m.ThreadTimestamp == "" || m.ThreadTimestamp == m.Timestamp) {
				replies, err := s.fetchReplies(ctx, channelID, m.Timestamp)
				if err != nil {
					return nil, err
				}
				out = append(out, replies...)
			}
		}
		if !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			break
		}
		params.Cursor = resp.ResponseMetaData.NextCursor
	}
	return out, nil
}

func (s *SlackService) fetchReplies(ctx context.Context, channelID, threadTS string) ([]Message, error) {
	var out []Message
	params := &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Limit:     200,
	}
	for {
		msgs, hasMore, cursor, err := s.api.GetConversationRepliesContext(ctx, params)
		if err != nil {
			return nil, remoteErr("conversations.replies", err)
		}
		for _, m := range msgs {
			// The parent rides along in the replies response; history
			// already yielded it.
			if m.Timestamp == threadTS {
				continue
			}
			out = append(out, fromSlackMessage(m))
		}
		if !hasMore || cursor == "" {
			return out, nil
		}
		params.Cursor = cursor
	}
}

func fromSlackMessage(m slack.Message) Message {
	msg := Message{
		TS:       m.Timestamp,
		ThreadTS: m.ThreadTimestamp,
		Author:   m.User,
		Text:     m.Text,
		Bot:      m.BotID != "" || m.SubType == "bot_message",
	}
	for _, r := range m.Reactions {
		msg.Reactions = append(msg.Reactions, Reaction{
			Name:  r.Name,
			Users: append([]string(nil), r.Users...),
		})
	}
	return msg
}

func looksLikeUserID(s string) bool {
	if len(s) < 2 {
		return false
	}
	if s[0] != 'U' && s[0] != 'W' {
		return false
	}
	for _, r := range s[1:] {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
