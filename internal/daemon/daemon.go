// Package daemon is the long-running listener: it consumes channel events
// over a socket connection, folds them into the local records, and queues
// notifications for the owner's next sync.
package daemon

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/agentworkforce/planwg/internal/channel"
	"github.com/agentworkforce/planwg/internal/config"
	"github.com/agentworkforce/planwg/internal/planwg"
)

// Daemon folds live channel events into records. The socket client is
// optional so tests can drive HandleRaw directly.
type Daemon struct {
	cfg      *config.Config
	store    *planwg.Store
	svc      channel.Service
	client   *socketmode.Client
	notifier *Notifier

	self channel.Identity

	mu    sync.RWMutex
	names map[string]string // channel id -> channel name
}

func New(cfg *config.Config, store *planwg.Store, svc channel.Service, client *socketmode.Client) *Daemon {
	return &Daemon{
		cfg:      cfg,
		store:    store,
		svc:      svc,
		client:   client,
		notifier: NewNotifier(cfg.Notify),
		names:    map[string]string{},
	}
}

// Run connects and processes events until the context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ident, err := d.svc.AuthInfo(ctx)
	if err != nil {
		return err
	}
	d.self = ident

	if err := d.RefreshRegistry(); err != nil {
		return err
	}
	watcherDone, err := d.startRegistryWatcher(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("registry watcher unavailable, relying on startup snapshot")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.client.RunContext(ctx)
	}()

	log.Info().Str("user", ident.UserID).Msg("daemon connected")
	for {
		select {
		case <-ctx.Done():
			if watcherDone != nil {
				<-watcherDone
			}
			return ctx.Err()
		case err := <-errCh:
			return err
		case evt, ok := <-d.client.Events:
			if !ok {
				return fmt.Errorf("socket event stream closed")
			}
			d.handleSocketEvent(ctx, evt)
		}
	}
}

func (d *Daemon) handleSocketEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		log.Debug().Msg("socket connecting")
	case socketmode.EventTypeConnected:
		log.Debug().Msg("socket connected")
	case socketmode.EventTypeConnectionError:
		log.Warn().Msg("socket connection error, retrying")
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			d.client.Ack(*evt.Request)
		}
		d.handleEventsAPI(ctx, apiEvent)
	}
}

func (d *Daemon) handleEventsAPI(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	switch ev := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if ev.SubType != "" && ev.SubType != "thread_broadcast" {
			return
		}
		d.HandleRaw(ctx, planwg.RawEvent{
			Type:      planwg.RawReply,
			ChannelID: ev.Channel,
			MessageID: ev.TimeStamp,
			ParentID:  ev.ThreadTimeStamp,
			AuthorID:  ev.User,
			Text:      ev.Text,
			Bot:       ev.BotID != "",
		})
	case *slackevents.ReactionAddedEvent:
		d.HandleRaw(ctx, planwg.RawEvent{
			Type:      planwg.RawReaction,
			ChannelID: ev.Item.Channel,
			MessageID: ev.Item.Timestamp + ":" + ev.User,
			ParentID:  ev.Item.Timestamp,
			AuthorID:  ev.User,
			Reaction:  ev.Reaction,
		})
	}
}

// HandleRaw folds one raw event into its channel record. Events for
// channels without a local record are dropped; the record is the
// membership list.
func (d *Daemon) HandleRaw(ctx context.Context, raw planwg.RawEvent) {
	name := d.channelName(raw.ChannelID)
	if name == "" || !planwg.IsManagedChannel(name) {
		return
	}
	if raw.AuthorID == d.self.UserID || raw.AuthorID == d.self.BotID {
		raw.Bot = true
	}

	var res planwg.ApplyResult
	_, err := d.store.Mutate(name, func(rec *planwg.ChannelRecord) error {
		res = planwg.Apply(rec, planwg.Normalize(rec, raw))
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("channel", name).Msg("event apply failed")
		return
	}
	if !res.Changed {
		return
	}
	log.Debug().
		Str("channel", name).
		Str("thread", res.ThreadTS).
		Int("kind", int(res.Kind)).
		Msg("event applied")
	d.queueNotification(name, res)
}

func (d *Daemon) queueNotification(name string, res planwg.ApplyResult) {
	entry := planwg.LogEntry{Channel: name, TS: res.ThreadTS}
	switch res.Kind {
	case planwg.EventNewPlan:
		entry.Kind = "new_plan"
		entry.Text = fmt.Sprintf("<@%s> posted a new plan in #%s", res.Author, name)
	case planwg.EventFeedback:
		if res.NewVersion > 0 {
			entry.Kind = "revision"
			entry.Text = fmt.Sprintf("<@%s> posted plan v%d in #%s", res.Author, res.NewVersion, name)
		} else {
			entry.Kind = "feedback"
			entry.Text = fmt.Sprintf("<@%s> left feedback in #%s: %s", res.Author, name, truncateNotification(res.Text, 80))
		}
	case planwg.EventApproval:
		if res.Scope == planwg.ScopeSection {
			entry.Kind = "section_approval"
			entry.Text = fmt.Sprintf("<@%s> approved section %q in #%s", res.Author, res.Section, name)
		} else {
			entry.Kind = "approval"
			entry.Text = fmt.Sprintf("<@%s> approved the plan in #%s", res.Author, name)
		}
	default:
		return
	}

	eventLog, err := planwg.OpenChannelEventLog(d.cfg.StateDir, name, d.cfg.EventLogCapacity)
	if err != nil {
		log.Warn().Err(err).Str("channel", name).Msg("event log unavailable")
	} else if err := eventLog.Append(entry); err != nil {
		log.Warn().Err(err).Str("channel", name).Msg("event log append failed")
	}

	if res.Author != d.self.UserID {
		d.notifier.Notify("#"+name, entry.Text)
	}
}

// RefreshRegistry rebuilds the channel id to name index from the stored
// records.
func (d *Daemon) RefreshRegistry() error {
	names, err := d.store.List()
	if err != nil {
		return err
	}
	index := make(map[string]string, len(names))
	for _, name := range names {
		rec, err := d.store.Load(name)
		if err != nil {
			log.Warn().Err(err).Str("channel", name).Msg("skipping record in registry")
			continue
		}
		index[rec.ChannelID] = rec.ChannelName
	}
	d.mu.Lock()
	d.names = index
	d.mu.Unlock()
	log.Debug().Int("channels", len(index)).Msg("registry refreshed")
	return nil
}

func (d *Daemon) channelName(channelID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.names[channelID]
}
