// Package command wires the CLI surface. Every subcommand talks to the
// record store and the channel service through the shared App.
package command

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/agentworkforce/planwg/internal/channel"
	"github.com/agentworkforce/planwg/internal/config"
	"github.com/agentworkforce/planwg/internal/planwg"
	"github.com/agentworkforce/planwg/internal/session"
)

// App carries the dependencies every subcommand shares. WorkDir anchors the
// per-directory session link; tests point it at a temp dir.
type App struct {
	Cfg     *config.Config
	Store   *planwg.Store
	Channel channel.Service
	WorkDir string

	idOnce sync.Once
	idErr  error
	ident  channel.Identity
}

// UserID returns the acting user: the configured override when present,
// otherwise the authenticated identity, fetched once.
func (a *App) UserID(ctx context.Context) (string, error) {
	if strings.TrimSpace(a.Cfg.UserID) != "" {
		return a.Cfg.UserID, nil
	}
	a.idOnce.Do(func() {
		a.ident, a.idErr = a.Channel.AuthInfo(ctx)
	})
	if a.idErr != nil {
		return "", a.idErr
	}
	return a.ident.UserID, nil
}

// resolveTarget picks the channel and thread a command operates on. An
// explicit --channel consults the store's registry and the ownership
// policy; without it the directory's session link decides, and a link into
// a closed channel is rejected so stale sessions cannot write to archives.
func (a *App) resolveTarget(ctx context.Context, channelFlag, threadFlag string) (string, string, *planwg.ChannelRecord, error) {
	if channelFlag != "" {
		name := planwg.NormalizeChannelName(channelFlag)
		rec, err := a.Store.Load(name)
		if err != nil {
			return "", "", nil, err
		}
		userID, err := a.UserID(ctx)
		if err != nil {
			return "", "", nil, err
		}
		ts, _, err := planwg.ResolveThread(rec, userID, threadFlag)
		if err != nil {
			return "", "", nil, err
		}
		return name, ts, rec, nil
	}

	sess, err := session.Load(a.WorkDir)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: pass --channel to target a thread directly", err)
	}
	rec, err := a.Store.Load(sess.Channel)
	if err != nil {
		return "", "", nil, err
	}
	if rec.Closed() {
		return "", "", nil, fmt.Errorf("%w: #%s is archived, pass --channel to target an active channel",
			planwg.ErrChannelClosed, sess.Channel)
	}
	ts := sess.ThreadTS
	if ts == "" || rec.Threads[ts] == nil {
		userID, err := a.UserID(ctx)
		if err != nil {
			return "", "", nil, err
		}
		ts, _, err = planwg.ResolveThread(rec, userID, "")
		if err != nil {
			return "", "", nil, err
		}
	}
	return sess.Channel, ts, rec, nil
}

// readPlan resolves the plan text from --plan-text or --plan-file.
func readPlan(planFile, planText string) (string, error) {
	if planText != "" {
		return planText, nil
	}
	if planFile != "" {
		data, err := os.ReadFile(planFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("provide --plan-text or --plan-file")
}

// parseFiles splits a comma-separated --files value.
func parseFiles(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var files []string
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}
