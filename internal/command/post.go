package command

import (
	"context"

	"github.com/agentworkforce/planwg/internal/channel"
	"github.com/agentworkforce/planwg/internal/planwg"
)

// postPlan posts a plan into a channel and returns its thread record. A
// plan with headings goes out as an anchor overview plus one top-level
// message per section; anything else is a single message. The returned
// thread is keyed by the anchor (or single message) id.
func postPlan(ctx context.Context, app *App, channelID, channelName, owner, plan string, version int, files []string) (string, *planwg.Thread, error) {
	if files == nil {
		files = []string{}
	}
	contents := planwg.ParseSections(plan)

	if len(contents) == 0 {
		msg := channel.FormatPlanMessage(plan, version, channelName)
		ts, err := app.Channel.PostMessage(ctx, channelID, "", msg)
		if err != nil {
			return "", nil, err
		}
		return ts, &planwg.Thread{
			Owner:   owner,
			TS:      ts,
			Version: version,
			Status:  planwg.StatusAwaitingFeedback,
			Files:   files,
			PlanVersions: []planwg.PlanVersion{{
				Version:  version,
				Text:     plan,
				PostedAt: planwg.NowISO(),
			}},
			Feedback: []planwg.FeedbackItem{},
		}, nil
	}

	titles := make([]string, len(contents))
	for i, c := range contents {
		titles[i] = planwg.HeadingTitle(c.Heading, i+1)
	}
	anchorTS, err := app.Channel.PostMessage(ctx, channelID, "",
		channel.FormatAnchorMessage(version, channelName, titles))
	if err != nil {
		return "", nil, err
	}

	sectionIDs := make([]string, len(contents))
	for i, c := range contents {
		ts, err := app.Channel.PostMessage(ctx, channelID, "",
			channel.FormatSectionMessage(c.Heading, c.Body))
		if err != nil {
			return "", nil, err
		}
		sectionIDs[i] = ts
	}

	t := &planwg.Thread{
		Owner:   owner,
		TS:      anchorTS,
		Version: version,
		Status:  planwg.StatusAwaitingFeedback,
		Files:   files,
		PlanVersions: []planwg.PlanVersion{{
			Version:  version,
			Text:     plan,
			PostedAt: planwg.NowISO(),
		}},
		Feedback: []planwg.FeedbackItem{},
	}
	planwg.AttachSections(t, contents, sectionIDs)
	return anchorTS, t, nil
}
