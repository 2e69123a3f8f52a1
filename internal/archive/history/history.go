// Package history retrieves the complete message set of a channel,
// including thread replies, through the rate-limited Slack client.
package history

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hmuro/slack-archiver/internal/slack"
)

// Source is the slice of the Slack client the fetcher needs.
type Source interface {
	History(ctx context.Context, channelID string, pageSize int) ([]slack.Message, error)
	Replies(ctx context.Context, channelID, threadTS string, pageSize int) ([]slack.Message, error)
}

// Thread pairs a parent message with its ordered replies.
type Thread struct {
	Parent  slack.Message
	Replies []slack.Message
}

type Fetcher struct {
	source   Source
	pageSize int

	// replyLimit caps how many replies are fetched per thread; zero means
	// unbounded. The cap is a cost control, not a correctness requirement.
	replyLimit int

	logger *zerolog.Logger
}

func NewFetcher(source Source, pageSize, replyLimit int, logger *zerolog.Logger) *Fetcher {
	l := logger.With().Str("component", "history").Logger()

	return &Fetcher{
		source:     source,
		pageSize:   pageSize,
		replyLimit: replyLimit,
		logger:     &l,
	}
}

// FetchChannel returns every message in the channel oldest-first, each with
// its thread replies attached. A failure fetching one thread degrades that
// message to zero replies instead of failing the channel.
func (f *Fetcher) FetchChannel(ctx context.Context, channelID string) ([]Thread, error) {
	messages, err := f.source.History(ctx, channelID, f.pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", channelID, err)
	}

	// Slack returns newest-first; the document reads oldest-first. The
	// source may return shared or cached data, so order into a fresh
	// slice instead of reversing in place.
	ordered := make([]slack.Message, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		ordered = append(ordered, messages[i])
	}

	threads := make([]Thread, 0, len(ordered))

	for _, msg := range ordered {
		thread := Thread{Parent: msg}

		if msg.ReplyCount > 0 && msg.ThreadTS != "" {
			replies, err := f.source.Replies(ctx, channelID, msg.ThreadTS, f.pageSize)
			if err != nil {
				f.logger.Warn().Err(err).Str("channel", channelID).Str("thread_ts", msg.ThreadTS).Msg("thread fetch failed")
			} else {
				if f.replyLimit > 0 && len(replies) > f.replyLimit {
					replies = replies[:f.replyLimit]
				}

				thread.Replies = replies
			}
		}

		threads = append(threads, thread)
	}

	return threads, nil
}
