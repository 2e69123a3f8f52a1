package history

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmuro/slack-archiver/internal/slack"
)

type fakeSource struct {
	messages   []slack.Message
	historyErr error
	replies    map[string][]slack.Message
	replyErr   map[string]error
	replyCalls []string
}

func (f *fakeSource) History(_ context.Context, _ string, _ int) ([]slack.Message, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}

	return f.messages, nil
}

func (f *fakeSource) Replies(_ context.Context, _ string, threadTS string, _ int) ([]slack.Message, error) {
	f.replyCalls = append(f.replyCalls, threadTS)
	if err := f.replyErr[threadTS]; err != nil {
		return nil, err
	}

	return f.replies[threadTS], nil
}

func newTestFetcher(source *fakeSource, replyLimit int) *Fetcher {
	logger := zerolog.Nop()
	return NewFetcher(source, 100, replyLimit, &logger)
}

func TestFetchChannelReversesToOldestFirst(t *testing.T) {
	source := &fakeSource{
		messages: []slack.Message{
			{TS: "3.0", Text: "newest"},
			{TS: "2.0", Text: "middle"},
			{TS: "1.0", Text: "oldest"},
		},
	}

	threads, err := newTestFetcher(source, 0).FetchChannel(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, threads, 3)

	assert.Equal(t, "1.0", threads[0].Parent.TS)
	assert.Equal(t, "2.0", threads[1].Parent.TS)
	assert.Equal(t, "3.0", threads[2].Parent.TS)
}

func TestFetchChannelLeavesSourceOrderIntact(t *testing.T) {
	source := &fakeSource{
		messages: []slack.Message{
			{TS: "3.0", Text: "newest"},
			{TS: "2.0", Text: "middle"},
			{TS: "1.0", Text: "oldest"},
		},
	}

	fetcher := newTestFetcher(source, 0)

	first, err := fetcher.FetchChannel(context.Background(), "C1")
	require.NoError(t, err)

	second, err := fetcher.FetchChannel(context.Background(), "C1")
	require.NoError(t, err)

	assert.Equal(t, first, second, "repeated fetches must order identically")
	assert.Equal(t, "3.0", source.messages[0].TS, "the source's slice must not be reordered")
	assert.Equal(t, "1.0", second[0].Parent.TS)
}

func TestFetchChannelAttachesReplies(t *testing.T) {
	source := &fakeSource{
		messages: []slack.Message{
			{TS: "2.0", Text: "no thread"},
			{TS: "1.0", Text: "parent", ThreadTS: "1.0", ReplyCount: 2},
		},
		replies: map[string][]slack.Message{
			"1.0": {{TS: "1.1", Text: "first"}, {TS: "1.2", Text: "second"}},
		},
	}

	threads, err := newTestFetcher(source, 0).FetchChannel(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, threads, 2)

	assert.Len(t, threads[0].Replies, 2)
	assert.Empty(t, threads[1].Replies)
	assert.Equal(t, []string{"1.0"}, source.replyCalls, "only threaded messages trigger reply fetches")
}

func TestFetchChannelReplyLimit(t *testing.T) {
	source := &fakeSource{
		messages: []slack.Message{
			{TS: "1.0", ThreadTS: "1.0", ReplyCount: 3},
		},
		replies: map[string][]slack.Message{
			"1.0": {{TS: "1.1"}, {TS: "1.2"}, {TS: "1.3"}},
		},
	}

	threads, err := newTestFetcher(source, 2).FetchChannel(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Len(t, threads[0].Replies, 2)
}

func TestFetchChannelThreadFailureDegrades(t *testing.T) {
	source := &fakeSource{
		messages: []slack.Message{
			{TS: "1.0", ThreadTS: "1.0", ReplyCount: 1},
		},
		replyErr: map[string]error{"1.0": errors.New("upstream error")},
	}

	threads, err := newTestFetcher(source, 0).FetchChannel(context.Background(), "C1")
	require.NoError(t, err, "a failing thread must not fail the channel")
	require.Len(t, threads, 1)
	assert.Empty(t, threads[0].Replies)
}

func TestFetchChannelHistoryFailure(t *testing.T) {
	source := &fakeSource{historyErr: errors.New("listing failed")}

	_, err := newTestFetcher(source, 0).FetchChannel(context.Background(), "C1")
	assert.Error(t, err)
}
