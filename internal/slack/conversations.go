package slack

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// TeamInfo fetches the workspace identity. Called once per run.
func (c *Client) TeamInfo(ctx context.Context) (Team, error) {
	var resp teamInfoResponse
	if err := c.callAPI(ctx, "team.info", url.Values{}, &resp); err != nil {
		return Team{}, err
	}

	return resp.Team, nil
}

// ListChannels pages through conversations.list and accumulates every page
// into one slice. Later stages need the complete set for id→name resolution,
// so pages are never processed independently.
func (c *Client) ListChannels(ctx context.Context, types string, pageSize int) ([]Channel, error) {
	var (
		channels []Channel
		cursor   string
	)

	for {
		params := url.Values{
			"types": {types},
			"limit": {strconv.Itoa(pageSize)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp channelListResponse
		if err := c.callAPI(ctx, "conversations.list", params, &resp); err != nil {
			return nil, err
		}

		channels = append(channels, resp.Channels...)

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			return channels, nil
		}
	}
}

// JoinChannel joins the bot to a channel. Join storms are the most common
// throttling trigger, so a dedicated cooldown follows every successful join
// on top of the per-call limiter.
func (c *Client) JoinChannel(ctx context.Context, channelID string) error {
	var resp apiEnvelope
	if err := c.callAPI(ctx, "conversations.join", url.Values{"channel": {channelID}}, &resp); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("join cooldown: %w", ctx.Err())
	case <-time.After(c.joinCooldown):
	}

	return nil
}

// History pages through conversations.history for one channel, accumulating
// every page. Messages arrive newest-first as Slack returns them; callers
// reverse before rendering.
func (c *Client) History(ctx context.Context, channelID string, pageSize int) ([]Message, error) {
	var (
		messages []Message
		cursor   string
	)

	for {
		params := url.Values{
			"channel": {channelID},
			"limit":   {strconv.Itoa(pageSize)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp historyResponse
		if err := c.callAPI(ctx, "conversations.history", params, &resp); err != nil {
			return nil, err
		}

		messages = append(messages, resp.Messages...)

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			return messages, nil
		}
	}
}

// Replies pages through conversations.replies for one thread. The first
// element of a raw reply page is the parent message itself and is dropped
// so the parent never appears as its own reply.
func (c *Client) Replies(ctx context.Context, channelID, threadTS string, pageSize int) ([]Message, error) {
	var (
		replies []Message
		cursor  string
	)

	for {
		params := url.Values{
			"channel": {channelID},
			"ts":      {threadTS},
			"limit":   {strconv.Itoa(pageSize)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp historyResponse
		if err := c.callAPI(ctx, "conversations.replies", params, &resp); err != nil {
			return nil, err
		}

		page := resp.Messages
		if len(page) > 0 && page[0].TS == threadTS {
			page = page[1:]
		}

		replies = append(replies, page...)

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			return replies, nil
		}
	}
}

// UserInfo looks up one workspace member.
func (c *Client) UserInfo(ctx context.Context, userID string) (User, error) {
	var resp userInfoResponse
	if err := c.callAPI(ctx, "users.info", url.Values{"user": {userID}}, &resp); err != nil {
		return User{}, err
	}

	return resp.User, nil
}

// EmojiList fetches the workspace custom emoji directory, mapping shortcode
// names to image URLs.
func (c *Client) EmojiList(ctx context.Context) (map[string]string, error) {
	var resp emojiListResponse
	if err := c.callAPI(ctx, "emoji.list", url.Values{}, &resp); err != nil {
		return nil, err
	}

	return resp.Emoji, nil
}
