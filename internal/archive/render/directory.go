// Package render resolves Slack identities and turns raw message markup
// into safe HTML fragments for the archive documents.
package render

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hmuro/slack-archiver/internal/slack"
)

// UnknownName is the display name for senders that cannot be resolved
// (deleted users, bots without profiles).
const UnknownName = "Unknown"

// Identity is a resolved workspace member.
type Identity struct {
	Name      string
	AvatarURL string
}

// UserLookup is the slice of the Slack client the directory needs.
type UserLookup interface {
	UserInfo(ctx context.Context, userID string) (slack.User, error)
}

// Directory holds the run-scoped identity caches. It is constructed once
// per capture run and passed into each stage; nothing here is global, so
// concurrent runs cannot cross-contaminate.
type Directory struct {
	client UserLookup
	logger *zerolog.Logger

	users    map[string]Identity
	channels map[string]string
	emoji    map[string]string
}

func NewDirectory(client UserLookup, channels, emoji map[string]string, logger *zerolog.Logger) *Directory {
	l := logger.With().Str("component", "directory").Logger()

	if channels == nil {
		channels = make(map[string]string)
	}

	if emoji == nil {
		emoji = make(map[string]string)
	}

	return &Directory{
		client:   client,
		logger:   &l,
		users:    make(map[string]Identity),
		channels: channels,
		emoji:    emoji,
	}
}

// ResolveUser returns the identity for userID, calling the API at most once
// per user per run. Lookup failures cache the Unknown fallback so a broken
// user never triggers repeated calls.
func (d *Directory) ResolveUser(ctx context.Context, userID string) Identity {
	if userID == "" {
		return Identity{Name: UnknownName}
	}

	if identity, ok := d.users[userID]; ok {
		return identity
	}

	user, err := d.client.UserInfo(ctx, userID)
	if err != nil {
		d.logger.Warn().Err(err).Str("user", userID).Msg("user lookup failed")

		fallback := Identity{Name: UnknownName}
		d.users[userID] = fallback

		return fallback
	}

	name := user.Profile.DisplayName
	if name == "" {
		name = user.Profile.RealName
	}

	if name == "" {
		name = user.Name
	}

	if name == "" {
		name = UnknownName
	}

	identity := Identity{Name: name, AvatarURL: user.Profile.Image48}
	d.users[userID] = identity

	return identity
}

// ChannelName resolves a channel id to its name, or empty when unknown.
func (d *Directory) ChannelName(channelID string) string {
	return d.channels[channelID]
}

// EmojiURL resolves a custom emoji shortcode to its image URL, or empty
// when the shortcode is standard Unicode or unknown.
func (d *Directory) EmojiURL(name string) string {
	return d.emoji[name]
}
