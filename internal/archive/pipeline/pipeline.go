// Package pipeline orchestrates one capture run: discover channels, ensure
// membership, fetch history, normalize identities and text, materialize
// media, and publish one document per channel.
//
// Channels are processed one at a time end-to-end. Any per-channel failure
// is converted into a skip so the remaining channels still produce
// documents; the only global failure mode is being unable to authenticate
// or enumerate channels at all.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hmuro/slack-archiver/internal/archive/export"
	"github.com/hmuro/slack-archiver/internal/archive/history"
	"github.com/hmuro/slack-archiver/internal/archive/media"
	"github.com/hmuro/slack-archiver/internal/archive/membership"
	"github.com/hmuro/slack-archiver/internal/archive/render"
	"github.com/hmuro/slack-archiver/internal/archive/store"
	"github.com/hmuro/slack-archiver/internal/platform/config"
	"github.com/hmuro/slack-archiver/internal/platform/observability"
	"github.com/hmuro/slack-archiver/internal/slack"
)

const (
	channelTypes = "public_channel,private_channel"

	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"

	statusArchived = "archived"
	statusSkipped  = "skipped"
	statusFailed   = "failed"
)

// API is the full Slack client surface the pipeline consumes.
type API interface {
	TeamInfo(ctx context.Context) (slack.Team, error)
	ListChannels(ctx context.Context, types string, pageSize int) ([]slack.Channel, error)
	JoinChannel(ctx context.Context, channelID string) error
	History(ctx context.Context, channelID string, pageSize int) ([]slack.Message, error)
	Replies(ctx context.Context, channelID, threadTS string, pageSize int) ([]slack.Message, error)
	UserInfo(ctx context.Context, userID string) (slack.User, error)
	EmojiList(ctx context.Context) (map[string]string, error)
	Download(ctx context.Context, rawURL string) (io.ReadCloser, string, error)
}

var _ API = (*slack.Client)(nil)

// Summary reports the outcome of one capture run.
type Summary struct {
	RunID    string `json:"run_id"`
	Date     string `json:"date"`
	Archived int    `json:"archived"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

type Runner struct {
	cfg    *config.Config
	client API
	store  store.Store
	logger *zerolog.Logger

	// now is swappable so tests pin the archive date.
	now func() time.Time
}

func NewRunner(cfg *config.Config, client API, s store.Store, logger *zerolog.Logger) *Runner {
	l := logger.With().Str("component", "pipeline").Logger()

	return &Runner{
		cfg:    cfg,
		client: client,
		store:  s,
		logger: &l,
		now:    time.Now,
	}
}

// runContext holds the state shared by all channels of one run: the
// identity directory, the avatar path cache, and the rendering
// dependencies. It lives exactly as long as the run.
type runContext struct {
	runID        string
	date         string
	workspace    string
	directory    *render.Directory
	channels     []export.ChannelLink
	fetcher      *history.Fetcher
	materializer *media.Materializer
	renderer     *export.Renderer
	avatarPaths  map[string]string
}

// Run performs one full capture. It is safe to invoke repeatedly: documents
// are overwritten deterministically and media dedup makes re-runs cheap.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	started := r.now()
	defer func() {
		observability.RunDuration.Observe(time.Since(started).Seconds())
	}()

	summary := Summary{
		RunID: uuid.NewString(),
		Date:  started.Format(dateLayout),
	}

	logger := r.logger.With().Str("run_id", summary.RunID).Str("date", summary.Date).Logger()
	logger.Info().Msg("capture run starting")

	team, err := r.client.TeamInfo(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch workspace info: %w", err)
	}

	channels, err := r.client.ListChannels(ctx, channelTypes, r.cfg.ChannelPageSize)
	if err != nil {
		return summary, fmt.Errorf("list channels: %w", err)
	}

	rc, manager, err := r.newRunContext(ctx, summary, team, channels, &logger)
	if err != nil {
		return summary, err
	}

	for _, ch := range channels {
		status := r.processChannel(ctx, rc, manager, ch, &logger)
		observability.ChannelsProcessed.WithLabelValues(status).Inc()

		switch status {
		case statusArchived:
			summary.Archived++
		case statusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}

		if ctx.Err() != nil {
			return summary, fmt.Errorf("capture run: %w", ctx.Err())
		}
	}

	logger.Info().
		Int("archived", summary.Archived).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("capture run finished")

	return summary, nil
}

func (r *Runner) newRunContext(
	ctx context.Context,
	summary Summary,
	team slack.Team,
	channels []slack.Channel,
	logger *zerolog.Logger,
) (*runContext, *membership.Manager, error) {
	emoji, err := r.client.EmojiList(ctx)
	if err != nil {
		// Degrade to literal shortcodes rather than failing the run.
		logger.Warn().Err(err).Msg("emoji list unavailable")

		emoji = map[string]string{}
	}

	channelNames := make(map[string]string, len(channels))
	links := make([]export.ChannelLink, 0, len(channels))

	for _, ch := range channels {
		channelNames[ch.ID] = ch.Name
		links = append(links, export.ChannelLink{ID: ch.ID, Name: ch.Name})
	}

	manager := membership.NewManager(r.client, membership.NewStoreRepository(r.store, r.cfg.JoinedChannelsKey), logger)
	if err := manager.Load(ctx); err != nil {
		// An unreadable set costs redundant join attempts, not data.
		logger.Warn().Err(err).Msg("joined channel set unavailable, starting empty")
	}

	renderer, err := export.NewRenderer(r.store, logger)
	if err != nil {
		return nil, nil, err
	}

	rc := &runContext{
		runID:        summary.RunID,
		date:         summary.Date,
		workspace:    team.Name,
		directory:    render.NewDirectory(r.client, channelNames, emoji, logger),
		channels:     links,
		fetcher:      history.NewFetcher(r.client, r.cfg.HistoryPageSize, r.cfg.ThreadReplyLimit, logger),
		materializer: media.NewMaterializer(r.store, r.client, logger),
		renderer:     renderer,
		avatarPaths:  make(map[string]string),
	}

	return rc, manager, nil
}

// processChannel runs one channel end-to-end and reports its status. All
// errors are absorbed here so one channel can never abort the run.
func (r *Runner) processChannel(
	ctx context.Context,
	rc *runContext,
	manager *membership.Manager,
	ch slack.Channel,
	logger *zerolog.Logger,
) string {
	chLogger := logger.With().Str("channel", ch.Name).Str("channel_id", ch.ID).Logger()

	outcome, err := manager.EnsureMembership(ctx, ch)
	if outcome != membership.OutcomeJoined {
		if err != nil {
			chLogger.Warn().Err(err).Msg("membership failed, channel skipped this run")
			return statusFailed
		}

		return statusSkipped
	}

	threads, err := rc.fetcher.FetchChannel(ctx, ch.ID)
	if err != nil {
		chLogger.Warn().Err(err).Msg("history fetch failed, channel skipped this run")
		return statusFailed
	}

	doc := export.Document{
		ChannelName: ch.Name,
		Workspace:   rc.workspace,
		Channels:    rc.channels,
		Date:        rc.date,
		Messages:    make([]export.Message, 0, len(threads)),
	}

	for _, thread := range threads {
		doc.Messages = append(doc.Messages, r.buildMessage(ctx, rc, ch, thread))
	}

	if err := rc.renderer.Publish(ctx, doc); err != nil {
		chLogger.Warn().Err(err).Msg("document publish failed")
		return statusFailed
	}

	return statusArchived
}

func (r *Runner) buildMessage(ctx context.Context, rc *runContext, ch slack.Channel, thread history.Thread) export.Message {
	msg := thread.Parent
	identity := rc.directory.ResolveUser(ctx, msg.User)

	out := export.Message{
		UserName:  identity.Name,
		UserIcon:  r.avatarPath(ctx, rc, msg.User, identity),
		Text:      render.Text(ctx, msg.Text, rc.directory),
		Timestamp: formatTimestamp(msg.TS),
	}

	for _, file := range msg.Files {
		link := export.FileLink{Name: file.Name, Mimetype: file.Mimetype}

		key, err := rc.materializer.MaterializeFile(ctx, rc.date, ch.ID, file)
		if err != nil {
			// Non-fatal: the entry stays, only the link is absent.
			r.logger.Warn().Err(err).Str("file", file.Name).Msg("attachment materialization failed")
		} else {
			link.PublicPath = strings.TrimPrefix(key, rc.date+"/")
		}

		out.Files = append(out.Files, link)
	}

	for _, reaction := range msg.Reactions {
		out.Reactions = append(out.Reactions, export.Reaction{
			Emoji: render.Emoji(reaction.Name, rc.directory),
			Count: reaction.Count,
		})
	}

	for _, reply := range thread.Replies {
		replyIdentity := rc.directory.ResolveUser(ctx, reply.User)
		out.Replies = append(out.Replies, export.Reply{
			UserName:  replyIdentity.Name,
			Text:      render.Text(ctx, reply.Text, rc.directory),
			Timestamp: formatTimestamp(reply.TS),
		})
	}

	return out
}

// avatarPath materializes the sender's avatar at most once per run and
// returns its path relative to the dated document directory.
func (r *Runner) avatarPath(ctx context.Context, rc *runContext, userID string, identity render.Identity) string {
	if userID == "" || identity.AvatarURL == "" {
		return ""
	}

	if cached, ok := rc.avatarPaths[userID]; ok {
		return cached
	}

	key, err := rc.materializer.MaterializeAvatar(ctx, userID, identity.AvatarURL)
	if err != nil {
		r.logger.Warn().Err(err).Str("user", userID).Msg("avatar materialization failed")
		rc.avatarPaths[userID] = ""

		return ""
	}

	// Documents live under {date}/, avatars at the archive root.
	path := "../" + key
	rc.avatarPaths[userID] = path

	return path
}

// formatTimestamp renders a Slack ts ("1736900000.123456") as a local
// date-time string. Malformed values fall back to the raw ts.
func formatTimestamp(ts string) string {
	secs := ts
	if i := strings.Index(ts, "."); i >= 0 {
		secs = ts[:i]
	}

	epoch, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return ts
	}

	return time.Unix(epoch, 0).Format(timestampLayout)
}
