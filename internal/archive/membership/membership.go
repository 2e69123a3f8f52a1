// Package membership tracks which channels the bot has joined and decides,
// per channel, whether history can be fetched this run.
//
// Join handling is an explicit state machine: every Slack error code maps
// to exactly one outcome, and a channel recorded in the persisted joined
// set is never re-attempted. Skips are run-scoped only, so a channel the
// bot could not join today is retried by the next run.
package membership

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hmuro/slack-archiver/internal/slack"
)

// Outcome is the terminal membership state for one channel in one run.
type Outcome int

const (
	// OutcomeJoined means history can be fetched: the bot is in the
	// channel, either from this run's join or a prior run's.
	OutcomeJoined Outcome = iota

	// OutcomeSkipped means the channel is excluded for this run only
	// (unjoinable kind, or join rejected). Not persisted.
	OutcomeSkipped

	// OutcomeFailed means the join call failed for a reason that is not a
	// recognized skip code. The channel is excluded this run.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeJoined:
		return "joined"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Joiner is the slice of the Slack client the manager needs.
type Joiner interface {
	JoinChannel(ctx context.Context, channelID string) error
}

// Repository persists the joined-channel set across runs.
type Repository interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, channelIDs []string) error
}

type Manager struct {
	client Joiner
	repo   Repository
	logger *zerolog.Logger

	joined []string
	known  map[string]bool
}

func NewManager(client Joiner, repo Repository, logger *zerolog.Logger) *Manager {
	l := logger.With().Str("component", "membership").Logger()

	return &Manager{
		client: client,
		repo:   repo,
		logger: &l,
		known:  make(map[string]bool),
	}
}

// Load reads the persisted joined set. Must be called once at run start.
func (m *Manager) Load(ctx context.Context) error {
	ids, err := m.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load joined channels: %w", err)
	}

	m.joined = ids
	for _, id := range ids {
		m.known[id] = true
	}

	m.logger.Info().Int("channels", len(ids)).Msg("joined channel set loaded")

	return nil
}

// EnsureMembership drives one channel through the join state machine.
// Channels already in the persisted set short-circuit to OutcomeJoined
// without an API call. Each successful join is persisted immediately so a
// terminated run never re-joins on resumption.
func (m *Manager) EnsureMembership(ctx context.Context, ch slack.Channel) (Outcome, error) {
	if m.known[ch.ID] {
		return OutcomeJoined, nil
	}

	err := m.client.JoinChannel(ctx, ch.ID)
	if err == nil || slack.IsCode(err, slack.CodeAlreadyInChannel) {
		return OutcomeJoined, m.recordJoin(ctx, ch)
	}

	switch {
	case slack.IsCode(err, slack.CodeMethodNotSupported):
		m.logger.Info().Str("channel", ch.Name).Msg("channel kind not joinable, skipping")
		return OutcomeSkipped, nil
	case slack.IsCode(err, slack.CodeNotInChannel):
		m.logger.Info().Str("channel", ch.Name).Msg("join rejected, skipping")
		return OutcomeSkipped, nil
	}

	m.logger.Warn().Err(err).Str("channel", ch.Name).Msg("join failed")

	return OutcomeFailed, err
}

func (m *Manager) recordJoin(ctx context.Context, ch slack.Channel) error {
	m.joined = append(m.joined, ch.ID)
	m.known[ch.ID] = true

	if err := m.repo.Save(ctx, m.joined); err != nil {
		// The in-memory set stays valid; persistence is retried on the
		// next successful join or the next run.
		m.logger.Warn().Err(err).Str("channel", ch.Name).Msg("persisting joined set failed")
	}

	return nil
}
