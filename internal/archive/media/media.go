// Package media materializes remotely-hosted Slack assets (attachments and
// avatars) into the archive store under deterministic keys.
//
// Every materialization checks the store before downloading, which is what
// makes repeated runs cheap: an asset already archived is never fetched
// again. Attachments are scoped by date and channel so the same filename in
// two channels never collides; avatars use a global key and are fetched at
// most once ever, accepting staleness over redundant downloads.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hmuro/slack-archiver/internal/archive/store"
	"github.com/hmuro/slack-archiver/internal/platform/observability"
	"github.com/hmuro/slack-archiver/internal/slack"
)

const (
	kindAttachment = "attachment"
	kindAvatar     = "avatar"

	outcomeDownloaded = "downloaded"
	outcomeCached     = "cached"
	outcomeFailed     = "failed"

	defaultAvatarExt = ".png"
)

// Downloader is the slice of the Slack client the materializer needs.
type Downloader interface {
	Download(ctx context.Context, rawURL string) (io.ReadCloser, string, error)
}

type Materializer struct {
	store      store.Store
	downloader Downloader
	logger     *zerolog.Logger
}

func NewMaterializer(s store.Store, d Downloader, logger *zerolog.Logger) *Materializer {
	l := logger.With().Str("component", "media").Logger()

	return &Materializer{
		store:      s,
		downloader: d,
		logger:     &l,
	}
}

// FileKey is the deterministic attachment key: the date scopes runs, the
// channel id scopes identically-named files across channels.
func FileKey(date, channelID, filename string) string {
	return fmt.Sprintf("%s/media/%s/%s", date, channelID, path.Base(filename))
}

// AvatarKey is the global avatar key. Not dated: avatars are assumed stable
// enough that one copy serves every archive date.
func AvatarKey(userID, sourceURL string) string {
	ext := path.Ext(strings.SplitN(path.Base(sourceURL), "?", 2)[0])
	if ext == "" {
		ext = defaultAvatarExt
	}

	return "avatars/" + userID + ext
}

// MaterializeFile archives one attachment and returns its store key. A
// failed download returns an error; callers render the message without the
// file link and continue.
func (m *Materializer) MaterializeFile(ctx context.Context, date, channelID string, file slack.File) (string, error) {
	name, err := attachmentName(file)
	if err != nil {
		return "", err
	}

	key := FileKey(date, channelID, name)

	archived, err := m.materialize(ctx, kindAttachment, key, file.URLPrivate, file.Mimetype)
	if err != nil {
		return "", err
	}

	if archived {
		m.logger.Debug().Str("key", key).Msg("attachment archived")
	}

	return key, nil
}

// attachmentName yields a usable key segment for an attachment, falling
// back to the file id when the reported name is empty or path-like.
func attachmentName(file slack.File) (string, error) {
	name := path.Base(file.Name)
	if name != "" && name != "." && name != ".." && name != "/" {
		return name, nil
	}

	if file.ID != "" {
		return file.ID, nil
	}

	return "", fmt.Errorf("attachment has no usable name or id")
}

// MaterializeAvatar archives one avatar and returns its store key. Existing
// avatars are never overwritten.
func (m *Materializer) MaterializeAvatar(ctx context.Context, userID, sourceURL string) (string, error) {
	if !strings.HasPrefix(sourceURL, "http") {
		return "", fmt.Errorf("avatar for %s has no downloadable url", userID)
	}

	key := AvatarKey(userID, sourceURL)

	if _, err := m.materialize(ctx, kindAvatar, key, sourceURL, ""); err != nil {
		return "", err
	}

	return key, nil
}

// materialize downloads source into key unless the blob already exists.
// Returns true when a download happened.
func (m *Materializer) materialize(ctx context.Context, kind, key, source, contentType string) (bool, error) {
	exists, err := m.store.Exists(ctx, key)
	if err != nil {
		observability.FilesMaterialized.WithLabelValues(kind, outcomeFailed).Inc()
		return false, fmt.Errorf("existence check %s: %w", key, err)
	}

	if exists {
		observability.FilesMaterialized.WithLabelValues(kind, outcomeCached).Inc()
		return false, nil
	}

	body, downloadedType, err := m.downloader.Download(ctx, source)
	if err != nil {
		observability.FilesMaterialized.WithLabelValues(kind, outcomeFailed).Inc()
		return false, fmt.Errorf("download %s: %w", key, err)
	}
	defer body.Close()

	if contentType == "" {
		contentType = downloadedType
	}

	if err := m.store.Write(ctx, key, body, contentType); err != nil {
		observability.FilesMaterialized.WithLabelValues(kind, outcomeFailed).Inc()
		return false, fmt.Errorf("store %s: %w", key, err)
	}

	observability.FilesMaterialized.WithLabelValues(kind, outcomeDownloaded).Inc()

	return true, nil
}
