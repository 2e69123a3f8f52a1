package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmuro/slack-archiver/internal/archive/store"
	"github.com/hmuro/slack-archiver/internal/slack"
)

type fakeDownloader struct {
	content string
	err     error
	calls   int
}

func (f *fakeDownloader) Download(_ context.Context, _ string) (io.ReadCloser, string, error) {
	f.calls++
	if f.err != nil {
		return nil, "", f.err
	}

	return io.NopCloser(strings.NewReader(f.content)), "image/png", nil
}

func newTestMaterializer(t *testing.T, d *fakeDownloader) (*Materializer, store.Store) {
	t.Helper()

	local, err := store.NewLocal(t.TempDir())
	require.NoError(t, err)

	logger := zerolog.Nop()

	return NewMaterializer(local, d, &logger), local
}

func TestFileKeyScoping(t *testing.T) {
	a := FileKey("2025-01-01", "C1", "report.pdf")
	b := FileKey("2025-01-01", "C2", "report.pdf")
	c := FileKey("2025-01-02", "C1", "report.pdf")

	assert.Equal(t, "2025-01-01/media/C1/report.pdf", a)
	assert.NotEqual(t, a, b, "same filename in two channels must not collide")
	assert.NotEqual(t, a, c, "different days must not collide")
}

func TestAvatarKey(t *testing.T) {
	assert.Equal(t, "avatars/U9.jpg", AvatarKey("U9", "https://a.example/img/orig.jpg?v=2"))
	assert.Equal(t, "avatars/U9.png", AvatarKey("U9", "https://a.example/img/orig"))
}

func TestMaterializeFileDownloadsOnce(t *testing.T) {
	downloader := &fakeDownloader{content: "bytes"}
	m, s := newTestMaterializer(t, downloader)

	file := slack.File{Name: "report.pdf", Mimetype: "application/pdf", URLPrivate: "https://files.example/report"}

	key, err := m.MaterializeFile(context.Background(), "2025-01-01", "C1", file)
	require.NoError(t, err)
	assert.Equal(t, 1, downloader.calls)

	exists, err := s.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, exists)

	// Second run, same date: existence check wins, no download.
	_, err = m.MaterializeFile(context.Background(), "2025-01-01", "C1", file)
	require.NoError(t, err)
	assert.Equal(t, 1, downloader.calls, "re-run must not re-download")
}

func TestMaterializeFileNamelessFallsBackToID(t *testing.T) {
	downloader := &fakeDownloader{content: "bytes"}
	m, s := newTestMaterializer(t, downloader)

	key, err := m.MaterializeFile(context.Background(), "2025-01-01", "C1",
		slack.File{ID: "F123", URLPrivate: "https://files.example/f123"})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01/media/C1/F123", key)

	exists, err := s.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = m.MaterializeFile(context.Background(), "2025-01-01", "C1",
		slack.File{URLPrivate: "https://files.example/anon"})
	assert.Error(t, err, "no name and no id cannot produce a key")
}

func TestMaterializeFileFailure(t *testing.T) {
	downloader := &fakeDownloader{err: errors.New("network down")}
	m, _ := newTestMaterializer(t, downloader)

	_, err := m.MaterializeFile(context.Background(), "2025-01-01", "C1", slack.File{Name: "x", URLPrivate: "https://files.example/x"})
	assert.Error(t, err)
}

func TestMaterializeAvatarGlobalDedup(t *testing.T) {
	downloader := &fakeDownloader{content: "png"}
	m, _ := newTestMaterializer(t, downloader)

	key, err := m.MaterializeAvatar(context.Background(), "U9", "https://a.example/img.png")
	require.NoError(t, err)
	assert.Equal(t, "avatars/U9.png", key)
	assert.Equal(t, 1, downloader.calls)

	// Different day, same user: global key, no second download ever.
	_, err = m.MaterializeAvatar(context.Background(), "U9", "https://a.example/img.png")
	require.NoError(t, err)
	assert.Equal(t, 1, downloader.calls)
}

func TestMaterializeAvatarRequiresURL(t *testing.T) {
	m, _ := newTestMaterializer(t, &fakeDownloader{})

	_, err := m.MaterializeAvatar(context.Background(), "U9", "/static/default_avatar.png")
	assert.Error(t, err)
}
