package export

import (
	"context"
	"html/template"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmuro/slack-archiver/internal/archive/store"
)

func newTestRenderer(t *testing.T) (*Renderer, store.Store) {
	t.Helper()

	local, err := store.NewLocal(t.TempDir())
	require.NoError(t, err)

	logger := zerolog.Nop()

	r, err := NewRenderer(local, &logger)
	require.NoError(t, err)

	return r, local
}

func sampleDocument() Document {
	return Document{
		ChannelName: "general",
		Workspace:   "Acme",
		Date:        "2025-01-01",
		Channels: []ChannelLink{
			{ID: "C1", Name: "general"},
			{ID: "C2", Name: "random"},
		},
		Messages: []Message{
			{
				UserName:  "Alice",
				UserIcon:  "../avatars/U1.png",
				Text:      template.HTML(`hi <span class="mention">@Bob</span>`),
				Timestamp: "2025-01-01 09:00:00",
				Files: []FileLink{
					{Name: "report.pdf", Mimetype: "application/pdf", PublicPath: "media/C1/report.pdf"},
					{Name: "lost.png", Mimetype: "image/png"},
				},
				Reactions: []Reaction{{Emoji: ":+1:", Count: 2}},
				Replies: []Reply{
					{UserName: "Bob", Text: "hello", Timestamp: "2025-01-01 09:01:00"},
				},
			},
		},
	}
}

func TestRenderContainsContractFields(t *testing.T) {
	r, _ := newTestRenderer(t)

	html, err := r.Render(sampleDocument())
	require.NoError(t, err)

	assert.Contains(t, html, "#general")
	assert.Contains(t, html, "Acme")
	assert.Contains(t, html, "2025-01-01")
	assert.Contains(t, html, `<span class="mention">@Bob</span>`, "pre-sanitized HTML passes through unescaped")
	assert.Contains(t, html, `<a href="media/C1/report.pdf">report.pdf</a>`)
	assert.Contains(t, html, "lost.png (image/png)")
	assert.NotContains(t, html, `<a href="">lost.png`, "unmaterialized files render without a link")
	assert.Contains(t, html, `<a href="random.html">#random</a>`)
}

func TestRenderDeterministic(t *testing.T) {
	r, _ := newTestRenderer(t)

	first, err := r.Render(sampleDocument())
	require.NoError(t, err)

	second, err := r.Render(sampleDocument())
	require.NoError(t, err)

	assert.Equal(t, first, second, "unchanged input must yield byte-identical output")
}

func TestPublishOverwrites(t *testing.T) {
	ctx := context.Background()
	r, s := newTestRenderer(t)

	doc := sampleDocument()
	require.NoError(t, r.Publish(ctx, doc))

	doc.Messages = nil
	require.NoError(t, r.Publish(ctx, doc))

	content, err := s.ReadText(ctx, DocumentKey("2025-01-01", "general"))
	require.NoError(t, err)
	assert.NotContains(t, content, "Alice", "re-publish replaces the prior document")
}
