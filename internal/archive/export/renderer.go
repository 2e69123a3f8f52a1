package export

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hmuro/slack-archiver/internal/archive/store"
	"github.com/hmuro/slack-archiver/internal/platform/observability"
)

//go:embed templates/channel.html
var templateFS embed.FS

const documentContentType = "text/html; charset=utf-8"

type Renderer struct {
	tmpl   *template.Template
	store  store.Store
	logger *zerolog.Logger
}

func NewRenderer(s store.Store, logger *zerolog.Logger) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/channel.html")
	if err != nil {
		return nil, fmt.Errorf("parse channel template: %w", err)
	}

	l := logger.With().Str("component", "export").Logger()

	return &Renderer{
		tmpl:   tmpl,
		store:  s,
		logger: &l,
	}, nil
}

// DocumentKey is the deterministic document key for one channel and date.
func DocumentKey(date, channelName string) string {
	return fmt.Sprintf("%s/%s.html", date, channelName)
}

// Render produces the complete HTML document for doc. Output depends only
// on the document model, so unchanged input yields byte-identical pages.
func (r *Renderer) Render(doc Document) (string, error) {
	var sb strings.Builder

	if err := r.tmpl.Execute(&sb, doc); err != nil {
		return "", fmt.Errorf("render %s: %w", doc.ChannelName, err)
	}

	return sb.String(), nil
}

// Publish renders doc and writes it to the archive store, overwriting any
// prior document at the same (date, channel) key.
func (r *Renderer) Publish(ctx context.Context, doc Document) error {
	html, err := r.Render(doc)
	if err != nil {
		observability.DocumentsPublished.WithLabelValues("render_failed").Inc()
		return err
	}

	key := DocumentKey(doc.Date, doc.ChannelName)

	if err := r.store.WriteText(ctx, key, html, documentContentType); err != nil {
		observability.DocumentsPublished.WithLabelValues("publish_failed").Inc()
		return fmt.Errorf("publish %s: %w", key, err)
	}

	observability.DocumentsPublished.WithLabelValues("published").Inc()
	r.logger.Info().Str("key", key).Int("messages", len(doc.Messages)).Msg("document published")

	return nil
}
