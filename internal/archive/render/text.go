package render

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"
)

// Escaped delimiters of Slack's bracketed tokens. Rewriting runs on
// escaped text, so the scanner matches the escaped forms; this is what
// makes escaping and rewriting compose without double-escaping.
const (
	tokenOpen  = "&lt;"
	tokenClose = "&gt;"
)

var emojiPattern = regexp.MustCompile(`:([a-zA-Z0-9_\-\+]+):`)

// Text renders raw Slack message markup into a safe HTML fragment.
//
// Order matters and is fixed: the raw text is HTML-escaped first so no
// injected markup survives, then bracketed mention/link tokens are
// rewritten in a single pass, then emoji shortcodes, then newlines.
func Text(ctx context.Context, raw string, dir *Directory) template.HTML {
	out := html.EscapeString(raw)
	out = rewriteTokens(ctx, out, dir)
	out = rewriteEmoji(out, dir)
	out = strings.ReplaceAll(out, "\n", "<br>")

	return template.HTML(out) //nolint:gosec // output is escaped above; only markup from this package is introduced
}

// rewriteTokens scans once for &lt;…&gt; token pairs and resolves each
// against the directories. Unrecognized tokens are left as escaped text.
func rewriteTokens(ctx context.Context, escaped string, dir *Directory) string {
	var sb strings.Builder

	rest := escaped

	for {
		start := strings.Index(rest, tokenOpen)
		if start < 0 {
			sb.WriteString(rest)
			break
		}

		end := strings.Index(rest[start+len(tokenOpen):], tokenClose)
		if end < 0 {
			sb.WriteString(rest)
			break
		}

		sb.WriteString(rest[:start])

		body := rest[start+len(tokenOpen) : start+len(tokenOpen)+end]
		sb.WriteString(renderToken(ctx, body, dir))

		rest = rest[start+len(tokenOpen)+end+len(tokenClose):]
	}

	return sb.String()
}

// renderToken renders one token body (delimiters stripped, still escaped).
func renderToken(ctx context.Context, body string, dir *Directory) string {
	switch {
	case strings.HasPrefix(body, "@"):
		return renderUserMention(ctx, body[1:], dir)
	case strings.HasPrefix(body, "#"):
		return renderChannelMention(body[1:], dir)
	case strings.HasPrefix(body, "!"):
		return fmt.Sprintf(`<span class="mention">@%s</span>`, splitLabel(body[1:]))
	case strings.HasPrefix(body, "mailto:"):
		addr, label := splitLink(body[len("mailto:"):])
		return fmt.Sprintf(`<a href="mailto:%s">%s</a>`, addr, label)
	case strings.HasPrefix(body, "http"):
		href, label := splitLink(body)
		return fmt.Sprintf(`<a href="%s">%s</a>`, href, label)
	}

	// Not a known token kind; keep the escaped literal.
	return tokenOpen + body + tokenClose
}

func renderUserMention(ctx context.Context, body string, dir *Directory) string {
	id, label := body, ""
	if i := strings.Index(body, "|"); i >= 0 {
		id, label = body[:i], body[i+1:]
	}

	if label == "" {
		label = dir.ResolveUser(ctx, id).Name
	}

	return fmt.Sprintf(`<span class="mention">@%s</span>`, label)
}

func renderChannelMention(body string, dir *Directory) string {
	id, label := body, ""
	if i := strings.Index(body, "|"); i >= 0 {
		id, label = body[:i], body[i+1:]
	}

	if label == "" {
		label = dir.ChannelName(id)
	}

	if label == "" {
		label = id
	}

	return fmt.Sprintf(`<span class="channel-mention">#%s</span>`, label)
}

// splitLink separates an url|label token, defaulting the label to the url.
func splitLink(body string) (href, label string) {
	if i := strings.Index(body, "|"); i >= 0 {
		return body[:i], body[i+1:]
	}

	return body, body
}

func splitLabel(body string) string {
	if i := strings.Index(body, "|"); i >= 0 {
		return body[i+1:]
	}

	return body
}

// rewriteEmoji replaces :shortcode: occurrences with custom emoji images.
// Unmapped shortcodes stay literal; standard Unicode emoji render as-is.
func rewriteEmoji(escaped string, dir *Directory) string {
	return emojiPattern.ReplaceAllStringFunc(escaped, func(match string) string {
		name := strings.Trim(match, ":")

		url := dir.EmojiURL(name)
		if url == "" {
			return match
		}

		return fmt.Sprintf(`<img src="%s" alt=":%s:" class="emoji">`, html.EscapeString(url), name)
	})
}

// Emoji renders one reaction emoji name as HTML, used for reaction rows.
func Emoji(name string, dir *Directory) template.HTML {
	url := dir.EmojiURL(name)
	if url == "" {
		return template.HTML(html.EscapeString(":" + name + ":")) //nolint:gosec // escaped literal
	}

	out := fmt.Sprintf(`<img src="%s" alt=":%s:" class="emoji">`, html.EscapeString(url), html.EscapeString(name))

	return template.HTML(out) //nolint:gosec // all interpolations escaped
}
