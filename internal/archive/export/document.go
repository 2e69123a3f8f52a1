// Package export assembles the per-channel document model and renders it to
// the archive store as a static HTML page.
package export

import "html/template"

// Document is the model handed to the page template. All HTML-typed fields
// are pre-sanitized upstream; the template escapes nothing further.
type Document struct {
	ChannelName string
	Workspace   string
	Channels    []ChannelLink
	Messages    []Message
	Date        string
}

// ChannelLink cross-links the sibling documents of the same date.
type ChannelLink struct {
	ID   string
	Name string
}

type Message struct {
	UserName  string
	UserIcon  string
	Text      template.HTML
	Timestamp string
	Files     []FileLink
	Reactions []Reaction
	Replies   []Reply
}

// FileLink references an attachment. PublicPath is empty when
// materialization failed; the template then shows the name without a link.
type FileLink struct {
	Name       string
	Mimetype   string
	PublicPath string
}

type Reaction struct {
	Emoji template.HTML
	Count int
}

type Reply struct {
	UserName  string
	Text      template.HTML
	Timestamp string
}
