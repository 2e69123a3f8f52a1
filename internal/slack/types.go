package slack

// Team describes the workspace being archived.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Channel is a conversation as returned by conversations.list.
type Channel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsChannel bool   `json:"is_channel"`
	IsPrivate bool   `json:"is_private"`
	IsMember  bool   `json:"is_member"`
}

// Message is a single channel message or thread reply. Replies share the
// shape of messages; a reply carries the parent's ts in ThreadTS.
type Message struct {
	TS         string     `json:"ts"`
	User       string     `json:"user"`
	BotID      string     `json:"bot_id"`
	Text       string     `json:"text"`
	ThreadTS   string     `json:"thread_ts"`
	ReplyCount int        `json:"reply_count"`
	Files      []File     `json:"files"`
	Reactions  []Reaction `json:"reactions"`
}

// File is an attachment reference. URLPrivate requires bearer
// authentication to download.
type File struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Mimetype   string `json:"mimetype"`
	URLPrivate string `json:"url_private"`
}

// Reaction is an emoji reaction aggregated with its count.
type Reaction struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// User is a workspace member as returned by users.info.
type User struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Profile Profile `json:"profile"`
}

type Profile struct {
	DisplayName string `json:"display_name"`
	RealName    string `json:"real_name"`
	Image48     string `json:"image_48"`
}

// responseMetadata carries the opaque cursor for paginated endpoints.
// An empty cursor means the final page.
type responseMetadata struct {
	NextCursor string `json:"next_cursor"`
}

type apiEnvelope struct {
	OK               bool             `json:"ok"`
	Error            string           `json:"error"`
	ResponseMetadata responseMetadata `json:"response_metadata"`
}

type teamInfoResponse struct {
	apiEnvelope
	Team Team `json:"team"`
}

type channelListResponse struct {
	apiEnvelope
	Channels []Channel `json:"channels"`
}

type historyResponse struct {
	apiEnvelope
	Messages []Message `json:"messages"`
}

type userInfoResponse struct {
	apiEnvelope
	User User `json:"user"`
}

type emojiListResponse struct {
	apiEnvelope
	Emoji map[string]string `json:"emoji"`
}
