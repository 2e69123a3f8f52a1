package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := zerolog.Nop()
	client := New("xoxb-test", Options{
		BaseURL:      srv.URL,
		MinInterval:  time.Millisecond,
		JoinCooldown: time.Millisecond,
	}, &logger)

	return client, srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestListChannelsPaginationCompleteness(t *testing.T) {
	pages := map[string]map[string]any{
		"": {
			"ok":                true,
			"channels":          []map[string]any{{"id": "C1", "name": "one"}, {"id": "C2", "name": "two"}},
			"response_metadata": map[string]string{"next_cursor": "c1"},
		},
		"c1": {
			"ok":                true,
			"channels":          []map[string]any{{"id": "C3", "name": "three"}},
			"response_metadata": map[string]string{"next_cursor": "c2"},
		},
		"c2": {
			"ok":                true,
			"channels":          []map[string]any{{"id": "C4", "name": "four"}},
			"response_metadata": map[string]string{"next_cursor": ""},
		},
	}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))

		page, ok := pages[r.FormValue("cursor")]
		require.True(t, ok, "unexpected cursor %q", r.FormValue("cursor"))

		writeJSON(t, w, page)
	}))

	channels, err := client.ListChannels(context.Background(), "public_channel", 2)
	require.NoError(t, err)

	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ID)
	}

	assert.Equal(t, []string{"C1", "C2", "C3", "C4"}, ids, "union of all pages, in page order")
}

func TestCallAPIRetriesRateLimit(t *testing.T) {
	var calls int

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++

		switch calls {
		case 1:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.Header().Set("Retry-After", "0")
			writeJSON(t, w, map[string]any{"ok": false, "error": "ratelimited"})
		default:
			writeJSON(t, w, map[string]any{"ok": true, "team": map[string]string{"id": "T1", "name": "Acme"}})
		}
	}))

	team, err := client.TeamInfo(context.Background())
	require.NoError(t, err, "throttling must never surface to callers")
	assert.Equal(t, "Acme", team.Name)
	assert.Equal(t, 3, calls)
}

func TestCallAPITypedErrors(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"ok": false, "error": "method_not_supported_for_channel_type"})
	}))

	err := client.JoinChannel(context.Background(), "C1")
	require.Error(t, err)

	assert.True(t, IsCode(err, CodeMethodNotSupported))
	assert.False(t, IsCode(err, CodeNotInChannel))
	assert.False(t, IsAuthError(err))
}

func TestIsAuthError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"ok": false, "error": "invalid_auth"})
	}))

	_, err := client.TeamInfo(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.False(t, IsAuthError(fmt.Errorf("plain error")))
}

func TestRepliesExcludesParent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1.000", r.FormValue("ts"))

		writeJSON(t, w, map[string]any{
			"ok": true,
			"messages": []map[string]any{
				{"ts": "1.000", "text": "parent"},
				{"ts": "1.100", "text": "first reply"},
				{"ts": "1.200", "text": "second reply"},
			},
		})
	}))

	replies, err := client.Replies(context.Background(), "C1", "1.000", 100)
	require.NoError(t, err)
	require.Len(t, replies, 2)

	for _, reply := range replies {
		assert.NotEqual(t, "1.000", reply.TS, "the parent echo must never appear as a reply")
	}
}

func TestRepliesExcludesParentOnEveryPage(t *testing.T) {
	pages := map[string]map[string]any{
		"": {
			"ok": true,
			"messages": []map[string]any{
				{"ts": "1.000", "text": "parent"},
				{"ts": "1.100", "text": "first reply"},
			},
			"response_metadata": map[string]string{"next_cursor": "more"},
		},
		"more": {
			"ok": true,
			"messages": []map[string]any{
				{"ts": "1.000", "text": "parent"},
				{"ts": "1.200", "text": "second reply"},
			},
		},
	}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		page, ok := pages[r.FormValue("cursor")]
		require.True(t, ok, "unexpected cursor %q", r.FormValue("cursor"))

		writeJSON(t, w, page)
	}))

	replies, err := client.Replies(context.Background(), "C1", "1.000", 2)
	require.NoError(t, err)
	require.Len(t, replies, 2)

	assert.Equal(t, "1.100", replies[0].TS)
	assert.Equal(t, "1.200", replies[1].TS)
}

func TestHistoryPagination(t *testing.T) {
	var calls int

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++

		if calls == 1 {
			writeJSON(t, w, map[string]any{
				"ok":                true,
				"messages":          []map[string]any{{"ts": "3.0"}, {"ts": "2.0"}},
				"response_metadata": map[string]string{"next_cursor": "more"},
			})

			return
		}

		writeJSON(t, w, map[string]any{
			"ok":       true,
			"messages": []map[string]any{{"ts": "1.0"}},
		})
	}))

	messages, err := client.History(context.Background(), "C1", 2)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "3.0", messages[0].TS, "order preserved as received, newest first")
}

func TestDownload(t *testing.T) {
	fileSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xoxb-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("pdf-bytes"))
	}))
	t.Cleanup(fileSrv.Close)

	client, _ := newTestClient(t, http.NotFoundHandler())

	body, contentType, err := client.Download(context.Background(), fileSrv.URL)
	require.NoError(t, err)

	defer body.Close()

	assert.Equal(t, "application/pdf", contentType)
}

func TestDownloadFailure(t *testing.T) {
	fileSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(fileSrv.Close)

	client, _ := newTestClient(t, http.NotFoundHandler())

	_, _, err := client.Download(context.Background(), fileSrv.URL)
	assert.ErrorIs(t, err, ErrDownloadFailed)
}

func TestEmojiList(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"ok":    true,
			"emoji": map[string]string{"party": "https://emoji.example/party.png"},
		})
	}))

	emoji, err := client.EmojiList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://emoji.example/party.png", emoji["party"])
}
