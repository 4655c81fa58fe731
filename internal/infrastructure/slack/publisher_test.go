package slack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCurator/internal/logging"
	"NewsCurator/internal/ports"
)

type callLog struct {
	mu    sync.Mutex
	names []string
}

func (c *callLog) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

func fakeSlack(t *testing.T, responses map[string]string) (*httptest.Server, *callLog) {
	t.Helper()
	calls := &callLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		method := r.URL.Path[1:]
		calls.add(method)
		body, ok := responses[method]
		if !ok {
			body = `{"ok":false,"error":"unknown_method"}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func newPublisher(url string) *LivePublisher {
	client := NewClient(url, "xoxb-test", 0, time.Second)
	return NewLivePublisher(client, "#ai-daily", logging.Discard())
}

func TestPostReturnsTS(t *testing.T) {
	t.Parallel()

	server, calls := fakeSlack(t, map[string]string{
		"chat.postMessage": `{"ok":true,"ts":"1700000000.000200"}`,
	})
	handle, err := newPublisher(server.URL).Post(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000200", handle)
	assert.Equal(t, []string{"chat.postMessage"}, calls.list())
}

func TestPostNotInChannelDegrades(t *testing.T) {
	t.Parallel()

	server, _ := fakeSlack(t, map[string]string{
		"chat.postMessage": `{"ok":false,"error":"not_in_channel"}`,
	})
	handle, err := newPublisher(server.URL).Post(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, handle)
}

func TestPostOtherErrorIsFatalForAction(t *testing.T) {
	t.Parallel()

	server, _ := fakeSlack(t, map[string]string{
		"chat.postMessage": `{"ok":false,"error":"invalid_auth"}`,
	})
	_, err := newPublisher(server.URL).Post(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_auth")
}

func TestEngagement(t *testing.T) {
	t.Parallel()

	server, _ := fakeSlack(t, map[string]string{
		"conversations.replies": `{"ok":true,"messages":[{"ts":"1.0"},{"ts":"1.1"},{"ts":"1.2"}]}`,
		"pins.list":             `{"ok":true,"items":[{"message":{"ts":"9.9"}}]}`,
		"reactions.get":         `{"ok":true,"message":{"reactions":[{"name":"pushpin","count":1}]}}`,
	})
	eng, err := newPublisher(server.URL).Engagement(context.Background(), "1.0")
	require.NoError(t, err)
	assert.Equal(t, 2, eng.Replies)
	assert.True(t, eng.Pinned, "pushpin reaction counts as pinned")
}

func TestEngagementPinnedViaPinsList(t *testing.T) {
	t.Parallel()

	server, _ := fakeSlack(t, map[string]string{
		"conversations.replies": `{"ok":true,"messages":[{"ts":"1.0"}]}`,
		"pins.list":             `{"ok":true,"items":[{"message":{"ts":"1.0"}}]}`,
		"reactions.get":         `{"ok":true,"message":{"reactions":[]}}`,
	})
	eng, err := newPublisher(server.URL).Engagement(context.Background(), "1.0")
	require.NoError(t, err)
	assert.Zero(t, eng.Replies)
	assert.True(t, eng.Pinned)
}

func TestEngagementRejectedIsError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		responses map[string]string
		want      string
	}{
		{
			name: "replies rate limited",
			responses: map[string]string{
				"conversations.replies": `{"ok":false,"error":"ratelimited"}`,
			},
			want: "ratelimited",
		},
		{
			name: "pins channel missing",
			responses: map[string]string{
				"conversations.replies": `{"ok":true,"messages":[{"ts":"1.0"},{"ts":"1.1"}]}`,
				"pins.list":             `{"ok":false,"error":"channel_not_found"}`,
			},
			want: "channel_not_found",
		},
		{
			name: "reactions thread missing",
			responses: map[string]string{
				"conversations.replies": `{"ok":true,"messages":[{"ts":"1.0"},{"ts":"1.1"}]}`,
				"pins.list":             `{"ok":true,"items":[{"message":{"ts":"1.0"}}]}`,
				"reactions.get":         `{"ok":false,"error":"thread_not_found"}`,
			},
			want: "thread_not_found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server, _ := fakeSlack(t, tt.responses)
			eng, err := newPublisher(server.URL).Engagement(context.Background(), "1.0")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Zero(t, eng)
		})
	}
}

func TestUpdateWithoutHandlePosts(t *testing.T) {
	t.Parallel()

	server, calls := fakeSlack(t, map[string]string{
		"chat.postMessage": `{"ok":true,"ts":"5.5"}`,
		"chat.update":      `{"ok":true,"ts":"5.5"}`,
	})
	p := newPublisher(server.URL)
	handle, err := p.Update(context.Background(), "", "overview")
	require.NoError(t, err)
	assert.Equal(t, "5.5", handle)

	handle, err = p.Update(context.Background(), "5.5", "overview 2")
	require.NoError(t, err)
	assert.Equal(t, "5.5", handle)
	assert.Equal(t, []string{"chat.postMessage", "chat.update"}, calls.list())
}

func TestNullPublisher(t *testing.T) {
	t.Parallel()

	p := NewNullPublisher("#ai-daily", logging.Discard())
	ctx := context.Background()

	handle, err := p.Post(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, handle)

	handle, err = p.Update(ctx, "1.1", "x")
	require.NoError(t, err)
	assert.Equal(t, "1.1", handle)

	require.NoError(t, p.Delete(ctx, "1.1"))
	eng, err := p.Engagement(ctx, "1.1")
	require.ErrorIs(t, err, ports.ErrNoEngagement)
	assert.Zero(t, eng)
}

func TestHandleTime(t *testing.T) {
	t.Parallel()

	got, err := HandleTime("1700000000.000200")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 200_000).UTC(), got)

	got, err = HandleTime("1700000000")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got)

	_, err = HandleTime("not-a-ts")
	assert.Error(t, err)
}
