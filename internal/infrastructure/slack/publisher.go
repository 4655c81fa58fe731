// Package slack publishes stories to Slack channels and reads back engagement.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

// ErrNotInChannel means the bot may not post to the channel; callers degrade to dry mode.
var ErrNotInChannel = errors.New("slack: bot is not a member of the channel")

const pushpinReaction = "pushpin"

// Client is a thin Slack Web API client shared by the per-channel publishers.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient builds a client; rps <= 0 disables throttling.
func NewClient(endpoint, token string, rps float64, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		token:    token,
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(limit, 1),
	}
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	TS    string `json:"ts"`

	Messages []struct {
		TS string `json:"ts"`
	} `json:"messages"`
	Items []struct {
		Message struct {
			TS string `json:"ts"`
		} `json:"message"`
	} `json:"items"`
	Message struct {
		Reactions []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"reactions"`
	} `json:"message"`
}

func (c *Client) call(ctx context.Context, httpMethod, method string, params url.Values) (apiResponse, error) {
	var out apiResponse
	if err := c.limiter.Wait(ctx); err != nil {
		return out, fmt.Errorf("rate limit %s: %w", method, err)
	}

	endpoint := c.endpoint + "/" + method
	var body io.Reader
	if httpMethod == http.MethodGet {
		endpoint += "?" + params.Encode()
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, body)
	if err != nil {
		return out, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", "NewsCurator/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("slack %s returned %s", method, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode %s: %w", method, err)
	}
	return out, nil
}

// LivePublisher posts to a single Slack channel.
type LivePublisher struct {
	client  *Client
	channel string
	logger  *slog.Logger
}

var _ ports.Publisher = (*LivePublisher)(nil)

// NewLivePublisher binds a client to a channel.
func NewLivePublisher(client *Client, channel string, logger *slog.Logger) *LivePublisher {
	return &LivePublisher{client: client, channel: channel, logger: logger}
}

// Post sends a new message and returns its ts. Missing channel membership degrades
// to an empty handle; any other API rejection is an error.
func (p *LivePublisher) Post(ctx context.Context, text string) (string, error) {
	resp, err := p.client.call(ctx, http.MethodPost, "chat.postMessage", url.Values{
		"channel": {p.channel},
		"text":    {text},
	})
	if err != nil {
		return "", err
	}
	if !resp.OK {
		if resp.Error == "not_in_channel" {
			p.logger.Warn("skip post", "channel", p.channel, "error", ErrNotInChannel)
			return "", nil
		}
		return "", fmt.Errorf("slack chat.postMessage in %s: %s", p.channel, resp.Error)
	}
	return resp.TS, nil
}

// Update edits a message, or posts a new one when handle is empty. On rejection
// the previous handle is kept.
func (p *LivePublisher) Update(ctx context.Context, handle, text string) (string, error) {
	if handle == "" {
		return p.Post(ctx, text)
	}
	resp, err := p.client.call(ctx, http.MethodPost, "chat.update", url.Values{
		"channel": {p.channel},
		"ts":      {handle},
		"text":    {text},
	})
	if err != nil {
		return handle, err
	}
	if !resp.OK {
		p.logger.Warn("failed to update message", "channel", p.channel, "ts", handle, "error", resp.Error)
		return handle, nil
	}
	if resp.TS != "" {
		return resp.TS, nil
	}
	return handle, nil
}

// Delete removes a message; API rejections are logged, not returned.
func (p *LivePublisher) Delete(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	resp, err := p.client.call(ctx, http.MethodPost, "chat.delete", url.Values{
		"channel": {p.channel},
		"ts":      {handle},
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		p.logger.Warn("failed to delete message", "channel", p.channel, "ts", handle, "error", resp.Error)
	}
	return nil
}

// Engagement counts thread replies and detects pins or pushpin reactions. Any API
// rejection is returned as an error so callers keep their previous values.
func (p *LivePublisher) Engagement(ctx context.Context, handle string) (domain.Engagement, error) {
	var eng domain.Engagement
	if handle == "" {
		return eng, nil
	}

	replies, err := p.read(ctx, "conversations.replies", url.Values{
		"channel": {p.channel},
		"ts":      {handle},
	})
	if err != nil {
		return eng, err
	}
	eng.Replies = max(len(replies.Messages)-1, 0)

	pins, err := p.read(ctx, "pins.list", url.Values{"channel": {p.channel}})
	if err != nil {
		return domain.Engagement{}, err
	}
	for _, item := range pins.Items {
		if item.Message.TS == handle {
			eng.Pinned = true
			break
		}
	}

	reactions, err := p.read(ctx, "reactions.get", url.Values{
		"channel":   {p.channel},
		"timestamp": {handle},
	})
	if err != nil {
		return domain.Engagement{}, err
	}
	for _, r := range reactions.Message.Reactions {
		if r.Name == pushpinReaction && r.Count > 0 {
			eng.Pinned = true
		}
	}
	return eng, nil
}

func (p *LivePublisher) read(ctx context.Context, method string, params url.Values) (apiResponse, error) {
	resp, err := p.client.call(ctx, http.MethodGet, method, params)
	if err != nil {
		return resp, err
	}
	if !resp.OK {
		return resp, fmt.Errorf("slack %s in %s: %s", method, p.channel, resp.Error)
	}
	return resp, nil
}

// NullPublisher is the dry-mode publisher used when credentials or a channel are absent.
type NullPublisher struct {
	channel string
	logger  *slog.Logger
}

var _ ports.Publisher = (*NullPublisher)(nil)

// NewNullPublisher logs what would have been sent to channel.
func NewNullPublisher(channel string, logger *slog.Logger) *NullPublisher {
	return &NullPublisher{channel: channel, logger: logger}
}

// Post returns an empty handle.
func (p *NullPublisher) Post(_ context.Context, text string) (string, error) {
	p.logger.Info("[DRY RUN] would post", "channel", p.channel, "text", truncate(text, 120))
	return "", nil
}

// Update returns the handle unchanged.
func (p *NullPublisher) Update(_ context.Context, handle, _ string) (string, error) {
	p.logger.Info("[DRY RUN] would update", "channel", p.channel, "ts", handle)
	return handle, nil
}

// Delete does nothing.
func (p *NullPublisher) Delete(_ context.Context, handle string) error {
	p.logger.Info("[DRY RUN] would delete", "channel", p.channel, "ts", handle)
	return nil
}

// Engagement cannot be observed in dry mode.
func (p *NullPublisher) Engagement(context.Context, string) (domain.Engagement, error) {
	return domain.Engagement{}, ports.ErrNoEngagement
}

// HandleTime converts a Slack message ts ("<unix seconds>.<micros>") to UTC.
func HandleTime(handle string) (time.Time, error) {
	secs, frac, _ := strings.Cut(handle, ".")
	s, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slack ts %q: %w", handle, err)
	}
	var nanos int64
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		frac += strings.Repeat("0", 9-len(frac))
		nanos, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse slack ts %q: %w", handle, err)
		}
	}
	return time.Unix(s, nanos).UTC(), nil
}

var _ ports.HandleClock = HandleTime

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
