package Slack

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"
)

var ErrNotConfigured = errors.New("slack: bot token or channel missing")

// Poster is the part of *slack.Client the notifier needs.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Client posts plain text messages to one channel.
type Client struct {
	api     Poster
	channel string
}

func NewClient(token, channel string) (*Client, error) {
	if token == "" || channel == "" {
		return nil, ErrNotConfigured
	}
	return &Client{api: slack.New(token), channel: channel}, nil
}

// NewClientWith is used with a fake Poster in tests.
func NewClientWith(api Poster, channel string) *Client {
	return &Client{api: api, channel: channel}
}

func (c *Client) Channel() string { return c.channel }

// SendMessage posts text to the configured channel and returns the message
// timestamp.
func (c *Client) SendMessage(ctx context.Context, text string) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, c.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return "", fmt.Errorf("slack post to %s: %w", c.channel, err)
	}
	return ts, nil
}
