// Package bus publishes item status transitions to NATS so other services
// can follow processing without polling the HTTP API.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/JonMunkholm/ImageFinder/internal/core"
)

// publisher is the subset of *nats.Conn used here.
type publisher interface {
	Publish(subject string, data []byte) error
}

// Client wraps a NATS connection.
type Client struct {
	nc  *nats.Conn
	pub publisher
}

// Connect dials url and keeps reconnecting in the background.
func Connect(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name("image-finder"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Client{nc: nc, pub: nc}, nil
}

// Close drains pending messages and closes the connection.
func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

// PublishJSON marshals v and publishes it on subject.
func (c *Client) PublishJSON(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.pub.Publish(subject, b)
}

// ItemStatusMessage is the payload published for every transition. Image
// data is left out to stay well below the server's payload limit.
type ItemStatusMessage struct {
	SessionID string    `json:"session_id"`
	ItemID    int       `json:"item_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	ImageIDs  []string  `json:"image_ids,omitempty"`
	Selected  string    `json:"selected_image_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Failure   string    `json:"failure,omitempty"`
	At        time.Time `json:"at"`
}

// ItemEvents publishes core item events on a subject. It implements
// core.EventSink.
type ItemEvents struct {
	client  *Client
	subject string
	now     func() time.Time
}

// NewItemEvents creates a sink publishing on subject.
func NewItemEvents(client *Client, subject string) *ItemEvents {
	return &ItemEvents{client: client, subject: subject, now: time.Now}
}

// ItemChanged publishes ev.
func (e *ItemEvents) ItemChanged(ctx context.Context, ev core.ItemEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := ItemStatusMessage{
		SessionID: ev.SessionID,
		ItemID:    ev.Item.ID,
		Name:      ev.Item.Name,
		Status:    string(ev.Item.Status),
		Selected:  ev.Item.Selected,
		Error:     ev.Item.Error,
		Failure:   string(ev.Item.Failure),
		At:        e.now().UTC(),
	}
	for _, img := range ev.Item.Images {
		msg.ImageIDs = append(msg.ImageIDs, img.ID)
	}
	if err := e.client.PublishJSON(e.subject, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.subject, err)
	}
	return nil
}
