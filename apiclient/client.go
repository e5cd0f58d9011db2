package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/padmux/padmux/apitypes"
)

// Client provides a high-level interface to the feed API, handling request
// formatting, response parsing, and error handling.
type Client struct{ transport *Transport }

// New constructs a high-level API client using the internal low-level Transport.
// The addr parameter specifies the TCP address (host:port) of the feed server.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithPassword constructs a client that authenticates with the given password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport implementation.
// This is primarily useful for testing or when advanced transport configuration is needed.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the version and identity of the padmux server.
func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

// PingCtx is the context-aware version of Ping.
func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	const path = "ping"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PingResponse](raw)
}

// Slots retrieves the occupancy of every virtual controller slot, plus the
// number of controllers waiting for one.
func (c *Client) Slots() (*apitypes.SlotListResponse, error) {
	return c.SlotsCtx(context.Background())
}

func (c *Client) SlotsCtx(ctx context.Context) (*apitypes.SlotListResponse, error) {
	const path = "slots"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SlotListResponse](raw)
}

// Slot retrieves a single slot's occupancy.
func (c *Client) Slot(index int) (*apitypes.SlotInfo, error) {
	return c.SlotCtx(context.Background(), index)
}

func (c *Client) SlotCtx(ctx context.Context, index int) (*apitypes.SlotInfo, error) {
	pathParams := map[string]string{"index": fmt.Sprintf("%d", index)}
	const path = "slot/{index}"
	raw, err := c.transport.DoCtx(ctx, path, nil, pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.SlotInfo](raw)
}

// SlotState retrieves the latest pad state published to a slot. Vacant
// slots read as the neutral state.
func (c *Client) SlotState(index int) (*apitypes.PadState, error) {
	return c.SlotStateCtx(context.Background(), index)
}

func (c *Client) SlotStateCtx(ctx context.Context, index int) (*apitypes.PadState, error) {
	pathParams := map[string]string{"index": fmt.Sprintf("%d", index)}
	const path = "slot/{index}/state"
	raw, err := c.transport.DoCtx(ctx, path, nil, pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PadState](raw)
}

// SubmitFeedback queues rumble and LED feedback for the controller in a
// slot. Feedback for a vacant slot is accepted and dropped.
func (c *Client) SubmitFeedback(index int, fb apitypes.FeedbackRequest) (*apitypes.FeedbackResponse, error) {
	return c.SubmitFeedbackCtx(context.Background(), index, fb)
}

func (c *Client) SubmitFeedbackCtx(ctx context.Context, index int, fb apitypes.FeedbackRequest) (*apitypes.FeedbackResponse, error) {
	pathParams := map[string]string{"index": fmt.Sprintf("%d", index)}
	const path = "slot/{index}/feedback"
	payloadBytes, err := json.Marshal(fb)
	if err != nil {
		return nil, fmt.Errorf("marshal feedback request: %w", err)
	}
	raw, err := c.transport.DoCtx(ctx, path, string(payloadBytes), pathParams)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.FeedbackResponse](raw)
}

// Devices retrieves every live controller session, slot holders first.
func (c *Client) Devices() (*apitypes.DevicesListResponse, error) {
	return c.DevicesCtx(context.Background())
}

func (c *Client) DevicesCtx(ctx context.Context) (*apitypes.DevicesListResponse, error) {
	const path = "devices"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.DevicesListResponse](raw)
}

// Events subscribes to the server's event stream. The returned stream must
// be closed by the caller.
func (c *Client) Events() (*EventStream, error) {
	return c.EventsCtx(context.Background())
}

func (c *Client) EventsCtx(ctx context.Context) (*EventStream, error) {
	const path = "events"
	conn, err := c.transport.StreamCtx(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return newEventStream(conn), nil
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
