package apiclient

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/padmux/padmux/apitypes"
)

// EventStream reads server events from a long-lived feed connection, one
// JSON line at a time.
type EventStream struct {
	conn net.Conn
	sc   *bufio.Scanner
}

func newEventStream(conn net.Conn) *EventStream {
	return &EventStream{conn: conn, sc: bufio.NewScanner(conn)}
}

// Next blocks until the server delivers the next event. It returns io.EOF
// once the stream ends; a problem response from the server comes back as an
// *apitypes.ApiError.
func (s *EventStream) Next() (apitypes.Event, error) {
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		if line == "" {
			continue
		}
		var problem apitypes.ApiError
		if err := json.Unmarshal([]byte(line), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
			return apitypes.Event{}, &problem
		}
		var ev apitypes.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return apitypes.Event{}, fmt.Errorf("decode event: %w", err)
		}
		return ev, nil
	}
	if err := s.sc.Err(); err != nil {
		return apitypes.Event{}, err
	}
	return apitypes.Event{}, io.EOF
}

// Close ends the subscription.
func (s *EventStream) Close() error {
	return s.conn.Close()
}
