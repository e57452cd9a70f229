package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StreamRetry is the reconnect delay, in milliseconds, announced to
// EventSource clients.
const StreamRetry = 3000

// FlushWriter is a buffered response body, e.g. *bufio.Writer.
type FlushWriter interface {
	io.Writer
	Flush() error
}

// Stream relays the events of b to w as server-sent events. It returns nil
// when ctx ends or the subscription closes, and the write error once the
// client stops reading. A comment line goes out every keepAlive so a
// dropped connection shows up even when no events flow.
func Stream(ctx context.Context, b Broadcaster, w FlushWriter, keepAlive time.Duration) error {
	events, stop, err := b.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer stop()

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", StreamRetry); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	var tick <-chan time.Time
	if keepAlive > 0 {
		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return err
			}
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := WriteEvent(w, event); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
}

// WriteEvent encodes one event frame: the event type as the SSE event name
// and the JSON encoded Event as its data.
func WriteEvent(w io.Writer, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode auth event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
	return err
}
