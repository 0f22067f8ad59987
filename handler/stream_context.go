package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// StreamContext extends Context with Server-Sent Events writing.
// It is not safe for concurrent use; write from the handler goroutine only.
type StreamContext interface {
	Context

	// Send writes one frame: "event: <event>" followed by v encoded as a
	// single JSON data line.
	Send(event string, v any) error

	// Comment writes a comment frame (": <text>"), ignored by EventSource
	// clients and useful as a keep-alive.
	Comment(text string) error
}

type streamContext struct {
	Context
	w            http.ResponseWriter
	rc           *http.ResponseController
	writeTimeout time.Duration
}

func (c *streamContext) Send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", event, err)
	}
	return c.write(fmt.Sprintf("event: %s\ndata: %s\n\n", sanitizeLine(event), data))
}

func (c *streamContext) Comment(text string) error {
	return c.write(": " + sanitizeLine(text) + "\n\n")
}

func (c *streamContext) write(frame string) error {
	c.extendDeadline()
	if _, err := c.w.Write([]byte(frame)); err != nil {
		return err
	}
	return c.rc.Flush()
}

// extendDeadline is best effort; writers without deadline support ignore it.
func (c *streamContext) extendDeadline() {
	if c.writeTimeout <= 0 {
		return
	}
	_ = c.rc.SetWriteDeadline(time.Now().Add(c.writeTimeout))
}

// sanitizeLine keeps a field value on one line so it cannot inject frames.
func sanitizeLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
