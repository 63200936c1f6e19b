package caster

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// readBufSize is the largest chunk a Receiver hands out per call.
const readBufSize = 32 * 1024

// Conn is an established caster session. It owns the TCP stream and the
// parsed response body, and splits at most once into its two halves.
type Conn struct {
	stream net.Conn
	body   io.Reader
	log    zerolog.Logger

	// out is deliberately a single slot: at most one sentence is ever
	// pending transmission, so a stalled caster cannot pile up stale
	// position reports.
	out   chan []byte
	wdone chan struct{}

	mu     sync.Mutex
	split  bool
	closed bool
}

// newConn reads the caster's answer from stream and wires up the outbound
// writer. It accepts HTTP/1.x and ICY status lines; anything else is
// treated as an HTTP/0.9-style response whose body starts immediately,
// first line included.
func newConn(stream net.Conn, log zerolog.Logger) (*Conn, error) {
	br := bufio.NewReaderSize(stream, readBufSize)

	prefix, err := br.Peek(len("HTTP/"))
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read response: %w", err)
		}
		// Peer closed almost immediately; whatever arrived is body.
		prefix, _ = br.Peek(br.Buffered())
	}

	var body io.Reader = br
	switch {
	case bytes.HasPrefix(prefix, []byte("HTTP/")):
		resp, err := http.ReadResponse(br, nil)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
		}
		// Body de-frames chunked encoding and honors a Content-Length
		// when the caster sends one (sourcetables do).
		body = resp.Body

	case bytes.HasPrefix(prefix, []byte("ICY")):
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		status := strings.TrimSpace(line)
		code := 0
		if f := strings.Fields(status); len(f) >= 2 {
			code, _ = strconv.Atoi(f[1])
		}
		if code != http.StatusOK {
			return nil, &StatusError{Code: code, Status: status}
		}
		log.Debug().Str("status", status).Msg("ntrip 1.0 caster")

	default:
		log.Debug().Msg("no status line, reading stream as body")
	}

	c := &Conn{
		stream: stream,
		body:   body,
		log:    log,
		out:    make(chan []byte, 1),
		wdone:  make(chan struct{}),
	}
	go c.writeLoop()
	return c, nil
}

// Split hands out the two independently owned halves. It works exactly
// once; the halves never need to observe each other afterwards.
func (c *Conn) Split() (*Sender, *Receiver, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.split {
		return nil, nil, ErrAlreadySplit
	}
	c.split = true
	return &Sender{c: c}, &Receiver{c: c, buf: make([]byte, readBufSize)}, nil
}

// Close tears the session down. It is idempotent and safe to call while
// either half is blocked; pending reads and writes are unblocked with
// errors.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.stream.Close()
}

func (c *Conn) writeLoop() {
	defer close(c.wdone)
	for p := range c.out {
		if _, err := c.stream.Write(p); err != nil {
			c.log.Debug().Err(err).Msg("send failed")
			return
		}
		c.log.Trace().Int("length", len(p)).Msg("send")
	}
	// Out of frames: the upload is finished. Half-close so the caster
	// sees end-of-body while the download keeps flowing.
	if cw, ok := c.stream.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
}

// Sender is the uplink half. It belongs to a single goroutine; its
// methods must not be called concurrently with each other.
type Sender struct {
	c      *Conn
	closed bool
}

// Send queues p for transmission, waiting while the slot is occupied.
// Chunks go onto the wire whole and in the order accepted.
func (s *Sender) Send(ctx context.Context, p []byte) error {
	if s.closed {
		return ErrSenderClosed
	}
	select {
	case s.c.out <- p:
		return nil
	case <-s.c.wdone:
		return ErrSenderClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend queues p only if the slot is free. It reports false when the
// previous payload is still pending, which callers on a cadence treat as
// "skip this tick".
func (s *Sender) TrySend(p []byte) (bool, error) {
	if s.closed {
		return false, ErrSenderClosed
	}
	select {
	case s.c.out <- p:
		return true, nil
	case <-s.c.wdone:
		return false, ErrSenderClosed
	default:
		return false, nil
	}
}

// Close signals end-of-body: anything already accepted is still written,
// then the stream is half-closed. Idempotent.
func (s *Sender) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.c.out)
	return nil
}

// Receiver is the downlink half. It belongs to a single goroutine.
type Receiver struct {
	c   *Conn
	buf []byte
}

// Next returns the next chunk as the transport delivered it, without
// coalescing. A clean end of stream is io.EOF; transport faults come back
// as a *ReceiveError and are not retried here.
func (r *Receiver) Next() ([]byte, error) {
	for {
		n, err := r.c.body.Read(r.buf)
		if n > 0 {
			r.c.log.Trace().Int("length", n).Msg("recv")
			out := make([]byte, n)
			copy(out, r.buf[:n])
			return out, nil
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			r.c.log.Trace().Msg("recv eof")
			return nil, io.EOF
		}
		return nil, &ReceiveError{Err: err}
	}
}
