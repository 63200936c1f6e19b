package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/swift-nav/ntripping/internal/nmea"
)

var afterFn = time.After

// Sender is the uplink capability the scheduler drives. The send methods
// report a non-nil error only when the sender is finished for good;
// emission stops at that point without disturbing whoever owns the
// receive side.
type Sender interface {
	// Send queues p, waiting while the transmission slot is occupied.
	Send(ctx context.Context, p []byte) error
	// TrySend queues p only if the slot is free and reports whether it
	// was accepted.
	TrySend(p []byte) (ok bool, err error)
	// Close marks the uplink finished. Anything already queued still
	// goes out.
	Close() error
}

// Options configure a cadence run.
type Options struct {
	// Period between emissions. Zero or less disables emission; the
	// session then exists for the downlink alone.
	Period time.Duration

	// Template is re-stamped and re-rendered on every tick. All fields
	// other than the timestamp and the request counter stay constant
	// for the life of the run.
	Template nmea.Sentence

	// Counter seeds the request counter carried by correction request
	// sentences. It increments once per tick and wraps at 256.
	Counter uint8

	// Now supplies sentence timestamps. Defaults to time.Now; a fixed
	// function pins every sentence to one epoch.
	Now func() time.Time

	Log zerolog.Logger
}

// Run emits the template at the configured cadence until ctx is cancelled
// or the sender closes; both end the run with a nil error. The first
// emission happens immediately. A tick that finds the transmission slot
// still occupied is skipped outright, never queued: a position report
// delivered late is worth less than the next one delivered on time.
func Run(ctx context.Context, snd Sender, opts Options) error {
	if opts.Period <= 0 {
		opts.Log.Debug().Msg("emission disabled")
		return nil
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	counter := opts.Counter
	for {
		rendered := nmea.Render(opts.Template.Stamp(now()).WithCounter(counter))
		counter++

		ok, err := snd.TrySend(append([]byte(rendered), '\r', '\n'))
		if err != nil {
			opts.Log.Debug().Err(err).Msg("sender closed, stopping emission")
			return nil
		}
		if ok {
			opts.Log.Trace().Str("sentence", rendered).Msg("emit")
		} else {
			opts.Log.Debug().Str("sentence", rendered).Msg("send slot busy, skipping tick")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-afterFn(opts.Period):
		}
	}
}

// Replay sends every script entry in order, waiting out each entry's
// delay first. Unlike Run it never skips: a replay is only faithful if
// every frame reaches the wire, so a busy slot blocks until free. The
// script running out is a deliberate end of the uplink, so the sender is
// closed on the way out; Run never does that.
func Replay(ctx context.Context, snd Sender, script Script, log zerolog.Logger) error {
	defer func() { _ = snd.Close() }()
	for i, e := range script {
		if e.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-afterFn(e.Delay):
			}
		}

		payload := e.payload()
		if e.Raw != nil {
			if err := nmea.Verify(string(e.Raw)); err != nil {
				log.Warn().Err(err).Int("entry", i).Msg("sending raw frame as scripted")
			}
		}

		if err := snd.Send(ctx, payload); err != nil {
			if ctx.Err() == nil {
				log.Debug().Err(err).Int("entry", i).Msg("sender closed, stopping replay")
			}
			return nil
		}
		log.Trace().Int("entry", i).Int("length", len(payload)).Msg("replayed")
	}
	log.Debug().Int("entries", len(script)).Msg("script finished")
	return nil
}

// payload renders the wire bytes for one entry. Raw entries pass through
// byte-for-byte; structured entries get the standard CRLF terminator and
// honor their epoch and checksum overrides exactly as given.
func (e Entry) payload() []byte {
	if e.Raw != nil {
		return e.Raw
	}
	msg := e.Sentence
	if e.Epoch != nil {
		msg = msg.Stamp(*e.Epoch)
	}
	if e.Checksum != nil {
		return append([]byte(nmea.RenderWithChecksum(msg, *e.Checksum)), '\r', '\n')
	}
	return nmea.RenderLine(msg)
}
