package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/swift-nav/ntripping/internal/caster"
)

// EmitFunc streams uplink sentences until ctx ends or the sender dies.
// A nil return is the normal way out; errors abort the whole session.
type EmitFunc func(ctx context.Context, snd *caster.Sender) error

// Run drives an established caster connection to completion: sentences
// go up through emit while correction bytes drain down into out. The
// session ends when the caster closes the stream, the context is
// cancelled, or either direction fails hard.
//
// Emission finishing early does not end the session: the upload stays
// open unless emit closed it itself, and the download keeps draining.
// The download ending ends everything.
func Run(ctx context.Context, conn *caster.Conn, emit EmitFunc, out io.Writer, log zerolog.Logger) error {
	snd, rcv, err := conn.Split()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	// A finished or failed session must unblock the drain read.
	stop := context.AfterFunc(gctx, func() { _ = conn.Close() })
	defer stop()

	g.Go(func() error {
		if emit == nil {
			return nil
		}
		return emit(gctx, snd)
	})

	g.Go(func() error {
		// The download ending ends the whole session, emission included.
		defer cancel()
		for {
			chunk, err := rcv.Next()
			switch {
			case err == nil:
			case errors.Is(err, io.EOF):
				log.Debug().Msg("caster closed the stream")
				return nil
			default:
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			if _, err := out.Write(chunk); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
	})

	err = g.Wait()
	// Closing the sender here releases the write loop; by now nothing
	// is left to flush.
	_ = snd.Close()
	_ = conn.Close()
	return err
}
