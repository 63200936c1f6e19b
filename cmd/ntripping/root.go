package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/swift-nav/ntripping/internal/caster"
	"github.com/swift-nav/ntripping/internal/nmea"
	"github.com/swift-nav/ntripping/internal/schedule"
	"github.com/swift-nav/ntripping/internal/session"
	"github.com/swift-nav/ntripping/internal/sink"
)

// version is stamped by the build via -ldflags "-X main.version=...".
var version = ""

type options struct {
	url      string
	lat      float64
	lon      float64
	height   float64
	clientID string
	username string
	password string

	epoch           int64
	ggaPeriod       uint64
	ggaHeader       bool
	requestCounter  uint8
	areaID          uint32
	correctionsMask uint16
	solutionID      uint8

	input   string
	output  string
	verbose int

	// Presence of the gated flags, resolved after parsing. A zero
	// area id is a valid area id, so defaults cannot stand in.
	epochSet    bool
	areaSet     bool
	maskSet     bool
	solutionSet bool
}

func newRootCmd() (*cobra.Command, *options) {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "ntripping",
		Short: "NTRIP client for streaming GNSS corrections",
		Long: `ntripping opens one long-lived NTRIP session: it uploads periodic
position reports or correction area requests and writes the caster's
correction stream to an output sink.`,
		Args:         cobra.NoArgs,
		Version:      buildVersion(),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.epochSet = cmd.Flags().Changed("epoch")
			o.areaSet = cmd.Flags().Changed("area-id")
			o.maskSet = cmd.Flags().Changed("corrections-mask")
			o.solutionSet = cmd.Flags().Changed("solution-id")
			return run(cmd.Context(), o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.url, "url", "na.skylark.swiftnav.com:2101", "caster target, [scheme://][user:pass@]host[:port][/mountpoint]")
	f.Float64Var(&o.lat, "lat", 37.77101999622968, "latitude for emitted position reports")
	f.Float64Var(&o.lon, "lon", -122.40315159140708, "longitude for emitted position reports")
	f.Float64Var(&o.height, "height", -5.549358852471994, "height in meters for emitted position reports")
	f.StringVar(&o.clientID, "client-id", "", "client id header value (all-zero UUID when unset)")
	f.StringVar(&o.username, "username", "", "basic-auth username")
	f.StringVar(&o.password, "password", "", "basic-auth password")
	f.Int64Var(&o.epoch, "epoch", 0, "pin every sentence timestamp to this unix epoch")
	f.Uint64Var(&o.ggaPeriod, "gga-period", 10, "seconds between emitted sentences, 0 disables emission")
	f.BoolVar(&o.ggaHeader, "gga-header", false, "send the sentence as an Ntrip-GGA header during the handshake")
	f.Uint8Var(&o.requestCounter, "request-counter", 0, "initial correction request counter")
	f.Uint32Var(&o.areaID, "area-id", 0, "correction area id; switches emission to PSWTCRA requests")
	f.Uint16Var(&o.correctionsMask, "corrections-mask", 0, "corrections mask for PSWTCRA requests")
	f.Uint8Var(&o.solutionID, "solution-id", 0, "solution id for PSWTCRA requests")
	f.StringVar(&o.input, "input", "", "YAML script of sentences to replay instead of the cadence")
	f.StringVarP(&o.output, "output", "o", "-", "correction sink: -, path, file://, udp://, serial://, mqtt://")
	f.CountVarP(&o.verbose, "verbose", "v", "raise log verbosity (-v debug, -vv trace)")
	return cmd, o
}

func run(ctx context.Context, o *options) error {
	log := newLogger(o.verbose)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if (o.maskSet || o.solutionSet) && !o.areaSet {
		log.Warn().Msg("corrections-mask and solution-id only apply together with --area-id")
	}

	now := time.Now
	if o.epochSet {
		pinned := time.Unix(o.epoch, 0).UTC()
		now = func() time.Time { return pinned }
	}
	template := o.sentenceTemplate()

	var script schedule.Script
	if o.input != "" {
		var err error
		if script, err = schedule.Load(o.input); err != nil {
			return fmt.Errorf("load script: %w", err)
		}
		log.Debug().Int("entries", len(script)).Str("path", o.input).Msg("script loaded")
	}

	out, err := sink.Open(o.output)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Warn().Err(err).Msg("close output")
		}
	}()

	client := &caster.Client{ID: o.clientID, Log: log}
	switch {
	case o.username != "" && o.password != "":
		client.Auth = &caster.Credentials{Username: o.username, Password: o.password}
	case o.username != "" || o.password != "":
		log.Warn().Msg("authentication needs both --username and --password")
	}
	if o.ggaHeader {
		// The header sentence carries the startup time but no request
		// counter; counters belong to the streamed emissions.
		client.GGA = template.Stamp(now())
	}

	conn, err := client.Connect(ctx, o.url)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	log.Info().Str("url", o.url).Msg("connected")

	var emit session.EmitFunc
	if script != nil {
		emit = func(ctx context.Context, snd *caster.Sender) error {
			return schedule.Replay(ctx, snd, script, log)
		}
	} else {
		opts := schedule.Options{
			Period:   time.Duration(o.ggaPeriod) * time.Second,
			Template: template,
			Counter:  o.requestCounter,
			Now:      now,
			Log:      log,
		}
		emit = func(ctx context.Context, snd *caster.Sender) error {
			return schedule.Run(ctx, snd, opts)
		}
	}

	if err := session.Run(ctx, conn, emit, out, log); err != nil {
		return err
	}
	log.Info().Msg("session ended")
	return nil
}

// sentenceTemplate picks what the session uploads: correction area
// requests as soon as an area id was given, position reports otherwise.
func (o *options) sentenceTemplate() nmea.Sentence {
	if o.areaSet {
		cra := nmea.CRA{AreaID: &o.areaID}
		if o.maskSet {
			cra.CorrectionsMask = &o.correctionsMask
		}
		if o.solutionSet {
			cra.SolutionID = &o.solutionID
		}
		return cra
	}
	return nmea.GGA{Lat: &o.lat, Lon: &o.lon, Height: &o.height}
}

// newLogger writes human-readable lines to stderr; stdout belongs to the
// correction stream.
func newLogger(verbosity int) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case verbosity >= 2:
		level = zerolog.TraceLevel
	case verbosity == 1:
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).With().Timestamp().Logger().Level(level)
}

func buildVersion() string {
	if version != "" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "unknown"
}
