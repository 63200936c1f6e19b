package schedule

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/swift-nav/ntripping/internal/nmea"
)

// Entry is one scripted emission.
type Entry struct {
	// Delay since the previous entry's emission. The first entry usually
	// carries zero for an immediate send.
	Delay time.Duration

	// Sentence or Raw holds the payload; exactly one is set. Raw frames
	// go to the wire byte-for-byte, with a line terminator only if the
	// script wrote one.
	Sentence nmea.Sentence
	Raw      []byte

	// Epoch, when set, pins the sentence timestamp; otherwise the
	// scripted fields go out untouched.
	Epoch *time.Time

	// Checksum replaces the computed checksum verbatim, for negative
	// testing against a live caster.
	Checksum *byte
}

// Script is an ordered list of emissions, replayed verbatim.
type Script []Entry

type scriptEntry struct {
	Delay    scriptDuration `yaml:"delay"`
	Epoch    *int64         `yaml:"epoch"`
	Checksum *uint8         `yaml:"checksum"`
	GGA      *ggaEntry      `yaml:"gga"`
	CRA      *craEntry      `yaml:"cra"`
	Raw      string         `yaml:"raw"`
}

type ggaEntry struct {
	Lat           *float64 `yaml:"lat"`
	Lon           *float64 `yaml:"lon"`
	FixQuality    *uint8   `yaml:"fix_quality"`
	Satellites    *uint8   `yaml:"satellites"`
	HDOP          *float64 `yaml:"hdop"`
	Height        *float64 `yaml:"height"`
	GeoidHeight   *float64 `yaml:"geoid_height"`
	CorrectionAge *float64 `yaml:"correction_age"`
	StationID     *uint16  `yaml:"station_id"`
}

type craEntry struct {
	RequestCounter  *uint8  `yaml:"request_counter"`
	AreaID          *uint32 `yaml:"area_id"`
	CorrectionsMask *uint16 `yaml:"corrections_mask"`
	SolutionID      *uint8  `yaml:"solution_id"`
}

// Load reads a YAML emission script: a list of entries, each carrying a
// delay, an optional unix-seconds epoch, an optional checksum override
// (decimal or 0x hex) and exactly one payload out of gga, cra or raw.
func Load(path string) (Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []scriptEntry
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}

	script := make(Script, 0, len(entries))
	for i, e := range entries {
		entry, err := e.toEntry()
		if err != nil {
			return nil, fmt.Errorf("script entry %d: %w", i, err)
		}
		script = append(script, entry)
	}
	return script, nil
}

func (e scriptEntry) toEntry() (Entry, error) {
	if e.Delay < 0 {
		return Entry{}, fmt.Errorf("delay must not be negative")
	}

	n := 0
	if e.GGA != nil {
		n++
	}
	if e.CRA != nil {
		n++
	}
	if e.Raw != "" {
		n++
	}
	if n != 1 {
		return Entry{}, fmt.Errorf("exactly one of gga, cra or raw is required")
	}

	out := Entry{Delay: time.Duration(e.Delay), Checksum: e.Checksum}
	if e.Epoch != nil {
		t := time.Unix(*e.Epoch, 0).UTC()
		out.Epoch = &t
	}

	switch {
	case e.Raw != "":
		if e.Checksum != nil || e.Epoch != nil {
			return Entry{}, fmt.Errorf("epoch and checksum overrides do not apply to raw frames")
		}
		out.Raw = []byte(e.Raw)
	case e.GGA != nil:
		out.Sentence = nmea.GGA{
			Lat:           e.GGA.Lat,
			Lon:           e.GGA.Lon,
			FixQuality:    e.GGA.FixQuality,
			Satellites:    e.GGA.Satellites,
			HDOP:          e.GGA.HDOP,
			Height:        e.GGA.Height,
			GeoidHeight:   e.GGA.GeoidHeight,
			CorrectionAge: e.GGA.CorrectionAge,
			StationID:     e.GGA.StationID,
		}
	case e.CRA != nil:
		out.Sentence = nmea.CRA{
			RequestCounter:  e.CRA.RequestCounter,
			AreaID:          e.CRA.AreaID,
			CorrectionsMask: e.CRA.CorrectionsMask,
			SolutionID:      e.CRA.SolutionID,
		}
	}
	return out, nil
}

// scriptDuration accepts Go duration strings ("5s", "250ms") as well as
// bare numbers, which are taken as seconds.
type scriptDuration time.Duration

func (d *scriptDuration) UnmarshalYAML(value *yaml.Node) error {
	var f float64
	if err := value.Decode(&f); err == nil {
		*d = scriptDuration(f * float64(time.Second))
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid delay %q", value.Value)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid delay %q: %w", s, err)
	}
	*d = scriptDuration(v)
	return nil
}
