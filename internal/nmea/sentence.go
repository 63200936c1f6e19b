package nmea

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// A Sentence is one uplink frame in the "$<tag>,<fields>*<HH>" wire form.
// The two variants a caster accepts are GGA position reports and PSWTCRA
// correction area requests. Every field is optional: nil renders as an
// empty slot between its commas, never as a default value.
type Sentence interface {
	// Stamp returns a copy carrying t as the sentence time. Variants
	// without a time field return themselves unchanged.
	Stamp(t time.Time) Sentence
	// WithCounter returns a copy carrying n as the request counter.
	// Variants without a counter return themselves unchanged.
	WithCounter(n uint8) Sentence

	writeBody(b *strings.Builder)
}

// Render returns the canonical frame without a line terminator, the form
// carried in the Ntrip-Gga handshake header.
func Render(s Sentence) string {
	var b strings.Builder
	b.WriteByte('$')
	s.writeBody(&b)
	sum := Checksum(b.String())
	fmt.Fprintf(&b, "*%02X", sum)
	return b.String()
}

// RenderLine returns the frame with the trailing CRLF wire terminator.
func RenderLine(s Sentence) []byte {
	return append([]byte(Render(s)), '\r', '\n')
}

// RenderWithChecksum substitutes sum for the computed checksum, verbatim.
// Scripted replay uses it to reproduce deliberately malformed frames.
func RenderWithChecksum(s Sentence, sum byte) string {
	var b strings.Builder
	b.WriteByte('$')
	s.writeBody(&b)
	fmt.Fprintf(&b, "*%02X", sum)
	return b.String()
}

// Checksum XOR-folds every byte of frame after the leading '$' sentinel.
func Checksum(frame string) byte {
	var sum byte
	for i := 1; i < len(frame); i++ {
		sum ^= frame[i]
	}
	return sum
}

// GGA is a GPGGA position report.
type GGA struct {
	Time          *time.Time
	Lat           *float64
	Lon           *float64
	FixQuality    *uint8
	Satellites    *uint8
	HDOP          *float64
	Height        *float64
	GeoidHeight   *float64
	CorrectionAge *float64
	StationID     *uint16
}

func (g GGA) Stamp(t time.Time) Sentence {
	g.Time = &t
	return g
}

func (g GGA) WithCounter(uint8) Sentence { return g }

// Field layout:
//
//	 1: time (HHMMSS.00, UTC)
//	 2: latitude (ddmm.mmmmmmm)   3: N/S
//	 4: longitude (dddmm.mmmmmmm) 5: E/W
//	 6: fix quality
//	 7: satellites in use
//	 8: HDOP
//	 9: height (meters)          10: M
//	11: geoid separation (meters) 12: M
//	13: age of corrections (seconds)
//	14: station id
func (g GGA) writeBody(b *strings.Builder) {
	b.WriteString("GPGGA,")
	if g.Time != nil {
		// The ".00" is literal; the format carries no sub-second digits.
		b.WriteString(g.Time.UTC().Format("150405"))
		b.WriteString(".00,")
	} else {
		b.WriteByte(',')
	}
	writeAngle(b, g.Lat, 2, 'N', 'S')
	writeAngle(b, g.Lon, 3, 'E', 'W')
	if g.FixQuality != nil {
		fmt.Fprintf(b, "%d,", *g.FixQuality)
	} else {
		b.WriteByte(',')
	}
	if g.Satellites != nil {
		fmt.Fprintf(b, "%d,", *g.Satellites)
	} else {
		b.WriteByte(',')
	}
	if g.HDOP != nil {
		fmt.Fprintf(b, "%.1f,", *g.HDOP)
	} else {
		b.WriteByte(',')
	}
	if g.Height != nil {
		fmt.Fprintf(b, "%.2f,M,", *g.Height)
	} else {
		b.WriteString(",M,")
	}
	if g.GeoidHeight != nil {
		fmt.Fprintf(b, "%.1f,M,", *g.GeoidHeight)
	} else {
		b.WriteString(",M,")
	}
	if g.CorrectionAge != nil {
		fmt.Fprintf(b, "%.1f,", *g.CorrectionAge)
	} else {
		b.WriteByte(',')
	}
	if g.StationID != nil {
		fmt.Fprintf(b, "%04d", *g.StationID)
	}
}

// writeAngle renders an angle as zero-padded whole degrees (two digits for
// latitude, three for longitude) plus decimal minutes with seven fractional
// digits, then the hemisphere letter. The value is rounded to eight decimal
// places before the degree/minute split; the hemisphere letter comes from
// the sign of the unrounded input.
func writeAngle(b *strings.Builder, v *float64, degDigits int, pos, neg byte) {
	if v == nil {
		b.WriteString(",,")
		return
	}
	abs := math.Abs(math.Round(*v*1e8) / 1e8)
	deg := int(abs)
	min := (abs - float64(deg)) * 60
	hemi := pos
	if *v < 0 {
		hemi = neg
	}
	fmt.Fprintf(b, "%0*d%010.7f,%c,", degDigits, deg, min, hemi)
}

// CRA is a PSWTCRA correction area request.
type CRA struct {
	RequestCounter  *uint8
	AreaID          *uint32
	CorrectionsMask *uint16
	SolutionID      *uint8
}

func (c CRA) Stamp(time.Time) Sentence { return c }

func (c CRA) WithCounter(n uint8) Sentence {
	c.RequestCounter = &n
	return c
}

// Field layout:
//
//	1: request counter (wraps at 256)
//	2: area id
//	3: corrections mask
//	4: solution id
func (c CRA) writeBody(b *strings.Builder) {
	b.WriteString("PSWTCRA,")
	if c.RequestCounter != nil {
		fmt.Fprintf(b, "%d,", *c.RequestCounter)
	} else {
		b.WriteByte(',')
	}
	if c.AreaID != nil {
		fmt.Fprintf(b, "%d,", *c.AreaID)
	} else {
		b.WriteByte(',')
	}
	if c.CorrectionsMask != nil {
		fmt.Fprintf(b, "%d,", *c.CorrectionsMask)
	} else {
		b.WriteByte(',')
	}
	if c.SolutionID != nil {
		fmt.Fprintf(b, "%d", *c.SolutionID)
	}
}
