package nmea

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrChecksumMismatch reports a structurally valid frame whose carried
// checksum does not match its body.
var ErrChecksumMismatch = errors.New("nmea: checksum mismatch")

// Verify checks that line is a well-formed "$<body>*<HH>" frame and that
// HH matches the computed checksum of the body. A trailing CR/LF is
// accepted. Mismatches wrap ErrChecksumMismatch so callers replaying
// recorded traffic can log them and still send the frame as-is.
func Verify(line string) error {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "$") {
		return fmt.Errorf("nmea: missing '$'")
	}
	star := strings.LastIndexByte(line, '*')
	if star == -1 {
		return fmt.Errorf("nmea: missing checksum")
	}
	ck := line[star+1:]
	if len(ck) != 2 {
		return fmt.Errorf("nmea: checksum must be two hex digits, have %q", ck)
	}
	want, err := hex.DecodeString(ck)
	if err != nil {
		return fmt.Errorf("nmea: bad checksum %q", ck)
	}
	if got := Checksum(line[:star]); got != want[0] {
		return fmt.Errorf("%w: frame carries %02X, body computes to %02X", ErrChecksumMismatch, want[0], got)
	}
	return nil
}
