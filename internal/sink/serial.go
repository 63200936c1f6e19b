package sink

import (
	"fmt"
	"io"
	"strconv"

	serial "github.com/jacobsa/go-serial/serial"
)

var openPort = serial.Open

// openSerial opens dev as an 8N1 serial sink. The baud rate comes from
// the target's query string, 115200 when unset.
func openSerial(dev, baud string) (io.WriteCloser, error) {
	rate := uint64(115200)
	if baud != "" {
		v, err := strconv.ParseUint(baud, 10, 32)
		if err != nil || v == 0 {
			return nil, fmt.Errorf("invalid baud rate %q", baud)
		}
		rate = v
	}

	port, err := openPort(serial.OpenOptions{
		PortName:        dev,
		BaudRate:        uint(rate),
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port: %w", err)
	}
	return port, nil
}
