package sink

import (
	"bytes"
	"io"
	"testing"

	serial "github.com/jacobsa/go-serial/serial"
)

type fakePort struct {
	bytes.Buffer
	closed bool
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func installFakePort(t *testing.T) (*fakePort, *serial.OpenOptions) {
	t.Helper()
	port := &fakePort{}
	got := &serial.OpenOptions{}
	old := openPort
	openPort = func(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
		*got = opts
		return port, nil
	}
	t.Cleanup(func() { openPort = old })
	return port, got
}

func TestOpenSerial_Defaults(t *testing.T) {
	port, got := installFakePort(t)

	w, err := openSerial("/dev/ttyUSB0", "")
	if err != nil {
		t.Fatalf("openSerial() error: %v", err)
	}
	defer w.Close()

	if got.PortName != "/dev/ttyUSB0" {
		t.Fatalf("port=%q want /dev/ttyUSB0", got.PortName)
	}
	if got.BaudRate != 115200 {
		t.Fatalf("baud=%d want 115200", got.BaudRate)
	}
	if got.DataBits != 8 || got.StopBits != 1 || got.ParityMode != serial.PARITY_NONE {
		t.Fatalf("framing=%+v want 8N1", *got)
	}
	if got.MinimumReadSize != 1 {
		t.Fatalf("MinimumReadSize=%d want 1", got.MinimumReadSize)
	}

	if _, err := w.Write([]byte{0xD3, 0x00}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if !bytes.Equal(port.Bytes(), []byte{0xD3, 0x00}) {
		t.Fatalf("port saw %v", port.Bytes())
	}
}

func TestOpenSerial_ExplicitBaud(t *testing.T) {
	_, got := installFakePort(t)

	if _, err := openSerial("/dev/ttyACM0", "9600"); err != nil {
		t.Fatalf("openSerial() error: %v", err)
	}
	if got.BaudRate != 9600 {
		t.Fatalf("baud=%d want 9600", got.BaudRate)
	}
}

func TestOpenSerial_InvalidBaud(t *testing.T) {
	called := false
	old := openPort
	openPort = func(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
		called = true
		return &fakePort{}, nil
	}
	t.Cleanup(func() { openPort = old })

	for _, baud := range []string{"abc", "0", "-1"} {
		if _, err := openSerial("/dev/ttyUSB0", baud); err == nil {
			t.Errorf("openSerial(baud=%q) succeeded", baud)
		}
	}
	if called {
		t.Fatal("port opened despite an invalid baud rate")
	}
}

func TestOpen_SerialTarget(t *testing.T) {
	_, got := installFakePort(t)

	// Both the strict triple-slash form and the sloppy double-slash one
	// must land on the same device.
	for _, target := range []string{
		"serial:///dev/ttyACM0?baud=9600",
		"serial://dev/ttyACM0?baud=9600",
	} {
		w, err := Open(target)
		if err != nil {
			t.Fatalf("Open(%q): %v", target, err)
		}
		_ = w.Close()
		if got.PortName != "/dev/ttyACM0" {
			t.Errorf("Open(%q) port=%q want /dev/ttyACM0", target, got.PortName)
		}
		if got.BaudRate != 9600 {
			t.Errorf("Open(%q) baud=%d want 9600", target, got.BaudRate)
		}
	}
}
