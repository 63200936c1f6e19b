package sink

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// Open returns the destination for received correction bytes. Recognized
// targets:
//
//	-                             standard output (the default)
//	path or file:///path          a file, truncated at open
//	udp://host:port               one datagram per received chunk
//	serial:///dev/tty?baud=N      a serial device, 8N1
//	mqtt://host:port/topic        one message per received chunk
func Open(target string) (io.WriteCloser, error) {
	if target == "" || target == "-" {
		return stdoutSink{}, nil
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" {
		return os.Create(target)
	}
	switch u.Scheme {
	case "file":
		return os.Create(u.Path)
	case "udp":
		return openUDP(u.Host)
	case "serial":
		dev := u.Path
		if u.Host != "" {
			dev = "/" + u.Host + u.Path
		}
		return openSerial(dev, u.Query().Get("baud"))
	case "mqtt":
		return openMQTT(u.Host, strings.TrimPrefix(u.Path, "/"))
	default:
		return nil, fmt.Errorf("unsupported output scheme %q", u.Scheme)
	}
}

// stdoutSink writes through to standard output and leaves it open on
// Close; the stream belongs to the process, not to the session.
type stdoutSink struct{}

func (stdoutSink) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func (stdoutSink) Close() error { return nil }
