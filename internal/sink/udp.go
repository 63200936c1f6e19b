package sink

import (
	"fmt"
	"net"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)

type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// datagramSink frames every written chunk as one UDP datagram. Chunks
// arrive from the caster transport-sized, so RTCM message boundaries are
// preserved whenever the caster writes messages whole.
type datagramSink struct {
	dest string
	conn udpConn
}

func newDatagramSink(dest string, resolve resolveFunc, dial dialFunc) (*datagramSink, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// Dialing with a nil local address picks a suitable one automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &datagramSink{dest: dest, conn: conn}, nil
}

func openUDP(dest string) (*datagramSink, error) {
	return newDatagramSink(dest, net.ResolveUDPAddr,
		func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
			return net.DialUDP(network, laddr, raddr)
		})
}

func (s *datagramSink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := s.conn.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *datagramSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
