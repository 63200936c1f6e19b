// Package caster implements the client side of an NTRIP correction
// session: dial, HTTP-style GET handshake, then a duplex exchange over the
// same TCP stream. A Conn splits exactly once into a Sender for uplink
// sentences and a Receiver for the downlink correction bytes.
//
// Casters answer the handshake in one of three shapes:
//   - a regular HTTP/1.x status line, optionally with chunked encoding
//   - an "ICY 200 OK" line from NTRIP 1.0 casters
//   - no status line at all, the stream starting immediately (HTTP/0.9
//     style; SOURCETABLE listings also arrive this way)
//
// Connect handles all three.
package caster
