package server

import (
	"net"

	"github.com/emberkv/emberkv/internal/textproto"
)

// initialInputSize is the starting capacity of a connection's input
// buffer; it grows geometrically from here and never shrinks for the
// life of the connection.
const initialInputSize = 64 * 1024

// flushThreshold is how many buffered output bytes trigger a write
// before the caller has finished draining all available input.
const flushThreshold = 256 * 1024

// readChunkSize is how much is read from the socket per wake-up.
const readChunkSize = 8 * 1024

// conn holds one client connection's buffers and protocol state. It
// is driven entirely from its own goroutine; nothing here is shared
// across goroutines. The Executor it calls is shared by every
// connection and goes through the store's locked method set.
type conn struct {
	nc      net.Conn
	decoder textproto.Decoder
	exec    *textproto.Executor
	now     func() int64

	in    []byte // accumulated, not-yet-decoded input
	inLen int

	out    [2][]byte // double-buffered output; out[active] accepts new appends
	active int
}

func newConn(nc net.Conn, exec *textproto.Executor, now func() int64) *conn {
	return &conn{
		nc:  nc,
		exec: exec,
		now: now,
		in:  make([]byte, initialInputSize),
		out: [2][]byte{make([]byte, 0, flushThreshold), make([]byte, 0, flushThreshold)},
	}
}

// serve drives the connection until the peer closes it, quit is
// received, or an I/O error occurs. It never returns an error: every
// failure mode ends the connection; no request is ever retried by the
// server.
func (c *conn) serve() {
	defer c.nc.Close()

	readBuf := make([]byte, readChunkSize)
	for {
		n, err := c.nc.Read(readBuf)
		if n == 0 || err != nil {
			return
		}
		c.appendInput(readBuf[:n])

		if c.drain() {
			c.flush()
			return
		}
		if err := c.flush(); err != nil {
			return
		}
	}
}

// appendInput grows the input buffer geometrically if needed and
// copies in new bytes after whatever is still pending decode.
func (c *conn) appendInput(b []byte) {
	need := c.inLen + len(b)
	if need > len(c.in) {
		newCap := len(c.in) * 2
		for newCap < need {
			newCap *= 2
		}
		grown := make([]byte, newCap)
		copy(grown, c.in[:c.inLen])
		c.in = grown
	}
	copy(c.in[c.inLen:], b)
	c.inLen += len(b)
}

// drain decodes and executes every complete command currently
// buffered, flushing mid-stream if output crosses flushThreshold, and
// reports whether a quit was processed.
func (c *conn) drain() (shouldClose bool) {
	consumed := 0
	for {
		cmd, n, ok := c.decoder.Decode(c.in[consumed:c.inLen])
		if n == 0 && !ok {
			break
		}
		consumed += n
		if !ok {
			continue
		}

		var closeNow bool
		c.out[c.active], closeNow = c.exec.Exec(c.out[c.active], cmd, c.now())
		if len(c.out[c.active]) >= flushThreshold {
			if err := c.flush(); err != nil {
				shouldClose = true
				break
			}
		}
		if closeNow {
			shouldClose = true
			break
		}
	}
	c.compact(consumed)
	return shouldClose
}

// compact discards the bytes decode has fully consumed, sliding
// whatever partial command remains back to the front of the buffer.
func (c *conn) compact(consumed int) {
	if consumed == 0 {
		return
	}
	remaining := c.inLen - consumed
	copy(c.in, c.in[consumed:c.inLen])
	c.inLen = remaining
}

// flush issues one vectored write of the active output buffer and
// toggles to the other one. Appends made after a flush begins (there
// are none here, since this connection is single-goroutine and writes
// are synchronous) would land in the now-active buffer per the
// double-buffering rule: a connection has exactly one vectored write
// in flight, and new bytes go to the inactive buffer.
func (c *conn) flush() error {
	buf := c.out[c.active]
	if len(buf) == 0 {
		return nil
	}
	nb := net.Buffers{buf}
	_, err := nb.WriteTo(c.nc)

	c.out[c.active] = c.out[c.active][:0]
	c.active = 1 - c.active
	return err
}
