package textproto

import (
	"bytes"
	"strconv"
)

// MaxLineLen is the longest a command line (excluding the trailing
// CRLF) may be before the decoder treats it as malformed.
const MaxLineLen = 4096

// MaxValueLen is the largest SET payload accepted.
const MaxValueLen = 1 << 20

const crlf = "\r\n"

type decoderState uint8

const (
	stateReady decoderState = iota
	stateAwaitingData
	stateResyncing
)

// Decoder turns a byte stream into a sequence of Commands, one
// command per line except SET, whose trailing data phase is tracked
// across calls. It is not safe for concurrent use; one Decoder serves
// one connection.
type Decoder struct {
	state   decoderState
	pending Command // set command parsed so far, Value filled once the data phase completes
	want    int     // bytes wanted in the pending data phase, excluding the trailing CRLF
}

// Decode attempts to advance past the next command in buf. It
// returns the number of bytes of buf that were consumed this call
// and whether a Command was produced. A zero-length, false result
// means buf does not yet hold a complete command and the caller must
// wait for more bytes before calling again. A non-zero n with false
// ok means internal state advanced (e.g. a SET's command line was
// consumed while its data phase is still pending, or a line resync is
// still hunting for the next CRLF) and Decode should be called again
// immediately with the remaining bytes.
func (d *Decoder) Decode(buf []byte) (cmd Command, n int, ok bool) {
	switch d.state {
	case stateAwaitingData:
		return d.decodeData(buf)
	case stateResyncing:
		return d.resync(buf)
	default:
		return d.decodeLine(buf)
	}
}

func (d *Decoder) decodeData(buf []byte) (Command, int, bool) {
	need := d.want + 2
	if len(buf) < need {
		return Command{}, 0, false
	}
	value := make([]byte, d.want)
	copy(value, buf[:d.want])
	cmd := d.pending
	cmd.Value = value
	d.pending = Command{}
	d.state = stateReady
	return cmd, need, true
}

func (d *Decoder) resync(buf []byte) (Command, int, bool) {
	i := bytes.Index(buf, []byte(crlf))
	if i < 0 {
		return Command{}, len(buf), false
	}
	d.state = stateReady
	return Command{Kind: KindClientError, Msg: "bad command line format"}, i + 2, true
}

func (d *Decoder) decodeLine(buf []byte) (Command, int, bool) {
	i := bytes.Index(buf, []byte(crlf))
	if i < 0 {
		if len(buf) > MaxLineLen {
			d.state = stateResyncing
			return Command{}, len(buf), false
		}
		return Command{}, 0, false
	}
	if i > MaxLineLen {
		return Command{Kind: KindClientError, Msg: "bad command line format"}, i + 2, true
	}

	line := buf[:i]
	consumed := i + 2
	fields := bytes.Fields(line)
	if len(fields) == 0 {
		return Command{Kind: KindUnknownCommand}, consumed, true
	}

	switch string(fields[0]) {
	case "set":
		return d.decodeSet(fields, consumed)
	case "get", "gets":
		return decodeGet(fields, consumed)
	case "delete":
		return decodeDelete(fields, consumed)
	case "flush_all":
		return Command{Kind: KindFlushAll}, consumed, true
	case "stats":
		return Command{Kind: KindStats}, consumed, true
	case "quit":
		return Command{Kind: KindQuit}, consumed, true
	default:
		return Command{Kind: KindUnknownCommand}, consumed, true
	}
}

// decodeSet parses "set <key> <flags> <exptime> <bytes>". On success
// it does not yet return a Set Command: it arms the data phase and
// tells the caller to call Decode again once more bytes arrive. A
// malformed line or an out-of-range byte count is reported
// immediately and the data phase is never entered.
func (d *Decoder) decodeSet(fields [][]byte, consumed int) (Command, int, bool) {
	if len(fields) != 5 {
		return Command{Kind: KindClientError, Msg: "bad command line format"}, consumed, true
	}
	flags, err1 := strconv.ParseUint(string(fields[2]), 10, 32)
	exptime, err2 := strconv.ParseInt(string(fields[3]), 10, 64)
	nbytes, err3 := strconv.Atoi(string(fields[4]))
	if err1 != nil || err2 != nil || err3 != nil {
		return Command{Kind: KindClientError, Msg: "bad command line format"}, consumed, true
	}
	if nbytes < 0 || nbytes > MaxValueLen {
		return Command{Kind: KindClientError, Msg: "bad data chunk"}, consumed, true
	}

	d.state = stateAwaitingData
	d.want = nbytes
	d.pending = Command{
		Kind:    KindSet,
		Keys:    [][]byte{cloneBytes(fields[1])},
		Flags:   uint32(flags),
		Exptime: exptime,
	}
	return Command{}, consumed, false
}

func decodeGet(fields [][]byte, consumed int) (Command, int, bool) {
	if len(fields) < 2 {
		return Command{Kind: KindClientError, Msg: "bad command line format"}, consumed, true
	}
	keys := make([][]byte, len(fields)-1)
	for i, f := range fields[1:] {
		keys[i] = cloneBytes(f)
	}
	return Command{Kind: KindGet, Keys: keys}, consumed, true
}

func decodeDelete(fields [][]byte, consumed int) (Command, int, bool) {
	if len(fields) != 2 {
		return Command{Kind: KindClientError, Msg: "bad command line format"}, consumed, true
	}
	return Command{Kind: KindDelete, Keys: [][]byte{cloneBytes(fields[1])}}, consumed, true
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
