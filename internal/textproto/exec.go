package textproto

import (
	"errors"
	"strconv"

	"github.com/emberkv/emberkv/internal/store"
)

// Version is the protocol-compatible version string reported by the
// stats command.
const Version = "1.0.0"

// Executor turns decoded Commands into wire response bytes by calling
// into a Store. internal/server shares one Executor across every
// connection, each connection on its own goroutine; the Executor holds
// no per-connection state and always calls through the Store's locked
// method set so
// concurrent connections never race on a shard's index or entry pool.
type Executor struct {
	store         *store.Store
	limitMaxBytes uint64
}

// NewExecutor creates an Executor over store, reporting limitMaxBytes
// as the stats command's configured pool size.
func NewExecutor(s *store.Store, limitMaxBytes uint64) *Executor {
	return &Executor{store: s, limitMaxBytes: limitMaxBytes}
}

// Exec runs cmd and appends the wire response to dst, returning the
// extended slice and whether the connection should close (true only
// for KindQuit).
func (ex *Executor) Exec(dst []byte, cmd Command, nowUnix int64) (out []byte, shouldClose bool) {
	switch cmd.Kind {
	case KindSet:
		return ex.execSet(dst, cmd, nowUnix), false
	case KindGet:
		return ex.execGet(dst, cmd), false
	case KindDelete:
		return ex.execDelete(dst, cmd), false
	case KindFlushAll:
		ex.store.Flush()
		return append(dst, "OK\r\n"...), false
	case KindStats:
		return ex.execStats(dst), false
	case KindQuit:
		return dst, true
	case KindClientError:
		return append(append(dst, "CLIENT_ERROR "...), appendCRLF(cmd.Msg)...), false
	default:
		return append(dst, "ERROR\r\n"...), false
	}
}

// execSet resolves cmd.Exptime (seconds from now, per the wire
// protocol) to an absolute expiration before storing. A negative
// value is treated as already expired rather than clamped to "never".
func (ex *Executor) execSet(dst []byte, cmd Command, nowUnix int64) []byte {
	var expireAt int64
	switch {
	case cmd.Exptime < 0:
		expireAt = nowUnix - 1
	case cmd.Exptime == 0:
		expireAt = 0
	default:
		expireAt = nowUnix + cmd.Exptime
	}

	err := ex.store.Set(cmd.Keys[0], cmd.Value, cmd.Flags, expireAt)
	switch {
	case err == nil:
		return append(dst, "STORED\r\n"...)
	case errors.Is(err, store.ErrKeyTooLarge):
		return append(dst, "CLIENT_ERROR bad command line format\r\n"...)
	default:
		return append(dst, "SERVER_ERROR out of memory\r\n"...)
	}
}

func (ex *Executor) execGet(dst []byte, cmd Command) []byte {
	for _, key := range cmd.Keys {
		value, flags, found := ex.store.Get(key)
		if !found {
			continue
		}
		dst = append(dst, "VALUE "...)
		dst = append(dst, key...)
		dst = append(dst, ' ')
		dst = appendUint(dst, uint64(flags))
		dst = append(dst, ' ')
		dst = appendUint(dst, uint64(len(value)))
		dst = append(dst, crlf...)
		dst = append(dst, value...)
		dst = append(dst, crlf...)
	}
	return append(dst, "END\r\n"...)
}

func (ex *Executor) execDelete(dst []byte, cmd Command) []byte {
	if ex.store.Delete(cmd.Keys[0]) {
		return append(dst, "DELETED\r\n"...)
	}
	return append(dst, "NOT_FOUND\r\n"...)
}

// execStats emits the wire-mandated STAT lines, including the
// bloom_bits/bloom_fill_pct/storage_mode compatibility fields. These
// are fixed literals, not a live reading of internal/bloom's
// occupancy: they exist for client compatibility, not introspection.
func (ex *Executor) execStats(dst []byte) []byte {
	st := ex.store.Stats()
	dst = appendStat(dst, "version", Version)
	dst = appendStatUint(dst, "curr_items", st.CurrItems)
	dst = appendStatUint(dst, "bytes", st.Bytes)
	dst = appendStatUint(dst, "limit_maxbytes", ex.limitMaxBytes)
	dst = appendStatUint(dst, "get_hits", st.GetHits)
	dst = appendStatUint(dst, "get_misses", st.GetMisses)
	dst = appendStatUint(dst, "bloom_bits", 0)
	dst = appendStat(dst, "bloom_fill_pct", "0.00")
	dst = appendStat(dst, "storage_mode", "hash")
	return append(dst, "END\r\n"...)
}

func appendStat(dst []byte, name, value string) []byte {
	dst = append(dst, "STAT "...)
	dst = append(dst, name...)
	dst = append(dst, ' ')
	dst = append(dst, value...)
	return append(dst, crlf...)
}

func appendStatUint(dst []byte, name string, value uint64) []byte {
	dst = append(dst, "STAT "...)
	dst = append(dst, name...)
	dst = append(dst, ' ')
	dst = appendUint(dst, value)
	return append(dst, crlf...)
}

func appendUint(dst []byte, v uint64) []byte {
	return append(dst, strconv.FormatUint(v, 10)...)
}

func appendCRLF(msg string) []byte {
	return append([]byte(msg), crlf...)
}
