// Package textproto implements the memcached text protocol: a line
// framer that decodes one command at a time off a byte stream
// (tracking a pending SET data phase across calls) and an executor
// that turns a decoded command into wire response bytes by calling
// into a store.
package textproto

// Kind identifies which command (or parse failure) a Command
// represents.
type Kind uint8

const (
	KindSet Kind = iota
	KindGet
	KindDelete
	KindFlushAll
	KindStats
	KindQuit
	KindClientError
	KindUnknownCommand
)

// Command is one fully decoded request. Which fields are meaningful
// depends on Kind: Keys[0] for Set/Delete, Keys for Get (one or
// more, multi-get), Flags/Exptime/Value for Set, Msg for
// KindClientError.
type Command struct {
	Kind    Kind
	Keys    [][]byte
	Flags   uint32
	Exptime int64
	Value   []byte
	Msg     string
}
