package textproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberkv/emberkv/internal/store"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	s, err := store.Open(store.Config{ShardCount: 4, PoolBytes: 4 * 4 << 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewExecutor(s, 64<<20)
}

func run(t *testing.T, ex *Executor, input string, now int64) string {
	t.Helper()
	d := &Decoder{}
	var out []byte
	buf := []byte(input)
	total := 0
	for {
		cmd, n, ok := d.Decode(buf[total:])
		if n == 0 && !ok {
			break
		}
		total += n
		if !ok {
			continue
		}
		var closed bool
		out, closed = ex.Exec(out, cmd, now)
		if closed {
			break
		}
	}
	return string(out)
}

// TestScenario1 covers a basic set followed by a get of the same key.
func TestScenario1(t *testing.T) {
	ex := newTestExecutor(t)
	got := run(t, ex, "set foo 0 0 5\r\nhello\r\nget foo\r\n", 0)
	assert.Equal(t, "STORED\r\nVALUE foo 0 5\r\nhello\r\nEND\r\n", got)
}

// TestScenario2 covers a get of a key that was never set.
func TestScenario2(t *testing.T) {
	ex := newTestExecutor(t)
	got := run(t, ex, "get missing\r\n", 0)
	assert.Equal(t, "END\r\n", got)
}

// TestScenario3 covers pipelined sets of the same key and a final get,
// checking the last write wins.
func TestScenario3(t *testing.T) {
	ex := newTestExecutor(t)
	got := run(t, ex, "set a 0 0 3\r\nxyz\r\nset a 0 0 2\r\nqq\r\nget a\r\n", 0)
	assert.Equal(t, "STORED\r\nSTORED\r\nVALUE a 0 2\r\nqq\r\nEND\r\n", got)
}

// TestScenario5 covers deleting a missing key, then deleting one that
// was just set.
func TestScenario5(t *testing.T) {
	ex := newTestExecutor(t)
	got := run(t, ex, "delete nope\r\n", 0)
	assert.Equal(t, "NOT_FOUND\r\n", got)

	got = run(t, ex, "set nope 0 0 1\r\nA\r\ndelete nope\r\n", 0)
	assert.Equal(t, "STORED\r\nDELETED\r\n", got)
}

// TestScenario6 covers a set whose declared byte count is absurdly
// large and must be rejected as a client error.
func TestScenario6(t *testing.T) {
	ex := newTestExecutor(t)
	got := run(t, ex, "set x 0 0 9999999\r\n", 0)
	assert.Equal(t, "CLIENT_ERROR bad data chunk\r\n", got)
}

// TestSetKeyTooLargeIsClientError checks that a key over the 250-byte
// limit is rejected as a client fault, not reported as the server
// having run out of memory.
func TestSetKeyTooLargeIsClientError(t *testing.T) {
	ex := newTestExecutor(t)
	key := make([]byte, 251)
	for i := range key {
		key[i] = 'k'
	}
	input := "set " + string(key) + " 0 0 1\r\nA\r\n"
	got := run(t, ex, input, 0)
	assert.Equal(t, "CLIENT_ERROR bad command line format\r\n", got)
}

func TestTTLExpiryAcrossWallClock(t *testing.T) {
	// Exec resolves exptime against the now it is given, while Get checks
	// expiry against the Store's own clock, so both read the same fake time.
	clock := int64(1000)
	s, err := store.Open(store.Config{ShardCount: 4, PoolBytes: 4 * 4 << 20, Now: func() int64 { return clock }})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ex := NewExecutor(s, 64<<20)

	got := run(t, ex, "set k 0 1 1\r\nZ\r\n", clock)
	assert.Equal(t, "STORED\r\n", got)

	got = run(t, ex, "get k\r\n", clock)
	assert.Equal(t, "VALUE k 0 1\r\nZ\r\nEND\r\n", got)

	clock = 1002
	got = run(t, ex, "get k\r\n", clock)
	assert.Equal(t, "END\r\n", got)
}

func TestNegativeExptimeIsAlreadyExpired(t *testing.T) {
	ex := newTestExecutor(t)
	got := run(t, ex, "set k 0 -5 1\r\nZ\r\n", 1000)
	assert.Equal(t, "STORED\r\n", got)

	got = run(t, ex, "get k\r\n", 1000)
	assert.Equal(t, "END\r\n", got)
}

func TestFlushAll(t *testing.T) {
	ex := newTestExecutor(t)
	run(t, ex, "set k 0 0 1\r\nA\r\n", 0)
	got := run(t, ex, "flush_all\r\n", 0)
	assert.Equal(t, "OK\r\n", got)

	got = run(t, ex, "get k\r\n", 0)
	assert.Equal(t, "END\r\n", got)
}

func TestStatsIncludesCompatibilityFields(t *testing.T) {
	ex := newTestExecutor(t)
	got := run(t, ex, "stats\r\n", 0)
	assert.Contains(t, got, "STAT bloom_bits 0\r\n")
	assert.Contains(t, got, "STAT bloom_fill_pct 0.00\r\n")
	assert.Contains(t, got, "STAT storage_mode hash\r\n")
	assert.Contains(t, got, "STAT version "+Version+"\r\n")
	assert.Contains(t, got, "END\r\n")
}

func TestUnknownCommandIsErrorLine(t *testing.T) {
	ex := newTestExecutor(t)
	got := run(t, ex, "bogus\r\n", 0)
	assert.Equal(t, "ERROR\r\n", got)
}

func TestQuitStopsProcessingPipeline(t *testing.T) {
	ex := newTestExecutor(t)
	got := run(t, ex, "set a 0 0 1\r\nA\r\nquit\r\nget a\r\n", 0)
	assert.Equal(t, "STORED\r\n", got, "commands after quit must not be executed")
}

// TestMultiGetIsSequentialOverEachKey covers multi-get: tolerated but
// not optimized beyond sequential lookup.
func TestMultiGetIsSequentialOverEachKey(t *testing.T) {
	ex := newTestExecutor(t)
	run(t, ex, "set a 0 0 1\r\nA\r\nset b 0 0 1\r\nB\r\n", 0)
	got := run(t, ex, "get a b missing\r\n", 0)
	assert.Equal(t, "VALUE a 0 1\r\nA\r\nVALUE b 0 1\r\nB\r\nEND\r\n", got)
}
