package logging

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a test sink collecting delivered lines.
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) sink(_ Level, line string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	return true
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func TestLogger_DeliversInOrder(t *testing.T) {
	t.Parallel()

	l := New()
	defer l.Close()

	rec := &recorder{}
	l.AddSink(rec.sink)

	l.Info("first %d", 1)
	l.Warn("second %d", 2)
	id := l.Error("third %d", 3)
	l.WaitUntilWritten(id)

	lines := rec.snapshot()
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "INFO: first 1")
	assert.Contains(t, lines[1], "WARN: second 2")
	assert.Contains(t, lines[2], "ERROR: third 3")
}

func TestLogger_MonotonicIDs(t *testing.T) {
	t.Parallel()

	l := New()
	defer l.Close()
	l.AddSink(func(Level, string) bool { return true })

	a := l.Info("a")
	b := l.Info("b")
	assert.Equal(t, a+1, b)
}

func TestLogger_HoldsEntriesUntilSinkRegistered(t *testing.T) {
	t.Parallel()

	l := New()
	defer l.Close()

	id := l.Info("early")
	require.NotZero(t, id)

	rec := &recorder{}
	l.AddSink(rec.sink)
	l.WaitUntilWritten(id)

	lines := rec.snapshot()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "early")
}

func TestLogger_DropsOldestOnOverflow(t *testing.T) {
	t.Parallel()

	l := New()
	defer l.Close()
	l.SetMaxEntries(5)

	var lastHeld uint64
	for i := 0; i < 10; i++ {
		lastHeld = l.Info("entry %d", i)
	}

	rec := &recorder{}
	l.AddSink(rec.sink)
	// let the held entries drain before queueing another one, which
	// would otherwise push entry 5 out of the bounded queue
	l.WaitUntilWritten(lastHeld)
	l.AddSync(LevelInfo, "last")

	lines := rec.snapshot()
	// 5 retained + the AddSync entry; entries 0..4 were dropped
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "entry 5")
	assert.Contains(t, lines[4], "entry 9")
	assert.Contains(t, lines[5], "last")
}

func TestLogger_RemoveSink(t *testing.T) {
	t.Parallel()

	l := New()
	defer l.Close()

	rec := &recorder{}
	id := l.AddSink(rec.sink)

	l.AddSync(LevelInfo, "before")
	assert.True(t, l.RemoveSink(id))
	assert.False(t, l.RemoveSink(id))

	keep := &recorder{}
	l.AddSink(keep.sink)
	l.AddSync(LevelInfo, "after")

	assert.Len(t, rec.snapshot(), 1)
	assert.Len(t, keep.snapshot(), 1)
}

func TestLogger_CloseStopsAccepting(t *testing.T) {
	t.Parallel()

	l := New()
	rec := &recorder{}
	l.AddSink(rec.sink)

	id := l.Info("pre-close")
	l.WaitUntilWritten(id)
	l.Close()

	assert.Zero(t, l.Add(LevelInfo, "post-close"))
	assert.Len(t, rec.snapshot(), 1)

	// a second Close is a no-op
	l.Close()
}

func TestLogger_CloseDiscardsWithoutSinks(t *testing.T) {
	t.Parallel()

	l := New()
	l.Info("never delivered")
	l.Close()
	// nothing to assert beyond clean shutdown without a sink
}

func TestWriterSink(t *testing.T) {
	t.Parallel()

	l := New()
	defer l.Close()

	var buf strings.Builder
	var mu sync.Mutex
	l.AddSink(func(level Level, line string) bool {
		mu.Lock()
		defer mu.Unlock()
		return WriterSink(&buf)(level, line)
	})

	l.AddSync(LevelWarn, "to writer")

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, buf.String(), "WARN: to writer")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestLogger_ConcurrentAdds(t *testing.T) {
	t.Parallel()

	l := New()
	defer l.Close()

	rec := &recorder{}
	l.AddSink(rec.sink)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				l.Info("worker %d entry %d", g, i)
			}
		}(g)
	}
	wg.Wait()
	l.AddSync(LevelInfo, "fence")

	lines := rec.snapshot()
	assert.Equal(t, "fence", lastWord(lines[len(lines)-1]))
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	return fields[len(fields)-1]
}
