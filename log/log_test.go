package log

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var (
	sampleRound    = 3
	sampleVoter    = []byte{0xde, 0xad, 0xbe, 0xef}
	sampleCounts   = []uint32{2, 4}
	sampleDuration = time.Second
	sampleTime     = time.Unix(12345678, 0)

	errSample = errors.New("some error")
)

func doLogs() {
	Infof("round %d finalized with %d signatures", sampleRound, len(sampleCounts))
	Debugw("vote accepted", "round", sampleRound, "voter", sampleVoter)
	Errorf("cannot persist round state: %v", errSample)
	Warnw("various types",
		"counts", sampleCounts,
		"duration", sampleDuration,
		"time", sampleTime,
	)
	Error(errSample)
}

func TestCheckInvalidChars(t *testing.T) {
	t.Cleanup(func() { panicOnInvalidChars = false })

	v := []byte{'h', 'e', 'l', 'l', 'o', 0xff, 'w', 'o', 'r', 'l', 'd'}
	panicOnInvalidChars = false
	Init("debug", "stderr", nil)
	Debugf("%s", v)
	// should not panic since env var is false. if it panics, test will fail

	// now enable panic and try again: should recover() and never reach t.Errorf()
	panicOnInvalidChars = true
	Init("debug", "stderr", nil)
	defer func() { recover() }()
	Debugf("%s", v)
	t.Errorf("Debugf(%s) should have panicked because of invalid char", v)
}

func TestLevelFiltering(t *testing.T) {
	c := qt.New(t)
	t.Cleanup(func() {
		logTestWriter = nil
		Init("error", "stderr", nil)
	})

	buf := &bytes.Buffer{}
	logTestWriter = buf
	Init("warn", logTestWriterName, nil)
	c.Assert(Level(), qt.Equals, LogLevelWarn)

	Debugw("hidden", "round", 1)
	Infow("hidden too", "round", 1)
	c.Assert(buf.Len(), qt.Equals, 0)

	Warnw("visible", "round", 2)
	c.Assert(buf.String(), qt.Contains, `"message":"visible"`)
	c.Assert(buf.String(), qt.Contains, `"round":2`)
}

func TestErrorOutputCopiesWarnings(t *testing.T) {
	c := qt.New(t)
	t.Cleanup(func() {
		logTestWriter = nil
		Init("error", "stderr", nil)
	})

	logTestWriter = io.Discard
	errOut := &bytes.Buffer{}
	Init("debug", logTestWriterName, errOut)

	Infow("not an error")
	c.Assert(errOut.Len(), qt.Equals, 0)

	Errorw(errSample, "round stalled")
	c.Assert(errOut.String(), qt.Contains, "round stalled")
	c.Assert(errOut.String(), qt.Contains, "some error")
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard // to not grow a buffer
	Init("debug", logTestWriterName, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}
