package profiling

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordodb/ordo/internal/wire"
)

func TestNilRecorderObserveIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() { r.Observe(wire.Read, time.Millisecond) })
}

func TestDisabledRecorderObserveIsNoop(t *testing.T) {
	r := NewRecorder(Config{})
	assert.NotPanics(t, func() { r.Observe(wire.Read, time.Millisecond) })
	assert.NoError(t, r.Close())
}

func TestTimingLogWritesCSVLine(t *testing.T) {
	dir, err := ioutil.TempDir("", "ordo-profiling-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "timing.log")
	r := NewRecorder(Config{TimingLogPath: path})
	r.Observe(wire.Write, 5*time.Millisecond)
	require.NoError(t, r.Close())

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "WRITE")
}

func TestHistogramRegistrationIsIdempotent(t *testing.T) {
	dir, err := ioutil.TempDir("", "ordo-profiling-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	assert.NotPanics(t, func() {
		r1 := NewRecorder(Config{Profile: true, ProfileDir: dir})
		r2 := NewRecorder(Config{Profile: true, ProfileDir: dir})
		require.NoError(t, r1.Close())
		require.NoError(t, r2.Close())
	})
}

func TestProfileAggregatorWritesCSVOnClose(t *testing.T) {
	dir, err := ioutil.TempDir("", "ordo-profiling-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	r := NewRecorder(Config{Profile: true, ProfileDir: dir})
	r.Observe(wire.Read, time.Millisecond)
	r.Observe(wire.Read, 2*time.Millisecond)
	require.NoError(t, r.Close())

	data, err := ioutil.ReadFile(filepath.Join(dir, "profile.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "READ")
}
