// Package profiling implements the gateway's two optional timing
// instruments, both named in the protocol notes as environment-driven
// switches:
//
//   - ORDO_PROFILE (Config.Profile) records every observation in a
//     github.com/prometheus/client_golang histogram and in plain per-opcode
//     counters, and starts a background goroutine that drains those
//     counters once per second into one CSV line per opcode under a log
//     directory.
//   - LINEAIRDB_PROTOBUF_TIMING_LOG (Config.TimingLogPath) names an
//     append-only per-RPC timing record log, opened through
//     gopkg.in/natefinch/lumberjack.v2 so it rotates instead of growing
//     unboundedly.
//
// Both are purely additive: a Recorder with neither enabled costs one nil
// check per frame and changes no dispatch semantics.
package profiling

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ordodb/ordo/internal/wire"
)

// frameLatency is the histogram of per-opcode dispatch latency. It is
// registered lazily by NewRecorder so a process that never enables
// profiling never touches the default prometheus registry.
var frameLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "ordo",
		Name:      "frame_dispatch_seconds",
		Help:      "Time to dispatch and respond to one RPC frame, by opcode.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 12),
	},
	[]string{"opcode"},
)

var (
	registerOnce sync.Once
)

// defaultLogDir mirrors the teacher's own on-disk log directory
// convention for this kind of ambient, disableable-by-default output.
const defaultLogDir = "./lineairdb_logs"

// aggregateInterval is how often the CSV aggregator drains its counters.
const aggregateInterval = time.Second

// Config controls which instruments NewRecorder turns on.
type Config struct {
	// Profile enables the Prometheus histogram and the per-second CSV
	// aggregator, which drains its own counters rather than the histogram.
	Profile bool
	// ProfileDir overrides defaultLogDir for the CSV aggregator's output.
	ProfileDir string
	// TimingLogPath, if non-empty, enables the rotating per-RPC timing log
	// at that path.
	TimingLogPath string
}

// Recorder observes one frame's dispatch latency per the enabled
// instruments. A zero-value *Recorder (or nil) is a safe no-op.
type Recorder struct {
	histogramEnabled bool
	counters         *opcodeCounters
	stopAggregate    chan struct{}
	aggregateDone    chan struct{}

	timingLog *lumberjack.Logger
}

// NewRecorder builds a Recorder per cfg. It is safe to call more than once
// per process (e.g. from tests); the Prometheus registration happens at
// most once globally.
func NewRecorder(cfg Config) *Recorder {
	r := &Recorder{histogramEnabled: cfg.Profile}

	if cfg.Profile {
		registerOnce.Do(func() { prometheus.MustRegister(frameLatency) })
		r.counters = newOpcodeCounters()
		r.stopAggregate = make(chan struct{})
		r.aggregateDone = make(chan struct{})
		dir := cfg.ProfileDir
		if dir == "" {
			dir = defaultLogDir
		}
		go r.runAggregator(dir)
	}

	if cfg.TimingLogPath != "" {
		r.timingLog = &lumberjack.Logger{
			Filename:   cfg.TimingLogPath,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		}
	}
	return r
}

// Observe records one frame's dispatch latency against every enabled
// instrument. It is safe to call on a nil *Recorder.
func (r *Recorder) Observe(messageType wire.MessageType, elapsed time.Duration) {
	if r == nil {
		return
	}
	if r.histogramEnabled {
		frameLatency.WithLabelValues(messageType.String()).Observe(elapsed.Seconds())
		r.counters.add(messageType, elapsed)
	}
	if r.timingLog != nil {
		fmt.Fprintf(r.timingLog, "%d,%s,%d\n", time.Now().UnixNano(), messageType.String(), elapsed.Nanoseconds())
	}
}

// Close stops the CSV aggregator goroutine, if running, and releases the
// timing log's file handle, if one was opened. Safe to call on nil.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	if r.stopAggregate != nil {
		close(r.stopAggregate)
		<-r.aggregateDone
	}
	if r.timingLog != nil {
		return r.timingLog.Close()
	}
	return nil
}

// runAggregator drains r.counters on a one-second tick, appending one CSV
// row per opcode with a non-zero count to dir/profile.csv.
func (r *Recorder) runAggregator(dir string) {
	defer close(r.aggregateDone)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, "profile.csv"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	ticker := time.NewTicker(aggregateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.counters.drainTo(f)
		case <-r.stopAggregate:
			r.counters.drainTo(f)
			return
		}
	}
}
