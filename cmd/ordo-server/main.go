// Command ordo-server runs the gateway: it loads a TOML config file,
// opens the embedded engine, and serves the length-prefixed RPC protocol
// over TCP until killed. Flag and signal handling follow the teacher's
// tinykv-server command: github.com/spf13/cobra for the CLI surface,
// github.com/ngaut/log for logging, and a signal handler that exits the
// process immediately on SIGHUP/SIGINT/SIGTERM/SIGQUIT, without draining
// open connections.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ngaut/log"
	"github.com/spf13/cobra"

	"github.com/ordodb/ordo/internal/config"
	"github.com/ordodb/ordo/internal/engine"
	"github.com/ordodb/ordo/internal/netserver"
	"github.com/ordodb/ordo/internal/profiling"
)

var (
	configPath string
	listenAddr string
	profile    bool
)

func main() {
	root := &cobra.Command{
		Use:   "ordo-server",
		Short: "ordo-server runs the Ordo transactional gateway",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a TOML config file (optional)")
	root.Flags().StringVar(&listenAddr, "addr", "", "override the config's listen address")
	root.Flags().BoolVar(&profile, "profile", false, "enable the per-opcode latency histogram")

	if err := root.Execute(); err != nil {
		log.Fatalf("ordo-server: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	runtime.GOMAXPROCS(runtime.NumCPU())

	cfg := config.NewDefaultConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if profile {
		cfg.Profile = true
	}
	applyEnvOverrides(cfg)

	log.SetLevelByString(cfg.LogLevel)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)

	db, err := engine.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening engine: %w", err)
	}
	defer db.Close()

	recorder := profiling.NewRecorder(profiling.Config{
		Profile:       cfg.Profile,
		ProfileDir:    cfg.ProfileDir,
		TimingLogPath: cfg.TimingLogPath,
	})
	defer recorder.Close()

	maxPayload, err := cfg.MaxPayloadBytes()
	if err != nil {
		return err
	}
	server := netserver.New(db, maxPayload, recorder.Observe)

	go handleSignals()

	return server.Serve(cfg.ListenAddr)
}

// applyEnvOverrides lets the two profiling knobs be toggled without
// editing the config file, matching how they're described as environment
// switches: ORDO_PROFILE enables the latency histogram,
// LINEAIRDB_PROTOBUF_TIMING_LOG points at the rotating timing log.
func applyEnvOverrides(cfg *config.Config) {
	if os.Getenv("ORDO_PROFILE") != "" {
		cfg.Profile = true
	}
	if path := os.Getenv("LINEAIRDB_PROTOBUF_TIMING_LOG"); path != "" {
		cfg.TimingLogPath = path
	}
}

// handleSignals exits the process on SIGINT, SIGTERM, SIGHUP, or SIGQUIT.
// The original gateway does not attempt a graceful drain of in-flight
// connections on shutdown, and neither does this one: abrupt exit is the
// documented behavior, not an oversight.
func handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-sigCh
	log.Infof("ordo-server: received signal %v, shutting down", sig)
	os.Exit(0)
}
