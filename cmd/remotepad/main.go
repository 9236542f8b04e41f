// remotepad - remote input surface transport host
//
// This is the main entry point for the remotepad host. It loads a connection
// profile, sets up the selected transport and streams input events read from
// stdin, one payload per line. Inbound payloads on bidirectional transports
// are echoed to stdout.
//
//	printf 'BTN:A:1\nBTN:A:0\n' | REMOTEPAD_CONFIG=configs/remotepad.yaml remotepad
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/remotepad/internal/connection"
	"github.com/nerrad567/remotepad/internal/infrastructure/config"
	"github.com/nerrad567/remotepad/internal/infrastructure/logging"
	"github.com/nerrad567/remotepad/internal/infrastructure/network"
	"github.com/nerrad567/remotepad/internal/transport"
	"github.com/nerrad567/remotepad/internal/transport/bluetooth"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/remotepad.yaml"

// tearDownTimeout bounds TearDown once the run context is gone.
const tearDownTimeout = 10 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - in: Source of outbound payloads, one per line
//   - out: Destination for inbound payloads
//
// Returns:
//   - error: nil when in is exhausted or ctx ends, or error describing failure
func run(ctx context.Context, in io.Reader, out io.Writer) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting remotepad",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	conn, err := transport.NewFromProfile(cfg.Connection, transport.Environment{
		Logger:    log,
		Network:   network.NewInterfaces(cfg.Network.WifiInterfaces),
		Bluetooth: bluetooth.NewRFCOMMAdapter(cfg.Bluetooth.RFCOMMChannel),
	})
	if err != nil {
		return fmt.Errorf("building connection: %w", err)
	}
	log.Info("connection built", "type", conn.Type())

	stopEcho := echoInbound(conn, out, log)
	defer stopEcho()

	defer func() {
		tdCtx, cancel := context.WithTimeout(context.Background(), tearDownTimeout)
		defer cancel()
		conn.TearDown(tdCtx)
		log.Info("connection torn down", "state", conn.States().Current())
	}()

	conn.Setup(ctx)
	state := conn.States().Current()
	if state.Kind() == connection.KindFailure {
		return fmt.Errorf("setting up %s connection: %s", conn.Type(), state)
	}
	log.Info("connection ready", "state", state)

	if addr, ok := conn.(interface{ Address() string }); ok {
		log.Info("listening", "address", addr.Address())
	}

	return pump(ctx, conn, in)
}

// echoInbound copies inbound payloads to out until the returned stop
// function is called. Write-only transports are ignored.
func echoInbound(conn connection.Connection, out io.Writer, log *logging.Logger) func() {
	r, ok := conn.(connection.Receiver)
	if !ok {
		return func() {}
	}

	ch, cancel := r.Received().Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range ch {
			if _, err := fmt.Fprintln(out, payload); err != nil {
				log.Warn("echo failed", "error", err)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// pump sends each line of in until in is exhausted or ctx ends.
func pump(ctx context.Context, conn connection.Connection, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("reading input: %w", err)
					}
				default:
				}
				return nil
			}
			if line == "" {
				continue
			}
			conn.SendData(ctx, line)
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses REMOTEPAD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("REMOTEPAD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
