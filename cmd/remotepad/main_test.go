package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "remotepad.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("REMOTEPAD_CONFIG", configPath)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("REMOTEPAD_CONFIG", "/nonexistent/path/remotepad.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, strings.NewReader(""), &strings.Builder{}); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_SetupFailure verifies run reports a failed setup.
func TestRun_SetupFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	writeConfig(t, fmt.Sprintf(`
logging:
  level: error
  output: stderr
connection:
  type: tcp
  params:
    host: "127.0.0.1"
    port: %d
    timeoutSecs: 1
`, port))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = run(ctx, strings.NewReader("x\n"), &strings.Builder{})
	if err == nil {
		t.Fatal("run() should fail when the transport cannot connect")
	}
	if !strings.Contains(err.Error(), "TCP_CONNECTION_FAILED") {
		t.Errorf("run() error = %v, want TCP_CONNECTION_FAILED", err)
	}
}

// TestRun_SendsInputLines verifies each non-empty stdin line becomes one payload.
func TestRun_SendsInputLines(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()
	port := pc.LocalAddr().(*net.UDPAddr).Port

	writeConfig(t, fmt.Sprintf(`
logging:
  level: error
  output: stderr
connection:
  type: udp
  params:
    host: "127.0.0.1"
    port: %d
`, port))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, strings.NewReader("BTN:A:1\n\nBTN:A:0\n"), &strings.Builder{}); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if err := pc.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 64)
	for _, want := range []string{"BTN:A:1", "BTN:A:0"} {
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			t.Fatalf("ReadFrom() error = %v", err)
		}
		if got := string(buf[:n]); got != want {
			t.Errorf("datagram = %q, want %q", got, want)
		}
	}
}
