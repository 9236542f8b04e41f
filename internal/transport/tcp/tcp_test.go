package tcp

import (
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/remotepad/internal/connection"
	"github.com/nerrad567/remotepad/internal/connection/connectiontest"
)

// blockingDialer never completes a dial before ctx ends.
type blockingDialer struct{}

func (blockingDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func listen(t *testing.T) (net.Listener, connection.TCPConfig) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	port := ln.Addr().(*net.TCPAddr).Port
	return ln, connection.TCPConfig{Host: "127.0.0.1", Port: port, TimeoutSecs: 2}
}

func TestSetupConnectsAndSends(t *testing.T) {
	ln, cfg := listen(t)

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- string(data)
	}()

	c := New(cfg, nil)
	states := connectiontest.Record(t, c.States())

	c.Setup(context.Background())
	require.Equal(t, connection.StateTCPConnected, c.States().Current())

	c.SendData(context.Background(), "hello ")
	c.SendData(context.Background(), "world")
	c.TearDown(context.Background())

	select {
	case got := <-received:
		assert.Equal(t, "hello world", got)
	case <-time.After(connectiontest.Timeout):
		t.Fatal("peer did not receive data")
	}

	assert.Equal(t, []connection.State{
		connection.StateNone,
		connection.StateTCPConnecting,
		connection.StateTCPConnected,
		connection.StateTCPDisconnecting,
		connection.StateTCPDisconnected,
	}, states.WaitLen(t, 5))
}

func TestConcurrentSendsDoNotInterleave(t *testing.T) {
	ln, cfg := listen(t)

	const (
		producers = 8
		perSender = 50
		size      = 512
	)

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- string(data)
	}()

	c := New(cfg, nil)
	c.Setup(context.Background())
	require.Equal(t, connection.StateTCPConnected, c.States().Current())

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		marker := strconv.Itoa(p)
		payload := strings.Repeat(marker, size)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				c.SendData(context.Background(), payload)
			}
		}()
	}
	wg.Wait()
	c.TearDown(context.Background())

	var got string
	select {
	case got = <-received:
	case <-time.After(connectiontest.Timeout):
		t.Fatal("peer did not receive data")
	}

	require.Len(t, got, producers*perSender*size)
	for off := 0; off < len(got); off += size {
		chunk := got[off : off+size]
		assert.Equal(t, strings.Repeat(chunk[:1], size), chunk, "payload at offset %d interleaved", off)
	}
}

func TestSetupTimeout(t *testing.T) {
	cfg := connection.TCPConfig{Host: "10.255.255.1", Port: 9, TimeoutSecs: 1}
	c := New(cfg, nil)
	c.dialer = blockingDialer{}
	states := connectiontest.Record(t, c.States())

	start := time.Now()
	c.Setup(context.Background())
	elapsed := time.Since(start)

	assert.Equal(t, connection.StateTCPConnectionTimeout, c.States().Current())
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
	assert.Less(t, elapsed, 3*time.Second)
	assert.NotContains(t, states.WaitLen(t, 3), connection.StateTCPConnected)
}

func TestSetupRefused(t *testing.T) {
	ln, cfg := listen(t)
	require.NoError(t, ln.Close())

	c := New(cfg, nil)
	c.Setup(context.Background())

	assert.Equal(t, connection.StateTCPConnectionFailed, c.States().Current())
}

func TestSendWithoutSetupPublishesError(t *testing.T) {
	c := New(connection.DefaultTCPConfig(), nil)

	c.SendData(context.Background(), "x")

	assert.Equal(t, connection.StateTCPError, c.States().Current())
}

func TestSendAfterPeerClosePublishesError(t *testing.T) {
	ln, cfg := listen(t)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_ = conn.Close()
	}()

	c := New(cfg, nil)
	c.Setup(context.Background())
	require.Equal(t, connection.StateTCPConnected, c.States().Current())

	payload := strings.Repeat("x", 64*1024)
	assert.Eventually(t, func() bool {
		c.SendData(context.Background(), payload)
		return c.States().Current() == connection.StateTCPError
	}, connectiontest.Timeout, 20*time.Millisecond)

	c.TearDown(context.Background())
	assert.Equal(t, connection.StateTCPDisconnected, c.States().Current())
}

func TestTearDownWithoutSetup(t *testing.T) {
	c := New(connection.DefaultTCPConfig(), nil)

	c.TearDown(context.Background())

	assert.Equal(t, connection.StateTCPDisconnected, c.States().Current())
}

func TestTearDownDuringSetupEndsDisconnected(t *testing.T) {
	cfg := connection.TCPConfig{Host: "10.255.255.1", Port: 9, TimeoutSecs: 30}
	c := New(cfg, nil)
	c.dialer = blockingDialer{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Setup(context.Background())
	}()

	connectiontest.AwaitState(t, c.States(), connection.StateTCPConnecting)
	c.TearDown(context.Background())

	select {
	case <-done:
	case <-time.After(connectiontest.Timeout):
		t.Fatal("Setup did not return after TearDown")
	}
	assert.Equal(t, connection.StateTCPDisconnected, c.States().Current())
}

func TestTypeIsTCP(t *testing.T) {
	assert.Equal(t, connection.TypeTCP, New(connection.DefaultTCPConfig(), nil).Type())
}
