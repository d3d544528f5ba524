package control

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/muurk/wifiled/internal/protocol"
)

// staticFrame builds a valid status frame reporting a static color.
func staticFrame(r, g, b, w byte) []byte {
	f := []byte{0x81, 0x04, 0x23, 0x61, 0x00, 0x00, r, g, b, w, 0x00, 0x00, 0x00, 0x00}
	var sum int
	for _, v := range f[:13] {
		sum += int(v)
	}
	f[13] = byte(sum)
	return f
}

// fakeDevice is a loopback stand-in for the controller's TCP service. It
// answers status requests with a fixed frame and can drop connections to
// simulate the device's idle timeout.
type fakeDevice struct {
	ln    net.Listener
	frame []byte

	mu         sync.Mutex
	accepts    int
	statusReqs int
	commands   [][]byte
	conns      []net.Conn
}

func startFakeDevice(t *testing.T, frame []byte) *fakeDevice {
	t.Helper()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("fake device listen: %v", err)
	}

	d := &fakeDevice{ln: ln, frame: frame}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			d.mu.Lock()
			d.accepts++
			d.conns = append(d.conns, conn)
			d.mu.Unlock()

			go d.serve(conn)
		}
	}()

	return d
}

func (d *fakeDevice) serve(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}

		cmd := append([]byte(nil), buf[:n]...)
		d.mu.Lock()
		d.commands = append(d.commands, cmd)
		// TCP is a stream: a status query can share a read with the
		// command written just before it, so scan rather than compare.
		statusHits := bytes.Count(cmd, []byte{0x81, 0x8a, 0x8b, 0x96})
		d.statusReqs += statusHits
		d.mu.Unlock()

		for i := 0; i < statusHits; i++ {
			if _, err := conn.Write(d.frame); err != nil {
				return
			}
		}
	}
}

func (d *fakeDevice) port() int {
	return d.ln.Addr().(*net.TCPAddr).Port
}

func (d *fakeDevice) statusCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statusReqs
}

func (d *fakeDevice) commandCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.commands)
}

func (d *fakeDevice) acceptCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accepts
}

// dropAll closes every live server-side connection, exactly as the real
// device does when it times out an idle client.
func (d *fakeDevice) dropAll() {
	d.mu.Lock()
	conns := d.conns
	d.conns = nil
	d.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConnectAndStatus(t *testing.T) {
	dev := startFakeDevice(t, staticFrame(1, 2, 3, 4))

	ch := NewChannel("127.0.0.1", Options{RemotePort: dev.port()})
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer ch.Disconnect()

	if got := ch.State(); got != StateOpen {
		t.Fatalf("state = %s, want open", got)
	}

	status, err := ch.Status(true)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Mode != protocol.ModeStatic || status.Red != 1 || status.White != 4 {
		t.Errorf("status = %s", status)
	}
}

func TestConnectFailureDoesNotReconnect(t *testing.T) {
	// Grab a port with nothing listening on it.
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	notified := false
	ch := NewChannel("127.0.0.1", Options{RemotePort: port})
	ch.OnDead(func(error) { notified = true })

	if err := ch.Connect(context.Background()); err == nil {
		t.Fatal("expected connect error")
	}
	if got := ch.State(); got != StateFresh {
		t.Errorf("state after failed connect = %s, want fresh", got)
	}
	if notified {
		t.Error("failed connect must not emit a dead notification")
	}
}

func TestCacheCoherence(t *testing.T) {
	dev := startFakeDevice(t, staticFrame(1, 2, 3, 4))

	ch := NewChannel("127.0.0.1", Options{RemotePort: dev.port(), Cache: true})
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer ch.Disconnect()

	// Connect primed the cache with one query.
	if got := dev.statusCount(); got != 1 {
		t.Fatalf("status queries after connect = %d, want 1", got)
	}

	if err := ch.RGBW(10, 20, 30, 40); err != nil {
		t.Fatalf("RGBW() error = %v", err)
	}

	status, err := ch.Status(false)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Mode != protocol.ModeStatic {
		t.Errorf("mode = %s, want static", status.Mode)
	}
	if status.Red != 10 || status.Green != 20 || status.Blue != 30 || status.White != 40 {
		t.Errorf("rgbw = %d/%d/%d/%d, want 10/20/30/40", status.Red, status.Green, status.Blue, status.White)
	}
	if got := dev.statusCount(); got != 1 {
		t.Errorf("cached status performed a socket read (queries = %d)", got)
	}

	// Built-in effects make device state unpredictable: cache must drop
	// and the next status must hit the wire.
	if err := ch.Builtin("red_gradual_change", 50); err != nil {
		t.Fatalf("Builtin() error = %v", err)
	}
	if _, err := ch.Status(false); err != nil {
		t.Fatalf("Status() after builtin error = %v", err)
	}
	if got := dev.statusCount(); got != 2 {
		t.Errorf("status after builtin did not hit the wire (queries = %d)", got)
	}
}

func TestStatusForceBypassesCache(t *testing.T) {
	dev := startFakeDevice(t, staticFrame(9, 9, 9, 9))

	ch := NewChannel("127.0.0.1", Options{RemotePort: dev.port(), Cache: true})
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer ch.Disconnect()

	if _, err := ch.Status(true); err != nil {
		t.Fatalf("Status(force) error = %v", err)
	}
	if got := dev.statusCount(); got != 2 {
		t.Errorf("forced status served from cache (queries = %d, want 2)", got)
	}
}

func TestIdleCloseReconnects(t *testing.T) {
	dev := startFakeDevice(t, staticFrame(1, 2, 3, 4))

	ch := NewChannel("127.0.0.1", Options{RemotePort: dev.port()})
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer ch.Disconnect()

	// Device times out the idle connection: our reader sees a clean EOF
	// with no prior error, which must reconnect, never kill the channel.
	dev.dropAll()

	waitFor(t, "reconnect", func() bool {
		return dev.acceptCount() >= 2 && ch.State() == StateOpen
	})

	if ch.Dead() {
		t.Fatal("channel dead after idle close, want reconnected")
	}

	status, err := ch.Status(true)
	if err != nil {
		t.Fatalf("Status() after reconnect error = %v", err)
	}
	if status == nil || status.Mode != protocol.ModeStatic {
		t.Errorf("status after reconnect = %v", status)
	}
}

func TestDisconnectIsTerminalNoOp(t *testing.T) {
	dev := startFakeDevice(t, staticFrame(1, 2, 3, 4))

	var notifications []error
	ch := NewChannel("127.0.0.1", Options{RemotePort: dev.port()})
	ch.OnDead(func(err error) { notifications = append(notifications, err) })

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	before := dev.commandCount()

	ch.Disconnect()
	ch.Disconnect() // idempotent

	if got := ch.State(); got != StateDead {
		t.Fatalf("state = %s, want dead", got)
	}
	if len(notifications) != 1 {
		t.Fatalf("dead notifications = %d, want 1", len(notifications))
	}
	if notifications[0] != nil {
		t.Errorf("intentional disconnect carried error %v", notifications[0])
	}

	// Every operation is now a silent successful no-op.
	if err := ch.On(); err != nil {
		t.Errorf("On() on dead channel = %v", err)
	}
	if err := ch.Off(); err != nil {
		t.Errorf("Off() on dead channel = %v", err)
	}
	if err := ch.RGBW(1, 2, 3, 4); err != nil {
		t.Errorf("RGBW() on dead channel = %v", err)
	}
	status, err := ch.Status(false)
	if err != nil || status != nil {
		t.Errorf("Status() on dead channel = %v, %v; want nil, nil", status, err)
	}

	// Give any stray write a moment to land, then check none did.
	time.Sleep(50 * time.Millisecond)
	if got := dev.commandCount(); got != before {
		t.Errorf("dead channel wrote to the socket (%d -> %d commands)", before, got)
	}
}

func TestBuiltinValidation(t *testing.T) {
	ch := NewChannel("127.0.0.1", Options{})

	err := ch.Builtin("disco_inferno", 50)
	if err == nil {
		t.Fatal("expected error for unknown builtin name")
	}
	if !protocol.IsProtocolError(err) {
		t.Errorf("error = %v, want ProtocolError", err)
	}
	if got := ch.State(); got != StateFresh {
		t.Errorf("input validation mutated channel state to %s", got)
	}
}

func TestCustomValidation(t *testing.T) {
	ch := NewChannel("127.0.0.1", Options{})

	err := ch.Custom(protocol.CustomMode("wave"), 10, nil)
	if err == nil {
		t.Fatal("expected error for unknown custom mode")
	}
	if !protocol.IsProtocolError(err) {
		t.Errorf("error = %v, want ProtocolError", err)
	}
}
