package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiled/internal/catalog"
	"github.com/muurk/wifiled/internal/logging"
	"github.com/muurk/wifiled/internal/transport"
)

const (
	// DefaultPort is the UDP configuration service port.
	DefaultPort = 48899

	// DefaultHelloTimeout bounds the hello handshake when the caller's
	// context carries no deadline.
	DefaultHelloTimeout = 3 * time.Second

	// maxDatagram is larger than any response the device sends.
	maxDatagram = 1024
)

// Options configures the UDP side of a device connection.
type Options struct {
	// Password is the handshake/discovery password. Defaults to the
	// well-known module password when empty.
	Password string

	// LocalHost and LocalPort optionally pin the local socket address.
	LocalHost string
	LocalPort int

	// RemotePort overrides the device's UDP port (default 48899).
	RemotePort int
}

func (o Options) withDefaults() Options {
	if o.Password == "" {
		o.Password = catalog.DefaultHello
	}
	if o.RemotePort == 0 {
		o.RemotePort = DefaultPort
	}
	return o
}

// Channel owns the UDP socket for one device and runs the hello handshake
// and AT-command exchanges against it. Exchanges are serialized: at most
// one request is in flight at a time.
type Channel struct {
	host string
	opts Options
	log  *zap.Logger

	// reqMu serializes request/response exchanges on the socket.
	reqMu sync.Mutex

	mu     sync.Mutex
	conn   *net.UDPConn
	dead   bool
	onDead func(error)
}

// NewChannel creates a channel for the device at host. The socket is not
// opened until Open is called.
func NewChannel(host string, opts Options) *Channel {
	return &Channel{
		host: host,
		opts: opts.withDefaults(),
		log:  logging.GetLogger().Named("udp"),
	}
}

// OnDead registers the single terminal dead notification for this channel.
// The callback receives the transport error that killed the channel, or nil
// for an intentional close. Must be set before Open.
func (c *Channel) OnDead(fn func(error)) {
	c.onDead = fn
}

// Open binds the UDP socket toward the device. No packets are sent yet.
func (c *Channel) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dead || c.conn != nil {
		return nil
	}

	remote, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", c.host, c.opts.RemotePort))
	if err != nil {
		return transport.Classify("resolve", c.host, err)
	}

	var local *net.UDPAddr
	if c.opts.LocalHost != "" || c.opts.LocalPort != 0 {
		local = &net.UDPAddr{IP: net.ParseIP(c.opts.LocalHost), Port: c.opts.LocalPort}
	}

	conn, err := net.DialUDP("udp4", local, remote)
	if err != nil {
		return transport.Classify("open", remote.String(), err)
	}

	c.conn = conn
	c.log.Debug("udp channel open", zap.String("remote", remote.String()))
	return nil
}

// Hello performs the handshake: the password is sent to the device and its
// "ip,mac,model" identification reply is awaited. A device that does not
// answer in time yields a DisconnectedError. A dead channel is a no-op.
func (c *Channel) Hello(ctx context.Context) (*Device, error) {
	reply, ok, err := c.exchangeWire(ctx, c.opts.Password, DefaultHelloTimeout)
	if err != nil {
		return nil, &transport.DisconnectedError{Addr: c.host, Err: err}
	}
	if !ok {
		return nil, nil
	}

	dev, parsed := parseReply(reply)
	if !parsed {
		return nil, &transport.DisconnectedError{Addr: c.host, Err: fmt.Errorf("malformed hello reply %q", reply)}
	}
	return &dev, nil
}

// Exchange assembles the named AT command, transmits it, and decodes the
// response into its field values. A dead channel answers nil, nil.
func (c *Channel) Exchange(ctx context.Context, name string, setArgs ...string) ([]string, error) {
	cmd, err := AssembleCommand(name, setArgs...)
	if err != nil {
		return nil, err
	}

	reply, ok, err := c.exchangeWire(ctx, cmd.Wire, 0)
	if err != nil || !ok {
		return nil, err
	}
	return cmd.Decode(reply), nil
}

// exchangeWire is the shared request/response path. It returns ok=false
// without error when the channel is dead. A zero fallback means the read
// blocks until the context is done or the socket fails.
func (c *Channel) exchangeWire(ctx context.Context, wire string, fallback time.Duration) (string, bool, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	c.mu.Lock()
	dead, conn := c.dead, c.conn
	c.mu.Unlock()

	if dead {
		return "", false, nil
	}
	if conn == nil {
		return "", false, &transport.Error{Op: "write", Addr: c.host, Subtype: transport.SubtypeClosed, Err: net.ErrClosed}
	}

	stop := watchContext(ctx, conn, fallback)
	defer stop()

	c.log.Debug("at send", zap.String("wire", wire))
	if _, err := conn.Write([]byte(wire)); err != nil {
		return "", false, c.fail("write", err)
	}

	buf := make([]byte, maxDatagram)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			c.mu.Lock()
			dead := c.dead
			c.mu.Unlock()
			if dead {
				return "", false, nil
			}
			// Deadline expiry and cancellation do not kill the channel.
			if os.IsTimeout(err) {
				return "", false, transport.Classify("read", c.host, err)
			}
			return "", false, c.fail("read", err)
		}

		reply := string(buf[:n])
		// The socket observes its own broadcast on some stacks.
		if reply == wire {
			continue
		}
		c.log.Debug("at recv", zap.String("reply", reply))
		return reply, true, nil
	}
}

// fail marks the channel dead with err and emits the dead notification.
func (c *Channel) fail(op string, err error) error {
	terr := transport.Classify(op, c.host, err)

	c.mu.Lock()
	if c.dead {
		c.mu.Unlock()
		return terr
	}
	c.dead = true
	conn := c.conn
	cb := c.onDead
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.log.Debug("udp channel dead", zap.Error(terr))
	if cb != nil {
		cb(terr)
	}
	return terr
}

// Close tears the channel down intentionally. Safe to call more than once;
// the dead notification fires exactly once, with no error.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.dead {
		c.mu.Unlock()
		return
	}
	c.dead = true
	conn := c.conn
	cb := c.onDead
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if cb != nil {
		cb(nil)
	}
}

// Dead reports whether the channel has been closed or has failed.
func (c *Channel) Dead() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dead
}

// watchContext applies the context deadline (or the fallback when the
// context has none) to conn reads and unblocks them early on cancellation.
// The returned stop func clears the deadline and releases the watcher.
func watchContext(ctx context.Context, conn net.Conn, fallback time.Duration) func() {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	} else if fallback > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(fallback))
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	return func() {
		close(done)
		_ = conn.SetReadDeadline(time.Time{})
	}
}
