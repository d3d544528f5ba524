package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/wifiled/internal/catalog"
	"github.com/muurk/wifiled/internal/logging"
	"github.com/muurk/wifiled/internal/protocol"
	"github.com/muurk/wifiled/internal/transport"
)

// DefaultPort is the TCP control service port.
const DefaultPort = 5577

// Options configures the TCP side of a device connection.
type Options struct {
	// LocalHost and LocalPort optionally pin the local socket address.
	LocalHost string
	LocalPort int

	// RemotePort overrides the device's TCP port (default 5577).
	RemotePort int

	// Immediate disables send buffering (TCP_NODELAY). The device reacts
	// per command, so this defaults to on at the facade.
	Immediate bool

	// Cache enables the status cache.
	Cache bool
}

func (o Options) withDefaults() Options {
	if o.RemotePort == 0 {
		o.RemotePort = DefaultPort
	}
	return o
}

// waitResult releases a suspended status call: a decoded frame, the error
// that preempted it, or neither when the channel died intentionally.
type waitResult struct {
	frame *protocol.StatusFrame
	err   error
}

// Channel owns the TCP socket for one device. It serializes status
// requests to at most one outstanding and reconnects transparently when
// the device drops an idle connection.
type Channel struct {
	host string
	opts Options
	log  *zap.Logger

	onDead func(error)

	// reqMu serializes status requests; a second concurrent Status queues
	// behind the first instead of corrupting the reassembly buffer.
	reqMu sync.Mutex

	mu           sync.Mutex
	state        State
	conn         net.Conn
	gen          int   // connection generation; stale reader events are dropped
	lastErr      error // transport error observed before the close event
	deadNotified bool

	// Reassembly buffer. Armed only while a status request is in flight;
	// bytes read while disarmed are discarded.
	armed bool
	buf   [protocol.StatusFrameSize]byte
	off   int

	waiter chan waitResult
	cache  *protocol.StatusFrame
}

// NewChannel creates a channel for the device at host. No socket is opened
// until Connect.
func NewChannel(host string, opts Options) *Channel {
	return &Channel{
		host:  host,
		opts:  opts.withDefaults(),
		state: StateFresh,
		log:   logging.GetLogger().Named("tcp"),
	}
}

// OnDead registers the single terminal dead notification for this channel.
// Must be set before Connect.
func (c *Channel) OnDead(fn func(error)) {
	c.onDead = fn
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dead reports whether the channel reached its terminal state.
func (c *Channel) Dead() bool {
	return c.State() == StateDead
}

func (c *Channel) addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.opts.RemotePort)
}

func (c *Channel) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{}
	if c.opts.LocalHost != "" || c.opts.LocalPort != 0 {
		d.LocalAddr = &net.TCPAddr{IP: net.ParseIP(c.opts.LocalHost), Port: c.opts.LocalPort}
	}

	conn, err := d.DialContext(ctx, "tcp4", c.addr())
	if err != nil {
		return nil, err
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(c.opts.Immediate)
	}
	return conn, nil
}

// Connect opens the socket. A dial failure here is surfaced directly and
// never enters the reconnect path: a channel that was never connected has
// nothing to silently restore. On success the channel is Open and, when
// caching is enabled, the cache is primed with a fresh status query before
// Connect returns.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateDead:
		c.mu.Unlock()
		return nil
	case StateOpen, StateConnecting:
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := c.dial(ctx)

	c.mu.Lock()
	if c.state == StateDead {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return nil
	}
	if err != nil {
		c.state = StateFresh
		c.mu.Unlock()
		return transport.Classify("connect", c.addr(), err)
	}

	c.installLocked(conn)
	c.mu.Unlock()

	c.log.Debug("tcp channel open", zap.String("remote", c.addr()))

	if c.opts.Cache {
		if _, err := c.Status(true); err != nil {
			return err
		}
	}
	return nil
}

// installLocked adopts a freshly dialed socket and starts its reader.
func (c *Channel) installLocked(conn net.Conn) {
	c.gen++
	c.conn = conn
	c.state = StateOpen
	c.lastErr = nil
	c.armed = false
	c.off = 0
	go c.readLoop(c.gen, conn)
}

// Disconnect kills the channel intentionally: the state becomes Dead so no
// reconnect can happen, the socket is half-closed for writing, and any
// in-flight waiter is released empty. Safe to call repeatedly.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.state == StateDead {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	conn := c.conn
	waiter := c.takeWaiterLocked()
	c.state = StateDead
	c.mu.Unlock()

	if conn != nil {
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.CloseWrite()
		} else {
			_ = conn.Close()
		}
	}

	// Synthesized local close notification: release the in-flight waiter
	// without a value and emit the dead notification.
	if waiter != nil {
		waiter <- waitResult{}
	}
	c.notifyDead(nil)
}

// takeWaiterLocked detaches the pending status waiter and disarms the
// reassembly buffer. Caller holds mu.
func (c *Channel) takeWaiterLocked() chan waitResult {
	w := c.waiter
	c.waiter = nil
	c.armed = false
	c.off = 0
	return w
}

// notifyDead emits the terminal dead notification exactly once.
func (c *Channel) notifyDead(err error) {
	c.mu.Lock()
	if c.deadNotified {
		c.mu.Unlock()
		return
	}
	c.deadNotified = true
	cb := c.onDead
	c.mu.Unlock()

	c.log.Debug("tcp channel dead", zap.Error(err))
	if cb != nil {
		cb(err)
	}
}

// readLoop pumps the socket into the reassembly buffer until the
// connection ends, then hands the close event to handleClose. One loop
// runs per connection generation.
func (c *Channel) readLoop(gen int, conn net.Conn) {
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			c.handleData(gen, buf[:n])
		}
		if err != nil {
			c.handleClose(gen, err)
			return
		}
	}
}

// handleData appends inbound bytes to the 14-byte reassembly buffer. Once
// full, the candidate frame is decoded and the pending status call is
// released. Bytes arriving while no request is in flight are dropped.
func (c *Channel) handleData(gen int, data []byte) {
	c.mu.Lock()
	if gen != c.gen || !c.armed {
		c.mu.Unlock()
		return
	}

	n := copy(c.buf[c.off:], data)
	c.off += n
	if c.off < protocol.StatusFrameSize {
		c.mu.Unlock()
		return
	}

	frame, err := protocol.DecodeStatus(c.buf[:])
	waiter := c.takeWaiterLocked()
	if err != nil {
		// A corrupted read must not be trusted as cache input.
		c.cache = nil
	} else if c.opts.Cache {
		c.cache = frame
	}
	c.mu.Unlock()

	if waiter != nil {
		waiter <- waitResult{frame: frame, err: err}
	}
}

// handleClose is the close-notification state machine. Already-dead
// channels ignore it; a close after a transport error is terminal; a clean
// peer close with no prior error is the device's routine idle timeout and
// triggers an unconditional silent reconnect.
func (c *Channel) handleClose(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	if c.state == StateDead {
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}

	prior := c.lastErr
	if prior == nil && !errors.Is(err, io.EOF) {
		prior = err
	}

	if prior != nil {
		c.state = StateDead
		waiter := c.takeWaiterLocked()
		c.cache = nil
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		terr := transport.Classify("read", c.addr(), prior)
		if conn != nil {
			_ = conn.Close()
		}
		if waiter != nil {
			waiter <- waitResult{err: terr}
		}
		c.notifyDead(terr)
		return
	}

	// Idle close. Reject any in-flight status with the close, then redial.
	c.state = StateConnecting
	waiter := c.takeWaiterLocked()
	if waiter != nil {
		c.cache = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if waiter != nil {
		waiter <- waitResult{err: transport.Classify("read", c.addr(), err)}
	}

	c.log.Debug("idle close, reconnecting", zap.String("remote", c.addr()))
	go c.reconnect()
}

// reconnect redials after an idle close. Idle closes are expected, routine
// behavior, so there is no attempt limit and no backoff; a dial failure
// here, though, means the device is actually gone and kills the channel.
func (c *Channel) reconnect() {
	conn, err := c.dial(context.Background())

	c.mu.Lock()
	if c.state == StateDead {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.state = StateDead
		c.cache = nil
		c.mu.Unlock()
		c.notifyDead(transport.Classify("reconnect", c.addr(), err))
		return
	}

	c.installLocked(conn)
	c.mu.Unlock()
	c.log.Debug("tcp channel reopened", zap.String("remote", c.addr()))
}

// write sends an encoded command. It reports ok=false for a dead channel
// (silent no-op) and records transport errors so the following close event
// takes the terminal path.
func (c *Channel) write(cmd []byte) (bool, error) {
	c.mu.Lock()
	if c.state == StateDead {
		c.mu.Unlock()
		return false, nil
	}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return false, &transport.Error{Op: "write", Addr: c.addr(), Subtype: transport.SubtypeClosed, Err: net.ErrClosed}
	}

	logging.LogRawBytes("tcp send", cmd)
	if _, err := conn.Write(cmd); err != nil {
		c.mu.Lock()
		if c.lastErr == nil {
			c.lastErr = err
		}
		c.mu.Unlock()
		return false, transport.Classify("write", c.addr(), err)
	}
	return true, nil
}

// Status returns the device state. Dead channels yield nil, nil. With
// caching enabled and force unset, a cached frame in static mode is served
// without touching the socket; everything else performs a fresh query and
// suspends until the full validated frame arrives or the socket fails.
func (c *Channel) Status(force bool) (*protocol.StatusFrame, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	c.mu.Lock()
	if c.state == StateDead {
		c.mu.Unlock()
		return nil, nil
	}
	if c.opts.Cache && !force && c.cache != nil && c.cache.Mode == protocol.ModeStatic {
		cached := *c.cache
		c.mu.Unlock()
		return &cached, nil
	}

	waiter := make(chan waitResult, 1)
	c.waiter = waiter
	c.armed = true
	c.off = 0
	c.mu.Unlock()

	ok, err := c.write(protocol.StatusRequest())
	if err != nil || !ok {
		c.mu.Lock()
		if c.waiter == waiter {
			c.takeWaiterLocked()
		}
		c.cache = nil
		c.mu.Unlock()
		return nil, err
	}

	res := <-waiter
	return res.frame, res.err
}

// On powers the device on.
func (c *Channel) On() error {
	ok, err := c.write(protocol.PowerOn())
	if err != nil || !ok {
		return err
	}
	c.mu.Lock()
	if c.cache != nil {
		c.cache.Power = true
	}
	c.mu.Unlock()
	return nil
}

// Off powers the device off.
func (c *Channel) Off() error {
	ok, err := c.write(protocol.PowerOff())
	if err != nil || !ok {
		return err
	}
	c.mu.Lock()
	if c.cache != nil {
		c.cache.Power = false
	}
	c.mu.Unlock()
	return nil
}

// RGBW sets a static color. The effect on device state is deterministic,
// so the cache is updated in place once the write has completed.
func (c *Channel) RGBW(red, green, blue, white uint8) error {
	ok, err := c.write(protocol.BuildRGBW(red, green, blue, white))
	if err != nil || !ok {
		return err
	}

	c.mu.Lock()
	if c.opts.Cache {
		if c.cache == nil {
			c.cache = &protocol.StatusFrame{Power: true}
		}
		c.cache.Mode = protocol.ModeStatic
		c.cache.Red = red
		c.cache.Green = green
		c.cache.Blue = blue
		c.cache.White = white
		c.cache.Speed = 0
		c.cache.HasSpeed = false
	}
	c.mu.Unlock()
	return nil
}

// Builtin starts a built-in effect by name. The resulting device state is
// not locally predictable, so the cache is invalidated. Unknown names are
// rejected before any I/O.
func (c *Channel) Builtin(name string, speed int) error {
	id, found := catalog.FunctionID(name)
	if !found {
		return &protocol.ProtocolError{Op: "builtin", Message: fmt.Sprintf("unknown function %q", name)}
	}

	ok, err := c.write(protocol.BuildEffect(id, speed))
	if err != nil || !ok {
		return err
	}

	c.mu.Lock()
	c.cache = nil
	c.mu.Unlock()
	return nil
}

// Custom runs a user-defined pattern. Invalid modes are rejected before
// any I/O; success invalidates the cache like Builtin does.
func (c *Channel) Custom(mode protocol.CustomMode, speed int, steps []protocol.Step) error {
	cmd, err := protocol.BuildCustom(mode, speed, steps)
	if err != nil {
		return err
	}

	ok, err := c.write(cmd)
	if err != nil || !ok {
		return err
	}

	c.mu.Lock()
	c.cache = nil
	c.mu.Unlock()
	return nil
}
