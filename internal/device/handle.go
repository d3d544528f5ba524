package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiled/internal/catalog"
	"github.com/muurk/wifiled/internal/control"
	"github.com/muurk/wifiled/internal/discovery"
	"github.com/muurk/wifiled/internal/logging"
	"github.com/muurk/wifiled/internal/protocol"
)

// Options configures a device handle. Host is required; everything else
// has working defaults. The zero value of the boolean knobs keeps the
// recommended behavior (immediate sends, status caching) enabled.
type Options struct {
	// Host is the controller's address. Required.
	Host string

	// Password overrides the UDP handshake password.
	Password string

	// LocalHost pins the local address of both sockets.
	LocalHost string

	// Port overrides; zero selects the defaults (48899 UDP, 5577 TCP).
	LocalUDPPort  int
	RemoteUDPPort int
	LocalTCPPort  int
	RemoteTCPPort int

	// NoImmediate re-enables send buffering (clears TCP_NODELAY).
	NoImmediate bool

	// NoCache disables the status cache.
	NoCache bool

	// OnDisconnect is invoked exactly once, after both channels are dead.
	// The error is non-nil only if either channel died with an error.
	OnDisconnect func(error)
}

// Handle is the aggregate of one device's two channels.
type Handle struct {
	opts Options
	udp  *discovery.Channel
	tcp  *control.Channel
	log  *zap.Logger

	mu       sync.Mutex
	udpDead  bool
	tcpDead  bool
	deadErr  error
	notified bool
	identity *discovery.Device
}

// New creates a handle for the device at opts.Host. No sockets are opened
// until Connect.
func New(opts Options) (*Handle, error) {
	if opts.Host == "" {
		return nil, errors.New("device: host is required")
	}

	h := &Handle{
		opts: opts,
		log:  logging.GetLogger().Named("device"),
	}

	h.udp = discovery.NewChannel(opts.Host, discovery.Options{
		Password:   opts.Password,
		LocalHost:  opts.LocalHost,
		LocalPort:  opts.LocalUDPPort,
		RemotePort: opts.RemoteUDPPort,
	})
	h.udp.OnDead(func(err error) { h.channelDead(&h.udpDead, err) })

	h.tcp = control.NewChannel(opts.Host, control.Options{
		LocalHost:  opts.LocalHost,
		LocalPort:  opts.LocalTCPPort,
		RemotePort: opts.RemoteTCPPort,
		Immediate:  !opts.NoImmediate,
		Cache:      !opts.NoCache,
	})
	h.tcp.OnDead(func(err error) { h.channelDead(&h.tcpDead, err) })

	return h, nil
}

// channelDead records one channel's terminal notification. The first dead
// channel takes the survivor down with it; once both are dead the user
// callback fires, exactly once, with the first error either channel
// reported.
func (h *Handle) channelDead(flag *bool, err error) {
	h.mu.Lock()
	*flag = true
	if err != nil && h.deadErr == nil {
		h.deadErr = err
	}
	udpDead, tcpDead := h.udpDead, h.tcpDead
	h.mu.Unlock()

	if !udpDead {
		h.udp.Close()
		return
	}
	if !tcpDead {
		h.tcp.Disconnect()
		return
	}

	h.mu.Lock()
	if h.notified {
		h.mu.Unlock()
		return
	}
	h.notified = true
	cb := h.opts.OnDisconnect
	finalErr := h.deadErr
	h.mu.Unlock()

	h.log.Debug("device disconnected", zap.Error(finalErr))
	if cb != nil {
		cb(finalErr)
	}
}

// Connect brings the device up: the UDP hello handshake first, then the
// TCP control connection (which primes the status cache unless caching is
// disabled).
func (h *Handle) Connect(ctx context.Context) error {
	if err := h.udp.Open(); err != nil {
		return err
	}

	id, err := h.udp.Hello(ctx)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.identity = id
	h.mu.Unlock()

	return h.tcp.Connect(ctx)
}

// Disconnect tears both channels down. The disconnect callback fires once
// both report dead.
func (h *Handle) Disconnect() {
	h.tcp.Disconnect()
	h.udp.Close()
}

// Identity returns the "ip,mac,model" identification the device sent
// during the hello handshake, or nil before Connect.
func (h *Handle) Identity() *discovery.Device {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.identity
}

// Status returns the current device state; see control.Channel.Status for
// the cache and force semantics.
func (h *Handle) Status(force bool) (*protocol.StatusFrame, error) {
	return h.tcp.Status(force)
}

// On powers the device on.
func (h *Handle) On() error { return h.tcp.On() }

// Off powers the device off.
func (h *Handle) Off() error { return h.tcp.Off() }

// RGBW sets a static color.
func (h *Handle) RGBW(red, green, blue, white uint8) error {
	return h.tcp.RGBW(red, green, blue, white)
}

// Builtin starts a built-in effect by name at the given speed (0-100).
func (h *Handle) Builtin(name string, speed int) error {
	return h.tcp.Builtin(name, speed)
}

// Custom runs a user-defined color pattern at the given speed (0-30).
func (h *Handle) Custom(mode protocol.CustomMode, speed int, steps []protocol.Step) error {
	return h.tcp.Custom(mode, speed, steps)
}

// Exchange sends a named AT command over the UDP channel and returns the
// decoded response fields.
func (h *Handle) Exchange(ctx context.Context, name string, setArgs ...string) ([]string, error) {
	return h.udp.Exchange(ctx, name, setArgs...)
}

// Discover scans the local network for controllers.
func Discover(ctx context.Context, timeout time.Duration, opts discovery.Options) ([]discovery.Device, error) {
	return discovery.Discover(ctx, timeout, opts)
}

// Functions returns the names of all built-in effects.
func Functions() []string {
	return catalog.FunctionNames()
}

// Commands returns the names of all known AT commands.
func Commands() []string {
	return catalog.CommandNames()
}

// IsNullStep reports whether a step is the reserved null-step sentinel.
func IsNullStep(s protocol.Step) bool {
	return protocol.IsNullStep(s)
}
