package discovery

import (
	"context"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiled/internal/logging"
	"github.com/muurk/wifiled/internal/transport"
)

// DefaultScanTimeout is the discovery collection window when the caller
// does not specify one.
const DefaultScanTimeout = 3 * time.Second

// Discover broadcasts the handshake password and collects every distinct
// controller reply until the timeout elapses. The result is never nil. A
// socket error aborts the scan; replies collected before the error are
// discarded.
func Discover(ctx context.Context, timeout time.Duration, opts Options) ([]Device, error) {
	opts = opts.withDefaults()
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	log := logging.GetLogger().Named("discover")

	var local *net.UDPAddr
	if opts.LocalHost != "" || opts.LocalPort != 0 {
		local = &net.UDPAddr{IP: net.ParseIP(opts.LocalHost), Port: opts.LocalPort}
	}

	conn, err := net.ListenUDP("udp4", local)
	if err != nil {
		return nil, transport.Classify("open", "", err)
	}
	defer func() { _ = conn.Close() }()

	bcast := &net.UDPAddr{IP: net.IPv4bcast, Port: opts.RemotePort}
	if _, err := conn.WriteToUDP([]byte(opts.Password), bcast); err != nil {
		return nil, transport.Classify("broadcast", bcast.String(), err)
	}
	log.Debug("discovery broadcast sent", zap.String("to", bcast.String()))

	stop := watchContext(ctx, conn, timeout)
	defer stop()

	devices := make([]Device, 0)
	seen := make(map[string]bool)
	buf := make([]byte, maxDatagram)

	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			// The timeout closing the collection window is the normal end
			// of a scan; anything else aborts it.
			if os.IsTimeout(err) {
				if ctx.Err() != nil {
					return nil, transport.Classify("scan", "", ctx.Err())
				}
				return devices, nil
			}
			return nil, transport.Classify("read", "", err)
		}

		reply := string(buf[:n])
		// The broadcast loops back to our own socket; skip it.
		if reply == opts.Password {
			continue
		}
		if seen[reply] {
			continue
		}
		seen[reply] = true

		dev, ok := parseReply(reply)
		if !ok {
			log.Debug("ignoring malformed discovery reply",
				zap.String("from", from.String()), zap.String("reply", reply))
			continue
		}
		log.Debug("controller discovered", zap.String("device", dev.String()))
		devices = append(devices, dev)
	}
}
