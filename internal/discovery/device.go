package discovery

import (
	"fmt"
	"strings"
)

// Device is one controller that answered a discovery broadcast or hello
// handshake. Replies are comma-separated "ip,mac,model" lines.
type Device struct {
	// IP is the controller's IPv4 address (e.g. "192.168.1.42").
	IP string

	// MAC is the hardware address, normalized to lower-case colon-separated
	// form (e.g. "ac:cf:23:5a:1b:2c").
	MAC string

	// Model is the controller model string (e.g. "HF-LPB100-ZJ200").
	Model string
}

// String returns a human-readable representation of the device.
func (d Device) String() string {
	return fmt.Sprintf("LED controller %s (%s, %s)", d.IP, d.MAC, d.Model)
}

// parseReply decodes an "ip,mac,model" discovery reply. Replies with the
// wrong shape are skipped by the caller.
func parseReply(reply string) (Device, bool) {
	parts := strings.Split(strings.TrimSpace(reply), ",")
	if len(parts) != 3 || parts[0] == "" {
		return Device{}, false
	}
	return Device{
		IP:    parts[0],
		MAC:   normalizeMAC(parts[1]),
		Model: parts[2],
	}, true
}

// normalizeMAC lower-cases a MAC address and inserts colons. Firmwares
// report the address as a bare 12-digit hex string; already-delimited
// forms are normalized too.
func normalizeMAC(mac string) string {
	hex := strings.ToLower(mac)
	hex = strings.ReplaceAll(hex, ":", "")
	hex = strings.ReplaceAll(hex, "-", "")
	if len(hex)%2 != 0 {
		return strings.ToLower(mac)
	}

	pairs := make([]string, 0, len(hex)/2)
	for i := 0; i < len(hex); i += 2 {
		pairs = append(pairs, hex[i:i+2])
	}
	return strings.Join(pairs, ":")
}
