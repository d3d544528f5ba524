// Package discovery implements the UDP side of the controller protocol:
// network-wide discovery by broadcasting the handshake password, and the
// per-device AT-command request/response exchange used for configuration.
//
// Both speak the textual framing from internal/catalog on port 48899. The
// TCP control side lives in internal/control.
package discovery
