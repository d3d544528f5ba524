// Package control implements the TCP side of the controller protocol: the
// persistent connection to port 5577, outbound command transmission, status
// frame reassembly, and the status cache.
//
// The interesting part is the close handling. These controllers drop idle
// TCP connections on their own schedule; a peer close without a preceding
// transport error is routine and triggers a silent reconnect, while a close
// after an error (or after an intentional Disconnect) is terminal. Once a
// channel is dead every operation degrades to a silent no-op.
package control
