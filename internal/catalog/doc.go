// Package catalog holds the static lookup data for WiFi LED controllers:
// the built-in effect function table (name to wire id) used by the TCP
// control protocol, and the AT-command templates used by the UDP
// configuration protocol.
//
// Everything in this package is immutable data. The tables are referenced
// by the protocol codec and the channels; nothing here performs I/O.
package catalog
