// Package protocol implements the binary TCP wire format spoken by WiFi
// RGBW LED controllers on port 5577.
//
// Outbound commands are a payload followed by a "local" flag byte and a
// one-byte additive checksum. Inbound state is a fixed 14-byte status frame
// validated for header, checksum, power and mode bytes before any field is
// trusted.
//
// The package is pure: builders and the decoder have no state and perform
// no I/O. Socket handling lives in internal/control.
package protocol
