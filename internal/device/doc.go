// Package device is the public control surface for one WiFi LED
// controller. A Handle owns the device's UDP configuration channel and TCP
// control channel, coordinates their combined liveness, and passes control
// calls through to the right transport.
//
// The device is only meaningfully controllable with both transports up, so
// a channel dying with the other still alive tears the survivor down too;
// the user's disconnect callback fires exactly once, after both are dead.
package device
