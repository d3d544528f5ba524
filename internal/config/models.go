package config

import (
	"fmt"
	"sort"
	"time"
)

// Registry represents the entire user configuration file.
// It stores named controller entries and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by user-chosen name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents a saved controller entry.
// Host is the only required field; the rest is metadata recorded
// from discovery or set explicitly by the user.
type Device struct {
	Host     string    `yaml:"host"`
	MAC      string    `yaml:"mac,omitempty"`       // Normalized MAC from discovery
	Model    string    `yaml:"model,omitempty"`     // Model string from discovery
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last discovery/connection time

	// Per-device overrides for the control connection.
	NoImmediate bool `yaml:"no_immediate,omitempty"` // Leave Nagle's algorithm enabled
	NoCache     bool `yaml:"no_cache,omitempty"`     // Always query the device for status
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultDevice   string `yaml:"default_device,omitempty"` // Device name used when none is given
	DiscoverTimeout int    `yaml:"discover_timeout"`         // Discovery timeout in seconds
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Devices: make(map[string]*Device),
		Preferences: &Preferences{
			DiscoverTimeout: 3,
		},
	}
}

// GetDevice retrieves a saved device by name.
// Returns nil if the name is not in the registry.
func (r *Registry) GetDevice(name string) *Device {
	return r.Devices[name]
}

// SetDevice adds or replaces a saved device entry.
func (r *Registry) SetDevice(name string, device *Device) {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	r.Devices[name] = device
}

// RemoveDevice deletes a saved device entry.
// Clears the default device preference if it pointed at the removed entry.
// Returns an error if the name is not in the registry.
func (r *Registry) RemoveDevice(name string) error {
	if _, exists := r.Devices[name]; !exists {
		return fmt.Errorf("no saved device named %q", name)
	}
	delete(r.Devices, name)
	if r.Preferences != nil && r.Preferences.DefaultDevice == name {
		r.Preferences.DefaultDevice = ""
	}
	return nil
}

// DeviceNames returns the saved device names in sorted order.
func (r *Registry) DeviceNames() []string {
	names := make([]string, 0, len(r.Devices))
	for name := range r.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UpdateDeviceLastSeen records a sighting of a saved device.
func (r *Registry) UpdateDeviceLastSeen(name, host string) {
	device := r.GetDevice(name)
	if device == nil {
		return
	}
	device.Host = host
	device.LastSeen = time.Now()
}

// DefaultDevice resolves the configured default device.
// Returns the name and entry, or empty and nil when no default is set.
func (r *Registry) DefaultDevice() (string, *Device) {
	if r.Preferences == nil || r.Preferences.DefaultDevice == "" {
		return "", nil
	}
	name := r.Preferences.DefaultDevice
	return name, r.Devices[name]
}

// SetDefaultDevice sets the default device preference.
// The named device must already exist in the registry.
func (r *Registry) SetDefaultDevice(name string) error {
	if _, exists := r.Devices[name]; !exists {
		return fmt.Errorf("no saved device named %q", name)
	}
	if r.Preferences == nil {
		r.Preferences = &Preferences{DiscoverTimeout: 3}
	}
	r.Preferences.DefaultDevice = name
	return nil
}
