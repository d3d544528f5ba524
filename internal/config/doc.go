// Package config provides user configuration management for the wifiled tool.
//
// This package manages a YAML-based configuration file that stores saved
// controller entries under user-chosen names, along with application
// preferences such as the default device. The configuration follows
// OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/wifiled/config.yaml or $HOME/.config/wifiled/config.yaml
//   - macOS: $HOME/.config/wifiled/config.yaml
//   - Windows: %LOCALAPPDATA%\wifiled\config.yaml
//
// # Usage Example
//
//	// Load the global registry
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Add or update a saved device
//	registry.SetDevice("bedroom", &config.Device{
//	    Host:  "192.168.1.50",
//	    MAC:   "ac:cf:23:00:00:01",
//	    Model: "HF-LPB100-ZJ200",
//	})
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
