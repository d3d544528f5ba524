package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	// Should not be empty
	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	// Should contain "wifiled"
	if !strings.Contains(configDir, "wifiled") {
		t.Errorf("GetConfigDir() = %v, should contain 'wifiled'", configDir)
	}

	// Platform-specific checks
	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin", "linux":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}

	t.Logf("Config directory: %s", configDir)
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	// Should end with config.yaml
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}

	t.Logf("Config path: %s", configPath)
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}

	if reg.Devices == nil {
		t.Error("NewRegistry().Devices should not be nil")
	}

	if reg.Preferences == nil {
		t.Fatal("NewRegistry().Preferences should not be nil")
	}

	if reg.Preferences.DiscoverTimeout != 3 {
		t.Errorf("NewRegistry().Preferences.DiscoverTimeout = %v, want 3", reg.Preferences.DiscoverTimeout)
	}
}

func TestRegistrySetGetDevice(t *testing.T) {
	reg := NewRegistry()

	reg.SetDevice("bedroom", &Device{Host: "192.168.1.50"})

	device := reg.GetDevice("bedroom")
	if device == nil {
		t.Fatal("GetDevice() returned nil after SetDevice()")
	}
	if device.Host != "192.168.1.50" {
		t.Errorf("Host = %v, want 192.168.1.50", device.Host)
	}

	if reg.GetDevice("kitchen") != nil {
		t.Error("GetDevice() should return nil for unknown name")
	}
}

func TestRegistryRemoveDevice(t *testing.T) {
	reg := NewRegistry()
	reg.SetDevice("bedroom", &Device{Host: "192.168.1.50"})

	if err := reg.SetDefaultDevice("bedroom"); err != nil {
		t.Fatalf("SetDefaultDevice() error = %v", err)
	}

	if err := reg.RemoveDevice("bedroom"); err != nil {
		t.Fatalf("RemoveDevice() error = %v", err)
	}

	if reg.GetDevice("bedroom") != nil {
		t.Error("device still present after RemoveDevice()")
	}
	if reg.Preferences.DefaultDevice != "" {
		t.Error("default device should be cleared when the entry is removed")
	}

	if err := reg.RemoveDevice("bedroom"); err == nil {
		t.Error("RemoveDevice() on unknown name should return error")
	}
}

func TestRegistryDeviceNames(t *testing.T) {
	reg := NewRegistry()
	reg.SetDevice("kitchen", &Device{Host: "192.168.1.51"})
	reg.SetDevice("bedroom", &Device{Host: "192.168.1.50"})
	reg.SetDevice("porch", &Device{Host: "192.168.1.52"})

	names := reg.DeviceNames()
	want := []string{"bedroom", "kitchen", "porch"}
	if len(names) != len(want) {
		t.Fatalf("DeviceNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("DeviceNames()[%d] = %v, want %v", i, names[i], want[i])
		}
	}
}

func TestRegistryUpdateDeviceLastSeen(t *testing.T) {
	reg := NewRegistry()
	reg.SetDevice("bedroom", &Device{Host: "192.168.1.50"})

	before := time.Now()
	reg.UpdateDeviceLastSeen("bedroom", "192.168.1.60")
	after := time.Now()

	device := reg.GetDevice("bedroom")
	if device.Host != "192.168.1.60" {
		t.Errorf("Host = %v, want 192.168.1.60", device.Host)
	}
	if device.LastSeen.Before(before) || device.LastSeen.After(after) {
		t.Errorf("LastSeen = %v, should be between %v and %v", device.LastSeen, before, after)
	}

	// Unknown names are ignored rather than created
	reg.UpdateDeviceLastSeen("kitchen", "192.168.1.61")
	if reg.GetDevice("kitchen") != nil {
		t.Error("UpdateDeviceLastSeen() should not create entries")
	}
}

func TestRegistryDefaultDevice(t *testing.T) {
	reg := NewRegistry()

	if name, device := reg.DefaultDevice(); name != "" || device != nil {
		t.Errorf("DefaultDevice() on empty registry = %q, %v", name, device)
	}

	if err := reg.SetDefaultDevice("bedroom"); err == nil {
		t.Error("SetDefaultDevice() for unknown name should return error")
	}

	reg.SetDevice("bedroom", &Device{Host: "192.168.1.50"})
	if err := reg.SetDefaultDevice("bedroom"); err != nil {
		t.Fatalf("SetDefaultDevice() error = %v", err)
	}

	name, device := reg.DefaultDevice()
	if name != "bedroom" || device == nil || device.Host != "192.168.1.50" {
		t.Errorf("DefaultDevice() = %q, %v", name, device)
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	reg := NewRegistry()
	reg.SetDevice("bedroom", &Device{
		Host:        "192.168.1.50",
		MAC:         "ac:cf:23:00:00:01",
		Model:       "HF-LPB100-ZJ200",
		NoImmediate: true,
	})
	if err := reg.SetDefaultDevice("bedroom"); err != nil {
		t.Fatalf("SetDefaultDevice() error = %v", err)
	}

	data, err := yaml.Marshal(reg)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}

	var loaded Registry
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}

	device := loaded.GetDevice("bedroom")
	if device == nil {
		t.Fatal("device should exist in loaded registry")
	}
	if device.Host != "192.168.1.50" || device.MAC != "ac:cf:23:00:00:01" {
		t.Errorf("loaded device = %+v", device)
	}
	if !device.NoImmediate {
		t.Error("NoImmediate flag lost in round trip")
	}
	if name, _ := loaded.DefaultDevice(); name != "bedroom" {
		t.Errorf("loaded default device = %q, want bedroom", name)
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	var reg Registry
	if err := yaml.Unmarshal([]byte("version: 2\n"), &reg); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	// The on-disk loader enforces this; the check mirrors loadRegistryFromDisk.
	if reg.Version == 1 {
		t.Error("test setup error: version should not be 1")
	}
}

// Benchmark tests

func BenchmarkGetConfigDir(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = GetConfigDir()
	}
}

func BenchmarkDeviceNames(b *testing.B) {
	reg := NewRegistry()
	reg.SetDevice("bedroom", &Device{Host: "192.168.1.50"})
	reg.SetDevice("kitchen", &Device{Host: "192.168.1.51"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = reg.DeviceNames()
	}
}
