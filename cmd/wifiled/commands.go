package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiled/internal/config"
	"github.com/muurk/wifiled/internal/device"
	"github.com/muurk/wifiled/internal/discovery"
	"github.com/muurk/wifiled/internal/protocol"
)

// Common command flags
var (
	targetDevice string
	connTimeout  int
	scanTimeout  int
	saveAs       string
	forceStatus  bool
	effectSpeed  int
	customMode   string
	customSpeed  int
)

func init() {
	// Common flags for device commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&targetDevice, "device", "", "Device host, or the name of a saved device")
	rootCmd.PersistentFlags().IntVar(&connTimeout, "timeout", 5, "Connection timeout in seconds")

	// Add subcommands directly to root
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(colorCmd)
	rootCmd.AddCommand(effectCmd)
	rootCmd.AddCommand(effectsCmd)
	rootCmd.AddCommand(customCmd)
	rootCmd.AddCommand(atCmd)
	rootCmd.AddCommand(devicesCmd)
}

// scanCmd discovers controllers on the local network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for LED controllers on the network",
	Long: `Scan for LED controllers using UDP broadcast discovery.

This command broadcasts a discovery probe on the local network and
displays all controllers that answer, with their IP addresses, MAC
addresses, and module model strings.`,
	Example: `  # Quick 3-second scan (default)
  wifiled scan

  # Longer scan for slower networks
  wifiled scan --scan-timeout 10

  # Scan and save the single result under a friendly name
  wifiled scan --save bedroom`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "scan-timeout", 3, "Scan timeout in seconds")
	scanCmd.Flags().StringVar(&saveAs, "save", "", "Save the discovered device under this name (requires exactly one result)")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for LED controllers (timeout: %ds)...\n\n", scanTimeout)

	devices, err := device.Discover(cmd.Context(), time.Duration(scanTimeout)*time.Second, discovery.Options{})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No controllers found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the controller is powered on and joined to this network")
		fmt.Println("  - Check that your network allows UDP broadcast")
		fmt.Println("  - Try increasing --scan-timeout for slower networks")
		fmt.Println("  - Use --device flag to specify the host manually if discovery fails")
		return nil
	}

	fmt.Printf("Found %d controller(s):\n\n", len(devices))

	for i, dev := range devices {
		fmt.Printf("%d. %s\n", i+1, dev.IP)
		fmt.Printf("   MAC:   %s\n", dev.MAC)
		fmt.Printf("   Model: %s\n", dev.Model)
		fmt.Println()
	}

	if saveAs != "" {
		if len(devices) != 1 {
			return fmt.Errorf("--save requires exactly one result, found %d", len(devices))
		}
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		registry.SetDevice(saveAs, &config.Device{
			Host:     devices[0].IP,
			MAC:      devices[0].MAC,
			Model:    devices[0].Model,
			LastSeen: time.Now(),
		})
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("Saved %s as %q\n", devices[0].IP, saveAs)
		return nil
	}

	fmt.Println("Use 'wifiled status --device <ip>' to query a controller")
	fmt.Println("Use 'wifiled devices add <name> <ip>' to save one under a friendly name")

	return nil
}

// statusCmd queries and displays the controller state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show controller state",
	Long: `Query the controller for its current state.

Displays power state, the active mode (static color, built-in effect,
or custom pattern), the effect speed where one applies, and the RGBW
channel levels.`,
	Example: `  # Query a saved device
  wifiled status --device bedroom

  # Query by IP
  wifiled status --device 192.168.1.50

  # Bypass the client-side cache
  wifiled status --device bedroom --force`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&forceStatus, "force", false, "Always query the device, even when a cached state is available")
}

func runStatus(cmd *cobra.Command, args []string) error {
	h, done, err := openHandle(cmd.Context())
	if err != nil {
		return err
	}
	defer done()

	status, err := h.Status(forceStatus)
	if err != nil {
		return fmt.Errorf("status query failed: %w", err)
	}
	if status == nil {
		return fmt.Errorf("connection lost before the controller answered")
	}

	power := "off"
	if status.Power {
		power = "on"
	}
	fmt.Printf("Power: %s\n", power)

	switch {
	case status.Mode == protocol.ModeStatic:
		fmt.Println("Mode:  static color")
	case status.Mode == protocol.ModeCustom:
		fmt.Println("Mode:  custom pattern")
	case status.Mode.IsFunction():
		fmt.Printf("Mode:  built-in effect (%s)\n", status.Mode.FunctionName())
	default:
		fmt.Println("Mode:  other")
	}

	if status.HasSpeed {
		fmt.Printf("Speed: %d\n", status.Speed)
	}
	fmt.Printf("Color: R=%d G=%d B=%d W=%d\n", status.Red, status.Green, status.Blue, status.White)

	return nil
}

// onCmd and offCmd switch the controller power state
var onCmd = &cobra.Command{
	Use:     "on",
	Short:   "Turn the controller on",
	Example: `  wifiled on --device bedroom`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimple(cmd.Context(), "Turned on", func(h *device.Handle) error { return h.On() })
	},
}

var offCmd = &cobra.Command{
	Use:     "off",
	Short:   "Turn the controller off",
	Example: `  wifiled off --device bedroom`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimple(cmd.Context(), "Turned off", func(h *device.Handle) error { return h.Off() })
	},
}

// colorCmd sets a static color
var colorCmd = &cobra.Command{
	Use:   "color <red> <green> <blue> [white]",
	Short: "Set a static color",
	Long: `Set the controller to a static color.

Each channel is a value from 0 to 255. The white channel is optional
and defaults to 0; it only has an effect on RGBW hardware.`,
	Example: `  # Warm orange
  wifiled color 255 120 0 --device bedroom

  # Pure white channel on an RGBW strip
  wifiled color 0 0 0 255 --device bedroom`,
	Args: cobra.RangeArgs(3, 4),
	RunE: runColor,
}

func runColor(cmd *cobra.Command, args []string) error {
	channels := make([]uint8, 4)
	for i, arg := range args {
		v, err := strconv.ParseUint(arg, 10, 8)
		if err != nil {
			return fmt.Errorf("invalid channel value %q (expected 0-255)", arg)
		}
		channels[i] = uint8(v)
	}

	msg := fmt.Sprintf("Set color R=%d G=%d B=%d W=%d", channels[0], channels[1], channels[2], channels[3])
	return runSimple(cmd.Context(), msg, func(h *device.Handle) error {
		return h.RGBW(channels[0], channels[1], channels[2], channels[3])
	})
}

// effectsCmd lists the built-in effect names
var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "List built-in effect names",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range device.Functions() {
			fmt.Println(name)
		}
	},
}

// effectCmd starts a built-in effect
var effectCmd = &cobra.Command{
	Use:   "effect <name>",
	Short: "Start a built-in effect",
	Long: `Start one of the controller's built-in effects.

Speed runs from 0 (slowest) to 100 (fastest). Use 'wifiled effects'
to list the available effect names.`,
	Example: `  # Fast rainbow fade
  wifiled effect seven_color_cross_fade --speed 90 --device bedroom

  # Slow red pulse
  wifiled effect red_gradual_change --speed 10 --device bedroom`,
	Args: cobra.ExactArgs(1),
	RunE: runEffect,
}

func init() {
	effectCmd.Flags().IntVar(&effectSpeed, "speed", 50, "Effect speed (0-100)")
}

func runEffect(cmd *cobra.Command, args []string) error {
	name := args[0]
	msg := fmt.Sprintf("Started effect %s (speed %d)", name, effectSpeed)
	return runSimple(cmd.Context(), msg, func(h *device.Handle) error {
		return h.Builtin(name, effectSpeed)
	})
}

// customCmd programs a custom color pattern
var customCmd = &cobra.Command{
	Use:   "custom <r,g,b> [r,g,b ...]",
	Short: "Program a custom color pattern",
	Long: `Program a custom pattern of up to 16 colors.

Each argument is one pattern step as a comma-separated RGB triple.
The transition mode is one of gradual, jumping, or strobe, and speed
runs from 0 (slowest) to 30 (fastest).`,
	Example: `  # Gradual fade between red, green and blue
  wifiled custom 255,0,0 0,255,0 0,0,255 --device bedroom

  # Fast police strobe
  wifiled custom 255,0,0 0,0,255 --mode strobe --speed 30 --device bedroom`,
	Args: cobra.RangeArgs(1, protocol.CustomStepCount),
	RunE: runCustom,
}

func init() {
	customCmd.Flags().StringVar(&customMode, "mode", "gradual", "Transition mode (gradual, jumping, strobe)")
	customCmd.Flags().IntVar(&customSpeed, "speed", 15, "Pattern speed (0-30)")
}

func runCustom(cmd *cobra.Command, args []string) error {
	steps := make([]protocol.Step, 0, len(args))
	for _, arg := range args {
		step, err := parseStep(arg)
		if err != nil {
			return err
		}
		steps = append(steps, step)
	}

	msg := fmt.Sprintf("Programmed %d-step %s pattern (speed %d)", len(steps), customMode, customSpeed)
	return runSimple(cmd.Context(), msg, func(h *device.Handle) error {
		return h.Custom(protocol.CustomMode(customMode), customSpeed, steps)
	})
}

func parseStep(arg string) (protocol.Step, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 3 {
		return protocol.Step{}, fmt.Errorf("invalid step %q (expected r,g,b)", arg)
	}
	var channels [3]uint8
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil {
			return protocol.Step{}, fmt.Errorf("invalid step %q (expected 0-255 channels)", arg)
		}
		channels[i] = uint8(v)
	}
	return protocol.Step{Red: channels[0], Green: channels[1], Blue: channels[2]}, nil
}

// atCmd runs a raw AT command against the WiFi module
var atCmd = &cobra.Command{
	Use:   "at <command> [args...]",
	Short: "Run an AT command on the controller's WiFi module",
	Long: `Run a named AT command against the controller's WiFi module over UDP.

Commands without arguments query the module; commands with arguments
set module parameters. Run without a command name to list the known
commands.`,
	Example: `  # Query the module firmware version
  wifiled at firmware_version --device bedroom

  # Query the network parameters
  wifiled at network_params --device bedroom

  # Switch the module WiFi mode
  wifiled at wifi_mode STA --device bedroom`,
	RunE: runAT,
}

func runAT(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		for _, name := range device.Commands() {
			fmt.Println(name)
		}
		return nil
	}

	h, done, err := openHandle(cmd.Context())
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(connTimeout)*time.Second)
	defer cancel()

	values, err := h.Exchange(ctx, args[0], args[1:]...)
	if err != nil {
		return fmt.Errorf("%s failed: %w", args[0], err)
	}
	if values == nil {
		return fmt.Errorf("connection lost before the module answered")
	}

	for _, v := range values {
		fmt.Println(v)
	}
	return nil
}

// devicesCmd manages the saved device registry
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage saved devices",
	Long: `Manage the registry of saved controllers.

Saved controllers can be addressed by name with the --device flag
anywhere a host is accepted.`,
}

func init() {
	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesAddCmd)
	devicesCmd.AddCommand(devicesRemoveCmd)
	devicesCmd.AddCommand(devicesDefaultCmd)
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}

		names := registry.DeviceNames()
		if len(names) == 0 {
			fmt.Println("No saved devices. Use 'wifiled devices add' or 'wifiled scan --save'.")
			return nil
		}

		defaultName, _ := registry.DefaultDevice()
		for _, name := range names {
			entry := registry.GetDevice(name)
			marker := " "
			if name == defaultName {
				marker = "*"
			}
			fmt.Printf("%s %-16s %s", marker, name, entry.Host)
			if entry.Model != "" {
				fmt.Printf("  (%s)", entry.Model)
			}
			fmt.Println()
		}
		return nil
	},
}

var devicesAddCmd = &cobra.Command{
	Use:     "add <name> <host>",
	Short:   "Save a device under a friendly name",
	Example: `  wifiled devices add bedroom 192.168.1.50`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		registry.SetDevice(args[0], &config.Device{Host: args[1]})
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("Saved %s as %q\n", args[1], args[0])
		return nil
	},
}

var devicesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a saved device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if err := registry.RemoveDevice(args[0]); err != nil {
			return err
		}
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("Removed %q\n", args[0])
		return nil
	},
}

var devicesDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if err := registry.SetDefaultDevice(args[0]); err != nil {
			return err
		}
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("Default device is now %q\n", args[0])
		return nil
	},
}

// runSimple opens the target device, applies one operation, and reports
// the result. Most write-only commands share this shape.
func runSimple(ctx context.Context, doneMsg string, op func(*device.Handle) error) error {
	h, done, err := openHandle(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := op(h); err != nil {
		return err
	}
	fmt.Println(doneMsg)
	return nil
}

// openHandle resolves the target from the --device flag and the saved
// device registry, connects, and returns the handle with a cleanup
// function.
func openHandle(ctx context.Context) (*device.Handle, func(), error) {
	opts, err := resolveTarget()
	if err != nil {
		return nil, nil, err
	}

	h, err := device.New(opts)
	if err != nil {
		return nil, nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, time.Duration(connTimeout)*time.Second)
	defer cancel()

	if err := h.Connect(connectCtx); err != nil {
		h.Disconnect()
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", opts.Host, err)
	}

	return h, h.Disconnect, nil
}

// resolveTarget maps the --device flag to connection options. A value
// matching a saved name uses that entry; anything else is treated as a
// host. With no flag at all, the registry's default device is used.
func resolveTarget() (device.Options, error) {
	registry, err := config.LoadRegistry()
	if err != nil {
		return device.Options{}, err
	}

	name := targetDevice
	if name == "" {
		_, entry := registry.DefaultDevice()
		if entry == nil {
			return device.Options{}, fmt.Errorf("no device specified. Use --device, or set a default with 'wifiled devices default'")
		}
		return entryOptions(entry), nil
	}

	if entry := registry.GetDevice(name); entry != nil {
		return entryOptions(entry), nil
	}

	// Not a saved name: treat the value as a host
	return device.Options{Host: name}, nil
}

func entryOptions(entry *config.Device) device.Options {
	return device.Options{
		Host:        entry.Host,
		NoImmediate: entry.NoImmediate,
		NoCache:     entry.NoCache,
	}
}
