package catalog

import "sort"

// AT-command framing constants for the UDP configuration service.
//
// Non-literal commands are wrapped as SendPrefix + template [+ "=" + args] +
// SendSuffix on the way out. Responses arrive as RecvPrefix [+ "=" + fields]
// + RecvSuffix.
const (
	// SendPrefix starts every framed outbound AT command.
	SendPrefix = "AT+"

	// SendSuffix terminates every framed outbound AT command.
	SendSuffix = "\r"

	// RecvPrefix starts every well-formed AT response.
	RecvPrefix = "+ok"

	// RecvSuffix terminates every AT response.
	RecvSuffix = "\r\n\r\n"

	// DefaultHello is the well-known handshake/discovery password accepted
	// by unprovisioned controllers. Configurable per device.
	DefaultHello = "HF-A11ASSISTHREAD"
)

// ParseRole describes how the response body of an AT command decodes.
type ParseRole int

const (
	// ParseNone means the response carries no field values.
	ParseNone ParseRole = iota
	// ParseScalar means the response body is a single value.
	ParseScalar
	// ParseArray means the response body is a comma-separated list.
	ParseArray
)

// CommandSpec describes one AT command the UDP service accepts.
//
// Literal specs are transmitted verbatim, with no prefix/suffix framing.
// For framed specs, supplying arguments selects "set" mode (arguments are
// comma-joined after an "="); supplying none selects "get" mode. GetParse
// and SetParse give the response decode role for each mode.
type CommandSpec struct {
	Name     string
	Template string
	Literal  bool
	GetParse ParseRole
	SetParse ParseRole
}

// Commands is the AT command set of the HF-LPB100 class modules these
// controllers are built on. Indexed by spec name.
var Commands = map[string]CommandSpec{
	// Handshake password; the device answers with "ip,mac,model".
	"hello": {Name: "hello", Template: DefaultHello, Literal: true, GetParse: ParseArray},

	// Bare acknowledgement that switches the module into AT mode.
	"ack": {Name: "ack", Template: RecvPrefix, Literal: true},

	"firmware_version": {Name: "firmware_version", Template: "LVER", GetParse: ParseScalar},
	"network_params":   {Name: "network_params", Template: "NETP", GetParse: ParseArray, SetParse: ParseNone},
	"wifi_mode":        {Name: "wifi_mode", Template: "WMODE", GetParse: ParseScalar, SetParse: ParseNone},
	"wifi_scan":        {Name: "wifi_scan", Template: "WSCAN", GetParse: ParseArray},
	"wifi_ssid":        {Name: "wifi_ssid", Template: "WSSSID", GetParse: ParseScalar, SetParse: ParseNone},
	"wifi_key":         {Name: "wifi_key", Template: "WSKEY", GetParse: ParseArray, SetParse: ParseNone},
	"reboot":           {Name: "reboot", Template: "Z"},
	"quit_at_mode":     {Name: "quit_at_mode", Template: "Q"},
}

// LookupCommand returns the spec for an AT command name.
func LookupCommand(name string) (CommandSpec, bool) {
	spec, ok := Commands[name]
	return spec, ok
}

// CommandNames returns the known AT command names in sorted order.
func CommandNames() []string {
	names := make([]string, 0, len(Commands))
	for name := range Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
