package catalog

// Function is one built-in effect the controller firmware can run on its own.
// The ID is the value transmitted in the effect command and reported back in
// byte 3 of a status frame.
type Function struct {
	Name string
	ID   byte
}

// Functions lists every built-in effect, in firmware id order.
var Functions = []Function{
	{"seven_color_cross_fade", 0x25},
	{"red_gradual_change", 0x26},
	{"green_gradual_change", 0x27},
	{"blue_gradual_change", 0x28},
	{"yellow_gradual_change", 0x29},
	{"cyan_gradual_change", 0x2a},
	{"purple_gradual_change", 0x2b},
	{"white_gradual_change", 0x2c},
	{"red_green_cross_fade", 0x2d},
	{"red_blue_cross_fade", 0x2e},
	{"green_blue_cross_fade", 0x2f},
	{"seven_color_strobe_flash", 0x30},
	{"red_strobe_flash", 0x31},
	{"green_strobe_flash", 0x32},
	{"blue_strobe_flash", 0x33},
	{"yellow_strobe_flash", 0x34},
	{"cyan_strobe_flash", 0x35},
	{"purple_strobe_flash", 0x36},
	{"white_strobe_flash", 0x37},
	{"seven_color_jumping", 0x38},
}

var (
	functionsByName = make(map[string]byte, len(Functions))
	functionsByID   = make(map[byte]string, len(Functions))
)

func init() {
	for _, f := range Functions {
		functionsByName[f.Name] = f.ID
		functionsByID[f.ID] = f.Name
	}
}

// FunctionID returns the wire id for a built-in effect name.
func FunctionID(name string) (byte, bool) {
	id, ok := functionsByName[name]
	return id, ok
}

// FunctionName returns the effect name for a wire id.
func FunctionName(id byte) (string, bool) {
	name, ok := functionsByID[id]
	return name, ok
}

// FunctionNames returns all built-in effect names, in firmware id order.
func FunctionNames() []string {
	names := make([]string, len(Functions))
	for i, f := range Functions {
		names[i] = f.Name
	}
	return names
}
