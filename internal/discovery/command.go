package discovery

import (
	"fmt"
	"strings"

	"github.com/muurk/wifiled/internal/catalog"
	"github.com/muurk/wifiled/internal/protocol"
)

// Command is an assembled AT command: the exact wire string plus the decode
// rule for its response. One assembly path serves argument-taking and
// argument-free commands uniformly.
type Command struct {
	// Wire is the string transmitted to the device, framing included.
	Wire string

	spec catalog.CommandSpec
	set  bool
}

// AssembleCommand looks up an AT command by name and builds its wire form.
// Supplying setArgs selects "set" mode: the arguments are comma-joined
// after an "=". Literal specs ignore framing and arguments entirely.
func AssembleCommand(name string, setArgs ...string) (Command, error) {
	spec, ok := catalog.LookupCommand(name)
	if !ok {
		return Command{}, &protocol.ProtocolError{Op: "at", Message: fmt.Sprintf("unknown AT command %q", name)}
	}

	cmd := Command{spec: spec, set: len(setArgs) > 0}

	if spec.Literal {
		cmd.Wire = spec.Template
		return cmd, nil
	}

	var b strings.Builder
	b.WriteString(catalog.SendPrefix)
	b.WriteString(spec.Template)
	if cmd.set {
		b.WriteString("=")
		b.WriteString(strings.Join(setArgs, ","))
	}
	b.WriteString(catalog.SendSuffix)
	cmd.Wire = b.String()

	return cmd, nil
}

// Decode parses the response text for this command into its field values.
// The known response prefix, a leading "=", and the response suffix are
// stripped; what remains is split according to the spec's parse role for
// the mode the command was assembled in. The result is never nil.
func (c Command) Decode(response string) []string {
	body := strings.TrimPrefix(response, catalog.RecvPrefix)
	body = strings.TrimPrefix(body, "=")
	body = strings.TrimSuffix(body, catalog.RecvSuffix)
	body = strings.TrimSpace(body)

	if body == "" {
		return []string{}
	}

	role := c.spec.GetParse
	if c.set {
		role = c.spec.SetParse
	}

	switch role {
	case catalog.ParseArray:
		return strings.Split(body, ",")
	case catalog.ParseScalar:
		return []string{body}
	default:
		return []string{}
	}
}
