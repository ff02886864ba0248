// Package testscript parses and runs scripts of engine commands, checking
// their output against golden expectations written in the script itself.
//
// A script is a sequence of blocks. Each block holds one or more command
// lines, a "----" separator, and the expected output of the commands, which
// ends at a blank line:
//
//	# Comments begin with '#'.
//	t1: begin
//	t1: set a=1 b=\x00
//	t1: get a c
//	----
//	"a" → "1"
//	"c" → None
//
// A command is an optional "name:" transaction prefix, a command name, and
// positional or key=value arguments. Arguments may use Go escapes like \xff.
package testscript

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Command is a single parsed command line.
type Command struct {
	Prefix string // Transaction name, or empty.
	Name   string
	Args   []Arg
	Line   int
}

// Arg is a positional argument, or a key=value one.
type Arg struct {
	Key   string // Empty if positional.
	Value string
}

// Block is a group of commands and their expected output.
type Block struct {
	Commands []Command
	Expect   string
	Line     int
}

// Parse the script read from |r|. |name| is used in errors.
func Parse(name string, r io.Reader) ([]Block, error) {
	var (
		scanner = bufio.NewScanner(r)
		blocks  []Block
		current Block
		inOut   bool
		lineNo  int
		out     strings.Builder
	)
	var finish = func() {
		current.Expect = out.String()
		blocks = append(blocks, current)
		current, inOut = Block{}, false
		out.Reset()
	}

	for scanner.Scan() {
		lineNo++
		var line = scanner.Text()

		if inOut {
			if strings.TrimSpace(line) == "" {
				finish()
			} else {
				out.WriteString(line)
				out.WriteByte('\n')
			}
			continue
		}

		switch trimmed := strings.TrimSpace(line); {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			continue
		case trimmed == "----":
			if len(current.Commands) == 0 {
				return nil, errors.Errorf("%s:%d: output separator without commands", name, lineNo)
			}
			inOut = true
		default:
			var cmd, err = ParseCommand(trimmed)
			if err != nil {
				return nil, errors.WithMessagef(err, "%s:%d", name, lineNo)
			}
			cmd.Line = lineNo
			if len(current.Commands) == 0 {
				current.Line = lineNo
			}
			current.Commands = append(current.Commands, cmd)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}

	if inOut {
		finish()
	} else if len(current.Commands) != 0 {
		return nil, errors.Errorf("%s:%d: commands without an output separator", name, current.Line)
	}
	return blocks, nil
}

// ParseCommand parses a single command line.
func ParseCommand(line string) (Command, error) {
	var fields = strings.Fields(line)
	var cmd Command

	if len(fields) != 0 && strings.HasSuffix(fields[0], ":") {
		cmd.Prefix = strings.TrimSuffix(fields[0], ":")
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return Command{}, errors.New("missing command name")
	}
	cmd.Name = fields[0]

	for _, field := range fields[1:] {
		var arg Arg
		// "a..=b" is a positional range, not a key=value.
		if i := strings.IndexByte(field, '='); i > 0 && !strings.HasSuffix(field[:i], "..") {
			arg.Key, arg.Value = field[:i], field[i+1:]
		} else {
			arg.Value = field
		}
		cmd.Args = append(cmd.Args, arg)
	}
	return cmd, nil
}

// decodeBytes decodes an argument having optional Go escapes.
func decodeBytes(s string) ([]byte, error) {
	if !strings.Contains(s, `\`) {
		return []byte(s), nil
	}
	var out, err = strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
	if err != nil {
		return nil, errors.Errorf("invalid escape in %q", s)
	}
	return []byte(out), nil
}
