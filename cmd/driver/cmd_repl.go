package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"tiny_mvcc/pkg/testscript"
)

type cmdRepl struct{}

func (cmd *cmdRepl) Execute([]string) error {
	var database = startup()
	defer database.Stop()

	var runner = testscript.NewRunner(database)
	var eval = func(line string, out io.Writer) {
		if line = strings.TrimSpace(line); line == "" || strings.HasPrefix(line, "#") {
			return
		}
		var parsed, err = testscript.ParseCommand(line)
		if err != nil {
			fmt.Fprintf(out, "Error: %s\n", err)
			return
		}
		_, _ = io.WriteString(out, runner.Run(parsed))
	}

	var fd = int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		var scanner = bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			eval(scanner.Text(), os.Stdout)
		}
		return scanner.Err()
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer func() { _ = term.Restore(fd, state) }()

	var terminal = term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "mvcc> ")

	for {
		var line, err = terminal.ReadLine()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		eval(line, terminal)
	}
}
