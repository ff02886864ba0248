package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"tiny_mvcc/pkg/a_misc/boilerplate"
	"tiny_mvcc/pkg/db"
	"tiny_mvcc/pkg/testscript"
)

type cmdRun struct {
	Check bool `long:"check" description:"Compare outputs with the expectations of scripts"`
	Args  struct {
		Scripts []string `positional-arg-name:"SCRIPT" required:"1"`
	} `positional-args:"yes"`
}

func (cmd *cmdRun) Execute([]string) error {
	boilerplate.InitLog(Config.Log)
	boilerplate.InitDiagnostics(Config.Diagnostics)

	var fs = afero.NewOsFs()
	var failed int

	for _, path := range cmd.Args.Scripts {
		// Each script runs against its own database.
		var database, err = db.Open(Config.Db)
		if err != nil {
			return err
		}
		results, err := testscript.RunFile(fs, path, database)
		_ = database.Stop()

		if err != nil {
			return err
		}
		for _, result := range results {
			if !cmd.Check {
				printBlock(result.Block, result.Output)
			} else if !result.Ok() {
				failed++
				log.WithFields(log.Fields{
					"script": path,
					"line":   result.Block.Line,
				}).Warn("output mismatch")
				fmt.Printf("--- %s:%d expected:\n%s+++ actual:\n%s\n",
					path, result.Block.Line, result.Block.Expect, result.Output)
			}
		}
	}
	if failed != 0 {
		return errors.Errorf("%d blocks had mismatched output", failed)
	}
	return nil
}

// printBlock prints commands and their output in the script format.
func printBlock(block testscript.Block, output string) {
	var b strings.Builder
	for _, cmd := range block.Commands {
		if cmd.Prefix != "" {
			b.WriteString(cmd.Prefix + ": ")
		}
		b.WriteString(cmd.Name)
		for _, arg := range cmd.Args {
			b.WriteByte(' ')
			if arg.Key != "" {
				b.WriteString(arg.Key + "=")
			}
			b.WriteString(arg.Value)
		}
		b.WriteByte('\n')
	}
	b.WriteString("----\n")
	b.WriteString(output)
	b.WriteByte('\n')
	_, _ = os.Stdout.WriteString(b.String())
}
