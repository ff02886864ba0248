package main

import (
	"github.com/jessevdk/go-flags"
	"tiny_mvcc/pkg/a_misc/boilerplate"
	"tiny_mvcc/pkg/db"
)

const iniFilename = "tiny-mvcc.ini"

// Config is the top-level configuration object of the driver.
var Config = new(struct {
	Db          db.Config                     `group:"Database" namespace:"db" env-namespace:"DB"`
	Log         boilerplate.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
	Diagnostics boilerplate.DiagnosticsConfig `group:"Diagnostics" namespace:"debug" env-namespace:"DEBUG"`
})

func startup() *db.Db {
	boilerplate.InitLog(Config.Log)
	boilerplate.InitDiagnostics(Config.Diagnostics)

	var database, err = db.Open(Config.Db)
	boilerplate.Must(err, "failed to open database", "backend", Config.Db.Store.Backend)
	return database
}

func main() {
	var parser = flags.NewParser(Config, flags.Default)

	_, _ = parser.AddCommand("run", "Run scripts of engine commands", `
Run each script against a fresh database, printing the output of every block
in the script format. With --check, outputs are compared with the expectations
of the script instead, and mismatches are reported.
`, &cmdRun{})

	_, _ = parser.AddCommand("repl", "Run engine commands interactively", `
Read and run engine commands, one per line, printing their output.
`, &cmdRepl{})

	_, _ = parser.AddCommand("dump", "Dump every record of the store", `
Print a table of every record held by the store, decoded.
`, &cmdDump{})

	_, _ = parser.AddCommand("status", "Print the status of the engine", `
Print the number of allocated versions and active transactions.
`, &cmdStatus{})

	boilerplate.AddPrintConfigCmd(parser, iniFilename)
	boilerplate.MustParseConfig(parser, iniFilename)
}
