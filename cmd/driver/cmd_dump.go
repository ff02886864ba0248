package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"tiny_mvcc/pkg/a_misc/boilerplate"
	keycode "tiny_mvcc/pkg/d_keycode"
	"tiny_mvcc/pkg/db"
	"tiny_mvcc/pkg/txn"
)

type cmdDump struct{}

func (cmd *cmdDump) Execute([]string) error {
	var database = startup()
	defer database.Stop()

	var records, err = database.Dump()
	boilerplate.Must(err, "failed to dump records")

	return writeRecords(os.Stdout, records)
}

// writeRecords writes a table of decoded |records|, followed by their total.
func writeRecords(w io.Writer, records []db.Record) error {
	var table = tablewriter.NewWriter(w)
	table.Header("Key", "Value", "Size")

	var total uint64
	for _, rec := range records {
		var size = uint64(len(rec.Key.Encode()) + len(rec.Value))
		total += size

		if err := table.Append([]string{
			rec.Key.String(),
			keycode.FormatValue(rec.Key, rec.Value),
			humanize.Bytes(size),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	var _, err = fmt.Fprintf(w, "%s records, %s\n", humanize.Comma(int64(len(records))), humanize.Bytes(total))
	return err
}

type cmdStatus struct{}

func (cmd *cmdStatus) Execute([]string) error {
	var database = startup()
	defer database.Stop()

	var status, err = database.Status()
	boilerplate.Must(err, "failed to read status")

	return writeStatus(os.Stdout, Config.Db.Store.Backend, status)
}

func writeStatus(w io.Writer, backend string, status txn.Status) error {
	var table = tablewriter.NewWriter(w)
	table.Header("Backend", "Versions", "Active Txns")

	if err := table.Append([]string{
		backend,
		humanize.Comma(int64(status.Versions)),
		humanize.Comma(int64(status.ActiveTxns)),
	}); err != nil {
		return err
	}
	return table.Render()
}
