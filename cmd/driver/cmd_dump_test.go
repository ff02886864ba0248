package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tiny_mvcc/pkg/db"
	"tiny_mvcc/pkg/txn"
)

func TestWriteRecords(t *testing.T) {
	var database, err = db.Open(db.DefaultConfig())
	require.NoError(t, err)
	defer database.Stop()

	require.NoError(t, database.Update(context.Background(), func(txn *txn.Txn) error {
		return txn.Set([]byte("a"), []byte("hello"))
	}))
	require.NoError(t, database.Update(context.Background(), func(txn *txn.Txn) error {
		return txn.Remove([]byte("a"))
	}))

	records, err := database.Dump()
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, writeRecords(&out, records))

	for _, expect := range []string{
		"NextVersion", `Version("a", 1)`, `"hello"`, `Version("a", 2)`, "None",
		`TxWrite(1, "a")`, "5 records",
	} {
		assert.Contains(t, out.String(), expect)
	}
}

func TestWriteStatus(t *testing.T) {
	var out strings.Builder
	require.NoError(t, writeStatus(&out, "memory", txn.Status{Versions: 1234, ActiveTxns: 2}))

	assert.Contains(t, out.String(), "memory")
	assert.Contains(t, out.String(), "1,234")
	assert.Contains(t, out.String(), "2")
}
