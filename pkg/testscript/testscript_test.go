package testscript

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	storage "tiny_mvcc/pkg/c_storage"
	"tiny_mvcc/pkg/db"
)

func TestScripts(t *testing.T) {
	var fs = afero.NewBasePathFs(afero.NewOsFs(), "testdata")
	var paths, err = Glob(fs, "*.test")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, backend := range []storage.Config{
		{Backend: "memory"},
		{Backend: "sqlite", DSN: ":memory:"},
	} {
		for _, path := range paths {
			t.Run(backend.Backend+"/"+filepath.Base(path), func(t *testing.T) {
				var cfg = db.DefaultConfig()
				cfg.Store = backend
				cfg.ScanBatchSize = 2

				var database, err = db.Open(cfg)
				require.NoError(t, err)
				defer database.Stop()

				results, err := RunFile(fs, path, database)
				require.NoError(t, err)

				for _, result := range results {
					assert.Equal(t, result.Block.Expect, result.Output,
						"%s:%d", path, result.Block.Line)
				}
			})
		}
	}
}

func TestParse(t *testing.T) {
	var fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "a.test", []byte(`
# A comment.
t1: begin readonly as_of=3
scan a..=b reverse=true
----
first
second

get_unversioned a\x00
----

`), 0644))

	var blocks, err = ParseFile(fs, "a.test")
	require.NoError(t, err)

	assert.Equal(t, []Block{
		{
			Line: 3,
			Commands: []Command{
				{Prefix: "t1", Name: "begin", Line: 3, Args: []Arg{
					{Value: "readonly"},
					{Key: "as_of", Value: "3"},
				}},
				{Name: "scan", Line: 4, Args: []Arg{
					{Value: "a..=b"},
					{Key: "reverse", Value: "true"},
				}},
			},
			Expect: "first\nsecond\n",
		},
		{
			Line: 9,
			Commands: []Command{
				{Name: "get_unversioned", Line: 9, Args: []Arg{{Value: `a\x00`}}},
			},
			Expect: "",
		},
	}, blocks)
}

func TestParseErrors(t *testing.T) {
	for _, script := range []string{
		"----\n",
		"t1: begin\n",
		"t1:\n----\n",
	} {
		var fs = afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "bad.test", []byte(script), 0644))

		var _, err = ParseFile(fs, "bad.test")
		assert.Error(t, err, script)
	}
}

func TestParseRange(t *testing.T) {
	for _, tc := range []struct {
		in     string
		expect storage.Range
	}{
		{"", storage.All},
		{"..", storage.All},
		{"a..", storage.Range{Start: storage.Include([]byte("a"))}},
		{"..b", storage.Range{End: storage.Exclude([]byte("b"))}},
		{"..=b", storage.Range{End: storage.Include([]byte("b"))}},
		{`a..=\xff`, storage.Range{Start: storage.Include([]byte("a")), End: storage.Include([]byte{0xff})}},
	} {
		var rng, err = parseRange(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.expect, rng, tc.in)
	}

	for _, in := range []string{"a", "a..=", `\x..b`} {
		var _, err = parseRange(in)
		assert.Error(t, err, in)
	}
}

func TestRunnerErrors(t *testing.T) {
	var database, err = db.Open(db.DefaultConfig())
	require.NoError(t, err)
	defer database.Stop()

	var runner = NewRunner(database)
	var run = func(line string) string {
		var cmd, err = ParseCommand(line)
		require.NoError(t, err)
		return runner.Run(cmd)
	}

	assert.Equal(t, "", run("t1: begin"))
	assert.Equal(t, "Error: transaction t1 already exists\n", run("t1: begin"))
	assert.Equal(t, "Error: get requires a transaction name\n", run("get a"))
	assert.Equal(t, "Error: status can't run within transaction t1\n", run("t1: status"))
	assert.Equal(t, "Error: unexpected argument extra\n", run("t1: commit extra"))
	assert.Equal(t, "Error: unknown command \"frob\"\n", run("frob"))
	assert.Equal(t, "Error: invalid escape in \"\\\\x\"\n", run(`t1: remove \x`))
}
