package testscript

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"tiny_mvcc/pkg/db"
)

// Result is a Block and the output it actually produced.
type Result struct {
	Path   string
	Block  Block
	Output string
}

// Ok returns whether the output matched the expectation.
func (r Result) Ok() bool { return r.Block.Expect == r.Output }

// Glob returns the scripts of the Fs matching |pattern|, like "*.test".
func Glob(fs afero.Fs, pattern string) ([]string, error) {
	var paths, err = afero.Glob(fs, pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "matching %s", pattern)
	}
	return paths, nil
}

// ParseFile parses the script at |path| of the Fs.
func ParseFile(fs afero.Fs, path string) ([]Block, error) {
	var f, err = fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	return Parse(filepath.Base(path), f)
}

// RunFile runs the script at |path| of the Fs against |database|, returning
// the Result of each Block.
func RunFile(fs afero.Fs, path string, database *db.Db) ([]Result, error) {
	var blocks, err = ParseFile(fs, path)
	if err != nil {
		return nil, err
	}
	var runner = NewRunner(database)
	var out = make([]Result, 0, len(blocks))

	for _, block := range blocks {
		out = append(out, Result{
			Path:   path,
			Block:  block,
			Output: runner.RunBlock(block),
		})
	}
	return out, nil
}
