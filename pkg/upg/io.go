package upg

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/upgraph/pkg/errors"
)

// ReadCaller decodes one caller record from r.
//
// The record must be a JSON object with at least a "name". Callee, ADT and
// tag entries that are structurally wrong but still valid JSON are kept and
// skipped later when the diagram is built. ReadCaller does not close r.
func ReadCaller(r io.Reader) (*Caller, error) {
	var c Caller
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode caller")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCaller reads the caller record stored at path.
func LoadCaller(path string) (*Caller, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "caller file %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	c, err := ReadCaller(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ReadTagTable decodes a tag table from r. See [TagTable.UnmarshalJSON] for
// the accepted forms.
func ReadTagTable(r io.Reader) (TagTable, error) {
	var tt TagTable
	if err := json.NewDecoder(r).Decode(&tt); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode tag table")
	}
	return tt, nil
}

// LoadTagTable reads the tag table stored at path. An empty path yields an
// empty table.
func LoadTagTable(path string) (TagTable, error) {
	if path == "" {
		return TagTable{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "tag file %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	tt, err := ReadTagTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tt, nil
}

// ListCallerFiles returns the JSON files directly inside dir, sorted by
// name. Files named like the tag table ("tags.json") are skipped.
func ListCallerFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || name == "tags.json" {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}
