// Package files gives the engine its only view of the filesystem: a single
// workspace root under which notebooks may be listed and read. Every path
// from the model is resolved against the root and rejected if it escapes.
package files

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yacchin1205/jupyter-mynerva/internal/document"
	"github.com/yacchin1205/jupyter-mynerva/internal/notebook"
)

// ErrOutsideRoot rejects paths that resolve outside the workspace root.
var ErrOutsideRoot = errors.New("path escapes the workspace root")

// Entry is one listing row.
type Entry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"isDir"`
}

// Root restricts all file access to one directory.
type Root struct {
	dir string
}

func NewRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Root{dir: abs}, nil
}

func (r *Root) Dir() string { return r.dir }

// resolve maps a model-supplied relative path onto the root, refusing
// absolute paths and traversal.
func (r *Root) resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q is absolute", ErrOutsideRoot, rel)
	}
	joined := filepath.Join(r.dir, filepath.FromSlash(rel))
	cleaned := filepath.Clean(joined)
	if cleaned != r.dir && !strings.HasPrefix(cleaned, r.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}
	return cleaned, nil
}

// List returns the directories and notebooks directly under rel, sorted
// directories-first then by name. Hidden entries are skipped.
func (r *Root) List(rel string) ([]Entry, error) {
	dir, err := r.resolve(rel)
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !d.IsDir() && !strings.HasSuffix(name, ".ipynb") {
			continue
		}
		entries = append(entries, Entry{
			Name:  name,
			Path:  filepath.ToSlash(filepath.Join(rel, name)),
			IsDir: d.IsDir(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// nbCell and nbOutput mirror just enough of the on-disk notebook format.
// "source" and "text" appear both as strings and as line lists in the wild,
// so they decode through flexText.
type nbCell struct {
	CellType string     `json:"cell_type"`
	ID       string     `json:"id"`
	Source   flexText   `json:"source"`
	Outputs  []nbOutput `json:"outputs"`
}

type nbOutput struct {
	OutputType string         `json:"output_type"`
	Text       flexText       `json:"text"`
	Data       map[string]any `json:"data"`
	Ename      string         `json:"ename"`
	Evalue     string         `json:"evalue"`
	Traceback  []string       `json:"traceback"`
}

type flexText []string

func (f *flexText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = []string{s}
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*f = lines
	return nil
}

// ReadNotebook loads and decodes a notebook file into seed cells for a
// stored document accessor.
func (r *Root) ReadNotebook(rel string) ([]document.SeedCell, error) {
	path, err := r.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var nb struct {
		Cells []nbCell `json:"cells"`
	}
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, fmt.Errorf("%s is not a valid notebook: %w", rel, err)
	}
	seeds := make([]document.SeedCell, 0, len(nb.Cells))
	for _, c := range nb.Cells {
		kind := notebook.CellKind(c.CellType)
		if !notebook.ValidKind(kind) {
			kind = notebook.KindRaw
		}
		seed := document.SeedCell{
			ID:      c.ID,
			Kind:    kind,
			Content: strings.Join(c.Source, ""),
		}
		for _, o := range c.Outputs {
			seed.Outputs = append(seed.Outputs, document.RawOutput{
				Type:      o.OutputType,
				Text:      o.Text,
				Data:      o.Data,
				Ename:     o.Ename,
				Evalue:    o.Evalue,
				Traceback: o.Traceback,
			})
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}
