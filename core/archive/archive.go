// Package archive decodes the zip payload returned by the remote simulation
// into named text entries. Only tabular entries are exposed and each one is
// decompressed lazily on first access.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"

	"github.com/kilianp07/evload/core/model"
)

// ErrMalformed is returned when the payload is not a readable zip archive.
var ErrMalformed = errors.New("malformed archive")

// ErrNotFound is returned when a requested entry is absent or not tabular.
var ErrNotFound = errors.New("archive entry not found")

// Entry is a tabular archive member whose text is decoded on demand.
type Entry struct {
	file *zip.File

	once sync.Once
	text string
	err  error
}

// Name returns the entry path inside the archive.
func (e *Entry) Name() string { return e.file.Name }

// Text decompresses the entry on first use and caches the result.
func (e *Entry) Text() (string, error) {
	e.once.Do(func() {
		rc, err := e.file.Open()
		if err != nil {
			e.err = fmt.Errorf("%w: open %s: %v", ErrMalformed, e.file.Name, err)
			return
		}
		defer func() { _ = rc.Close() }()
		var buf strings.Builder
		if _, err := io.Copy(&buf, rc); err != nil {
			e.err = fmt.Errorf("%w: read %s: %v", ErrMalformed, e.file.Name, err)
			return
		}
		e.text = buf.String()
	})
	return e.text, e.err
}

// Archive maps tabular entry names to lazily decoded entries.
type Archive struct {
	entries map[string]*Entry
	skipped []string
}

// Decode reads the zip directory of b. Entries not ending in the tabular
// suffix are recorded as skipped and never decompressed.
func Decode(b []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	a := &Archive{entries: make(map[string]*Entry)}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, model.TabularSuffix) {
			a.skipped = append(a.skipped, f.Name)
			continue
		}
		a.entries[f.Name] = &Entry{file: f}
	}
	return a, nil
}

// Names returns the tabular entry names, sorted.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.entries))
	for n := range a.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Skipped returns the names of entries ignored because they are not tabular.
func (a *Archive) Skipped() []string {
	out := make([]string, len(a.skipped))
	copy(out, a.skipped)
	return out
}

// Entry returns the tabular entry called name.
func (a *Archive) Entry(name string) (*Entry, error) {
	e, ok := a.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e, nil
}

// Text is a shortcut for Entry(name) followed by Text.
func (a *Archive) Text(name string) (string, error) {
	e, err := a.Entry(name)
	if err != nil {
		return "", err
	}
	return e.Text()
}

// Files decodes every tabular entry in name order.
func (a *Archive) Files() ([]model.ExtractedFile, error) {
	names := a.Names()
	out := make([]model.ExtractedFile, 0, len(names))
	for _, n := range names {
		txt, err := a.entries[n].Text()
		if err != nil {
			return nil, err
		}
		out = append(out, model.ExtractedFile{Name: n, Content: txt})
	}
	return out, nil
}
