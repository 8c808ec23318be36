// Package listfile reads and writes the line oriented dataset lists:
// "path|label" manifests and split lists, and "name label" mapping files.
package listfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const Separator = "|"

var ErrMalformedLine = errors.New("malformed line")

type Entry struct {
	Path  string
	Label string
}

func (e Entry) String() string {
	return e.Path + Separator + e.Label
}

// List collects entries and writes them in insertion order.
type List struct {
	w       io.Writer
	entries []Entry
}

func NewList(w io.Writer) *List {
	return &List{w: w}
}

func (l *List) Add(path, label string) {
	l.entries = append(l.entries, Entry{Path: path, Label: label})
}

func (l *List) Write() error {
	bw := bufio.NewWriter(l.w)
	for _, e := range l.entries {
		if _, err := bw.WriteString(e.String() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Read parses "path|label" lines. Blank lines are ignored.
// The label is everything after the last separator so paths may contain it.
func Read(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		idx := strings.LastIndex(line, Separator)
		if idx <= 0 || idx == len(line)-1 {
			return nil, fmt.Errorf("%w %d: %q", ErrMalformedLine, lineNo, line)
		}
		entries = append(entries, Entry{Path: line[:idx], Label: line[idx+1:]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	entries, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// WriteFile truncates path and writes entries to it.
func WriteFile(path string, entries []Entry) error {
	return writeFile(path, func(w io.Writer) error {
		l := NewList(w)
		for _, e := range entries {
			l.Add(e.Path, e.Label)
		}
		return l.Write()
	})
}

// Mapping is one "name label" line of a label mapping file.
type Mapping struct {
	Name  string
	Label int
}

func WriteMappings(w io.Writer, mappings []Mapping) error {
	bw := bufio.NewWriter(w)
	for _, m := range mappings {
		if _, err := fmt.Fprintf(bw, "%s %d\n", m.Name, m.Label); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func WriteMappingsFile(path string, mappings []Mapping) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteMappings(w, mappings)
	})
}

// ReadMappings parses "name label" lines. The label follows the last space.
func ReadMappings(r io.Reader) ([]Mapping, error) {
	var mappings []Mapping
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		idx := strings.LastIndex(line, " ")
		if idx <= 0 {
			return nil, fmt.Errorf("%w %d: %q", ErrMalformedLine, lineNo, line)
		}
		label, err := strconv.Atoi(line[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrMalformedLine, lineNo, err)
		}
		mappings = append(mappings, Mapping{Name: line[:idx], Label: label})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mappings, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
