package collapser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/errors"
)

const fieldSeparator = ";"

// Load builds a Table from `synonym;canonical` records, one per line.
// Fields are trimmed of surrounding whitespace and blank lines are skipped.
func Load(r io.Reader) (*Table, error) {
	t := New()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		syn, canonical, err := parseRecord(line)
		if err != nil {
			return nil, apperrors.Formatf("synonyms line %d %q: %v", lineNo, line, err)
		}
		t.Add(canonical, syn)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.IO("reading synonyms", err)
	}
	return t, nil
}

func parseRecord(line string) (synonym, canonical string, err error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) < 2 {
		return "", "", fmt.Errorf("second word not found")
	}
	synonym = strings.TrimSpace(fields[0])
	canonical = strings.TrimSpace(fields[1])
	if synonym == "" {
		return "", "", fmt.Errorf("first word not found")
	}
	if canonical == "" {
		return "", "", fmt.Errorf("second word not found")
	}
	return synonym, canonical, nil
}

// checkField rejects values that would not survive a Save and Load.
func checkField(v string) error {
	switch {
	case v == "":
		return fmt.Errorf("empty word")
	case strings.TrimSpace(v) != v:
		return fmt.Errorf("surrounding whitespace")
	case strings.Contains(v, fieldSeparator):
		return fmt.Errorf("contains %q", fieldSeparator)
	case strings.ContainsAny(v, "\r\n"):
		return fmt.Errorf("contains a line break")
	}
	return nil
}

// LoadFile opens path and parses it with Load.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.IO("opening synonyms file", err)
	}
	defer f.Close()
	return Load(f)
}

// Save writes every binding as a `synonym;canonical` line, sorted by
// synonym. Loading the output yields a Table that collapses identically; a
// binding Load could not read back unchanged is a format error and nothing
// is written.
func (t *Table) Save(w io.Writer) error {
	bindings := t.Bindings()
	for _, b := range bindings {
		if err := checkField(b.Synonym); err != nil {
			return apperrors.Formatf("synonym %q: %v", b.Synonym, err)
		}
		if err := checkField(b.Canonical); err != nil {
			return apperrors.Formatf("canonical %q of synonym %q: %v", b.Canonical, b.Synonym, err)
		}
	}

	bw := bufio.NewWriter(w)
	for _, b := range bindings {
		if _, err := fmt.Fprintf(bw, "%s%s%s\n", b.Synonym, fieldSeparator, b.Canonical); err != nil {
			return fmt.Errorf("writing synonym %q: %w", b.Synonym, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing synonyms: %w", err)
	}
	return nil
}

// SaveFile writes the table to path atomically via a temporary file.
func (t *Table) SaveFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp synonyms file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := t.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp synonyms file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming synonyms file: %w", err)
	}
	return nil
}
