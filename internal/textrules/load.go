package textrules

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/errors"
)

// LoadSeparators reads one separator per line. The separator is the first
// character of the raw line, terminator included, so an empty line
// contributes '\n'.
func LoadSeparators(r io.Reader) (*SeparatorSet, error) {
	br := bufio.NewReader(r)
	var seps []rune
	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lineNo++
			sep, size := utf8.DecodeRuneInString(line)
			if sep == utf8.RuneError && size <= 1 {
				return nil, apperrors.Formatf("separators line %d: invalid UTF-8 character", lineNo)
			}
			seps = append(seps, sep)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.IO("reading separators", err)
		}
	}
	return NewSeparatorSet(seps...), nil
}

// LoadSeparatorsFile opens path and parses it with LoadSeparators.
func LoadSeparatorsFile(path string) (*SeparatorSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.IO("opening separators file", err)
	}
	defer f.Close()
	return LoadSeparators(f)
}

// LoadNoiseWords reads one noise word per line. Surrounding whitespace is
// trimmed and blank lines are skipped; the result is sorted.
func LoadNoiseWords(r io.Reader) (*NoiseWordSet, error) {
	scanner := bufio.NewScanner(r)
	var words []string
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.IO("reading noise words", err)
	}
	return NewNoiseWordSet(words...), nil
}

// LoadNoiseWordsFile opens path and parses it with LoadNoiseWords.
func LoadNoiseWordsFile(path string) (*NoiseWordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.IO("opening noise words file", err)
	}
	defer f.Close()
	return LoadNoiseWords(f)
}
