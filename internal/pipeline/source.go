package pipeline

import (
	"bufio"
	"context"
	"io"
	"iter"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/counter"
)

// Slice yields the lines of an in-memory document.
func Slice(document []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, line := range document {
			if !yield(line, nil) {
				return
			}
		}
	}
}

// Lines yields r line by line. Each line keeps its terminator ("\n" or
// "\r\n"); the accumulator strips it. A final line without a terminator is
// yielded as is. A read error is yielded once and ends the sequence.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		br := bufio.NewReaderSize(r, 64*1024)
		for {
			line, err := br.ReadString('\n')
			if line != "" {
				if !yield(line, nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}

// ProcessReader runs the document read from r.
func (d *Dispatcher) ProcessReader(ctx context.Context, r io.Reader, rules counter.Rules) (*Result, error) {
	return d.Process(ctx, Lines(r), rules)
}
