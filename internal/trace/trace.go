// Package trace reads branch traces: one resolved branch per line, in program
// order.
//
// Two line formats are accepted. The short form describes a conditional,
// direct branch:
//
//	<pc> <outcome>
//
// The long form carries the target and the branch flags:
//
//	<pc> <target> <outcome> <conditional> <call> <return> <direct>
//
// Addresses are hexadecimal with an optional 0x prefix. The outcome and the
// flags are 0 or 1. Blank lines and lines starting with # are ignored.
// Gzip compressed input is detected and decompressed transparently.
package trace

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/maemowong/bpsim/internal/curated"
)

// ParseError is returned for any line that cannot be read. The first
// placeholder is the line number.
const ParseError = "trace: line %d: %v"

// Event is one resolved branch.
type Event struct {
	PC          uint32
	Target      uint32
	Taken       bool
	Conditional bool
	Call        bool
	Return      bool
	Direct      bool
}

func (e Event) String() string {
	return fmt.Sprintf("0x%x 0x%x %d %d %d %d %d", e.PC, e.Target,
		flag(e.Taken), flag(e.Conditional), flag(e.Call), flag(e.Return), flag(e.Direct))
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Reader returns events from an underlying io.Reader.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	closer  io.Closer
}

// gzip magic number
var gzipMagic = []byte{0x1f, 0x8b}

// NewReader wraps r. If r starts with the gzip magic number it is
// decompressed.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)

	var src io.Reader = br
	var closer io.Closer

	if magic, err := br.Peek(len(gzipMagic)); err == nil && string(magic) == string(gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, curated.Errorf(ParseError, 0, err)
		}
		src = zr
		closer = zr
	}

	return &Reader{
		scanner: bufio.NewScanner(src),
		closer:  closer,
	}, nil
}

// File is a Reader that owns the file it reads from.
type File struct {
	*Reader
	f *os.File
}

// Open opens a trace file. The filename "-" reads from stdin.
func Open(filename string) (*File, error) {
	f := os.Stdin
	if filename != "-" {
		var err error
		f, err = os.Open(filename)
		if err != nil {
			return nil, err
		}
	}

	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &File{Reader: r, f: f}, nil
}

// Close closes the decompressor, if any, and the file.
func (f *File) Close() error {
	if f.closer != nil {
		if err := f.closer.Close(); err != nil {
			f.f.Close()
			return err
		}
	}
	if f.f == os.Stdin {
		return nil
	}
	return f.f.Close()
}

// Line returns the number of the line most recently read.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next event. It returns io.EOF when the trace is exhausted.
func (r *Reader) Next() (Event, error) {
	for r.scanner.Scan() {
		r.line++

		s := strings.TrimSpace(r.scanner.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}

		e, err := ParseLine(s)
		if err != nil {
			return Event{}, curated.Errorf(ParseError, r.line, err)
		}
		return e, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, curated.Errorf(ParseError, r.line, err)
	}
	return Event{}, io.EOF
}

// ReadAll returns every remaining event.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, e)
	}
}

// ParseLine reads a single non-comment line in either format.
func ParseLine(s string) (Event, error) {
	fields := strings.Fields(s)

	var e Event
	var err error

	switch len(fields) {
	case 2:
		if e.PC, err = parseAddress(fields[0]); err != nil {
			return e, err
		}
		if e.Taken, err = parseFlag("outcome", fields[1]); err != nil {
			return e, err
		}
		e.Conditional = true
		e.Direct = true

	case 7:
		if e.PC, err = parseAddress(fields[0]); err != nil {
			return e, err
		}
		if e.Target, err = parseAddress(fields[1]); err != nil {
			return e, err
		}
		flags := []struct {
			name string
			v    *bool
		}{
			{"outcome", &e.Taken},
			{"conditional", &e.Conditional},
			{"call", &e.Call},
			{"return", &e.Return},
			{"direct", &e.Direct},
		}
		for i, f := range flags {
			if *f.v, err = parseFlag(f.name, fields[2+i]); err != nil {
				return e, err
			}
		}

	default:
		return e, fmt.Errorf("expected 2 or 7 fields, found %d", len(fields))
	}

	return e, nil
}

func parseAddress(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", s)
	}
	return uint32(v), nil
}

func parseFlag(name, s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("%s must be 0 or 1, found %q", name, s)
}
