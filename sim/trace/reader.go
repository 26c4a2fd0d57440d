package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrUnknownKind is returned for a line whose operation letter is not I, L, S or M.
	ErrUnknownKind = errors.New("unknown event kind")
	// ErrMalformedLine is returned for a line that is not "K ADDR,SIZE".
	ErrMalformedLine = errors.New("malformed trace line")
)

// ParseError reports a trace line that could not be decoded.
type ParseError struct {
	Line int    // 1-based line number
	Text string // offending line, trimmed
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("trace line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reader decodes events lazily from a lackey-format trace, one per call to Read.
//
//	I 0400d7d4,8
//	 L 7ff0005c8,8
//	 S 7ff0005c8,8
//	 M 0421c7f0,4
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Read returns the next event. Blank lines are skipped. At end of input it
// returns io.EOF; any other error is either a *ParseError or an error from
// the underlying reader.
func (r *Reader) Read() (Event, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" {
			continue
		}
		ev, err := ParseLine(text)
		if err != nil {
			return Event{}, &ParseError{Line: r.line, Text: text, Err: err}
		}
		ev.Line = r.line
		return ev, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("reading trace: %w", err)
	}
	return Event{}, io.EOF
}

// ParseLine decodes a single trimmed trace line. The address is hexadecimal
// with an optional 0x prefix, the size decimal.
func ParseLine(text string) (Event, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 || len(fields[0]) != 1 {
		return Event{}, ErrMalformedLine
	}
	if !IsValidKind(fields[0][0]) {
		return Event{}, fmt.Errorf("%w %q", ErrUnknownKind, fields[0])
	}

	addrText, sizeText, ok := strings.Cut(fields[1], ",")
	if !ok {
		return Event{}, fmt.Errorf("%w: missing size", ErrMalformedLine)
	}
	addrText = strings.TrimPrefix(strings.TrimPrefix(addrText, "0x"), "0X")
	addr, err := strconv.ParseUint(addrText, 16, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: address: %v", ErrMalformedLine, err)
	}
	size, err := strconv.ParseUint(sizeText, 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: size: %v", ErrMalformedLine, err)
	}

	return Event{Kind: Kind(fields[0][0]), Address: addr, Size: size}, nil
}
