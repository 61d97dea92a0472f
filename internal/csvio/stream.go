package csvio

// stream.go wraps source readers so encoding/csv never sees the artifacts
// that spreadsheet exports leave behind:
//
//   - a UTF-8 byte order mark before the header
//   - invalid UTF-8 bytes, replaced with '?' so cell widths do not change
//
// Both transforms run in constant memory. countingReader sits on the outside
// and records how many bytes a source produced for the load log.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// utf8Sanitizer decodes runes from the underlying reader and replaces every
// byte that does not start a valid sequence with '?'.
type utf8Sanitizer struct {
	src     *bufio.Reader
	pending []byte // encoded rune that did not fit in the caller's buffer
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &utf8Sanitizer{src: br}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]

	var enc [utf8.UTFMax]byte
	for n < len(p) {
		r, size, err := s.src.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}

		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}

		w := utf8.EncodeRune(enc[:], r)
		c := copy(p[n:], enc[:w])
		n += c
		if c < w {
			s.pending = append(s.pending[:0], enc[c:w]...)
		}
	}
	return n, nil
}

// countingReader records the bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// wrapSource applies BOM skipping and UTF-8 sanitizing, then counts the
// bytes the CSV reader consumes.
//
// The order matters: the BOM is a valid rune and must go before sanitizing.
func wrapSource(r io.Reader) *countingReader {
	return &countingReader{r: newUTF8Sanitizer(skipBOM(r))}
}
