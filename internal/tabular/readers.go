package tabular

// readers.go holds the io.Reader wrappers applied to every text input before
// it reaches encoding/csv:
//
//   - skipBOM drops a leading UTF-8 byte order mark written by spreadsheet exports
//   - sanitizer replaces invalid UTF-8 with U+FFFD without buffering the whole file
//   - CountingReader reports how many bytes were consumed

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after a leading BOM, if any.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// sanitizer rewrites invalid UTF-8 sequences as U+FFFD. Bytes that could
// begin a multi-byte rune split across two reads are carried to the next read.
type sanitizer struct {
	r   io.Reader
	buf []byte
	in  []byte
	out []byte
	err error
}

func newSanitizer(r io.Reader) *sanitizer {
	return &sanitizer{r: r, buf: make([]byte, 32*1024)}
}

func (s *sanitizer) Read(p []byte) (int, error) {
	for len(s.out) == 0 && s.err == nil {
		n, err := s.r.Read(s.buf)
		s.in = append(s.in, s.buf[:n]...)
		s.err = err
		s.drain(err != nil)
	}

	if len(s.out) == 0 {
		return 0, s.err
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// drain moves every complete rune from in to out. When final is set the
// trailing partial rune, if any, is emitted as a replacement character.
func (s *sanitizer) drain(final bool) {
	i := 0
	for i < len(s.in) {
		if !final && !utf8.FullRune(s.in[i:]) {
			break
		}
		r, size := utf8.DecodeRune(s.in[i:])
		if r == utf8.RuneError && size <= 1 {
			s.out = utf8.AppendRune(s.out, utf8.RuneError)
			i++
			continue
		}
		s.out = append(s.out, s.in[i:i+size]...)
		i += size
	}
	s.in = append(s.in[:0], s.in[i:]...)
}

// CountingReader wraps an io.Reader and tracks bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// Sanitize strips a BOM and repairs invalid UTF-8.
func Sanitize(r io.Reader) io.Reader {
	return newSanitizer(skipBOM(r))
}
