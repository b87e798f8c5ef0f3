package csv

// reader.go prepares raw upload bytes for Parse.
//
// Spreadsheet exports frequently carry a UTF-8 byte order mark and, when
// saved from legacy code pages, stray bytes that are not valid UTF-8. Both are
// handled here so product names reach the image service as clean text:
//
//   - bomSkippingReader drops a leading 0xEF 0xBB 0xBF
//   - utf8Sanitizer replaces each invalid byte with '?'

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode reads the whole upload, strips a BOM, sanitizes invalid UTF-8 and
// parses the result. The only errors returned come from the underlying reader.
func Decode(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return Parse(string(data)), nil
}

// NewReader wraps r with BOM skipping and UTF-8 sanitization.
// The order matters: the BOM is valid UTF-8 and must go first.
func NewReader(r io.Reader) io.Reader {
	return &utf8Sanitizer{src: newBOMSkippingReader(r)}
}

// bomSkippingReader removes a UTF-8 BOM from the start of the stream.
type bomSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{br: bufio.NewReader(r)}
}

func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		head, err := r.br.Peek(len(utf8BOM))
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := r.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return r.br.Read(p)
}

// utf8Sanitizer replaces invalid UTF-8 bytes with '?'. A multi-byte sequence
// split across two reads is carried over rather than treated as invalid.
type utf8Sanitizer struct {
	src     io.Reader
	pending []byte
	eof     bool
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		if s.eof && len(s.pending) == 0 {
			return 0, io.EOF
		}

		if !s.eof {
			buf := make([]byte, len(p))
			n, err := s.src.Read(buf)
			s.pending = append(s.pending, buf[:n]...)
			if err == io.EOF {
				s.eof = true
			} else if err != nil {
				return 0, err
			}
		}

		n := s.drain(p)
		if n > 0 {
			return n, nil
		}
		if s.eof {
			if len(s.pending) == 0 {
				return 0, io.EOF
			}
			return 0, io.ErrShortBuffer
		}
	}
}

// drain copies sanitized bytes from pending into p and returns how many were
// written. An incomplete trailing rune is kept back until more input arrives.
func (s *utf8Sanitizer) drain(p []byte) int {
	written, read := 0, 0
	for read < len(s.pending) && written < len(p) {
		rest := s.pending[read:]
		r, size := utf8.DecodeRune(rest)

		if r == utf8.RuneError && size <= 1 {
			if !s.eof && !utf8.FullRune(rest) {
				break
			}
			p[written] = '?'
			written++
			read++
			continue
		}

		if written+size > len(p) {
			break
		}
		copy(p[written:], rest[:size])
		written += size
		read += size
	}
	s.pending = s.pending[read:]
	return written
}
