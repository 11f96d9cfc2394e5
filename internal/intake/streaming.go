// Package intake parses uploaded case files (CSV and XLSX) into the raw
// row maps the validation grid consumes. Readers are streaming where the
// format allows it: CSV never buffers the whole file, while XLSX is decoded
// in memory by the spreadsheet library.
package intake

import (
	"io"
	"unicode/utf8"
)

// utf8Sanitizer wraps an io.Reader and replaces invalid UTF-8 bytes with '?'
// on the fly, so downstream CSV parsing never sees broken encodings from
// legacy exports. Replacement uses a single byte to keep the transform
// in-place over the read buffer.
type utf8Sanitizer struct {
	r io.Reader

	// bytes held back from the previous read that may open a multi-byte rune
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	// Fast path: pure ASCII needs no work.
	ascii := true
	for _, b := range p[:n] {
		if b >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return n, err
	}

	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the number of usable bytes.
// When not at EOF, an incomplete trailing rune is parked in pending so the
// next read can complete it.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])
		if !atEOF && read+size >= len(data) && runeStartLen(data[read]) > len(data)-read {
			s.pending = append(s.pending, data[read:]...)
			return write
		}
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// runeStartLen returns the encoded length implied by a leading byte, or 1
// for ASCII and continuation bytes (which decode, valid or not, on their own).
func runeStartLen(b byte) int {
	switch {
	case b < 0xC0:
		return 1
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// bomSkipper wraps an io.Reader and drops a leading UTF-8 byte order mark
// (0xEF 0xBB 0xBF), which Windows spreadsheet exports routinely prepend.
type bomSkipper struct {
	r       io.Reader
	checked bool
	held    []byte
}

func newBOMSkipper(r io.Reader) *bomSkipper {
	return &bomSkipper{r: r}
}

func (b *bomSkipper) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		var head [3]byte
		n, err := io.ReadFull(b.r, head[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if n == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
			// BOM consumed; fall through to a normal read.
		} else if n > 0 {
			b.held = append(b.held, head[:n]...)
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
	}

	if len(b.held) > 0 {
		n := copy(p, b.held)
		b.held = b.held[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// sanitizedReader prepares an upload stream for CSV parsing: BOM stripped
// first, then invalid UTF-8 replaced.
func sanitizedReader(r io.Reader) io.Reader {
	return newUTF8Sanitizer(newBOMSkipper(r))
}
