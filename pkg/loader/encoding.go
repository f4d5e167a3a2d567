package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffSize bounds how much of a source is inspected to find its first
// line.
const sniffSize = 64 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// encodings maps every supported name to its decoder. Both UTF-8 names
// strip a leading byte order mark so the first record still matches.
var encodings = map[string]encoding.Encoding{
	"utf-8":        unicode.UTF8BOM,
	"utf-8-sig":    unicode.UTF8BOM,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	enc, ok := encodings[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

// decodes reports whether enc can decode line without error.
func decodes(enc encoding.Encoding, line []byte) bool {
	if enc == unicode.UTF8BOM {
		// The x/text UTF-8 decoder substitutes U+FFFD instead of failing.
		return utf8.Valid(bytes.TrimPrefix(line, utf8BOM))
	}
	_, err := enc.NewDecoder().Bytes(line)
	return err == nil
}

// decodeReader picks the first candidate that decodes the first line of r
// and returns a reader producing UTF-8 text for the whole source.
func decodeReader(r io.Reader, name string, candidates []string) (io.Reader, string, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	head, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, "", fmt.Errorf("reading %s: %w", name, err)
	}

	line := firstLine(head, len(head) == sniffSize)
	for _, cand := range candidates {
		enc, err := lookupEncoding(cand)
		if err != nil {
			return nil, "", err
		}
		if decodes(enc, line) {
			return transform.NewReader(br, enc.NewDecoder()), cand, nil
		}
	}

	return nil, "", &DecodeError{Name: name, Tried: candidates}
}

// firstLine returns head up to the first newline. When head was cut short
// without a newline, a trailing partial UTF-8 sequence is dropped.
func firstLine(head []byte, truncated bool) []byte {
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		return head[:i]
	}
	if truncated {
		for i := 0; i < utf8.UTFMax-1 && len(head) > 0 && !utf8.Valid(head); i++ {
			head = head[:len(head)-1]
		}
	}
	return head
}
