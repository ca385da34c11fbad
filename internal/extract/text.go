package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// legacyThreshold: if more than 1 in legacyThreshold decoded runes would be
// replacement characters, the bytes are treated as Latin-1 instead.
const legacyThreshold = 20

// decodeText decodes plain text. Valid UTF-8 passes through without its BOM.
// Otherwise invalid bytes become U+FFFD, unless they are frequent enough to
// suggest a single-byte encoding, which is then decoded as Latin-1.
func decodeText(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if utf8.Valid(content) {
		return string(content), nil
	}

	var sb strings.Builder
	sb.Grow(len(content))
	runes, bad := 0, 0
	for b := content; len(b) > 0; {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			bad++
		}
		sb.WriteRune(r)
		runes++
		b = b[size:]
	}
	if bad*legacyThreshold <= runes {
		return sb.String(), nil
	}

	latin1, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		return sb.String(), nil
	}
	return string(latin1), nil
}
