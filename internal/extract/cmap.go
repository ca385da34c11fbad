package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/unicode"
)

// maxCMapRange bounds a single bfrange so a corrupt CMap cannot blow up memory.
const maxCMapRange = 1 << 16

// toUnicodeMap is a parsed ToUnicode CMap: character codes of a fixed byte
// width mapped to Unicode text.
type toUnicodeMap struct {
	width int
	chars map[uint32]string
}

// pageFonts returns the ToUnicode maps of the fonts in a page's resources,
// keyed by resource name. Fonts without a usable map are left out and fall
// back to the plain string decoding.
func pageFonts(ctx *model.Context, pageNr int) map[string]*toUnicodeMap {
	_, _, inherited, err := ctx.PageDict(pageNr, false)
	if err != nil || inherited == nil || inherited.Resources == nil {
		return nil
	}
	obj, found := inherited.Resources.Find("Font")
	if !found {
		return nil
	}
	fonts, err := ctx.DereferenceDict(obj)
	if err != nil || fonts == nil {
		return nil
	}

	maps := make(map[string]*toUnicodeMap)
	for name, ref := range fonts {
		fd, err := ctx.DereferenceDict(ref)
		if err != nil || fd == nil {
			continue
		}
		tu, found := fd.Find("ToUnicode")
		if !found {
			continue
		}
		// A name such as /Identity-H is not a stream and is skipped here.
		sd, _, err := ctx.DereferenceStreamDict(tu)
		if err != nil || sd == nil {
			continue
		}
		if err := sd.Decode(); err != nil {
			continue
		}
		if m := parseToUnicode(sd.Content); m != nil {
			maps[name] = m
		}
	}
	return maps
}

// parseToUnicode reads the codespacerange, bfchar and bfrange sections of a
// CMap. It returns nil when nothing could be mapped.
func parseToUnicode(data []byte) *toUnicodeMap {
	m := &toUnicodeMap{chars: make(map[uint32]string)}

	var (
		section string
		pending [][]byte
		array   [][]byte
		inArray bool
	)

	lx := &pdfLexer{data: data}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		switch {
		case tok.kind == pdfOperator:
			switch tok.op {
			case "begincodespacerange", "beginbfchar", "beginbfrange":
				section = tok.op
			default:
				section = ""
			}
			pending = nil
		case tok.kind == pdfOther && tok.op == "[":
			inArray, array = true, nil
		case tok.kind == pdfOther && tok.op == "]":
			inArray = false
			if section == "beginbfrange" && len(pending) == 2 {
				m.addRangeArray(pending[0], pending[1], array)
			}
			pending = nil
		case tok.kind == pdfString && inArray:
			array = append(array, tok.str)
		case tok.kind == pdfString:
			pending = append(pending, tok.str)
			switch {
			case section == "begincodespacerange" && len(pending) == 2:
				m.noteWidth(pending[0])
				pending = nil
			case section == "beginbfchar" && len(pending) == 2:
				m.noteWidth(pending[0])
				if len(pending[0]) > 0 {
					m.chars[cmapCode(pending[0])] = utf16Text(pending[1])
				}
				pending = nil
			case section == "beginbfrange" && len(pending) == 3:
				m.addRange(pending[0], pending[1], pending[2])
				pending = nil
			}
		}
	}

	if len(m.chars) == 0 {
		return nil
	}
	if m.width == 0 {
		m.width = 1
	}
	return m
}

func (m *toUnicodeMap) noteWidth(src []byte) {
	if m.width == 0 && len(src) > 0 && len(src) <= 4 {
		m.width = len(src)
	}
}

// addRange maps lo..hi onto consecutive values starting at dst; the last
// character of dst is incremented.
func (m *toUnicodeMap) addRange(lo, hi, dst []byte) {
	m.noteWidth(lo)
	first, last := cmapCode(lo), cmapCode(hi)
	if len(lo) == 0 || last < first || last-first >= maxCMapRange {
		return
	}
	base := []rune(utf16Text(dst))
	if len(base) == 0 {
		return
	}
	for code := first; code <= last; code++ {
		r := make([]rune, len(base))
		copy(r, base)
		r[len(r)-1] += rune(code - first)
		m.chars[code] = string(r)
	}
}

// addRangeArray maps lo..hi onto the explicit destinations of an array.
func (m *toUnicodeMap) addRangeArray(lo, hi []byte, dst [][]byte) {
	m.noteWidth(lo)
	first, last := cmapCode(lo), cmapCode(hi)
	if len(lo) == 0 || last < first {
		return
	}
	for i, d := range dst {
		code := first + uint32(i)
		if code > last {
			break
		}
		m.chars[code] = utf16Text(d)
	}
}

// decode splits raw into codes of the map's width and looks each one up.
// Unmapped single-byte codes use the WinAnsi fallback.
func (m *toUnicodeMap) decode(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i += m.width {
		chunk := raw[i:min(i+m.width, len(raw))]
		if s, ok := m.chars[cmapCode(chunk)]; ok {
			sb.WriteString(s)
			continue
		}
		if m.width == 1 {
			sb.WriteString(decodePDFString(chunk))
			continue
		}
		sb.WriteRune(utf8.RuneError)
	}
	return sb.String()
}

func cmapCode(b []byte) uint32 {
	var code uint32
	for _, c := range b {
		code = code<<8 | uint32(c)
	}
	return code
}

// utf16Text decodes a CMap destination, which is UTF-16BE without a BOM.
func utf16Text(b []byte) string {
	out, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}
