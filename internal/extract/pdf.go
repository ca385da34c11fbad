package extract

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func init() {
	// pdfcpu otherwise writes its config below the user's config dir,
	// which is read-only on Lambda.
	api.DisableConfigDir()
}

// extractPDF reads the document with pdfcpu and decodes the text-showing
// operators of every page content stream. Pages are joined by a newline.
func extractPDF(content []byte) (string, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(content), conf)
	if err != nil {
		return "", fmt.Errorf("pdfcpu read: %w", err)
	}

	pages := make([]string, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil {
			return "", fmt.Errorf("page %d content: %w", pageNr, err)
		}
		if r == nil {
			pages = append(pages, "")
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("page %d content: %w", pageNr, err)
		}
		pages = append(pages, contentStreamText(data, pageFonts(ctx, pageNr)))
	}
	return strings.Join(pages, "\n"), nil
}

type pdfTokenKind int

const (
	pdfString pdfTokenKind = iota
	pdfNumber
	pdfArray
	pdfName
	pdfOperator
	pdfOther
)

type pdfToken struct {
	kind  pdfTokenKind
	str   []byte
	num   float64
	items []pdfToken
	op    string
}

// contentStreamText decodes the Tj, TJ, ' and " operators of a content
// stream and turns positioning operators into spaces and line breaks.
// Strings shown with a font found in fonts go through its ToUnicode map.
func contentStreamText(data []byte, fonts map[string]*toUnicodeMap) string {
	var (
		sb       strings.Builder
		operands []pdfToken
		array    []pdfToken
		inArray  bool
		lastY    float64
		haveY    bool
		font     *toUnicodeMap
	)

	decode := func(raw []byte) string {
		if font != nil {
			return font.decode(raw)
		}
		return decodePDFString(raw)
	}

	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}
	space := func() {
		s := sb.String()
		if len(s) > 0 && !strings.HasSuffix(s, " ") && !strings.HasSuffix(s, "\n") {
			sb.WriteByte(' ')
		}
	}
	lastString := func() []byte {
		for i := len(operands) - 1; i >= 0; i-- {
			if operands[i].kind == pdfString {
				return operands[i].str
			}
		}
		return nil
	}
	number := func(i int) float64 {
		if i < len(operands) && operands[i].kind == pdfNumber {
			return operands[i].num
		}
		return 0
	}

	lx := &pdfLexer{data: data}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		switch {
		case tok.kind == pdfOther && tok.op == "[":
			inArray = true
			array = nil
			continue
		case tok.kind == pdfOther && tok.op == "]":
			inArray = false
			operands = append(operands, pdfToken{kind: pdfArray, items: array})
			continue
		case inArray:
			array = append(array, tok)
			continue
		case tok.kind != pdfOperator:
			operands = append(operands, tok)
			continue
		}

		switch tok.op {
		case "Tf":
			font = nil
			if len(operands) > 0 && operands[0].kind == pdfName {
				font = fonts[operands[0].op]
			}
		case "Tj":
			sb.WriteString(decode(lastString()))
		case "'", `"`:
			newline()
			sb.WriteString(decode(lastString()))
		case "TJ":
			for _, op := range operands {
				if op.kind != pdfArray {
					continue
				}
				for _, it := range op.items {
					switch {
					case it.kind == pdfString:
						sb.WriteString(decode(it.str))
					case it.kind == pdfNumber && it.num < -200:
						space()
					}
				}
			}
		case "Td", "TD":
			if number(1) != 0 {
				newline()
			} else if number(0) > 0 {
				space()
			}
		case "T*":
			newline()
		case "Tm":
			if y := number(5); haveY && y != lastY {
				newline()
			}
			lastY, haveY = number(5), true
		case "ET":
			space()
		}
		operands = operands[:0]
	}

	return tidyLines(sb.String())
}

// tidyLines trims trailing blanks and drops empty lines.
func tidyLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

var utf16BOM = []byte{0xFE, 0xFF}

// decodePDFString decodes a string operand: UTF-16BE when it carries a
// byte order mark, WinAnsi (cp1252) otherwise.
func decodePDFString(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if bytes.HasPrefix(raw, utf16BOM) {
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(raw)
		if err == nil {
			return string(out)
		}
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// pdfLexer splits a content stream into tokens. Dictionaries and inline
// image data are reported as pdfOther and ignored by the caller.
type pdfLexer struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isPDFDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (l *pdfLexer) next() (pdfToken, bool) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isPDFSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			l.pos++
			return pdfToken{kind: pdfString, str: l.literal()}, true
		case c == '<':
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
				l.pos += 2
				return pdfToken{kind: pdfOther, op: "<<"}, true
			}
			l.pos++
			return pdfToken{kind: pdfString, str: l.hex()}, true
		case c == '>':
			l.pos++
			if l.pos < len(l.data) && l.data[l.pos] == '>' {
				l.pos++
			}
			return pdfToken{kind: pdfOther, op: ">>"}, true
		case c == '[' || c == ']' || c == '{' || c == '}':
			l.pos++
			return pdfToken{kind: pdfOther, op: string(c)}, true
		case c == '/':
			l.pos++
			return pdfToken{kind: pdfName, op: l.regular()}, true
		default:
			word := l.regular()
			if word == "" {
				l.pos++
				continue
			}
			if n, err := strconv.ParseFloat(word, 64); err == nil {
				return pdfToken{kind: pdfNumber, num: n}, true
			}
			if word == "ID" {
				l.skipInlineImage()
				return pdfToken{kind: pdfOther, op: "ID"}, true
			}
			return pdfToken{kind: pdfOperator, op: word}, true
		}
	}
	return pdfToken{}, false
}

func (l *pdfLexer) regular() string {
	start := l.pos
	for l.pos < len(l.data) && !isPDFSpace(l.data[l.pos]) && !isPDFDelim(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// literal reads a (...) string body; the opening paren is consumed.
func (l *pdfLexer) literal() []byte {
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		case '\\':
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; k++ {
						val = val*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return out
}

// hex reads a <...> string body; the opening bracket is consumed.
func (l *pdfLexer) hex() []byte {
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; !isPDFSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			return out
		}
		out = append(out, byte(v))
	}
	return out
}

// skipInlineImage jumps past binary data up to the EI operator.
func (l *pdfLexer) skipInlineImage() {
	i := bytes.Index(l.data[l.pos:], []byte("EI"))
	for i >= 0 {
		end := l.pos + i
		before := end == 0 || isPDFSpace(l.data[end-1])
		after := end+2 >= len(l.data) || isPDFSpace(l.data[end+2])
		if before && after {
			l.pos = end + 2
			return
		}
		next := bytes.Index(l.data[end+2:], []byte("EI"))
		if next < 0 {
			break
		}
		i = end + 2 + next - l.pos
	}
	l.pos = len(l.data)
}
