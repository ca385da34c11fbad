package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docxHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const docxFooter = `<w:sectPr/></w:body></w:document>`

func makeDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(docxHeader + body + docxFooter))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func para(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

func cell(paras ...string) string {
	return `<w:tc><w:tcPr/>` + strings.Join(paras, "") + `</w:tc>`
}

func row(cells ...string) string {
	return `<w:tr>` + strings.Join(cells, "") + `</w:tr>`
}

func table(rows ...string) string {
	return `<w:tbl><w:tblPr/>` + strings.Join(rows, "") + `</w:tbl>`
}

func TestExtract_DocxParagraphAndTable(t *testing.T) {
	doc := makeDocx(t, para("Hello")+table(
		row(cell(para("cellA")), cell(para("cellB"))),
		row(cell(para("cellC")), cell(para("cellD"))),
	))

	text, err := Extract(doc, "Docs/x.docx")
	require.NoError(t, err)
	assert.Equal(t, "Hello\ncellA\tcellB\ncellC\tcellD", text)
}

func TestExtract_DocxDocumentOrder(t *testing.T) {
	doc := makeDocx(t,
		para("before")+
			table(row(cell(para("a1"), para("a2")), cell(para("b"))))+
			para("")+
			`<w:p><w:r><w:t>split </w:t></w:r><w:r><w:t>runs</w:t><w:tab/><w:t>tabbed</w:t><w:br/><w:t>broken</w:t></w:r></w:p>`+
			para("after")+
			para(""),
	)

	text, err := Extract(doc, "X.DOCX")
	require.NoError(t, err)
	assert.Equal(t, "before\na1\na2\tb\n\nsplit runs\ttabbed\nbroken\nafter", text)
}

func TestExtract_DocxNestedTable(t *testing.T) {
	inner := table(row(cell(para("i1")), cell(para("i2"))))
	doc := makeDocx(t, table(row(cell(para("outer"), inner), cell(para("right")))))

	text, err := Extract(doc, "n.docx")
	require.NoError(t, err)
	assert.Equal(t, "outer\ni1\ti2\tright", text)
}

// textBox wraps body content in a VML text box anchored in a run.
func textBox(body string) string {
	return `<w:r><w:pict><v:shape xmlns:v="urn:schemas-microsoft-com:vml"><v:textbox><w:txbxContent>` +
		body + `</w:txbxContent></v:textbox></v:shape></w:pict></w:r>`
}

func TestExtract_DocxTextBoxInsideParagraph(t *testing.T) {
	boxed := `<w:p><w:r><w:t>Before</w:t></w:r>` + textBox(para("Inside")) + `<w:r><w:t>After</w:t></w:r></w:p>`

	tests := []struct {
		name string
		body string
		want string
	}{
		{"body", boxed + para("Next"), "Before\nInside\nAfter\nNext"},
		{"table cell", table(row(cell(boxed), cell(para("right")))), "Before\nInside\nAfter\tright"},
		{"table in box", `<w:p><w:r><w:t>Before</w:t></w:r>` + textBox(table(row(cell(para("c1")), cell(para("c2"))))) + `</w:p>` + para("Next"), "Before\nc1\tc2\nNext"},
		{"box only", `<w:p>` + textBox(para("Only")) + `</w:p>`, "Only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Extract(makeDocx(t, tt.body), "box.docx")
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestExtract_DocxErrors(t *testing.T) {
	_, err := Extract([]byte("not a zip"), "a.docx")
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.Create("word/other.xml")
	zw.Close()
	_, err = Extract(buf.Bytes(), "a.docx")
	assert.ErrorContains(t, err, "word/document.xml not found")
}

func TestExtract_Text(t *testing.T) {
	long := strings.Repeat("plain ascii text ", 5)
	tests := []struct {
		name     string
		filename string
		content  []byte
		want     string
	}{
		{"utf8", "a.txt", []byte("ciao, perché?"), "ciao, perché?"},
		{"bom stripped", "a.md", []byte("\xEF\xBB\xBF# Title"), "# Title"},
		{"sparse invalid bytes replaced", "a.csv", []byte(long + "\xff" + long), long + "�" + long},
		{"latin1 fallback", "a.txt", []byte("Caf\xe9 cr\xe8me br\xfbl\xe9e"), "Café crème brûlée"},
		{"upper-case suffix", "NOTES.TXT", []byte("x"), "x"},
		{"empty", "e.txt", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.content, tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Unsupported(t *testing.T) {
	for _, name := range []string{"Docs/x.xyz", "README", "photo.jpeg", "a.doc"} {
		t.Run(name, func(t *testing.T) {
			_, err := Extract([]byte("data"), name)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupportedFormat))

			var unsupported *UnsupportedFormatError
			require.ErrorAs(t, err, &unsupported)
			assert.Equal(t, name, unsupported.Filename)
			assert.False(t, Supported(name))
		})
	}
}

func TestSupported(t *testing.T) {
	for _, ext := range Extensions() {
		assert.True(t, Supported("file"+strings.ToUpper(ext)), ext)
	}
}

func TestContentStreamText(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{"tj with line move", "BT /F1 12 Tf 72 712 Td (Hello) Tj 0 -14 Td (World) Tj ET", "Hello\nWorld"},
		{"tj array with kerning gap", "BT [(Hel) 20 (lo) -500 (there)] TJ ET", "Hello there"},
		{"escapes and octal", `BT (a\(b\) \101) Tj ET`, "a(b) A"},
		{"nested parens", "BT (f(x)) Tj ET", "f(x)"},
		{"hex string", "BT <48656C6C6F> Tj ET", "Hello"},
		{"utf16 hex string", "BT <FEFF00480069> Tj ET", "Hi"},
		{"winansi byte", `BT (caf\351) Tj ET`, "café"},
		{"quote operator", "BT (one) Tj (two) ' ET", "one\ntwo"},
		{"tm moves down", "BT 1 0 0 1 72 700 Tm (top) Tj 1 0 0 1 72 680 Tm (bottom) Tj ET", "top\nbottom"},
		{"comment ignored", "% (hidden) Tj\nBT (shown) Tj ET", "shown"},
		{"inline image skipped", "BI /W 1 /H 1 ID \x00(junk)\xff EI BT (after) Tj ET", "after"},
		{"no text", "q 1 0 0 1 0 0 cm Q", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, contentStreamText([]byte(tt.stream), nil))
		})
	}
}

const helvetica = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"

// buildPDF writes a minimal PDF with one Helvetica page per content stream.
func buildPDF(streams ...string) []byte {
	return buildPDFWithFont(helvetica, nil, streams...)
}

// buildPDFWithFont writes a minimal PDF whose pages share font F1 (object 3).
// extra objects are numbered from 4 and may be referenced by the font.
func buildPDFWithFont(font string, extra []string, streams ...string) []byte {
	var objs []string
	n := len(streams)
	first := 4 + len(extra)
	kids := make([]string, n)
	for i := range streams {
		kids[i] = fmt.Sprintf("%d 0 R", first+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
		font,
	)
	objs = append(objs, extra...)
	for i, s := range streams {
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>", first+2*i+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(s), s),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func cmapStream(codespace, body string) string {
	return "/CIDInit /ProcSet findresource begin\n12 dict begin\nbegincmap\n" +
		"/CMapName /Test-UCS def\n/CMapType 2 def\n" +
		"1 begincodespacerange\n" + codespace + "\nendcodespacerange\n" +
		body +
		"endcmap\nCMapName currentdict /CMap defineresource pop\nend\nend"
}

func TestParseToUnicode(t *testing.T) {
	m := parseToUnicode([]byte(cmapStream("<0000> <FFFF>",
		"2 beginbfchar\n<0003> <0048>\n<0007> <00660069>\nendbfchar\n"+
			"2 beginbfrange\n<0010> <0012> <0061>\n<0020> <0021> [<0416> <00420043>]\nendbfrange\n")))
	require.NotNil(t, m)
	assert.Equal(t, 2, m.width)

	tests := []struct {
		raw  []byte
		want string
	}{
		{[]byte{0x00, 0x03}, "H"},
		{[]byte{0x00, 0x07}, "fi"},
		{[]byte{0x00, 0x10, 0x00, 0x11, 0x00, 0x12}, "abc"},
		{[]byte{0x00, 0x20, 0x00, 0x21}, "ЖBC"},
		{[]byte{0x00, 0x99}, "\uFFFD"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.decode(tt.raw), "%x", tt.raw)
	}

	assert.Nil(t, parseToUnicode([]byte(cmapStream("<00> <FF>", ""))))
}

func TestContentStreamText_FontSwitch(t *testing.T) {
	identity := parseToUnicode([]byte(cmapStream("<0000> <FFFF>",
		"1 beginbfrange\n<0003> <0004> [<0048> <0069>]\nendbfrange\n")))
	require.NotNil(t, identity)
	fonts := map[string]*toUnicodeMap{"F2": identity}

	stream := "BT /F1 12 Tf (plain) Tj 0 -14 Td /F2 12 Tf <00030004> Tj 0 -14 Td /F1 12 Tf (again) Tj ET"
	assert.Equal(t, "plain\nHi\nagain", contentStreamText([]byte(stream), fonts))
}

func TestExtract_PDFToUnicode(t *testing.T) {
	cmap := cmapStream("<00> <FF>",
		"2 beginbfchar\n<01> <0416>\n<02> <00E9>\nendbfchar\n1 beginbfrange\n<10> <12> <0061>\nendbfrange\n")
	font := "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /ToUnicode 4 0 R >>"
	extra := []string{fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(cmap), cmap)}
	pdf := buildPDFWithFont(font, extra, "BT /F1 24 Tf 72 700 Td <011011> Tj ( ) Tj <0212> Tj ET")

	text, err := Extract(pdf, "mapped.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Жab éc", text)
}

func TestExtract_PDF(t *testing.T) {
	pdf := buildPDF(
		"BT /F1 24 Tf 72 700 Td (Page one) Tj ET",
		"BT /F1 24 Tf 72 700 Td (Page two) Tj 0 -30 Td (second line) Tj ET",
	)

	text, err := Extract(pdf, "Docs/x.PDF")
	require.NoError(t, err)
	assert.Equal(t, "Page one\nPage two\nsecond line", text)
}

func TestExtract_PDFInvalid(t *testing.T) {
	_, err := Extract([]byte("%PDF-1.4 garbage"), "x.pdf")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupportedFormat))
}
