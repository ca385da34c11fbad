package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const (
	wordNS       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	wordStrictNS = "http://purl.oclc.org/ooxml/wordprocessingml/main"
)

// docxTable collects the rows of one (possibly nested) table.
type docxTable struct {
	cells []string // cells of the current row
	paras []string // paragraphs of the current cell
}

// extractDocx reads word/document.xml and emits one line per body paragraph
// and one line per table row, in document order. Row cells are joined by a
// tab, paragraphs inside a cell by a newline.
func extractDocx(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	return docxLines(rc)
}

// docxPara is an open paragraph. Paragraphs nest when a run carries a text
// box; depth is the number of open tables when the paragraph started.
type docxPara struct {
	text  strings.Builder
	depth int
	sep   bool // a nested paragraph ended; the next text starts a new line
}

func (p *docxPara) write(s string) {
	if s == "" {
		return
	}
	if p.sep && p.text.Len() > 0 {
		p.text.WriteByte('\n')
	}
	p.sep = false
	p.text.WriteString(s)
}

func docxLines(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		lines  []string
		tables []*docxTable
		paras  []*docxPara
		inText bool
	)

	// route hands finished text to whatever encloses the given table depth:
	// an open paragraph (text box), the current cell of a table, or the body.
	route := func(s string, depth int) {
		if n := len(paras); n > 0 && paras[n-1].depth == depth {
			paras[n-1].sep = true
			paras[n-1].write(s)
			paras[n-1].sep = true
			return
		}
		if depth > 0 {
			tables[depth-1].paras = append(tables[depth-1].paras, s)
			return
		}
		lines = append(lines, s)
	}
	current := func() *docxPara {
		if n := len(paras); n > 0 && paras[n-1].depth == len(tables) {
			return paras[n-1]
		}
		return nil
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !isWordML(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "tbl":
				tables = append(tables, &docxTable{})
			case "tr":
				if n := len(tables); n > 0 {
					tables[n-1].cells = nil
				}
			case "tc":
				if n := len(tables); n > 0 {
					tables[n-1].paras = nil
				}
			case "p":
				paras = append(paras, &docxPara{depth: len(tables)})
			case "t":
				inText = current() != nil
			case "tab":
				if p := current(); p != nil {
					p.write("\t")
				}
			case "br", "cr":
				if p := current(); p != nil {
					p.write("\n")
				}
			}

		case xml.CharData:
			if inText {
				if p := current(); p != nil {
					p.write(string(t))
				}
			}

		case xml.EndElement:
			if !isWordML(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if n := len(paras); n > 0 {
					p := paras[n-1]
					paras = paras[:n-1]
					route(p.text.String(), p.depth)
				}
			case "tc":
				if n := len(tables); n > 0 {
					tbl := tables[n-1]
					tbl.cells = append(tbl.cells, strings.Join(tbl.paras, "\n"))
					tbl.paras = nil
				}
			case "tr":
				// A nested table's rows belong to the outer cell.
				if n := len(tables); n > 0 {
					row := strings.Join(tables[n-1].cells, "\t")
					tables[n-1].cells = nil
					route(row, n-1)
				}
			case "tbl":
				if n := len(tables); n > 0 {
					tables = tables[:n-1]
				}
			}
		}
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n"), nil
}

func isWordML(name xml.Name) bool {
	return name.Space == wordNS || name.Space == wordStrictNS
}
