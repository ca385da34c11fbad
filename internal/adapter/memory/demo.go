package memory

import (
	"archive/zip"
	"bytes"
)

// DemoOwner is the principal name reported by the demo drive.
const DemoOwner = "demo-user@drivegate.local"

// DemoShareURL is a shared link registered on the demo drive.
const DemoShareURL = "https://demo.drivegate.local/s/docs"

// NewDemoAdapter returns a drive seeded with a few sample documents.
func NewDemoAdapter() *MemoryAdapter {
	m := NewMemoryAdapter(DemoOwner)
	seed := []struct {
		path    string
		content []byte
	}{
		{"Welcome.txt", []byte("Welcome to drivegate.\nUse POST /read with {\"path\": \"Docs/notes.md\"} to try it.\n")},
		{"Docs/notes.md", []byte("# Notes\n\n- read by path\n- read by id\n- resolve shared links\n")},
		{"Docs/budget.csv", []byte("quarter,amount\nQ1,1200\nQ2,1350\n")},
		{"Docs/legacy-latin1.txt", []byte("Caf\xe9 cr\xe8me br\xfbl\xe9e\n")},
		{"Docs/report.docx", demoDocx()},
		{"Archive/export.xyz", []byte{0x00, 0x01, 0x02}},
	}
	for _, s := range seed {
		if _, err := m.Put(s.path, s.content); err != nil {
			panic("memory: seeding demo drive: " + err.Error())
		}
	}
	if err := m.Share(DemoShareURL, "Docs"); err != nil {
		panic("memory: seeding demo share: " + err.Error())
	}
	return m
}

const demoDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Quarterly report</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Quarter</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Amount</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Q1</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>1200</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
</w:body>
</w:document>`

func demoDocx() []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		panic(err)
	}
	if _, err := w.Write([]byte(demoDocumentXML)); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
