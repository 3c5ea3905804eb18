// Package parser turns corpus documents into titled, URL-attributed sections.
package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Extractor extracts plain text from corpus document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// Plain text files (.txt, .md) are returned as-is, UTF-8 validated.
// PDF and DOCX are decoded from their binary formats. Unknown
// extensions are treated as plain text.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	default:
		return extractPlain(content)
	}
}

func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 0; i < numPages; i++ {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i+1, err)
		}
		buf.WriteString(text)
		if i < numPages-1 {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}

// extractPlain returns content as string, validating it is valid UTF-8.
// Invalid sequences are replaced with the replacement character.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "�"))
	}
	return string(content), nil
}

const docxDocumentXMLPath = "word/document.xml"

// wtTag matches <w:t>text</w:t> including variants carrying attributes
// such as xml:space="preserve".
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// extractDOCX extracts text from .docx bytes. DOCX is a ZIP containing
// word/document.xml (OOXML); we collect every <w:t> text node so content
// survives regardless of paragraph or run attributes.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docxDocumentXMLPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("extract DOCX: open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			rc.Close()
			return "", fmt.Errorf("extract DOCX: read %s: %w", f.Name, err)
		}
		rc.Close()
		docXML = buf.Bytes()
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docxDocumentXMLPath)
	}
	parts := wtTag.FindAllSubmatch(docXML, -1)
	if len(parts) == 0 {
		return "", nil
	}
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.Write(bytes.TrimSpace(p[1]))
	}
	return strings.TrimSpace(b.String()), nil
}
