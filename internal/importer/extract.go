package importer

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ExtractLines converts a raw document into trimmed, non-empty text lines.
// The extension must already have passed Validate.
func ExtractLines(data []byte, ext string) ([]string, error) {
	var raw string
	var err error
	switch ext {
	case "txt":
		raw = string(data)
	case "docx":
		raw, err = extractDocx(data)
	case "pdf":
		raw, err = extractPDF(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if err != nil {
		return nil, err
	}
	return splitLines(raw), nil
}

func splitLines(raw string) []string {
	var lines []string
	for _, ln := range strings.Split(raw, "\n") {
		ln = strings.TrimSpace(strings.TrimSuffix(ln, "\r"))
		if ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}

// extractDocx reads the main document part of the OOXML archive and joins
// the text runs of each paragraph with newlines.
func extractDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("open docx: missing word/document.xml")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer rc.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(rc)
	var inText bool
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read docx: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inText = t.Name.Local == "t"
		case xml.EndElement:
			inText = false
			if t.Name.Local == "p" {
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

// extractPDF shells out to pdftotext, which wants a file path, so the
// payload is staged in a uniquely named temp file first.
func extractPDF(data []byte) (string, error) {
	path := filepath.Join(os.TempDir(), uuid.NewString()+".pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("stage pdf: %w", err)
	}
	defer os.Remove(path)

	out, err := exec.Command("pdftotext", path, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
