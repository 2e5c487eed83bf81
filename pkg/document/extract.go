// Package document turns uploaded CV files into plain text.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	ErrEmpty       = errors.New("document is empty")
	ErrUnsupported = errors.New("unsupported document format")
)

var pdfMagic = []byte("%PDF-")

// ExtractText returns the plain text of a PDF or UTF-8 text document.
func ExtractText(data []byte) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", ErrEmpty
	}

	if bytes.HasPrefix(data, pdfMagic) {
		return extractPDF(data)
	}

	if utf8.Valid(data) {
		return normalize(string(data)), nil
	}
	return "", ErrUnsupported
}

func extractPDF(data []byte) (text string, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	text = normalize(buf.String())
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

// normalize collapses runs of blank lines and trims trailing spaces.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")

	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
