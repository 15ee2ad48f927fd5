package utils

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	// MaxPDFPages limits the number of pages to process
	MaxPDFPages = 100

	// MaxExtractedTextSize limits the extracted text size (1MB)
	MaxExtractedTextSize = 1024 * 1024
)

// ExtractText extracts plain text from an uploaded resume/JD file. PDFs are
// extracted page by page; .txt files are decoded as UTF-8.
func ExtractText(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return ExtractPDFText(data)
	case ".txt":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("text file is not valid UTF-8")
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported file type: %s (expected .pdf or .txt)", filename)
	}
}

// ExtractPDFText extracts text from a PDF, page by page. Pages that yield no
// extractable text are skipped; the rest are joined with newlines.
func ExtractPDFText(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	totalPages := pdfReader.NumPage()
	if totalPages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}
	if totalPages > MaxPDFPages {
		return "", fmt.Errorf("PDF has too many pages (%d), max allowed is %d", totalPages, MaxPDFPages)
	}

	var pages []string
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages with extraction errors, don't fail completely
			continue
		}

		cleaned := cleanPDFText(text)
		if cleaned == "" {
			continue
		}
		pages = append(pages, cleaned)

		if totalLen(pages) > MaxExtractedTextSize {
			break
		}
	}

	extracted := strings.Join(pages, "\n")
	if len(extracted) > MaxExtractedTextSize {
		extracted = extracted[:MaxExtractedTextSize] + "\n... [Content truncated]"
	}

	return extracted, nil
}

func totalLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(p)
	}
	return n
}

// cleanPDFText cleans extracted PDF text
func cleanPDFText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = normalizeWhitespace(text)
	return strings.TrimSpace(text)
}

// normalizeWhitespace collapses runs of spaces while preserving newlines
func normalizeWhitespace(text string) string {
	var result strings.Builder
	lastWasSpace := false

	for _, r := range text {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				if r == '\n' {
					result.WriteRune('\n')
					lastWasSpace = false
				} else {
					result.WriteRune(' ')
					lastWasSpace = true
				}
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}
