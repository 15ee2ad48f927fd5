package utils

import (
	"strings"
	"testing"
)

func TestExtractTextTxt(t *testing.T) {
	text, err := ExtractText("resume.txt", []byte("Go developer\n5 years experience"))
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if !strings.Contains(text, "Go developer") {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestExtractTextTxtInvalidUTF8(t *testing.T) {
	if _, err := ExtractText("resume.txt", []byte{0xff, 0xfe, 0xfd}); err == nil {
		t.Error("Expected error for invalid UTF-8")
	}
}

func TestExtractTextUnsupportedType(t *testing.T) {
	if _, err := ExtractText("resume.docx", []byte("data")); err == nil {
		t.Error("Expected error for unsupported file type")
	}
}

func TestExtractTextExtensionCaseInsensitive(t *testing.T) {
	if _, err := ExtractText("RESUME.TXT", []byte("ok")); err != nil {
		t.Errorf("Expected uppercase extension accepted, got %v", err)
	}
}

func TestExtractPDFTextGarbage(t *testing.T) {
	if _, err := ExtractPDFText([]byte("this is not a pdf")); err == nil {
		t.Error("Expected error for non-PDF bytes")
	}
}

func TestCleanPDFText(t *testing.T) {
	got := cleanPDFText("  Hello\x00   world \n\n next  line ")
	if strings.Contains(got, "\x00") {
		t.Error("Null bytes must be stripped")
	}
	if strings.Contains(got, "  ") {
		t.Errorf("Space runs must be collapsed, got %q", got)
	}
	if !strings.Contains(got, "\n") {
		t.Errorf("Newlines must survive, got %q", got)
	}
}
