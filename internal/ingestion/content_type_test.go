package ingestion

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestAccept(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		want        bool
	}{
		{"pdf by mime", "cv.pdf", "application/pdf", true},
		{"pdf mime with params", "cv", "application/pdf; charset=binary", true},
		{"zip by name", "batch.zip", "", true},
		{"zip by name uppercase", "BATCH.ZIP", "application/octet-stream", true},
		{"pdf name without mime", "cv.pdf", "", false},
		{"word document", "cv.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", false},
		{"plain text", "notes.txt", "text/plain", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accept(tt.filename, tt.contentType); got != tt.want {
				t.Errorf("Accept(%q, %q) = %v, want %v", tt.filename, tt.contentType, got, tt.want)
			}
		})
	}
}

func TestDetectContentType(t *testing.T) {
	var zipped bytes.Buffer
	zw := zip.NewWriter(&zipped)
	w, err := zw.Create("a.pdf")
	if err != nil {
		t.Fatalf("Failed to create zip entry: %v", err)
	}
	w.Write([]byte("%PDF-1.4 test"))
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"pdf magic", []byte("%PDF-1.7\n%âãÏÓ\n1 0 obj"), MIMEPDF},
		{"zip archive", zipped.Bytes(), MIMEZip},
		{"plain text", []byte("John Doe\nSoftware Engineer\n5 years experience"), "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectContentType(tt.data); got != tt.want {
				t.Errorf("DetectContentType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveContentType(t *testing.T) {
	pdf := []byte("%PDF-1.4 body")

	if got := ResolveContentType("application/pdf", []byte("not really")); got != MIMEPDF {
		t.Errorf("Expected declared type to win, got %q", got)
	}
	if got := ResolveContentType("", pdf); got != MIMEPDF {
		t.Errorf("Expected sniffed pdf, got %q", got)
	}
	if got := ResolveContentType("application/octet-stream", pdf); got != MIMEPDF {
		t.Errorf("Expected sniffed pdf for generic type, got %q", got)
	}
}
