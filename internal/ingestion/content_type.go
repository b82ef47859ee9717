package ingestion

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MIMEPDF = "application/pdf"
	MIMEZip = "application/zip"

	// MaxFileSize is advisory; files above it are reported, never rejected
	MaxFileSize int64 = 10 << 20
)

// Accept reports whether a file may be added to the selection: PDFs by MIME
// type, ZIP archives by name.
func Accept(name, contentType string) bool {
	if baseMIME(contentType) == MIMEPDF {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".zip")
}

// DetectContentType sniffs the MIME type from the file content. Archives
// built on zip (docx, jar) report as application/zip.
func DetectContentType(data []byte) string {
	m := mimetype.Detect(data)
	for p := m; p != nil; p = p.Parent() {
		if p.Is(MIMEZip) {
			return MIMEZip
		}
	}
	return baseMIME(m.String())
}

// ResolveContentType prefers the declared type and falls back to sniffing
// when the source gave none or only a generic one.
func ResolveContentType(declared string, data []byte) string {
	declared = baseMIME(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return DetectContentType(data)
}

func baseMIME(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
