package ingestion

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/fmuoria/resume-screening-dashboard/internal/errors"
	"github.com/fmuoria/resume-screening-dashboard/internal/logger"
	"github.com/fmuoria/resume-screening-dashboard/internal/models"
)

// ArchiveName is the filename the ranking service receives for the upload
const ArchiveName = "resumes.zip"

// Archive is a packaged resume batch ready for upload
type Archive struct {
	Name    string
	Data    []byte
	Entries []string
}

// Size returns the archive size in bytes
func (a *Archive) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}

// Packager builds the single zip archive sent to the ranking service
type Packager struct {
	logger *zap.Logger
}

// NewPackager creates a packager; a nil logger discards warnings
func NewPackager(l *zap.Logger) *Packager {
	return &Packager{logger: logger.OrNop(l)}
}

// Package returns nil for an empty selection. Otherwise every file is stored
// uncompressed under its base name; when two files share a name the later one
// replaces the earlier.
func (p *Packager) Package(files []models.ResumeFile) (*Archive, error) {
	if len(files) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	entries, err := p.WriteTo(&buf, files)
	if err != nil {
		return nil, err
	}

	return &Archive{Name: ArchiveName, Data: buf.Bytes(), Entries: entries}, nil
}

// WriteTo streams the archive to w and returns the entry names in order
func (p *Packager) WriteTo(w io.Writer, files []models.ResumeFile) ([]string, error) {
	entries, contents := p.dedupe(files)

	zw := zip.NewWriter(w)
	modified := time.Now()
	for _, name := range entries {
		header := &zip.FileHeader{
			Name:     name,
			Method:   zip.Store,
			Modified: modified,
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return nil, apperrors.NewPackagingError(name, err)
		}
		if _, err := fw.Write(contents[name]); err != nil {
			return nil, apperrors.NewPackagingError(name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, apperrors.NewPackagingError("", err)
	}

	return entries, nil
}

func (p *Packager) dedupe(files []models.ResumeFile) ([]string, map[string][]byte) {
	entries := make([]string, 0, len(files))
	contents := make(map[string][]byte, len(files))

	for _, f := range files {
		name := EntryName(f.Name)
		if _, seen := contents[name]; seen {
			p.logger.Warn("Duplicate filename in selection, keeping the later file",
				zap.String("file", name),
				zap.Int64("size", f.Size()))
		} else {
			entries = append(entries, name)
		}
		contents[name] = f.Data
	}

	return entries, contents
}

// EntryName reduces a selected file name to the base name stored in the archive
func EntryName(name string) string {
	base := path.Base(filepath.ToSlash(name))
	if base == "." || base == "/" || base == ".." {
		return "resume"
	}
	return base
}
