package ingestion

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	apperrors "github.com/fmuoria/resume-screening-dashboard/internal/errors"
	"github.com/fmuoria/resume-screening-dashboard/internal/models"
)

// FileHandler holds the ordered file selection for the next submission
type FileHandler struct {
	mu    sync.RWMutex
	files []models.ResumeFile
}

// NewFileHandler creates an empty selection
func NewFileHandler() *FileHandler {
	return &FileHandler{}
}

// Add appends a file to the selection. Files that are neither PDF nor ZIP
// are rejected with a ValidationError. Duplicate names are kept; Package
// resolves them.
func (fh *FileHandler) Add(file models.ResumeFile) error {
	file.ContentType = ResolveContentType(file.ContentType, file.Data)
	if !Accept(file.Name, file.ContentType) {
		return apperrors.NewValidationError("files", fmt.Sprintf("%s is not a PDF or ZIP file", file.Name))
	}

	fh.mu.Lock()
	defer fh.mu.Unlock()
	fh.files = append(fh.files, file)
	return nil
}

// AddReader reads content fully and adds it under filename
func (fh *FileHandler) AddReader(filename, contentType string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return fh.Add(models.ResumeFile{Name: filename, ContentType: contentType, Data: data})
}

// Remove drops every file with the given name and returns how many were removed
func (fh *FileHandler) Remove(name string) int {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	kept := fh.files[:0]
	removed := 0
	for _, f := range fh.files {
		if f.Name == name {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	// zero the tail so dropped file data can be collected
	for i := len(kept); i < len(fh.files); i++ {
		fh.files[i] = models.ResumeFile{}
	}
	fh.files = kept
	return removed
}

// Files returns a copy of the selection in insertion order
func (fh *FileHandler) Files() []models.ResumeFile {
	fh.mu.RLock()
	defer fh.mu.RUnlock()

	files := make([]models.ResumeFile, len(fh.files))
	copy(files, fh.files)
	return files
}

// Len returns the number of selected files
func (fh *FileHandler) Len() int {
	fh.mu.RLock()
	defer fh.mu.RUnlock()
	return len(fh.files)
}

// Info lists the selection without file content, flagging files above maxSize
func (fh *FileHandler) Info(maxSize int64) []models.FileInfo {
	fh.mu.RLock()
	defer fh.mu.RUnlock()

	infos := make([]models.FileInfo, 0, len(fh.files))
	for _, f := range fh.files {
		infos = append(infos, models.FileInfo{
			Name:        f.Name,
			ContentType: f.ContentType,
			Size:        f.Size(),
			Oversized:   maxSize > 0 && f.Size() > maxSize,
		})
	}
	return infos
}

// Clear empties the selection
func (fh *FileHandler) Clear() {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	fh.files = nil
}

// LoadDir adds every accepted file found directly in dir, in name order.
// It returns the names of the files that were skipped.
func (fh *FileHandler) LoadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var skipped []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return skipped, fmt.Errorf("failed to read file %s: %w", entry.Name(), err)
		}

		if err := fh.Add(models.ResumeFile{Name: entry.Name(), Data: data}); err != nil {
			skipped = append(skipped, entry.Name())
		}
	}

	return skipped, nil
}

// Oversized lists the files larger than maxSize
func Oversized(files []models.ResumeFile, maxSize int64) []string {
	var names []string
	for _, f := range files {
		if f.Size() > maxSize {
			names = append(names, f.Name)
		}
	}
	return names
}
