package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/fmuoria/resume-screening-dashboard/internal/models"
)

func sampleCandidates() []models.Candidate {
	return []models.Candidate{
		{
			ID:                "sarah.pdf",
			Name:              "Sarah Wilson",
			FitScore:          88,
			OverallSimilarity: 0.82,
			LLMFitScore:       90,
			Skills:            models.Skills{ExactMatches: []string{"Go", "Kubernetes"}},
			Summary:           "Platform engineer",
			Email:             "sarah@example.com",
		},
		{
			ID:       "mike.pdf",
			Name:     "Mike Chen",
			FitScore: 45,
			Skills:   models.Skills{ExactMatches: []string{"Go"}, Transferable: []string{"Java"}},
		},
	}
}

// TestExportToExcel_EnsuresXlsxExtension tests that .xlsx extension is added if missing
func TestExportToExcel_EnsuresXlsxExtension(t *testing.T) {
	tmpDir := t.TempDir()

	outputPath := filepath.Join(tmpDir, "test_report")
	if err := ExportToExcel(sampleCandidates(), "Backend engineer", outputPath); err != nil {
		t.Fatalf("ExportToExcel() failed: %v", err)
	}

	expectedPath := outputPath + ".xlsx"
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Errorf("Expected file at %s but it doesn't exist", expectedPath)
	}
}

// TestExportToExcel_HandlesExistingXlsxExtension tests that existing .xlsx extension is preserved
func TestExportToExcel_HandlesExistingXlsxExtension(t *testing.T) {
	tmpDir := t.TempDir()

	outputPath := filepath.Join(tmpDir, "test_report.XLSX")
	if err := ExportToExcel(sampleCandidates(), "Backend engineer", outputPath); err != nil {
		t.Fatalf("ExportToExcel() failed: %v", err)
	}

	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		t.Errorf("Expected file at %s but it doesn't exist", outputPath)
	}
	if _, err := os.Stat(outputPath + ".xlsx"); err == nil {
		t.Error("Should not have double .xlsx extension")
	}
}

// TestExportToExcel_EmptyResults tests export with no candidates
func TestExportToExcel_EmptyResults(t *testing.T) {
	tmpDir := t.TempDir()

	outputPath := filepath.Join(tmpDir, "empty_report.xlsx")
	if err := ExportToExcel(nil, "", outputPath); err != nil {
		t.Fatalf("ExportToExcel() should handle empty results: %v", err)
	}

	f, err := excelize.OpenFile(outputPath)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(candidatesSheet)
	if err != nil {
		t.Fatalf("GetRows() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected only the header row, got %d rows", len(rows))
	}
}

func TestWriteExcel_Contents(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExcel(&buf, sampleCandidates(), "Backend engineer"); err != nil {
		t.Fatalf("WriteExcel() failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("failed to open written workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{summarySheet, candidatesSheet, skillsSheet}
	if strings.Join(sheets, ",") != strings.Join(want, ",") {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}

	rows, err := f.GetRows(candidatesSheet)
	if err != nil {
		t.Fatalf("GetRows() failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 candidates, got %d rows", len(rows))
	}
	if rows[1][0] != "1" || rows[1][1] != "Sarah Wilson" || rows[1][5] != "high" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[2][0] != "2" || rows[2][1] != "Mike Chen" || rows[2][5] != "low" {
		t.Errorf("unexpected second row: %v", rows[2])
	}

	ok, link, err := f.GetCellHyperLink(candidatesSheet, "G2")
	if err != nil {
		t.Fatalf("GetCellHyperLink() failed: %v", err)
	}
	if !ok || link != "mailto:sarah@example.com" {
		t.Errorf("expected mailto link on G2, got %q (ok=%v)", link, ok)
	}
	if ok, _, _ := f.GetCellHyperLink(candidatesSheet, "G3"); ok {
		t.Error("candidate without email should have no link")
	}

	skills, err := f.GetRows(skillsSheet)
	if err != nil {
		t.Fatalf("GetRows() failed: %v", err)
	}
	if len(skills) != 4 {
		t.Fatalf("expected header plus 3 skills, got %d rows", len(skills))
	}
	if skills[1][0] != "Go" || skills[1][2] != "2" {
		t.Errorf("most common skill should be Go with 2, got %v", skills[1])
	}
}
