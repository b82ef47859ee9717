package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fmuoria/resume-screening-dashboard/internal/models"
	"github.com/fmuoria/resume-screening-dashboard/internal/scoring"
)

const (
	summarySheet    = "Summary"
	candidatesSheet = "Ranked Candidates"
	skillsSheet     = "Skills Breakdown"

	headerColor = "4472C4"
	linkColor   = "0563C1"
)

var bandColors = map[scoring.Band]string{
	scoring.BandHigh:   "C6EFCE",
	scoring.BandMedium: "FFEB9C",
	scoring.BandLow:    "FFC7CE",
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// ExportToExcel writes the ranked candidates to an .xlsx workbook at outputPath
func ExportToExcel(candidates []models.Candidate, jobDescription, outputPath string) error {
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	f, err := build(candidates, jobDescription)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(outputPath); err != nil {
		// fall back to writing the buffer ourselves
		var buf bytes.Buffer
		if writeErr := f.Write(&buf); writeErr != nil {
			return fmt.Errorf("failed to save Excel file: direct save failed (%v), buffer write also failed: %w", err, writeErr)
		}
		if fileErr := os.WriteFile(outputPath, buf.Bytes(), 0644); fileErr != nil {
			return fmt.Errorf("failed to save Excel file: direct save failed (%v), file write failed: %w", err, fileErr)
		}
	}

	return nil
}

// WriteExcel streams the workbook to w
func WriteExcel(w io.Writer, candidates []models.Candidate, jobDescription string) error {
	f, err := build(candidates, jobDescription)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel workbook: %w", err)
	}
	return nil
}

func build(candidates []models.Candidate, jobDescription string) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{candidatesSheet, skillsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := createSummarySheet(f, candidates, jobDescription); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := createRankedCandidatesSheet(f, candidates); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create ranked candidates sheet: %w", err)
	}
	if err := createSkillsSheet(f, candidates); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create skills sheet: %w", err)
	}

	return f, nil
}

func headerStyle(f *excelize.File, size float64, horizontal string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: size, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: horizontal, Vertical: "center"},
		Border:    thinBorder,
	})
}

func setLabel(f *excelize.File, sheet string, row int, label string, value interface{}, labelStyle int) {
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), label)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), labelStyle)
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), value)
}

func createSummarySheet(f *excelize.File, candidates []models.Candidate, jobDescription string) error {
	sheet := summarySheet
	f.SetColWidth(sheet, "A", "A", 25)
	f.SetColWidth(sheet, "B", "B", 60)

	title, err := headerStyle(f, 14, "left")
	if err != nil {
		return err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return err
	}

	row := 1
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Resume Screening Report")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), title)
	f.MergeCell(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row))
	row += 2

	setLabel(f, sheet, row, "Generated:", time.Now().Format("2006-01-02 15:04:05"), labelStyle)
	row++
	setLabel(f, sheet, row, "Job Description:", jobDescription, labelStyle)
	f.SetCellStyle(sheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), wrapStyle)
	f.SetRowHeight(sheet, row, 90)
	row += 2

	summary := scoring.Summarize(candidates)

	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Statistics:")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), title)
	f.MergeCell(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row))
	row++

	setLabel(f, sheet, row, "Total Candidates:", summary.Total, labelStyle)
	row++
	if summary.Total == 0 {
		return nil
	}

	setLabel(f, sheet, row, fmt.Sprintf("High Match (%.0f+):", scoring.HighMatchThreshold), summary.HighMatch, labelStyle)
	row++
	setLabel(f, sheet, row, fmt.Sprintf("Medium Match (%.0f-%.0f):", scoring.MediumMatchThreshold, scoring.HighMatchThreshold-1), summary.MediumMatch, labelStyle)
	row++
	setLabel(f, sheet, row, fmt.Sprintf("Low Match (<%.0f):", scoring.MediumMatchThreshold), summary.LowMatch, labelStyle)
	row += 2

	setLabel(f, sheet, row, "Average Fit Score:", fmt.Sprintf("%.2f", summary.AverageFit), labelStyle)
	row++
	setLabel(f, sheet, row, "Highest Fit Score:", fmt.Sprintf("%.2f", summary.HighestFit), labelStyle)
	row++
	setLabel(f, sheet, row, "Lowest Fit Score:", fmt.Sprintf("%.2f", summary.LowestFit), labelStyle)
	row++
	setLabel(f, sheet, row, "Top Candidate:", candidates[0].Name, labelStyle)

	return nil
}

func createRankedCandidatesSheet(f *excelize.File, candidates []models.Candidate) error {
	sheet := candidatesSheet
	widths := map[string]float64{"A": 8, "B": 25, "C": 12, "D": 14, "E": 14, "F": 10, "G": 30, "H": 18, "I": 60}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}

	header, err := headerStyle(f, 11, "center")
	if err != nil {
		return err
	}

	rowStyles := make(map[scoring.Band]int, len(bandColors))
	linkStyles := make(map[scoring.Band]int, len(bandColors))
	for band, color := range bandColors {
		fill := excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
		if rowStyles[band], err = f.NewStyle(&excelize.Style{
			Fill:      fill,
			Border:    thinBorder,
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		}); err != nil {
			return err
		}
		if linkStyles[band], err = f.NewStyle(&excelize.Style{
			Font:   &excelize.Font{Color: linkColor, Underline: "single"},
			Fill:   fill,
			Border: thinBorder,
		}); err != nil {
			return err
		}
	}

	headers := []string{"Rank", "Candidate", "Fit Score", "Similarity", "LLM Fit", "Band", "Email", "Mobile", "Summary"}
	for col, h := range headers {
		cell := fmt.Sprintf("%s1", string(rune('A'+col)))
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, header)
	}

	for i, c := range candidates {
		row := i + 2
		band := scoring.BandFor(c.FitScore)

		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), c.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), fmt.Sprintf("%.2f", c.FitScore))
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), fmt.Sprintf("%.2f", c.OverallSimilarity))
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), fmt.Sprintf("%.2f", c.LLMFitScore))
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), string(band))
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), c.Email)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), c.MobileNumber)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), c.Summary)
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("I%d", row), rowStyles[band])

		if links := c.ContactLinks(); links.Email != "" {
			cell := fmt.Sprintf("G%d", row)
			f.SetCellHyperLink(sheet, cell, links.Email, "External")
			f.SetCellStyle(sheet, cell, cell, linkStyles[band])
		}
	}

	if len(candidates) > 0 {
		f.AutoFilter(sheet, fmt.Sprintf("A1:I%d", len(candidates)+1), []excelize.AutoFilterOptions{})
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func createSkillsSheet(f *excelize.File, candidates []models.Candidate) error {
	sheet := skillsSheet
	f.SetColWidth(sheet, "A", "A", 30)
	f.SetColWidth(sheet, "B", "B", 18)
	f.SetColWidth(sheet, "C", "C", 12)

	header, err := headerStyle(f, 11, "center")
	if err != nil {
		return err
	}
	cellStyle, err := f.NewStyle(&excelize.Style{Border: thinBorder})
	if err != nil {
		return err
	}

	for col, h := range []string{"Skill", "Category", "Candidates"} {
		cell := fmt.Sprintf("%s1", string(rune('A'+col)))
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, header)
	}

	counts := scoring.SkillFrequency(candidates)
	for i, sc := range counts {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), sc.Skill)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), sc.Category)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), sc.Count)
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("C%d", row), cellStyle)
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
