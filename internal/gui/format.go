package gui

import (
	"fmt"
	"strings"

	"github.com/fmuoria/resume-screening-dashboard/internal/ingestion"
	"github.com/fmuoria/resume-screening-dashboard/internal/models"
	"github.com/fmuoria/resume-screening-dashboard/internal/scoring"
)

func stageLabel(stage models.ProcessingStage) string {
	switch stage {
	case models.StageUpload:
		return "Uploading resumes..."
	case models.StageScreening:
		return "Screening candidates..."
	case models.StageAnalysis:
		return "Analyzing fit..."
	case models.StageComplete:
		return "Complete"
	default:
		return string(stage)
	}
}

func charCountText(count, minimum int) string {
	if count < minimum {
		return fmt.Sprintf("%d / %d characters (%d more needed)", count, minimum, minimum-count)
	}
	return fmt.Sprintf("%d characters", count)
}

func fileLabel(f models.FileInfo) string {
	label := fmt.Sprintf("%s (%.1f KB)", f.Name, float64(f.Size)/1024)
	if f.Oversized {
		label += fmt.Sprintf(" exceeds %d MB", ingestion.MaxFileSize>>20)
	}
	return label
}

func timingsText(t models.StageTimings) string {
	return fmt.Sprintf("Upload %.1fs, Screening %.1fs, Analysis %.1fs, Total %.1fs",
		t.Upload, t.Screening, t.Analysis, t.Total)
}

// candidateRow renders one results table row; rank is the 1-based position
func candidateRow(rank int, c models.Candidate) []string {
	return []string{
		fmt.Sprintf("%d", rank),
		c.Name,
		fmt.Sprintf("%.1f", c.FitScore),
		fmt.Sprintf("%.0f%%", c.OverallSimilarity*100),
		string(scoring.BandFor(c.FitScore)),
	}
}

func candidateMarkdown(c models.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", c.Name)
	fmt.Fprintf(&b, "**Fit score:** %.1f  \n**Similarity:** %.0f%%  \n**LLM fit score:** %.1f\n\n",
		c.FitScore, c.OverallSimilarity*100, c.LLMFitScore)

	section := func(title, text string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", title, text)
	}
	skills := func(title string, list []string) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(&b, "**%s:** %s\n\n", title, strings.Join(list, ", "))
	}

	section("Summary", c.Summary)
	skills("Matching skills", c.Skills.ExactMatches)
	skills("Transferable skills", c.Skills.Transferable)
	skills("Other strengths", c.Skills.NonTechnical)
	section("Experience", c.ExperienceHighlights)
	section("Education", c.EducationHighlights)
	section("Why this score", c.Justification)

	return b.String()
}
