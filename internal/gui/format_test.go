package gui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fmuoria/resume-screening-dashboard/internal/models"
)

func TestCharCountText(t *testing.T) {
	assert.Equal(t, "120 / 500 characters (380 more needed)", charCountText(120, 500))
	assert.Equal(t, "500 characters", charCountText(500, 500))
}

func TestStageLabel(t *testing.T) {
	assert.Equal(t, "Screening candidates...", stageLabel(models.StageScreening))
	assert.Equal(t, "Complete", stageLabel(models.StageComplete))
	assert.Equal(t, "unknown", stageLabel(models.ProcessingStage("unknown")))
}

func TestFileLabel(t *testing.T) {
	assert.Equal(t, "a.pdf (2.0 KB)", fileLabel(models.FileInfo{Name: "a.pdf", Size: 2048}))
	assert.Equal(t, "big.zip (12288.0 KB) exceeds 10 MB", fileLabel(models.FileInfo{Name: "big.zip", Size: 12 << 20, Oversized: true}))
}

func TestCandidateRow(t *testing.T) {
	row := candidateRow(2, models.Candidate{Name: "Sarah Wilson", FitScore: 88, OverallSimilarity: 0.82})
	assert.Equal(t, []string{"2", "Sarah Wilson", "88.0", "82%", "high"}, row)
}

func TestCandidateMarkdownSkipsEmptySections(t *testing.T) {
	md := candidateMarkdown(models.Candidate{
		Name:    "Mike Chen",
		Summary: "Backend developer",
		Skills:  models.Skills{ExactMatches: []string{"Go", "SQL"}},
	})

	assert.Contains(t, md, "## Mike Chen")
	assert.Contains(t, md, "Backend developer")
	assert.Contains(t, md, "**Matching skills:** Go, SQL")
	assert.NotContains(t, md, "Transferable")
	assert.NotContains(t, md, "### Education")
	assert.False(t, strings.Contains(md, "Why this score"))
}

func TestTimingsText(t *testing.T) {
	text := timingsText(models.StageTimings{Upload: 1, Screening: 2, Analysis: 4.25, Total: 7.3})
	assert.Equal(t, "Upload 1.0s, Screening 2.0s, Analysis 4.2s, Total 7.3s", text)
}
