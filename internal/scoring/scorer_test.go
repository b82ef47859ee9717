package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmuoria/resume-screening-dashboard/internal/models"
)

func TestBandFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Band
	}{
		{100, BandHigh},
		{80, BandHigh},
		{79.9, BandMedium},
		{60, BandMedium},
		{59.99, BandLow},
		{0, BandLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BandFor(tt.score), "score %v", tt.score)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	assert.Equal(t, models.Summary{}, summary)
}

func TestSummarizeKeepsServerOrderForTopCandidate(t *testing.T) {
	// the server's first element is the top candidate even when a later one scores higher
	candidates := []models.Candidate{
		{ID: "b.pdf", FitScore: 85},
		{ID: "a.pdf", FitScore: 92},
		{ID: "c.pdf", FitScore: 65},
		{ID: "d.pdf", FitScore: 40},
	}

	summary := Summarize(candidates)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, "b.pdf", summary.TopCandidateID)
	assert.Equal(t, 2, summary.HighMatch)
	assert.Equal(t, 1, summary.MediumMatch)
	assert.Equal(t, 1, summary.LowMatch)
	assert.Equal(t, 92.0, summary.HighestFit)
	assert.Equal(t, 40.0, summary.LowestFit)
	assert.InDelta(t, 70.5, summary.AverageFit, 0.001)
}

func TestSummarizeDoesNotReorder(t *testing.T) {
	candidates := []models.Candidate{{ID: "x", FitScore: 10}, {ID: "y", FitScore: 90}}
	Summarize(candidates)
	assert.Equal(t, "x", candidates[0].ID)
}

func TestSkillFrequency(t *testing.T) {
	candidates := []models.Candidate{
		{Skills: models.Skills{ExactMatches: []string{"Go", "AWS", "Go"}, NonTechnical: []string{"Mentoring"}}},
		{Skills: models.Skills{ExactMatches: []string{"Go"}, Transferable: []string{"AWS"}}},
		{Skills: models.Skills{ExactMatches: []string{"Docker", ""}}},
	}

	counts := SkillFrequency(candidates)
	require.Len(t, counts, 5)

	assert.Equal(t, SkillCount{Skill: "Go", Category: "exact_matches", Count: 2}, counts[0])
	assert.Equal(t, SkillCount{Skill: "AWS", Category: "exact_matches", Count: 1}, counts[1])
	assert.Equal(t, SkillCount{Skill: "Docker", Category: "exact_matches", Count: 1}, counts[2])
	assert.Equal(t, SkillCount{Skill: "Mentoring", Category: "non_technical", Count: 1}, counts[3])
	assert.Equal(t, SkillCount{Skill: "AWS", Category: "transferable", Count: 1}, counts[4])
}
