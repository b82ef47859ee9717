package scoring

import (
	"sort"

	"github.com/fmuoria/resume-screening-dashboard/internal/models"
)

// Band is a coarse label for a fit score
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"

	HighMatchThreshold   = 80.0
	MediumMatchThreshold = 60.0
)

// BandFor classifies a 0-100 fit score. Scores are reported by the ranking
// service and are never recomputed here.
func BandFor(fitScore float64) Band {
	switch {
	case fitScore >= HighMatchThreshold:
		return BandHigh
	case fitScore >= MediumMatchThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// Summarize aggregates the ranked list. The top candidate is the first
// element; server order is canonical.
func Summarize(candidates []models.Candidate) models.Summary {
	summary := models.Summary{Total: len(candidates)}
	if len(candidates) == 0 {
		return summary
	}

	summary.TopCandidateID = candidates[0].ID
	summary.HighestFit = candidates[0].FitScore
	summary.LowestFit = candidates[0].FitScore

	var total float64
	for _, c := range candidates {
		total += c.FitScore
		if c.FitScore > summary.HighestFit {
			summary.HighestFit = c.FitScore
		}
		if c.FitScore < summary.LowestFit {
			summary.LowestFit = c.FitScore
		}

		switch BandFor(c.FitScore) {
		case BandHigh:
			summary.HighMatch++
		case BandMedium:
			summary.MediumMatch++
		default:
			summary.LowMatch++
		}
	}
	summary.AverageFit = total / float64(len(candidates))

	return summary
}

// SkillCount is how many candidates list a skill in one category
type SkillCount struct {
	Skill    string
	Category string
	Count    int
}

// SkillFrequency counts skills per category across candidates, most common
// first and alphabetical among ties.
func SkillFrequency(candidates []models.Candidate) []SkillCount {
	type key struct{ category, skill string }
	counts := make(map[key]int)

	for _, c := range candidates {
		add := func(category string, skills []string) {
			seen := make(map[string]bool, len(skills))
			for _, s := range skills {
				if s == "" || seen[s] {
					continue
				}
				seen[s] = true
				counts[key{category, s}]++
			}
		}
		add("exact_matches", c.Skills.ExactMatches)
		add("transferable", c.Skills.Transferable)
		add("non_technical", c.Skills.NonTechnical)
	}

	result := make([]SkillCount, 0, len(counts))
	for k, n := range counts {
		result = append(result, SkillCount{Skill: k.skill, Category: k.category, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		if result[i].Category != result[j].Category {
			return result[i].Category < result[j].Category
		}
		return result[i].Skill < result[j].Skill
	})
	return result
}
