package models

import "time"

// Skills is the skill breakdown returned by the ranking service for one resume
type Skills struct {
	ExactMatches []string `json:"exact_matches"`
	Transferable []string `json:"transferable"`
	NonTechnical []string `json:"non_technical"`
}

// Normalize replaces absent skill lists with empty ones
func (s *Skills) Normalize() {
	if s.ExactMatches == nil {
		s.ExactMatches = []string{}
	}
	if s.Transferable == nil {
		s.Transferable = []string{}
	}
	if s.NonTechnical == nil {
		s.NonTechnical = []string{}
	}
}

// Candidate represents one ranked resume as returned by the ranking service
type Candidate struct {
	ID                   string  `json:"id"` // originating filename
	Name                 string  `json:"name"`
	FitScore             float64 `json:"fitScore"`           // 0-100
	OverallSimilarity    float64 `json:"overall_similarity"` // 0.0-1.0
	LLMFitScore          float64 `json:"llm_fit_score"`      // 0-100
	Skills               Skills  `json:"skills"`
	EducationHighlights  string  `json:"education_highlights"`
	ExperienceHighlights string  `json:"experience_highlights"`
	Summary              string  `json:"summary"`
	Justification        string  `json:"justification"`
	Email                string  `json:"email"`
	MobileNumber         string  `json:"mobile_number"`
}

// ContactLinks holds the URIs a recruiter uses to reach a candidate
type ContactLinks struct {
	Email string `json:"email,omitempty"`
	Call  string `json:"call,omitempty"`
	Text  string `json:"text,omitempty"`
}

// ContactLinks builds mailto/tel/sms links. Values are not validated.
func (c Candidate) ContactLinks() ContactLinks {
	var links ContactLinks
	if c.Email != "" {
		links.Email = "mailto:" + c.Email
	}
	if c.MobileNumber != "" {
		links.Call = "tel:" + c.MobileNumber
		links.Text = "sms:" + c.MobileNumber
	}
	return links
}

// ResumeFile is one user-selected file, already read into memory
type ResumeFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// Size returns the file size in bytes
func (f ResumeFile) Size() int64 {
	return int64(len(f.Data))
}

// RankRequest is built fresh for every submission and never persisted
type RankRequest struct {
	JobDescription string       `json:"job_desc"`
	Files          []ResumeFile `json:"-"`
}

// ProcessingStage names a step of the progress indicator
type ProcessingStage string

const (
	StageUpload    ProcessingStage = "upload"
	StageScreening ProcessingStage = "screening"
	StageAnalysis  ProcessingStage = "analysis"
	StageComplete  ProcessingStage = "complete"
)

// StageTimings are the seconds spent per stage
type StageTimings struct {
	Upload    float64 `json:"upload"`
	Screening float64 `json:"screening"`
	Analysis  float64 `json:"analysis"`
	Total     float64 `json:"total"`
}

// ProcessingState describes what the dashboard shows while and after ranking
type ProcessingState struct {
	IsProcessing bool            `json:"is_processing"`
	Stage        ProcessingStage `json:"current_stage"`
	Progress     int             `json:"progress"` // 0-100
	Timings      StageTimings    `json:"timings"`
	StartedAt    time.Time       `json:"started_at,omitempty"`
}

// InitialProcessingState returns the idle state
func InitialProcessingState() ProcessingState {
	return ProcessingState{
		Stage: StageUpload,
	}
}

// FileInfo describes a selected file without its content
type FileInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Oversized   bool   `json:"oversized"`
}

// Summary aggregates a ranked candidate list for the stats cards and the export
type Summary struct {
	Total          int     `json:"total"`
	HighMatch      int     `json:"high_match"`
	MediumMatch    int     `json:"medium_match"`
	LowMatch       int     `json:"low_match"`
	AverageFit     float64 `json:"average_fit"`
	HighestFit     float64 `json:"highest_fit"`
	LowestFit      float64 `json:"lowest_fit"`
	TopCandidateID string  `json:"top_candidate_id,omitempty"`
}
