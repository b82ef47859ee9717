// Package mockranker serves canned ranking results for local development.
package mockranker

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fmuoria/resume-screening-dashboard/internal/logger"
	"github.com/fmuoria/resume-screening-dashboard/internal/models"
)

// Handler answers POST /rank/ the way the ranking service does
type Handler struct {
	// Delay is waited before answering, or until the request is cancelled
	Delay      time.Duration
	Candidates []models.Candidate
	logger     *zap.Logger
}

// New returns a handler serving the default candidates
func New(l *zap.Logger) *Handler {
	return &Handler{
		Candidates: Candidates(),
		logger:     logger.OrNop(l),
	}
}

// SetupRoutes registers the ranking endpoint on router
func SetupRoutes(router gin.IRouter, h *Handler) {
	router.POST("/rank/", h.Rank)
}

// NewRouter returns a standalone gin engine serving the mock ranking endpoint
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	SetupRoutes(router, h)
	return router
}

// Rank validates the multipart request and returns the canned candidates.
// When an archive is uploaded, one candidate is returned per entry (up to the
// canned count) and each id is the entry name.
func (h *Handler) Rank(c *gin.Context) {
	jobDesc := strings.TrimSpace(c.PostForm("job_desc"))
	if jobDesc == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "job_desc is required"})
		return
	}

	var entries []string
	if fh, err := c.FormFile("files"); err == nil {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "unable to read uploaded archive"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "unable to read uploaded archive"})
			return
		}

		entries, err = archiveEntries(data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "files must be a zip archive"})
			return
		}
	}

	if h.Delay > 0 {
		select {
		case <-time.After(h.Delay):
		case <-c.Request.Context().Done():
			return
		}
	}

	candidates := rankEntries(h.Candidates, entries)
	h.logger.Info("Mock ranking served",
		zap.Int("job_desc_chars", len([]rune(jobDesc))),
		zap.Int("entries", len(entries)),
		zap.Int("candidates", len(candidates)))

	c.JSON(http.StatusOK, candidates)
}

func archiveEntries(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}
	return names, nil
}

func rankEntries(canned []models.Candidate, entries []string) []models.Candidate {
	if len(entries) == 0 {
		out := make([]models.Candidate, len(canned))
		copy(out, canned)
		return out
	}

	n := min(len(entries), len(canned))
	out := make([]models.Candidate, n)
	for i := 0; i < n; i++ {
		out[i] = canned[i]
		out[i].ID = entries[i]
	}
	return out
}

// Candidates returns the development candidate set, best fit first
func Candidates() []models.Candidate {
	return []models.Candidate{
		{
			ID:                "john_doe_resume.pdf",
			Name:              "John Doe",
			FitScore:          92,
			OverallSimilarity: 0.85,
			LLMFitScore:       92.0,
			Skills: models.Skills{
				ExactMatches: []string{"Python", "AWS", "Docker", "React"},
				Transferable: []string{"Project Management", "Team Leadership"},
				NonTechnical: []string{"Communication", "Problem Solving"},
			},
			EducationHighlights:  "MS in Computer Science, Stanford University",
			ExperienceHighlights: "5+ years at TechCorp as Senior Developer",
			Summary:              "Experienced full-stack developer with strong cloud architecture skills",
			Justification:        "Strong technical match with excellent leadership experience and proven track record in similar technologies.",
			Email:                "john.doe@example.com",
			MobileNumber:         "+1-555-0123",
		},
		{
			ID:                "sarah_wilson_cv.pdf",
			Name:              "Sarah Wilson",
			FitScore:          88,
			OverallSimilarity: 0.82,
			LLMFitScore:       88.0,
			Skills: models.Skills{
				ExactMatches: []string{"JavaScript", "Node.js", "MongoDB"},
				Transferable: []string{"Agile Methodologies", "Code Review"},
				NonTechnical: []string{"Mentoring", "Public Speaking"},
			},
			EducationHighlights:  "BS in Software Engineering, MIT",
			ExperienceHighlights: "4 years at StartupXYZ as Lead Frontend Developer",
			Summary:              "Frontend specialist with strong backend knowledge and mentoring experience",
			Justification:        "Excellent frontend skills with growing full-stack capabilities and proven mentoring abilities.",
			Email:                "sarah.wilson@example.com",
			MobileNumber:         "+1-555-0456",
		},
		{
			ID:                "mike_chen_resume.pdf",
			Name:              "Mike Chen",
			FitScore:          75,
			OverallSimilarity: 0.68,
			LLMFitScore:       75.0,
			Skills: models.Skills{
				ExactMatches: []string{"Java", "Spring Boot"},
				Transferable: []string{"System Design", "Database Optimization"},
				NonTechnical: []string{"Documentation", "Cross-team Collaboration"},
			},
			EducationHighlights:  "MS in Information Systems, UC Berkeley",
			ExperienceHighlights: "3 years at Enterprise Corp as Backend Developer",
			Summary:              "Backend focused developer with strong enterprise experience",
			Justification:        "Solid backend foundation with enterprise experience, though may need frontend skill development.",
			Email:                "mike.chen@example.com",
			MobileNumber:         "+1-555-0789",
		},
	}
}
