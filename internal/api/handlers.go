package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fmuoria/resume-screening-dashboard/internal/agent"
	apperrors "github.com/fmuoria/resume-screening-dashboard/internal/errors"
	"github.com/fmuoria/resume-screening-dashboard/internal/export"
	"github.com/fmuoria/resume-screening-dashboard/internal/logger"
	"github.com/fmuoria/resume-screening-dashboard/internal/models"
	"github.com/fmuoria/resume-screening-dashboard/internal/scoring"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportFilename  = "resume_screening_results.xlsx"
)

// Server exposes the dashboard over HTTP
type Server struct {
	dashboard *agent.Dashboard
	logger    *zap.Logger
}

// NewServer creates a new API server
func NewServer(d *agent.Dashboard, l *zap.Logger) *Server {
	return &Server{
		dashboard: d,
		logger:    logger.OrNop(l),
	}
}

// Router returns a gin engine with the middleware chain and all routes
func (s *Server) Router(maxBodyBytes int64) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		AccessLogMiddleware(s.logger),
		CORSMiddleware(),
		RequestSizeLimitMiddleware(maxBodyBytes),
	)
	SetupRoutes(router, s)
	return router
}

// SetupRoutes defines all the dashboard API routes
func SetupRoutes(router gin.IRouter, s *Server) {
	router.GET("/", s.RootHandler)
	router.GET("/health", s.HealthCheckHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiRoutes := router.Group("/api")
	{
		apiRoutes.GET("/state", s.GetStateHandler)
		apiRoutes.PUT("/job-description", s.SetJobDescriptionHandler)

		apiRoutes.POST("/files", s.UploadFilesHandler)
		apiRoutes.GET("/files", s.ListFilesHandler)
		apiRoutes.DELETE("/files", s.ClearFilesHandler)
		apiRoutes.DELETE("/files/:name", s.DeleteFileHandler)

		apiRoutes.POST("/rank", s.RankHandler)
		apiRoutes.POST("/rank/cancel", s.CancelHandler)

		apiRoutes.GET("/candidates", s.ListCandidatesHandler)
		apiRoutes.GET("/candidates/:id", s.GetCandidateHandler)
		apiRoutes.POST("/candidates/:id/compare", s.ToggleComparisonHandler)
		apiRoutes.GET("/comparison", s.GetComparisonHandler)

		apiRoutes.GET("/summary", s.SummaryHandler)
		apiRoutes.GET("/export.xlsx", s.ExportHandler)
		apiRoutes.POST("/reset", s.ResetHandler)
	}
}

// RootHandler lists the available endpoints
func (s *Server) RootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Resume Screening Dashboard",
		"version": "1.0.0",
		"endpoints": gin.H{
			"GET /api/state":                   "Current dashboard state",
			"PUT /api/job-description":         "Set the job description",
			"POST /api/files":                  "Add resume files (multipart field 'files')",
			"GET /api/files":                   "List selected files",
			"DELETE /api/files/:name":          "Remove a selected file",
			"POST /api/rank":                   "Rank the selected resumes against the job description",
			"POST /api/rank/cancel":            "Cancel the ranking request in flight",
			"GET /api/candidates":              "Ranked candidates",
			"GET /api/candidates/:id":          "Candidate detail",
			"POST /api/candidates/:id/compare": "Toggle a candidate in the comparison",
			"GET /api/summary":                 "Result statistics",
			"GET /api/export.xlsx":             "Download results as Excel",
			"POST /api/reset":                  "Start a new analysis",
			"GET /metrics":                     "Prometheus metrics",
			"GET /health":                      "Health check",
		},
	})
}

// HealthCheckHandler provides a health check endpoint
func (s *Server) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// GetStateHandler returns the full dashboard snapshot
func (s *Server) GetStateHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.dashboard.Snapshot())
}

// JobDescriptionRequest is the body of PUT /api/job-description
type JobDescriptionRequest struct {
	JobDescription *string `json:"job_description" binding:"required"`
}

// SetJobDescriptionHandler replaces the job description
func (s *Server) SetJobDescriptionHandler(c *gin.Context) {
	var req JobDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBindError(c, err)
		return
	}

	s.dashboard.SetJobDescription(*req.JobDescription)
	c.JSON(http.StatusOK, gin.H{
		"job_description_chars":     utf8.RuneCountInString(*req.JobDescription),
		"min_job_description_chars": s.dashboard.Options().MinJobDescriptionChars,
		"can_process":               s.dashboard.CanProcess(),
	})
}

// SkippedFile is an upload that was not added to the selection
type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// UploadFilesHandler adds every PDF or ZIP in the multipart 'files' field.
// Other files are skipped and reported back.
func (s *Server) UploadFilesHandler(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			SendError(c, http.StatusRequestEntityTooLarge, ErrorCodeRequestTooLarge, "Request body too large")
			return
		}
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "Expected a multipart form: "+err.Error())
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "At least one file is required in the 'files' field")
		return
	}

	added := make([]string, 0, len(headers))
	skipped := make([]SkippedFile, 0)
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "Failed to open uploaded file "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "Failed to read uploaded file "+fh.Filename)
			return
		}

		err = s.dashboard.AddFile(models.ResumeFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
		if errors.Is(err, apperrors.ErrValidation) {
			s.logger.Info("Skipping unsupported file", zap.String("file", fh.Filename))
			skipped = append(skipped, SkippedFile{Name: fh.Filename, Reason: "not a PDF or ZIP file"})
			continue
		}
		if err != nil {
			SendDashboardError(c, err)
			return
		}
		added = append(added, fh.Filename)
	}

	c.JSON(http.StatusOK, gin.H{
		"added":   added,
		"skipped": skipped,
		"files":   s.dashboard.Files(),
	})
}

// ListFilesHandler lists the selected files
func (s *Server) ListFilesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"files": s.dashboard.Files()})
}

// ClearFilesHandler drops the whole selection
func (s *Server) ClearFilesHandler(c *gin.Context) {
	s.dashboard.ClearFiles()
	c.JSON(http.StatusOK, gin.H{"files": s.dashboard.Files()})
}

// DeleteFileHandler removes every selected file with the given name
func (s *Server) DeleteFileHandler(c *gin.Context) {
	name := c.Param("name")
	removed := s.dashboard.RemoveFile(name)
	if removed == 0 {
		SendError(c, http.StatusNotFound, ErrorCodeFileNotFound, "File '"+name+"' not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed, "files": s.dashboard.Files()})
}

// RankHandler runs one submission and waits for its outcome. The submission
// is cancelled if the client goes away.
func (s *Server) RankHandler(c *gin.Context) {
	candidates, err := s.dashboard.Submit(c.Request.Context())
	if err != nil {
		SendDashboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"candidates": candidates,
		"summary":    scoring.Summarize(candidates),
		"processing": s.dashboard.State(),
	})
}

// CancelHandler cancels the submission in flight, if any
func (s *Server) CancelHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": s.dashboard.Cancel()})
}

// ListCandidatesHandler returns the ranked list in server order
func (s *Server) ListCandidatesHandler(c *gin.Context) {
	candidates := s.dashboard.Candidates()
	c.JSON(http.StatusOK, gin.H{
		"candidates": candidates,
		"summary":    scoring.Summarize(candidates),
	})
}

// CandidateDetail is a candidate with its presentation fields
type CandidateDetail struct {
	models.Candidate
	Rank     int                 `json:"rank"`
	Band     scoring.Band        `json:"band"`
	Contact  models.ContactLinks `json:"contact"`
	Compared bool                `json:"compared"`
}

// GetCandidateHandler returns one candidate by id
func (s *Server) GetCandidateHandler(c *gin.Context) {
	id := c.Param("id")
	detail, ok := s.candidateDetail(id)
	if !ok {
		SendCandidateNotFoundError(c, id)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) candidateDetail(id string) (CandidateDetail, bool) {
	for i, candidate := range s.dashboard.Candidates() {
		if candidate.ID != id {
			continue
		}
		detail := CandidateDetail{
			Candidate: candidate,
			Rank:      i + 1,
			Band:      scoring.BandFor(candidate.FitScore),
			Contact:   candidate.ContactLinks(),
		}
		for _, compared := range s.dashboard.Comparison() {
			if compared == id {
				detail.Compared = true
			}
		}
		return detail, true
	}
	return CandidateDetail{}, false
}

// ToggleComparisonHandler adds or removes a candidate from the comparison
func (s *Server) ToggleComparisonHandler(c *gin.Context) {
	selected, err := s.dashboard.ToggleComparison(c.Param("id"))
	if err != nil {
		SendDashboardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"selected":   selected,
		"comparison": s.dashboard.Comparison(),
	})
}

// GetComparisonHandler returns the candidates selected for comparison
func (s *Server) GetComparisonHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"candidates":     s.dashboard.ComparedCandidates(),
		"max_comparison": s.dashboard.Options().MaxComparison,
	})
}

// SummaryHandler returns aggregate statistics for the ranked list
func (s *Server) SummaryHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.dashboard.Summary())
}

// ExportHandler streams the ranked list as an Excel workbook
func (s *Server) ExportHandler(c *gin.Context) {
	candidates := s.dashboard.Candidates()
	if len(candidates) == 0 {
		SendError(c, http.StatusNotFound, ErrorCodeNoResults, "No ranked candidates to export")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteExcel(&buf, candidates, s.dashboard.JobDescription()); err != nil {
		s.logger.Error("Excel export failed", zap.Error(err))
		SendError(c, http.StatusInternalServerError, ErrorCodeExportFailed, "Failed to build Excel workbook")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ResetHandler returns the dashboard to its initial state
func (s *Server) ResetHandler(c *gin.Context) {
	s.dashboard.Reset()
	c.JSON(http.StatusOK, s.dashboard.Snapshot())
}
