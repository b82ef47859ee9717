package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/fmuoria/resume-screening-dashboard/internal/errors"
	"github.com/fmuoria/resume-screening-dashboard/internal/ingestion"
	"github.com/fmuoria/resume-screening-dashboard/internal/logger"
	"github.com/fmuoria/resume-screening-dashboard/internal/models"
	"github.com/fmuoria/resume-screening-dashboard/internal/scoring"
)

const (
	DefaultMinJobDescriptionChars = 500
	DefaultMaxComparison          = 3
)

// Ranker performs the remote ranking round trip
type Ranker interface {
	Rank(ctx context.Context, jobDesc string, archive *ingestion.Archive) ([]models.Candidate, error)
}

// AttachmentSource supplies resume files from outside the file picker, e.g. Gmail
type AttachmentSource interface {
	FetchResumes(ctx context.Context, subject string, progress ingestion.ProgressFunc) ([]models.ResumeFile, error)
}

// ProgressCallback is called whenever the processing state changes
type ProgressCallback func(state models.ProcessingState)

// Options holds the submission gates and indicator timings
type Options struct {
	MinJobDescriptionChars int
	MaxComparison          int
	MaxFileSize            int64
	Steps                  []Step
}

func (o *Options) applyDefaults() {
	if o.MinJobDescriptionChars <= 0 {
		o.MinJobDescriptionChars = DefaultMinJobDescriptionChars
	}
	if o.MaxComparison <= 0 {
		o.MaxComparison = DefaultMaxComparison
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = ingestion.MaxFileSize
	}
	if o.Steps == nil {
		o.Steps = DefaultSteps()
	}
}

// Snapshot is a consistent copy of the dashboard state
type Snapshot struct {
	JobDescription         string                 `json:"job_description"`
	JobDescriptionChars    int                    `json:"job_description_chars"`
	MinJobDescriptionChars int                    `json:"min_job_description_chars"`
	Files                  []models.FileInfo      `json:"files"`
	Candidates             []models.Candidate     `json:"candidates"`
	Comparison             []string               `json:"comparison"`
	SelectedCandidate      string                 `json:"selected_candidate,omitempty"`
	ShowComparison         bool                   `json:"show_comparison"`
	Processing             models.ProcessingState `json:"processing"`
	CanProcess             bool                   `json:"can_process"`
	LastError              string                 `json:"last_error,omitempty"`
}

// Dashboard is the screening session: inputs, the last ranked result and
// the processing state. It is safe for concurrent use; getters return copies.
type Dashboard struct {
	mu sync.RWMutex

	files    *ingestion.FileHandler
	packager *ingestion.Packager
	ranker   Ranker
	logger   *zap.Logger
	opts     Options
	validate *validator.Validate

	jobDescription string
	candidates     []models.Candidate
	comparison     []string
	selectedID     string
	showComparison bool
	state          models.ProcessingState
	lastErr        error
	stageEntered   map[models.ProcessingStage]time.Time

	// generation invalidates an in-flight submission after Reset
	generation uint64
	cancel     context.CancelFunc
	progressCb ProgressCallback
}

// NewDashboard creates an empty session
func NewDashboard(ranker Ranker, opts Options, l *zap.Logger) *Dashboard {
	opts.applyDefaults()
	l = logger.OrNop(l)

	return &Dashboard{
		files:    ingestion.NewFileHandler(),
		packager: ingestion.NewPackager(l),
		ranker:   ranker,
		logger:   l,
		opts:     opts,
		validate: validator.New(),
		state:    models.InitialProcessingState(),
	}
}

// SetRanker swaps the ranking backend, e.g. after the service URL changes.
// It fails with ErrBusy while a submission is running.
func (d *Dashboard) SetRanker(r Ranker) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.IsProcessing {
		return apperrors.ErrBusy
	}
	d.ranker = r
	return nil
}

// SetProgressCallback sets the progress callback function
func (d *Dashboard) SetProgressCallback(cb ProgressCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.progressCb = cb
}

func (d *Dashboard) reportProgress(state models.ProcessingState) {
	d.mu.RLock()
	cb := d.progressCb
	d.mu.RUnlock()

	if cb != nil {
		cb(state)
	}
}

// Options returns the effective options
func (d *Dashboard) Options() Options {
	return d.opts
}

// SetJobDescription replaces the job description text
func (d *Dashboard) SetJobDescription(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobDescription = text
}

// JobDescription returns the current job description
func (d *Dashboard) JobDescription() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.jobDescription
}

// AddFile adds a PDF or ZIP to the selection
func (d *Dashboard) AddFile(file models.ResumeFile) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.files.Add(file)
}

// RemoveFile removes every selected file with that name
func (d *Dashboard) RemoveFile(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.files.Remove(name)
}

// ClearFiles empties the selection
func (d *Dashboard) ClearFiles() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files.Clear()
}

// LoadDir adds the accepted files in dir and returns the skipped names
func (d *Dashboard) LoadDir(dir string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.files.LoadDir(dir)
}

// Files describes the selection, flagging files above the advisory size
func (d *Dashboard) Files() []models.FileInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.files.Info(d.opts.MaxFileSize)
}

// ImportAttachments adds the PDF and ZIP attachments from source and
// returns how many were added.
func (d *Dashboard) ImportAttachments(ctx context.Context, source AttachmentSource, subject string, progress ingestion.ProgressFunc) (int, error) {
	files, err := source.FetchResumes(ctx, subject, progress)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch attachments: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	added := 0
	for _, f := range files {
		if err := d.files.Add(f); err != nil {
			d.logger.Debug("Skipping attachment", zap.String("file", f.Name), zap.Error(err))
			continue
		}
		added++
	}
	return added, nil
}

// CanProcess reports whether Submit would pass validation right now
func (d *Dashboard) CanProcess() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !d.state.IsProcessing && d.validateLocked() == nil
}

// Validate returns a ValidationError naming the first unmet submission gate
func (d *Dashboard) Validate() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.validateLocked()
}

func (d *Dashboard) validateLocked() error {
	// validator's min counts runes, matching the character counter
	if err := d.validate.Var(d.jobDescription, fmt.Sprintf("min=%d", d.opts.MinJobDescriptionChars)); err != nil {
		return apperrors.NewValidationError("job_desc", fmt.Sprintf(
			"job description must be at least %d characters (currently %d)",
			d.opts.MinJobDescriptionChars, utf8.RuneCountInString(d.jobDescription)))
	}
	if err := d.validate.Var(d.files.Len(), "gte=1"); err != nil {
		return apperrors.NewValidationError("files", "at least one resume file is required")
	}
	return nil
}

// Submit packages the selection and ranks it. On success the candidates are
// stored in server order; on failure no candidates are kept and the error is
// returned. Only one submission runs at a time.
func (d *Dashboard) Submit(ctx context.Context) ([]models.Candidate, error) {
	d.mu.Lock()
	if err := d.validateLocked(); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	if d.state.IsProcessing {
		d.mu.Unlock()
		return nil, apperrors.ErrBusy
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.generation++
	gen := d.generation
	d.cancel = cancel
	req := models.RankRequest{JobDescription: d.jobDescription, Files: d.files.Files()}
	ranker := d.ranker

	started := time.Now()
	d.candidates = nil
	d.comparison = nil
	d.selectedID = ""
	d.showComparison = false
	d.lastErr = nil
	d.stageEntered = map[models.ProcessingStage]time.Time{models.StageUpload: started}
	d.state = models.ProcessingState{IsProcessing: true, Stage: models.StageUpload, StartedAt: started}
	state := d.state
	d.mu.Unlock()

	d.reportProgress(state)
	log := d.logger.With(zap.Int("files", len(req.Files)), zap.Int("job_desc_chars", utf8.RuneCountInString(req.JobDescription)))

	archive, err := d.packager.Package(req.Files)
	if err != nil {
		log.Error("Failed to package resumes", zap.Error(err))
		d.fail(gen, err)
		return nil, err
	}

	if oversized := ingestion.Oversized(req.Files, d.opts.MaxFileSize); len(oversized) > 0 {
		log.Warn("Files exceed the advisory size limit", zap.Strings("files", oversized))
	}

	progress := NewProgressSequence(d.opts.Steps, func(step Step) {
		d.advance(gen, step)
	})
	progress.Start(ctx)

	candidates, err := ranker.Rank(ctx, req.JobDescription, archive)
	if err != nil {
		progress.Stop()
		log.Error("Ranking failed", zap.String("category", apperrors.Category(err)), zap.Error(err))
		d.fail(gen, err)
		return nil, err
	}

	progress.Complete()
	if !d.complete(gen, candidates, started) {
		log.Info("Ranking result discarded after reset", zap.Int("candidates", len(candidates)))
		return nil, apperrors.NewNetworkError(context.Canceled, false)
	}
	log.Info("Ranking complete",
		zap.Int("candidates", len(candidates)),
		zap.Duration("elapsed", time.Since(started)))

	return copyCandidates(candidates), nil
}

// advance applies an indicator step if the submission is still current
func (d *Dashboard) advance(gen uint64, step Step) {
	d.mu.Lock()
	if gen != d.generation || !d.state.IsProcessing {
		d.mu.Unlock()
		return
	}
	if _, ok := d.stageEntered[step.Stage]; !ok {
		d.stageEntered[step.Stage] = time.Now()
	}
	d.state.Stage = step.Stage
	d.state.Progress = step.Progress
	state := d.state
	d.mu.Unlock()

	d.reportProgress(state)
}

func (d *Dashboard) fail(gen uint64, err error) {
	d.mu.Lock()
	if gen != d.generation {
		d.mu.Unlock()
		return
	}
	d.candidates = nil
	d.lastErr = err
	d.cancel = nil
	d.state = models.InitialProcessingState()
	state := d.state
	d.mu.Unlock()

	d.reportProgress(state)
}

// complete stores the ranking and reports whether the submission was still current
func (d *Dashboard) complete(gen uint64, candidates []models.Candidate, started time.Time) bool {
	d.mu.Lock()
	if gen != d.generation {
		d.mu.Unlock()
		return false
	}
	finished := time.Now()
	d.candidates = copyCandidates(candidates)
	d.cancel = nil
	d.state = models.ProcessingState{
		IsProcessing: false,
		Stage:        models.StageComplete,
		Progress:     100,
		Timings:      stageTimings(d.stageEntered, started, finished),
		StartedAt:    started,
	}
	state := d.state
	d.mu.Unlock()

	d.reportProgress(state)
	return true
}

// stageTimings converts stage entry times into seconds per stage
func stageTimings(entered map[models.ProcessingStage]time.Time, started, finished time.Time) models.StageTimings {
	order := []models.ProcessingStage{models.StageUpload, models.StageScreening, models.StageAnalysis}
	spent := make(map[models.ProcessingStage]float64, len(order))

	for i, stage := range order {
		from, ok := entered[stage]
		if !ok {
			continue
		}
		if stage == models.StageUpload {
			from = started
		}
		to := finished
		for _, next := range order[i+1:] {
			if t, ok := entered[next]; ok {
				to = t
				break
			}
		}
		if complete, ok := entered[models.StageComplete]; ok && complete.Before(to) {
			to = complete
		}
		spent[stage] = to.Sub(from).Seconds()
	}

	return models.StageTimings{
		Upload:    spent[models.StageUpload],
		Screening: spent[models.StageScreening],
		Analysis:  spent[models.StageAnalysis],
		Total:     finished.Sub(started).Seconds(),
	}
}

// Cancel aborts the in-flight submission, if any
func (d *Dashboard) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel == nil {
		return false
	}
	d.cancel()
	return true
}

// Reset restores every field to its initial value. An in-flight submission
// is cancelled and its outcome discarded.
func (d *Dashboard) Reset() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.generation++
	d.jobDescription = ""
	d.files.Clear()
	d.candidates = nil
	d.comparison = nil
	d.selectedID = ""
	d.showComparison = false
	d.lastErr = nil
	d.stageEntered = nil
	d.state = models.InitialProcessingState()
	state := d.state
	d.mu.Unlock()

	d.reportProgress(state)
}

// State returns the processing state
func (d *Dashboard) State() models.ProcessingState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// LastError returns the error of the last failed submission
func (d *Dashboard) LastError() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// Candidates returns the ranked candidates in server order
func (d *Dashboard) Candidates() []models.Candidate {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyCandidates(d.candidates)
}

// Candidate looks a candidate up by id
func (d *Dashboard) Candidate(id string) (models.Candidate, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.candidateLocked(id)
}

func (d *Dashboard) candidateLocked(id string) (models.Candidate, error) {
	for _, c := range d.candidates {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Candidate{}, apperrors.NewCandidateNotFoundError(id)
}

// TopCandidate returns the first ranked candidate
func (d *Dashboard) TopCandidate() (models.Candidate, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.candidates) == 0 {
		return models.Candidate{}, false
	}
	return d.candidates[0], true
}

// Summary aggregates the current candidates
func (d *Dashboard) Summary() models.Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return scoring.Summarize(d.candidates)
}

// SelectCandidate sets the candidate shown in the detail panel; an empty id clears it
func (d *Dashboard) SelectCandidate(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id != "" {
		if _, err := d.candidateLocked(id); err != nil {
			return err
		}
	}
	d.selectedID = id
	return nil
}

// SelectedCandidate returns the candidate in the detail panel
func (d *Dashboard) SelectedCandidate() (models.Candidate, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.selectedID == "" {
		return models.Candidate{}, false
	}
	c, err := d.candidateLocked(d.selectedID)
	return c, err == nil
}

// ToggleComparison adds id to the comparison when absent and there is room,
// and removes it when present. It reports whether id is selected afterwards.
func (d *Dashboard) ToggleComparison(id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.candidateLocked(id); err != nil {
		return false, err
	}

	for i, existing := range d.comparison {
		if existing == id {
			d.comparison = append(d.comparison[:i:i], d.comparison[i+1:]...)
			return false, nil
		}
	}

	if len(d.comparison) >= d.opts.MaxComparison {
		return false, nil
	}
	d.comparison = append(d.comparison, id)
	return true, nil
}

// Comparison returns the ids selected for comparison, in selection order
func (d *Dashboard) Comparison() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.comparison))
	copy(out, d.comparison)
	return out
}

// ComparedCandidates returns the candidates selected for comparison
func (d *Dashboard) ComparedCandidates() []models.Candidate {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]models.Candidate, 0, len(d.comparison))
	for _, id := range d.comparison {
		if c, err := d.candidateLocked(id); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// SetShowComparison toggles the comparison view
func (d *Dashboard) SetShowComparison(show bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.showComparison = show
}

// Snapshot returns a consistent copy of the whole session
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	comparison := make([]string, len(d.comparison))
	copy(comparison, d.comparison)

	snap := Snapshot{
		JobDescription:         d.jobDescription,
		JobDescriptionChars:    utf8.RuneCountInString(d.jobDescription),
		MinJobDescriptionChars: d.opts.MinJobDescriptionChars,
		Files:                  d.files.Info(d.opts.MaxFileSize),
		Candidates:             copyCandidates(d.candidates),
		Comparison:             comparison,
		SelectedCandidate:      d.selectedID,
		ShowComparison:         d.showComparison,
		Processing:             d.state,
		CanProcess:             !d.state.IsProcessing && d.validateLocked() == nil,
	}
	if d.lastErr != nil {
		snap.LastError = apperrors.Category(d.lastErr)
	}
	return snap
}

func copyCandidates(in []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, len(in))
	copy(out, in)
	return out
}

// IsBusy reports whether err means a submission is already running
func IsBusy(err error) bool {
	return errors.Is(err, apperrors.ErrBusy)
}
