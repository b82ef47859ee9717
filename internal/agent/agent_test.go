package agent

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "github.com/fmuoria/resume-screening-dashboard/internal/errors"
	"github.com/fmuoria/resume-screening-dashboard/internal/ingestion"
	"github.com/fmuoria/resume-screening-dashboard/internal/mockranker"
	"github.com/fmuoria/resume-screening-dashboard/internal/models"
	"github.com/fmuoria/resume-screening-dashboard/internal/ranking"
)

// fakeRanker records calls and answers with a canned result
type fakeRanker struct {
	calls      atomic.Int32
	candidates []models.Candidate
	err        error
	block      chan struct{}
	started    chan struct{}
	// beforeReturn runs after the ranking succeeds and before Rank returns
	beforeReturn func()

	mu      sync.Mutex
	jobDesc string
	archive *ingestion.Archive
}

func (f *fakeRanker) Rank(ctx context.Context, jobDesc string, archive *ingestion.Archive) ([]models.Candidate, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.jobDesc = jobDesc
	f.archive = archive
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, apperrors.NewNetworkError(ctx.Err(), false)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.beforeReturn != nil {
		f.beforeReturn()
	}
	return f.candidates, nil
}

var fastSteps = []Step{
	{Stage: models.StageUpload, Progress: 0, Duration: time.Millisecond},
	{Stage: models.StageScreening, Progress: 25, Duration: time.Millisecond},
	{Stage: models.StageAnalysis, Progress: 50, Duration: time.Millisecond},
	{Stage: models.StageComplete, Progress: 100, Duration: 0},
}

func threeCandidates() []models.Candidate {
	return []models.Candidate{
		{ID: "b.pdf", Name: "B", FitScore: 70},
		{ID: "a.pdf", Name: "A", FitScore: 95},
		{ID: "c.pdf", Name: "C", FitScore: 50},
		{ID: "d.pdf", Name: "D", FitScore: 40},
	}
}

func newTestDashboard(t *testing.T, ranker Ranker) *Dashboard {
	t.Helper()
	return NewDashboard(ranker, Options{Steps: fastSteps}, zaptest.NewLogger(t))
}

func pdf(name string) models.ResumeFile {
	return models.ResumeFile{Name: name, ContentType: ingestion.MIMEPDF, Data: []byte("%PDF-1.4 " + name)}
}

func readyDashboard(t *testing.T, ranker Ranker) *Dashboard {
	t.Helper()
	d := newTestDashboard(t, ranker)
	d.SetJobDescription(strings.Repeat("a", 500))
	require.NoError(t, d.AddFile(pdf("a.pdf")))
	return d
}

func TestSubmissionGates(t *testing.T) {
	tests := []struct {
		name      string
		jobDesc   string
		files     []models.ResumeFile
		wantField string
	}{
		{"499 characters", strings.Repeat("a", 499), []models.ResumeFile{pdf("a.pdf")}, "job_desc"},
		{"no files", strings.Repeat("a", 500), nil, "files"},
		{"empty", "", nil, "job_desc"},
		{"ready", strings.Repeat("a", 500), []models.ResumeFile{pdf("a.pdf")}, ""},
		{"multibyte characters counted once", strings.Repeat("é", 500), []models.ResumeFile{pdf("a.pdf")}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranker := &fakeRanker{candidates: threeCandidates()}
			d := newTestDashboard(t, ranker)
			d.SetJobDescription(tt.jobDesc)
			for _, f := range tt.files {
				require.NoError(t, d.AddFile(f))
			}

			if tt.wantField == "" {
				assert.True(t, d.CanProcess())
				assert.NoError(t, d.Validate())
				return
			}

			assert.False(t, d.CanProcess())

			_, err := d.Submit(context.Background())
			require.Error(t, err)
			var verr *apperrors.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Equal(t, int32(0), ranker.calls.Load(), "no network call on validation failure")
		})
	}
}

func TestSubmitSuccessKeepsServerOrder(t *testing.T) {
	ranker := &fakeRanker{candidates: threeCandidates()}
	d := readyDashboard(t, ranker)
	require.NoError(t, d.AddFile(pdf("b.pdf")))

	candidates, err := d.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, candidates, 4)
	assert.Equal(t, "b.pdf", candidates[0].ID)
	assert.Equal(t, "b.pdf", d.Candidates()[0].ID)

	top, ok := d.TopCandidate()
	require.True(t, ok)
	assert.Equal(t, "b.pdf", top.ID)

	state := d.State()
	assert.False(t, state.IsProcessing)
	assert.Equal(t, models.StageComplete, state.Stage)
	assert.Equal(t, 100, state.Progress)
	assert.Greater(t, state.Timings.Total, 0.0)
	assert.GreaterOrEqual(t, state.Timings.Total, state.Timings.Upload)

	ranker.mu.Lock()
	defer ranker.mu.Unlock()
	assert.Equal(t, strings.Repeat("a", 500), ranker.jobDesc)
	require.NotNil(t, ranker.archive)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, ranker.archive.Entries)
}

func TestSubmitFailureLeavesNoCandidates(t *testing.T) {
	ranker := &fakeRanker{err: apperrors.NewServerError(500, `{"detail":"parse failure"}`)}
	d := readyDashboard(t, ranker)

	candidates, err := d.Submit(context.Background())
	require.Error(t, err)
	assert.Nil(t, candidates)
	assert.True(t, errors.Is(err, apperrors.ErrServer))

	assert.Empty(t, d.Candidates())
	state := d.State()
	assert.False(t, state.IsProcessing)
	assert.Equal(t, models.InitialProcessingState().Stage, state.Stage)
	assert.True(t, errors.Is(d.LastError(), apperrors.ErrServer))
	assert.Equal(t, "server", d.Snapshot().LastError)

	// the user can retry
	assert.True(t, d.CanProcess())
	ranker.err = nil
	ranker.candidates = threeCandidates()
	_, err = d.Submit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, d.LastError())
}

func TestFailedResubmissionClearsPreviousCandidates(t *testing.T) {
	ranker := &fakeRanker{candidates: threeCandidates()}
	d := readyDashboard(t, ranker)

	_, err := d.Submit(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, d.Candidates())

	ranker.err = apperrors.NewProtocolError("not an array", nil)
	_, err = d.Submit(context.Background())
	require.Error(t, err)
	assert.Empty(t, d.Candidates())
}

func TestSubmitWhileBusy(t *testing.T) {
	ranker := &fakeRanker{candidates: threeCandidates(), block: make(chan struct{}), started: make(chan struct{})}
	d := readyDashboard(t, ranker)

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background())
		done <- err
	}()
	<-ranker.started

	assert.True(t, d.State().IsProcessing)
	assert.False(t, d.CanProcess())

	_, err := d.Submit(context.Background())
	assert.True(t, IsBusy(err))
	assert.Equal(t, int32(1), ranker.calls.Load())

	close(ranker.block)
	require.NoError(t, <-done)
	assert.False(t, d.State().IsProcessing)
	assert.True(t, d.CanProcess())
}

func TestCancelInFlightSubmission(t *testing.T) {
	ranker := &fakeRanker{block: make(chan struct{}), started: make(chan struct{})}
	d := readyDashboard(t, ranker)

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background())
		done <- err
	}()
	<-ranker.started

	assert.True(t, d.Cancel())
	err := <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNetwork))
	assert.False(t, d.State().IsProcessing)
	assert.False(t, d.Cancel())
}

func TestResetDuringSubmissionDiscardsOutcome(t *testing.T) {
	ranker := &fakeRanker{candidates: threeCandidates(), block: make(chan struct{}), started: make(chan struct{})}
	d := readyDashboard(t, ranker)

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background())
		done <- err
	}()
	<-ranker.started

	d.Reset()
	<-done

	snap := d.Snapshot()
	assert.Empty(t, snap.JobDescription)
	assert.Empty(t, snap.Files)
	assert.Empty(t, snap.Candidates)
	assert.Empty(t, snap.LastError)
	assert.Equal(t, models.InitialProcessingState(), snap.Processing)
}

func TestResetAfterRankingReturnsNoCandidates(t *testing.T) {
	ranker := &fakeRanker{candidates: threeCandidates()}
	d := readyDashboard(t, ranker)
	ranker.beforeReturn = d.Reset

	candidates, err := d.Submit(context.Background())
	require.Error(t, err)
	assert.Nil(t, candidates)
	assert.True(t, errors.Is(err, apperrors.ErrNetwork))
	assert.True(t, errors.Is(err, context.Canceled))

	assert.Empty(t, d.Candidates())
	assert.Nil(t, d.LastError())
	assert.Equal(t, models.InitialProcessingState(), d.State())
}

func TestResetRestoresInitialState(t *testing.T) {
	ranker := &fakeRanker{candidates: threeCandidates()}
	d := readyDashboard(t, ranker)

	_, err := d.Submit(context.Background())
	require.NoError(t, err)
	_, err = d.ToggleComparison("a.pdf")
	require.NoError(t, err)
	require.NoError(t, d.SelectCandidate("a.pdf"))
	d.SetShowComparison(true)

	d.Reset()

	fresh := newTestDashboard(t, ranker).Snapshot()
	assert.Equal(t, fresh, d.Snapshot())
	_, ok := d.TopCandidate()
	assert.False(t, ok)
	_, ok = d.SelectedCandidate()
	assert.False(t, ok)
}

func TestToggleComparison(t *testing.T) {
	ranker := &fakeRanker{candidates: threeCandidates()}
	d := readyDashboard(t, ranker)
	_, err := d.Submit(context.Background())
	require.NoError(t, err)

	for _, id := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		selected, err := d.ToggleComparison(id)
		require.NoError(t, err)
		assert.True(t, selected)
	}

	// a fourth selection is ignored
	selected, err := d.ToggleComparison("d.pdf")
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, d.Comparison())

	// toggling an existing id removes it
	selected, err = d.ToggleComparison("b.pdf")
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Equal(t, []string{"a.pdf", "c.pdf"}, d.Comparison())

	compared := d.ComparedCandidates()
	require.Len(t, compared, 2)
	assert.Equal(t, "A", compared[0].Name)

	_, err = d.ToggleComparison("missing.pdf")
	assert.True(t, errors.Is(err, apperrors.ErrCandidateNotFound))
}

func TestSelectCandidate(t *testing.T) {
	ranker := &fakeRanker{candidates: threeCandidates()}
	d := readyDashboard(t, ranker)
	_, err := d.Submit(context.Background())
	require.NoError(t, err)

	require.NoError(t, d.SelectCandidate("c.pdf"))
	c, ok := d.SelectedCandidate()
	require.True(t, ok)
	assert.Equal(t, "C", c.Name)

	assert.True(t, errors.Is(d.SelectCandidate("nope.pdf"), apperrors.ErrCandidateNotFound))

	require.NoError(t, d.SelectCandidate(""))
	_, ok = d.SelectedCandidate()
	assert.False(t, ok)

	_, err = d.Candidate("nope.pdf")
	assert.True(t, errors.Is(err, apperrors.ErrCandidateNotFound))
}

func TestCandidatesReturnsCopy(t *testing.T) {
	ranker := &fakeRanker{candidates: threeCandidates()}
	d := readyDashboard(t, ranker)
	_, err := d.Submit(context.Background())
	require.NoError(t, err)

	got := d.Candidates()
	got[0].Name = "changed"
	assert.Equal(t, "B", d.Candidates()[0].Name)
}

func TestProgressCallbackSeesStages(t *testing.T) {
	ranker := &fakeRanker{candidates: threeCandidates()}
	d := readyDashboard(t, ranker)

	var mu sync.Mutex
	var states []models.ProcessingState
	d.SetProgressCallback(func(s models.ProcessingState) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	_, err := d.Submit(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.True(t, states[0].IsProcessing)
	assert.Equal(t, models.StageUpload, states[0].Stage)
	last := states[len(states)-1]
	assert.False(t, last.IsProcessing)
	assert.Equal(t, models.StageComplete, last.Stage)
}

func TestFilesInfoFlagsOversized(t *testing.T) {
	d := NewDashboard(&fakeRanker{}, Options{MaxFileSize: 10, Steps: fastSteps}, nil)
	require.NoError(t, d.AddFile(pdf("large.pdf")))

	files := d.Files()
	require.Len(t, files, 1)
	assert.True(t, files[0].Oversized)

	assert.Equal(t, 1, d.RemoveFile("large.pdf"))
	assert.Empty(t, d.Files())
}

type fakeSource struct {
	files []models.ResumeFile
	err   error
}

func (f fakeSource) FetchResumes(ctx context.Context, subject string, progress ingestion.ProgressFunc) ([]models.ResumeFile, error) {
	return f.files, f.err
}

func TestImportAttachments(t *testing.T) {
	d := newTestDashboard(t, &fakeRanker{})

	added, err := d.ImportAttachments(context.Background(), fakeSource{files: []models.ResumeFile{
		pdf("Jane_cv.pdf"),
		{Name: "Jane_photo.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}},
	}}, "Application", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Len(t, d.Files(), 1)

	_, err = d.ImportAttachments(context.Background(), fakeSource{err: errors.New("no messages")}, "Application", nil)
	assert.Error(t, err)
}

func TestSubmitAgainstMockRankerService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := httptest.NewServer(mockranker.NewRouter(mockranker.New(nil)))
	defer server.Close()

	client := ranking.NewClient(ranking.Config{BaseURL: server.URL, Timeout: 5 * time.Second}, zaptest.NewLogger(t))
	d := readyDashboard(t, client)
	require.NoError(t, d.AddFile(pdf("b.pdf")))

	candidates, err := d.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "a.pdf", candidates[0].ID)
	assert.Equal(t, "b.pdf", candidates[1].ID)
}

func TestDuplicateFileNamesReachRankerOnce(t *testing.T) {
	ranker := &fakeRanker{candidates: threeCandidates()}
	d := readyDashboard(t, ranker)
	require.NoError(t, d.AddFile(models.ResumeFile{Name: "a.pdf", ContentType: ingestion.MIMEPDF, Data: []byte("%PDF-1.4 newer")}))

	_, err := d.Submit(context.Background())
	require.NoError(t, err)

	ranker.mu.Lock()
	archive := ranker.archive
	ranker.mu.Unlock()
	require.NotNil(t, archive)

	zr, err := zip.NewReader(bytes.NewReader(archive.Data), archive.Size())
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
}

func TestSetRanker(t *testing.T) {
	first := &fakeRanker{candidates: threeCandidates(), block: make(chan struct{}), started: make(chan struct{})}
	d := readyDashboard(t, first)

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background())
		done <- err
	}()
	<-first.started

	second := &fakeRanker{candidates: threeCandidates()[:1]}
	assert.True(t, IsBusy(d.SetRanker(second)))

	close(first.block)
	require.NoError(t, <-done)

	require.NoError(t, d.SetRanker(second))
	candidates, err := d.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
	assert.Equal(t, int32(1), second.calls.Load())
}
