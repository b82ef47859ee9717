package gui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/fmuoria/resume-screening-dashboard/internal/agent"
	"github.com/fmuoria/resume-screening-dashboard/internal/config"
	apperrors "github.com/fmuoria/resume-screening-dashboard/internal/errors"
	"github.com/fmuoria/resume-screening-dashboard/internal/export"
	"github.com/fmuoria/resume-screening-dashboard/internal/ingestion"
	"github.com/fmuoria/resume-screening-dashboard/internal/logger"
	"github.com/fmuoria/resume-screening-dashboard/internal/models"
)

// RankerFactory builds a ranking backend from the current settings
type RankerFactory func(cfg config.RankingConfig) agent.Ranker

// App represents the main GUI application
type App struct {
	fyneApp    fyne.App
	mainWindow fyne.Window
	config     *config.Config
	dashboard  *agent.Dashboard
	newRanker  RankerFactory
	logger     *zap.Logger

	// UI Components
	jobDescText     *widget.Entry
	charCountLabel  *widget.Label
	filesList       *widget.List
	selectedFile    int
	subjectEntry    *widget.Entry
	importBtn       *widget.Button
	processBtn      *widget.Button
	cancelBtn       *widget.Button
	resetBtn        *widget.Button
	progressBar     *widget.ProgressBar
	progressLabel   *widget.Label
	timingsLabel    *widget.Label
	resultsTable    *widget.Table
	detail          *fyne.Container
	comparisonLabel *widget.Label
	exportBtn       *widget.Button

	files      []models.FileInfo
	candidates []models.Candidate
}

// NewApp creates the desktop dashboard on top of d
func NewApp(fa fyne.App, cfg *config.Config, d *agent.Dashboard, newRanker RankerFactory, l *zap.Logger) *App {
	w := fa.NewWindow("Resume Screening Dashboard")
	w.Resize(fyne.NewSize(1100, 760))

	a := &App{
		fyneApp:      fa,
		mainWindow:   w,
		config:       cfg,
		dashboard:    d,
		newRanker:    newRanker,
		logger:       logger.OrNop(l),
		selectedFile: -1,
	}

	a.setupUI()
	d.SetProgressCallback(func(state models.ProcessingState) {
		fyne.Do(func() { a.showProgress(state) })
	})
	a.refreshControls()

	return a
}

// Run starts the GUI application
func (a *App) Run() {
	a.mainWindow.ShowAndRun()
}

func (a *App) setupUI() {
	tabs := container.NewAppTabs(
		container.NewTabItem("Screen Resumes", a.createProcessTab()),
		container.NewTabItem("Settings", a.createSettingsTab()),
	)
	a.mainWindow.SetContent(tabs)
}

func (a *App) createProcessTab() fyne.CanvasObject {
	// Job description
	a.jobDescText = widget.NewMultiLineEntry()
	a.jobDescText.SetPlaceHolder("Paste the full job description here...")
	a.jobDescText.SetMinRowsVisible(6)
	a.jobDescText.Wrapping = fyne.TextWrapWord
	a.jobDescText.OnChanged = a.onJobDescriptionChanged
	a.charCountLabel = widget.NewLabel(charCountText(0, a.dashboard.Options().MinJobDescriptionChars))

	jobSection := container.NewVBox(
		widget.NewLabelWithStyle("Job Description", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		a.jobDescText,
		a.charCountLabel,
	)

	// Files
	a.filesList = widget.NewList(
		func() int { return len(a.files) },
		func() fyne.CanvasObject { return widget.NewLabel("Template") },
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if id < len(a.files) {
				item.(*widget.Label).SetText(fileLabel(a.files[id]))
			}
		},
	)
	a.filesList.OnSelected = func(id widget.ListItemID) { a.selectedFile = id }
	a.filesList.OnUnselected = func(widget.ListItemID) { a.selectedFile = -1 }

	addFileBtn := widget.NewButton("Add File...", a.handleAddFile)
	addFolderBtn := widget.NewButton("Add Folder...", a.handleAddFolder)
	removeBtn := widget.NewButton("Remove Selected", a.handleRemoveFile)
	clearBtn := widget.NewButton("Clear", func() {
		a.dashboard.ClearFiles()
		a.refreshFiles()
	})

	a.subjectEntry = widget.NewEntry()
	a.subjectEntry.SetPlaceHolder("Gmail subject, e.g. Job Application")
	a.importBtn = widget.NewButton("Import from Gmail", a.handleImport)

	filesSection := container.NewVBox(
		widget.NewLabelWithStyle("Resumes (PDF or ZIP)", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(addFileBtn, addFolderBtn, removeBtn, clearBtn),
		container.NewGridWrap(fyne.NewSize(900, 140), a.filesList),
		container.NewBorder(nil, nil, nil, a.importBtn, a.subjectEntry),
	)

	// Progress
	a.progressBar = widget.NewProgressBar()
	a.progressLabel = widget.NewLabel("Ready")
	a.timingsLabel = widget.NewLabel("")
	a.processBtn = widget.NewButton("Start Processing", a.handleProcess)
	a.cancelBtn = widget.NewButton("Cancel", a.handleCancel)
	a.resetBtn = widget.NewButton("Start New Analysis", a.handleReset)

	progressSection := container.NewVBox(
		a.progressLabel,
		a.progressBar,
		a.timingsLabel,
		container.NewHBox(a.processBtn, a.cancelBtn, a.resetBtn),
	)

	// Results
	headers := []string{"Rank", "Name", "Fit Score", "Similarity", "Band"}
	a.resultsTable = widget.NewTable(
		func() (int, int) { return len(a.candidates) + 1, len(headers) },
		func() fyne.CanvasObject { return widget.NewLabel("Template") },
		func(id widget.TableCellID, cell fyne.CanvasObject) {
			label := cell.(*widget.Label)
			if id.Row == 0 {
				label.TextStyle = fyne.TextStyle{Bold: true}
				label.SetText(headers[id.Col])
				return
			}
			label.TextStyle = fyne.TextStyle{}
			if id.Row-1 < len(a.candidates) {
				label.SetText(candidateRow(id.Row, a.candidates[id.Row-1])[id.Col])
			}
		},
	)
	for col, width := range []float32{60, 220, 90, 90, 80} {
		a.resultsTable.SetColumnWidth(col, width)
	}
	a.resultsTable.OnSelected = func(id widget.TableCellID) {
		if id.Row > 0 && id.Row-1 < len(a.candidates) {
			a.showCandidate(a.candidates[id.Row-1])
		}
	}

	a.detail = container.NewVBox(widget.NewLabel("Select a candidate to see details"))
	a.comparisonLabel = widget.NewLabel("")
	a.exportBtn = widget.NewButton("Export to Excel", a.handleExport)

	resultsSection := container.NewVBox(
		widget.NewLabelWithStyle("Results", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHSplit(
			container.NewGridWrap(fyne.NewSize(560, 320), a.resultsTable),
			container.NewVScroll(a.detail),
		),
		a.comparisonLabel,
		a.exportBtn,
	)

	return container.NewVScroll(container.NewVBox(
		jobSection,
		widget.NewSeparator(),
		filesSection,
		widget.NewSeparator(),
		progressSection,
		widget.NewSeparator(),
		resultsSection,
	))
}

func (a *App) createSettingsTab() fyne.CanvasObject {
	baseURLEntry := widget.NewEntry()
	baseURLEntry.SetText(a.config.Ranking.BaseURL)

	pathEntry := widget.NewEntry()
	pathEntry.SetText(a.config.Ranking.Path)

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(a.config.Ranking.Timeout.String())

	gmailCredsEntry := widget.NewEntry()
	gmailCredsEntry.SetText(a.config.Gmail.CredentialsPath)
	gmailCredsBtn := widget.NewButton("Browse...", func() {
		dialog.ShowFileOpen(func(uc fyne.URIReadCloser, err error) {
			if err == nil && uc != nil {
				gmailCredsEntry.SetText(uc.URI().Path())
				uc.Close()
			}
		}, a.mainWindow)
	})

	tokenEntry := widget.NewEntry()
	tokenEntry.SetText(a.config.Gmail.TokenPath)

	form := widget.NewForm(
		widget.NewFormItem("Ranking Service URL", baseURLEntry),
		widget.NewFormItem("Ranking Path", pathEntry),
		widget.NewFormItem("Request Timeout", timeoutEntry),
		widget.NewFormItem("Gmail Credentials", container.NewBorder(nil, nil, nil, gmailCredsBtn, gmailCredsEntry)),
		widget.NewFormItem("Gmail Token", tokenEntry),
	)

	saveBtn := widget.NewButton("Save Settings", func() {
		timeout, err := time.ParseDuration(strings.TrimSpace(timeoutEntry.Text))
		if err != nil {
			dialog.ShowError(fmt.Errorf("invalid timeout %q: use a duration like 300s", timeoutEntry.Text), a.mainWindow)
			return
		}

		updated := *a.config
		updated.Ranking.BaseURL = strings.TrimSpace(baseURLEntry.Text)
		updated.Ranking.Path = strings.TrimSpace(pathEntry.Text)
		updated.Ranking.Timeout = timeout
		updated.Gmail.CredentialsPath = strings.TrimSpace(gmailCredsEntry.Text)
		updated.Gmail.TokenPath = strings.TrimSpace(tokenEntry.Text)

		if err := a.applySettings(&updated); err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if err := a.config.Save(); err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}

		dialog.ShowInformation("Success", "Settings saved successfully", a.mainWindow)
	})

	testBtn := widget.NewButton("Check Settings", func() {
		if err := a.config.Validate(); err != nil {
			dialog.ShowError(fmt.Errorf("validation failed: %w", err), a.mainWindow)
			return
		}
		dialog.ShowInformation("Success", "Configuration is valid", a.mainWindow)
	})

	return container.NewVBox(
		form,
		container.NewHBox(saveBtn, testBtn),
	)
}

// applySettings validates cfg and points the dashboard at the new ranking
// service. The current config is left untouched on error.
func (a *App) applySettings(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if a.newRanker != nil {
		if err := a.dashboard.SetRanker(a.newRanker(cfg.Ranking)); err != nil {
			return errors.New("settings cannot change while a ranking request is running")
		}
	}
	*a.config = *cfg
	return nil
}

func (a *App) onJobDescriptionChanged(text string) {
	a.dashboard.SetJobDescription(text)
	a.charCountLabel.SetText(charCountText(utf8.RuneCountInString(text), a.dashboard.Options().MinJobDescriptionChars))
	a.refreshControls()
}

func (a *App) handleAddFile() {
	dialog.ShowFileOpen(func(uc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if uc == nil {
			return
		}
		defer uc.Close()

		data, err := io.ReadAll(uc)
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to read %s: %w", uc.URI().Name(), err), a.mainWindow)
			return
		}
		err = a.dashboard.AddFile(models.ResumeFile{
			Name:        uc.URI().Name(),
			ContentType: uc.URI().MimeType(),
			Data:        data,
		})
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		a.refreshFiles()
	}, a.mainWindow)
}

func (a *App) handleAddFolder() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if dir == nil {
			return
		}

		skipped, err := a.dashboard.LoadDir(dir.Path())
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		a.refreshFiles()
		if len(skipped) > 0 {
			dialog.ShowInformation("Some files skipped",
				fmt.Sprintf("Only PDF and ZIP files are added. Skipped:\n%s", strings.Join(skipped, "\n")), a.mainWindow)
		}
	}, a.mainWindow)
}

func (a *App) handleRemoveFile() {
	if a.selectedFile < 0 || a.selectedFile >= len(a.files) {
		return
	}
	a.dashboard.RemoveFile(a.files[a.selectedFile].Name)
	a.filesList.UnselectAll()
	a.refreshFiles()
}

// handleImport fetches PDF and ZIP attachments from Gmail. The OAuth flow
// may prompt on the console the first time.
func (a *App) handleImport() {
	subject := strings.TrimSpace(a.subjectEntry.Text)
	if subject == "" {
		dialog.ShowError(errors.New("please enter an email subject filter"), a.mainWindow)
		return
	}

	a.importBtn.Disable()
	a.progressLabel.SetText("Connecting to Gmail...")

	go func() {
		ctx := context.Background()
		added, err := a.importAttachments(ctx, subject)

		fyne.Do(func() {
			a.importBtn.Enable()
			if err != nil {
				a.progressLabel.SetText("Gmail import failed")
				dialog.ShowError(err, a.mainWindow)
				return
			}
			a.progressLabel.SetText(fmt.Sprintf("Imported %d attachments from Gmail", added))
			a.refreshFiles()
		})
	}()
}

func (a *App) importAttachments(ctx context.Context, subject string) (int, error) {
	handler, err := ingestion.NewGmailHandler(ctx, a.config.Gmail.CredentialsPath, a.config.Gmail.TokenPath, a.logger)
	if err != nil {
		return 0, err
	}
	return a.dashboard.ImportAttachments(ctx, handler, subject, func(fraction float64, message string) {
		fyne.Do(func() {
			a.progressBar.SetValue(fraction)
			a.progressLabel.SetText(message)
		})
	})
}

func (a *App) handleProcess() {
	if err := a.dashboard.Validate(); err != nil {
		dialog.ShowError(err, a.mainWindow)
		return
	}

	a.processBtn.Disable()
	a.cancelBtn.Enable()
	a.exportBtn.Disable()
	a.timingsLabel.SetText("")

	go func() {
		candidates, err := a.dashboard.Submit(context.Background())

		fyne.Do(func() {
			a.refreshResults()
			a.refreshControls()

			if err != nil {
				if errors.Is(err, context.Canceled) {
					a.progressLabel.SetText("Processing canceled")
					return
				}
				a.progressLabel.SetText("Processing failed, try again")
				a.logger.Warn("Submission failed", zap.String("category", apperrors.Category(err)), zap.Error(err))
				if !apperrors.IsRemote(err) {
					dialog.ShowError(err, a.mainWindow)
				}
				return
			}

			a.progressLabel.SetText(fmt.Sprintf("Complete! Ranked %d candidates", len(candidates)))
			a.timingsLabel.SetText(timingsText(a.dashboard.State().Timings))
			if len(candidates) > 0 {
				a.showCandidate(candidates[0])
			}

			a.fyneApp.SendNotification(&fyne.Notification{
				Title:   "Processing Complete",
				Content: fmt.Sprintf("Ranked %d candidates", len(candidates)),
			})
		})
	}()
}

func (a *App) handleCancel() {
	if a.dashboard.Cancel() {
		a.progressLabel.SetText("Canceling...")
	}
}

func (a *App) handleReset() {
	a.dashboard.Reset()
	a.jobDescText.SetText("")
	a.subjectEntry.SetText("")
	a.progressLabel.SetText("Ready")
	a.timingsLabel.SetText("")
	a.detail.Objects = []fyne.CanvasObject{widget.NewLabel("Select a candidate to see details")}
	a.detail.Refresh()
	a.refreshFiles()
	a.refreshResults()
}

func (a *App) handleExport() {
	candidates := a.dashboard.Candidates()
	if len(candidates) == 0 {
		dialog.ShowError(errors.New("no results to export"), a.mainWindow)
		return
	}

	timestamp := time.Now().Format("2006-01-02_150405")
	defaultName := fmt.Sprintf("Resume_Screening_Results_%s.xlsx", timestamp)

	save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if uc == nil {
			return
		}
		defer uc.Close()

		outputPath := uc.URI().Path()
		if err := export.ExportToExcel(candidates, a.dashboard.JobDescription(), outputPath); err != nil {
			dialog.ShowError(fmt.Errorf("failed to export: %w", err), a.mainWindow)
			return
		}
		dialog.ShowInformation("Success", "Results exported successfully to "+filepath.Base(outputPath), a.mainWindow)
	}, a.mainWindow)
	save.SetFileName(defaultName)
	save.Show()
}

func (a *App) showProgress(state models.ProcessingState) {
	a.progressBar.SetValue(float64(state.Progress) / 100)
	if state.IsProcessing {
		a.progressLabel.SetText(stageLabel(state.Stage))
	}
	a.refreshControls()
}

func (a *App) showCandidate(c models.Candidate) {
	if err := a.dashboard.SelectCandidate(c.ID); err != nil {
		return
	}

	objects := []fyne.CanvasObject{widget.NewRichTextFromMarkdown(candidateMarkdown(c))}

	links := c.ContactLinks()
	var contact []fyne.CanvasObject
	for _, l := range []struct{ label, uri string }{
		{"Email", links.Email},
		{"Call", links.Call},
		{"Text", links.Text},
	} {
		if l.uri == "" {
			continue
		}
		if u, err := url.Parse(l.uri); err == nil {
			contact = append(contact, widget.NewHyperlink(l.label, u))
		}
	}
	if len(contact) > 0 {
		objects = append(objects, container.NewHBox(contact...))
	}

	compareBtn := widget.NewButton("Toggle Compare", func() {
		if _, err := a.dashboard.ToggleComparison(c.ID); err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		a.refreshComparison()
	})
	objects = append(objects, compareBtn)

	a.detail.Objects = objects
	a.detail.Refresh()
}

func (a *App) refreshFiles() {
	a.files = a.dashboard.Files()
	a.filesList.Refresh()
	a.refreshControls()
}

func (a *App) refreshResults() {
	a.candidates = a.dashboard.Candidates()
	a.resultsTable.Refresh()
	a.refreshComparison()
}

func (a *App) refreshComparison() {
	var names []string
	for _, c := range a.dashboard.ComparedCandidates() {
		names = append(names, c.Name)
	}
	if len(names) == 0 {
		a.comparisonLabel.SetText("")
		return
	}
	a.comparisonLabel.SetText(fmt.Sprintf("Comparing (%d/%d): %s",
		len(names), a.dashboard.Options().MaxComparison, strings.Join(names, ", ")))
}

func (a *App) refreshControls() {
	processing := a.dashboard.State().IsProcessing
	setEnabled(a.processBtn, a.dashboard.CanProcess())
	setEnabled(a.cancelBtn, processing)
	setEnabled(a.resetBtn, !processing)
	setEnabled(a.exportBtn, !processing && len(a.candidates) > 0)
}

func setEnabled(b *widget.Button, enabled bool) {
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}
