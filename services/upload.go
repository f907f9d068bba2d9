package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services/backend"

	"go.uber.org/zap"
)

// CaseUploader sends a CSV of cases to the backend
type CaseUploader interface {
	Upload(ctx context.Context, filename string, file io.Reader) (*models.UploadResult, error)
}

// ImportRequest is one CSV/XLSX upload from the case allocation page
type ImportRequest struct {
	SessionID  string
	Actor      Actor
	FileName   string
	File       io.Reader
	AutoAssign bool
}

// ImportOutcome is everything a finished import produced
type ImportOutcome struct {
	File     *ImportFile
	Archived *ArchivedFile
	Result   *models.UploadResult
	Assign   *AssignOutcome

	// AssignErr is set when the auto-assign step after the import could not run
	AssignErr error
}

// Message is the text of the final toast
func (o *ImportOutcome) Message() string {
	msg := fmt.Sprintf("Imported %d cases", o.Result.CasesCreated)
	if o.Result.CasesCreated == 0 && o.File != nil {
		msg = fmt.Sprintf("Processed %d rows", o.File.Rows)
	}
	if skipped := len(o.Result.Errors); skipped > 0 {
		msg += fmt.Sprintf(", %d rows rejected", skipped)
	}
	switch {
	case o.AssignErr != nil:
		msg += ". Auto-assign failed: " + backend.UserMessage(o.AssignErr, "backend unavailable")
	case o.Assign != nil:
		msg += ". " + o.Assign.Summary()
	}
	return msg
}

// Degraded reports a finished import whose follow-up step went wrong
func (o *ImportOutcome) Degraded() bool {
	return o.AssignErr != nil || (o.Assign != nil && len(o.Assign.Failed) > 0)
}

// CaseImporter drives an upload through its progress phases:
// uploading, received, processing, optionally assigning, then done.
// Each phase is reflected in the session's ProgressStore and the result
// is announced through the ToastStore.
type CaseImporter struct {
	Uploader CaseUploader
	Progress *ProgressStore
	Toasts   *ToastStore

	// Optional collaborators
	Archive  ArchiveStore
	Assigner *AutoAssigner
	Audit    *AuditLogger

	Log *zap.Logger
	Now func() time.Time
}

func NewCaseImporter(uploader CaseUploader, progress *ProgressStore, toasts *ToastStore) *CaseImporter {
	return &CaseImporter{
		Uploader: uploader,
		Progress: progress,
		Toasts:   toasts,
		Log:      zap.L().Named("import"),
		Now:      time.Now,
	}
}

// Begin marks the session as uploading. Handlers call it before handing
// the rest of the import to a goroutine so the first poll sees progress.
func (im *CaseImporter) Begin(sessionID, fileName string) error {
	return im.Progress.Start(sessionID, fileName)
}

// Run finishes an import started with Begin. On failure the progress
// indicator is cleared and an error toast is shown.
func (im *CaseImporter) Run(ctx context.Context, req ImportRequest) (*ImportOutcome, error) {
	outcome, err := im.run(ctx, req)
	if err != nil {
		im.Progress.Reset(req.SessionID)
		im.Toasts.Error(req.SessionID, importErrorMessage(err))
		im.Log.Warn("import failed", zap.String("file", req.FileName), zap.Error(err))
		return nil, err
	}

	message := outcome.Message()
	im.Progress.SetMessage(req.SessionID, message)
	if err := im.Progress.Advance(req.SessionID, PhaseDone); err != nil {
		im.Log.Warn("progress not advanced", zap.Error(err))
	}
	if outcome.Degraded() {
		im.Toasts.Warning(req.SessionID, message)
	} else {
		im.Toasts.Success(req.SessionID, message)
	}

	if im.Audit != nil {
		im.Audit.Log(req.Actor, AuditEntry{
			Action:       models.AuditActionUpload,
			ResourceType: "Import",
			ResourceID:   outcome.File.Name,
			Description:  message,
		})
	}
	return outcome, nil
}

// Import is Begin followed by Run
func (im *CaseImporter) Import(ctx context.Context, req ImportRequest) (*ImportOutcome, error) {
	if err := im.Begin(req.SessionID, req.FileName); err != nil {
		return nil, err
	}
	return im.Run(ctx, req)
}

func (im *CaseImporter) run(ctx context.Context, req ImportRequest) (*ImportOutcome, error) {
	now := time.Now
	if im.Now != nil {
		now = im.Now
	}

	file, err := PrepareImport(req.FileName, req.File)
	if err != nil {
		return nil, err
	}
	outcome := &ImportOutcome{File: file}

	if im.Archive != nil {
		key := ImportArchiveKey(req.Actor.UserID, file.Name, now())
		archived, err := im.Archive.Put(ctx, key, bytes.NewReader(file.CSV), "text/csv", int64(len(file.CSV)))
		if err != nil {
			// the backend upload does not depend on the archive copy
			im.Log.Warn("failed to archive import", zap.String("key", key), zap.Error(err))
		} else {
			outcome.Archived = archived
		}
	}

	if err := im.Progress.Advance(req.SessionID, PhaseReceived); err != nil {
		return nil, err
	}
	im.Progress.SetData(req.SessionID, 0, file.Rows)
	if err := im.Progress.Advance(req.SessionID, PhaseProcessing); err != nil {
		return nil, err
	}

	result, err := im.Uploader.Upload(ctx, file.UploadName(), bytes.NewReader(file.CSV))
	if err != nil {
		return nil, err
	}
	outcome.Result = result
	im.Progress.SetData(req.SessionID, file.Rows, file.Rows)

	if req.AutoAssign && im.Assigner != nil {
		if err := im.Progress.Advance(req.SessionID, PhaseAssigning); err != nil {
			return nil, err
		}
		assigner := *im.Assigner
		assigner.OnProgress = func(done, total int) {
			im.Progress.SetData(req.SessionID, done, total)
		}
		assigned, err := assigner.Run(ctx)
		if err != nil {
			// cases are already imported; report the assignment problem only
			im.Log.Warn("auto-assign after import failed", zap.Error(err))
			outcome.AssignErr = err
		} else {
			outcome.Assign = assigned
		}
	}
	return outcome, nil
}

func importErrorMessage(err error) string {
	var missing *MissingColumnsError
	switch {
	case errors.As(err, &missing):
		return "Upload failed: " + missing.Error()
	case errors.Is(err, ErrUnsupportedImport), errors.Is(err, ErrEmptyImport), errors.Is(err, ErrImportTooLarge):
		return "Upload failed: " + err.Error()
	}
	return backend.UserMessage(err, "Upload failed, please try again")
}
