package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"debt_flow_app_go/logger"
	"debt_flow_app_go/middleware"
	"debt_flow_app_go/models"
	"debt_flow_app_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	importTimeout = 5 * time.Minute
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// UploadCases accepts a CSV or XLSX file and imports it in the background.
// The page follows along through the progress region.
func (h *Handler) UploadCases(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetCurrentUser(c)
	session := middleware.SessionID(c)

	fh, err := c.FormFile("file")
	if err != nil {
		h.toastError(c, "Choose a file to upload")
		return h.afterAction(c, http.StatusBadRequest, "/case-allocation")
	}
	if fh.Size > services.MaxImportSize {
		h.toastError(c, services.ErrImportTooLarge.Error())
		return h.afterAction(c, http.StatusRequestEntityTooLarge, "/case-allocation")
	}
	src, err := fh.Open()
	if err != nil {
		logger.FromContext(ctx).Error("failed to open upload", zap.Error(err))
		h.toastError(c, "Could not read the uploaded file")
		return h.afterAction(c, http.StatusBadRequest, "/case-allocation")
	}
	defer src.Close()

	// the multipart temp file is gone once the request ends
	data, err := io.ReadAll(io.LimitReader(src, services.MaxImportSize+1))
	if err != nil {
		h.toastError(c, "Could not read the uploaded file")
		return h.afterAction(c, http.StatusBadRequest, "/case-allocation")
	}

	api := h.api(c)
	importer := services.NewCaseImporter(api.Actions, h.Progress, h.Toasts)
	importer.Archive = h.Archive
	importer.Audit = h.Audit
	importer.Now = h.now
	importer.Log = logger.FromContext(ctx).Named("import")
	autoAssign := c.FormValue("auto_assign") == "true"
	if autoAssign {
		assigner := services.NewAutoAssigner(api.Cases, api.Agencies, h.threshold(), h.concurrency())
		assigner.Now = h.now
		importer.Assigner = assigner
	}

	if err := importer.Begin(session, fh.Filename); err != nil {
		h.toastError(c, "An upload is already in progress")
		return h.afterAction(c, http.StatusConflict, "/case-allocation")
	}

	req := services.ImportRequest{
		SessionID:  session,
		Actor:      middleware.ActorFrom(c),
		FileName:   fh.Filename,
		File:       bytes.NewReader(data),
		AutoAssign: autoAssign,
	}
	log := logger.FromContext(ctx).With(zap.String("file", fh.Filename), zap.String("user_id", user.ID))

	h.imports.Add(1)
	go func() {
		defer h.imports.Done()
		bg, cancel := context.WithTimeout(logger.WithContext(context.Background(), log), importTimeout)
		defer cancel()
		outcome, err := importer.Run(bg, req)
		if err != nil {
			return
		}
		log.Info("import finished", zap.Int("created", outcome.Result.CasesCreated))
		h.refreshDashboards(bg)
	}()

	c.Response().Header().Set("HX-Trigger", "upload:started")
	if middleware.IsHTMX(c) {
		return c.NoContent(http.StatusAccepted)
	}
	return c.Redirect(http.StatusSeeOther, "/case-allocation")
}

// WaitImports blocks until running imports finish or ctx ends
func (h *Handler) WaitImports(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.imports.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExportCases downloads the filtered case list as a workbook
func (h *Handler) ExportCases(c echo.Context) error {
	ctx := c.Request().Context()
	q := parseCaseQuery(c)

	all, err := h.api(c).Cases.ListAll(ctx, q.Status, 100)
	if err != nil {
		return h.backendFailure(c, err, "cases")
	}
	var matched []models.Case
	for i := range all {
		if q.matches(&all[i]) {
			matched = append(matched, all[i])
		}
	}
	matched = services.SortCases(matched, q.Field, q.Dir)

	buf, err := services.ExportCasesXLSX(matched)
	if err != nil {
		logger.FromContext(ctx).Error("case export failed", zap.Error(err))
		return h.backendFailure(c, err, "the export")
	}

	if h.Audit != nil {
		h.Audit.Log(middleware.ActorFrom(c), services.AuditEntry{
			Action:       models.AuditActionExport,
			ResourceType: "Case",
			Description:  "Exported cases to Excel (" + exportFilterLabel(q) + ")",
		})
	}

	filename := "cases_" + h.now().Format("20060102_150405") + ".xlsx"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

func exportFilterLabel(q caseQuery) string {
	var parts []string
	if q.Status != "" {
		parts = append(parts, "status "+string(q.Status))
	}
	if q.Search != "" {
		parts = append(parts, "search "+q.Search)
	}
	if len(parts) == 0 {
		return "all cases"
	}
	return strings.Join(parts, ", ")
}

// ImportTemplate downloads an empty workbook with the import headers
func (h *Handler) ImportTemplate(c echo.Context) error {
	buf, err := services.GenerateImportTemplate(h.now())
	if err != nil {
		logger.FromContext(c.Request().Context()).Error("template generation failed", zap.Error(err))
		return h.backendFailure(c, errors.New("template generation failed"), "the template")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="case_import_template.xlsx"`)
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}
