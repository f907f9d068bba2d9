package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"debt_flow_app_go/models"

	"github.com/xuri/excelize/v2"
)

// MaxImportSize caps an uploaded case file
const MaxImportSize = 10 << 20

var (
	ErrUnsupportedImport = errors.New("unsupported file type, upload a .csv or .xlsx file")
	ErrEmptyImport       = errors.New("the file has no case rows")
	ErrImportTooLarge    = errors.New("the file is larger than 10 MB")
)

// MissingColumnsError lists required headers the file lacks
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// Import columns understood by the backend
const (
	ColInvoiceID     = "invoice_id"
	ColAccountNumber = "account_number"
	ColCustomerEmail = "customer_email"
	ColAmountDue     = "amount_due"
	ColStatus        = "status"
)

var requiredImportColumns = []string{ColInvoiceID, ColAccountNumber, ColCustomerEmail}

var importColumns = []string{ColInvoiceID, ColAccountNumber, ColCustomerEmail, ColAmountDue, ColStatus}

// normalizeHeader maps "Invoice ID" and "invoice_id" to the same key
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.ReplaceAll(h, " ", "_")
}

// ImportFile is an uploaded case file checked and converted to CSV
type ImportFile struct {
	Name    string
	Rows    int // rows carrying every required column
	Skipped int // rows the backend will skip
	CSV     []byte
}

// UploadName is the file name sent to the backend, always .csv
func (f *ImportFile) UploadName() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name)) + ".csv"
}

// PrepareImport reads a CSV or XLSX upload, checks its header and counts
// the usable rows. XLSX files are converted to CSV since the backend
// only parses CSV.
func PrepareImport(filename string, r io.Reader) (*ImportFile, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImportSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxImportSize {
		return nil, ErrImportTooLarge
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		reader := csv.NewReader(bytes.NewReader(data))
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true
		rows, err = reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
	case ".xlsx":
		rows, err = readFirstSheet(data)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnsupportedImport
	}

	return buildImport(filename, rows)
}

func readFirstSheet(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyImport
	}
	// the downloadable template puts instructions first
	sheet := sheets[0]
	if idx, _ := f.GetSheetIndex(templateCasesSheet); idx >= 0 {
		sheet = templateCasesSheet
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func buildImport(filename string, rows [][]string) (*ImportFile, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyImport
	}

	header := make([]string, len(rows[0]))
	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = normalizeHeader(h)
		if _, seen := index[header[i]]; !seen {
			index[header[i]] = i
		}
	}

	var missing []string
	for _, col := range requiredImportColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	out := &ImportFile{Name: filepath.Base(filename)}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		if hasRequired(row, index) {
			out.Rows++
		} else {
			out.Skipped++
		}
		padded := make([]string, len(header))
		copy(padded, row)
		if err := w.Write(padded); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}

	if out.Rows == 0 {
		return nil, ErrEmptyImport
	}
	out.CSV = buf.Bytes()
	return out, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func hasRequired(row []string, index map[string]int) bool {
	for _, col := range requiredImportColumns {
		i := index[col]
		if i >= len(row) || strings.TrimSpace(row[i]) == "" {
			return false
		}
	}
	return true
}

const (
	templateInstructionsSheet = "Instructions"
	templateCasesSheet        = "Cases"
)

// GenerateImportTemplate builds the downloadable xlsx import template
func GenerateImportTemplate(now time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateInstructionsSheet); err != nil {
		return nil, err
	}
	instructions := []string{
		"Case import",
		"",
		"Fill the Cases sheet, one invoice per row, and upload the file on Case Allocation.",
		"- invoice_id, account_number and customer_email are required.",
		"- customer_email must belong to an existing customer.",
		"- amount_due is a plain number, e.g. 1250.50.",
		"- status defaults to pending when empty.",
		"- Rows for invoices that already have a case are skipped.",
	}
	for i, line := range instructions {
		f.SetCellValue(templateInstructionsSheet, fmt.Sprintf("A%d", i+1), line)
	}
	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	f.SetCellStyle(templateInstructionsSheet, "A1", "A1", titleStyle)
	f.SetColWidth(templateInstructionsSheet, "A", "A", 90)

	if _, err := f.NewSheet(templateCasesSheet); err != nil {
		return nil, err
	}
	for i, header := range importColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(templateCasesSheet, cell, header)
	}
	example := []any{"INV-10001", "ACC-2001", "customer@example.com", 1250.50, string(models.CaseStatusPending)}
	if err := f.SetSheetRow(templateCasesSheet, "A2", &example); err != nil {
		return nil, err
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(templateCasesSheet, "A1", "E1", headerStyle)
	f.SetColWidth(templateCasesSheet, "A", "E", 22)
	f.SetDocProps(&excelize.DocProperties{Title: "Case import template", Created: now.UTC().Format(time.RFC3339)})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

var exportHeaders = []string{
	"Case ID", "Customer", "Account Number", "Invoice Amount", "Recovered",
	"Outstanding", "Status", "Agency", "Priority", "Aging Days", "Due Date", "Created",
}

// ExportCasesXLSX writes the case listing to a spreadsheet
func ExportCasesXLSX(cases []models.Case) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Cases"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream writer: %w", err)
	}
	header := make([]any, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, err
	}

	for i, c := range cases {
		aging := ""
		if c.AgingDays != nil {
			aging = fmt.Sprint(*c.AgingDays)
		}
		caseID := c.CaseID
		if caseID == "" {
			caseID = c.ID
		}
		row := []any{
			caseID, c.CustomerName, c.AccountNumber, c.InvoiceAmount, c.RecoveredAmount,
			c.Outstanding(), c.Status.Label(), c.AgencyName(), c.Priority(), aging,
			FormatDate(c.DueDate.Time), FormatDate(c.CreatedAt.Time),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}
