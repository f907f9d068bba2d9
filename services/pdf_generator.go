package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"debt_flow_app_go/models"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

//go:embed reports/*.html
var reportTemplates embed.FS

var recoveryReportTmpl = template.Must(template.New("recovery_report.html").
	Funcs(template.FuncMap{"money": FormatMoney, "percent": FormatPercent}).
	ParseFS(reportTemplates, "reports/recovery_report.html"))

// PDFOptions contains options for PDF generation
type PDFOptions struct {
	Landscape    bool
	PaperWidth   float64 // inches
	PaperHeight  float64
	MarginInches float64
}

// DefaultPDFOptions is US letter, portrait, half-inch margins
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{PaperWidth: 8.5, PaperHeight: 11, MarginInches: 0.5}
}

// PDFGenerator prints HTML with headless Chrome
type PDFGenerator struct {
	chromePath string
	timeout    time.Duration
}

// NewPDFGenerator uses chromePath when set (headless-shell in Docker),
// otherwise chromedp's lookup.
func NewPDFGenerator(chromePath string) *PDFGenerator {
	return &PDFGenerator{chromePath: chromePath, timeout: 30 * time.Second}
}

// Generate renders htmlContent to PDF
func (g *PDFGenerator) Generate(ctx context.Context, htmlContent string, options PDFOptions) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if g.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(g.chromePath))
	}

	ctx, cancelTimeout := context.WithTimeout(ctx, g.timeout)
	defer cancelTimeout()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	width, height := options.PaperWidth, options.PaperHeight
	if options.Landscape {
		width, height = height, width
	}

	var pdfBuf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPaperWidth(width).
				WithPaperHeight(height).
				WithMarginTop(options.MarginInches).
				WithMarginBottom(options.MarginInches).
				WithMarginLeft(options.MarginInches).
				WithMarginRight(options.MarginInches).
				WithPrintBackground(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return pdfBuf, nil
}

// RecoveryReport is the data behind the recovery stats export
type RecoveryReport struct {
	GeneratedAt string
	Stats       *models.DashboardStats
	Points      []models.RecoveryPoint
	Total       float64
}

// NewRecoveryReport sums the monthly series
func NewRecoveryReport(stats *models.DashboardStats, points []models.RecoveryPoint, now time.Time) RecoveryReport {
	r := RecoveryReport{
		GeneratedAt: FormatDateTime(now),
		Stats:       stats,
		Points:      points,
	}
	for _, p := range points {
		r.Total += p.Recovered
	}
	return r
}

// HTML renders the printable report page
func (r RecoveryReport) HTML() (string, error) {
	var buf bytes.Buffer
	if err := recoveryReportTmpl.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("failed to render recovery report: %w", err)
	}
	return buf.String(), nil
}
