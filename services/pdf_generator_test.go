package services

import (
	"context"
	"os"
	"testing"
	"time"

	"debt_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryReportHTML(t *testing.T) {
	now := time.Date(2025, 3, 9, 10, 30, 0, 0, time.UTC)
	stats := &models.DashboardStats{TotalCases: 12, ActiveCases: 7, ResolvedCases: 5, TotalDebt: 125000, RecoveredAmount: 50000, RecoveryRate: 0.4}
	points := []models.RecoveryPoint{
		{Month: "Jan", Recovered: 12000.5},
		{Month: "Feb", Recovered: 8000},
	}

	report := NewRecoveryReport(stats, points, now)
	assert.Equal(t, 20000.5, report.Total)

	html, err := report.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "Mar 9, 2025 10:30")
	assert.Contains(t, html, "$125,000.00")
	assert.Contains(t, html, "40%")
	assert.Contains(t, html, "$12,000.50")
	assert.Contains(t, html, "$20,000.50")
}

func TestRecoveryReportWithoutData(t *testing.T) {
	html, err := NewRecoveryReport(nil, nil, time.Now()).HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "No recovery data")
	assert.Contains(t, html, "$0.00")
}

func TestGeneratePDFSmoke(t *testing.T) {
	chromePath := os.Getenv("CHROME_PATH")
	if chromePath == "" {
		t.Skip("Skipping PDF generation test: CHROME_PATH not set")
	}

	pdf, err := NewPDFGenerator(chromePath).Generate(context.Background(), "<h1>Hello</h1>", DefaultPDFOptions())
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}
