package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/elimuhub/elimu-api/internal/models"
	"github.com/elimuhub/elimu-api/pkg/export"
	"github.com/elimuhub/elimu-api/pkg/storage"
)

type analysisProvider interface {
	Analyze(ctx context.Context, examID, classID, streamID string, role models.UserRole) (*models.ExamAnalysis, bool, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders merit lists and exam analyses to files.
type ExportService struct {
	analytics analysisProvider
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(analytics analysisProvider, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		analytics: analytics,
		storage:   store,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/exports/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	examPart := sanitizeFilename(job.Params.ExamID)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), examPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	streamID := ""
	if job.Params.StreamID != nil {
		streamID = *job.Params.StreamID
	}
	analysis, _, err := s.analytics.Analyze(ctx, job.Params.ExamID, job.Params.ClassID, streamID, models.RoleAdmin)
	if err != nil {
		return export.Dataset{}, "", err
	}
	switch job.Type {
	case models.ReportTypeMeritList:
		return buildMeritDataset(analysis, job.Params)
	case models.ReportTypeExamAnalysis:
		return buildAnalysisDataset(analysis, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func buildMeritDataset(analysis *models.ExamAnalysis, params models.ReportJobParams) (export.Dataset, string, error) {
	rows := make([]map[string]string, 0, len(analysis.MeritList))
	for _, row := range analysis.MeritList {
		rank := ""
		if row.ClassRank != nil {
			rank = fmt.Sprintf("%d", *row.ClassRank)
		}
		grade := ""
		if row.AvgGrade != nil {
			grade = *row.AvgGrade
		}
		rows = append(rows, map[string]string{
			"Rank":         rank,
			"Admission No": row.AdmissionNumber,
			"Name":         row.Name,
			"Stream":       row.Stream,
			"Total Marks":  fmt.Sprintf("%.2f", row.TotalMarks),
			"Avg Marks":    fmt.Sprintf("%.2f", row.AvgMarks),
			"Avg Points":   fmt.Sprintf("%.2f", row.AvgPoints),
			"Grade":        grade,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Rank", "Admission No", "Name", "Stream", "Total Marks", "Avg Marks", "Avg Points", "Grade"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Merit List %s", params.ExamID)
	return dataset, title, nil
}

func buildAnalysisDataset(analysis *models.ExamAnalysis, params models.ReportJobParams) (export.Dataset, string, error) {
	rows := make([]map[string]string, 0, len(analysis.SubjectPerformance))
	for name, perf := range analysis.SubjectPerformance {
		var top string
		var topCount int
		for _, g := range perf.General.Grades {
			if g.Count > topCount {
				topCount = g.Count
				top = g.Grade
			}
		}
		rows = append(rows, map[string]string{
			"Subject":      name,
			"Code":         perf.General.SubjectInfo.Code,
			"Average":      fmt.Sprintf("%.2f", perf.General.Avg),
			"Modal Grade":  top,
			"Result Count": fmt.Sprintf("%d", sumGradeCounts(perf.General.Grades)),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Subject", "Code", "Average", "Modal Grade", "Result Count"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Exam Analysis %s", params.ExamID)
	return dataset, title, nil
}

func sumGradeCounts(grades []models.SubjectGradeCount) int {
	total := 0
	for _, g := range grades {
		total += g.Count
	}
	return total
}
