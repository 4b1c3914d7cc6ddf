package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"policypulse/backend/internal/summary"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatText Format = "txt"
)

func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "pdf":
		return FormatPDF, nil
	case "txt", "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("unsupported report format %q", raw)
}

// Renderer turns a validated summary into a downloadable document.
type Renderer interface {
	Format() Format
	ContentType() string
	Render(w io.Writer, s summary.PersonalizedSummary, reportID string) error
}

// Artifact is a rendered report ready to be written to a response or file.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

func RendererFor(format Format) (Renderer, error) {
	switch format {
	case FormatPDF:
		return PDFRenderer{}, nil
	case FormatText:
		return TextRenderer{}, nil
	}
	return nil, fmt.Errorf("unsupported report format %q", format)
}

func NewReportID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Render produces the artifact for s. An empty reportID gets a fresh one.
func Render(s summary.PersonalizedSummary, reportID string, format Format) (Artifact, error) {
	renderer, err := RendererFor(format)
	if err != nil {
		return Artifact{}, err
	}
	if strings.TrimSpace(reportID) == "" {
		reportID = NewReportID()
	}
	var buf bytes.Buffer
	if err := renderer.Render(&buf, s, reportID); err != nil {
		return Artifact{}, fmt.Errorf("render %s report: %w", format, err)
	}
	return Artifact{
		Filename:    Filename(reportID, s.GeneratedAt, format),
		ContentType: renderer.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// Filename follows policy-summary-<reportId>-<YYYY-MM-DD>.<ext>, dated by the
// summary's generation day in UTC.
func Filename(reportID string, generatedAt time.Time, format Format) string {
	return fmt.Sprintf(
		"policy-summary-%s-%s.%s",
		sanitizeFilenamePart(reportID),
		generatedAt.UTC().Format("2006-01-02"),
		format,
	)
}

func sanitizeFilenamePart(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "report"
	}
	var b strings.Builder
	for _, r := range trimmed {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	sanitized := strings.Trim(b.String(), "_")
	if sanitized == "" {
		return "report"
	}
	return sanitized
}
