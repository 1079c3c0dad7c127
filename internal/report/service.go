package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/signintech/gopdf"
	"github.com/sirupsen/logrus"

	"ai-doctor/internal/conversation"
)

// Service renders diagnosis reports as PDF files under the configured
// reports directory. Rendering is best-effort: a failed report never
// fails the turn that produced it.
type Service struct {
	reportsDir string
	log        *logrus.Logger
}

func NewService(reportsDir string, log *logrus.Logger) *Service {
	return &Service{reportsDir: reportsDir, log: log}
}

// Render writes the report PDF to the reports directory.
func (s *Service) Render(ctx context.Context, c *conversation.Conversation, r *conversation.Report) error {
	data, err := s.PDF(c, r)
	if err != nil {
		return err
	}

	fileName := fmt.Sprintf("report_%s_%s.pdf", c.ID, r.CreatedAt.Format("20060102_150405"))
	path := filepath.Join(s.reportsDir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	s.log.WithField("path", path).Info("diagnosis report written")
	return nil
}

// PDF renders one diagnosis report.
func (s *Service) PDF(c *conversation.Conversation, r *conversation.Report) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	// DejaVuSans covers Vietnamese. Try the common install paths.
	fontPaths := []string{
		"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	}

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("failed to load font for PDF, is ttf-dejavu installed? last error: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Báo cáo chẩn đoán (AI Doctor)")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Ngày: %s", r.CreatedAt.Format("02.01.2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Mã hội thoại: %s", c.ID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Chẩn đoán chính: %s (độ tin cậy %.0f%%)", r.TopDiagnosis, r.Confidence*100))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Mức độ: %s - %s", r.Severity.Level, r.Severity.Urgency))
	pdf.Br(25)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Triệu chứng:")
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	if len(r.Symptoms) == 0 {
		pdf.Cell(nil, "- Chưa xác định.")
		pdf.Br(15)
	}
	for _, symptom := range r.Symptoms {
		s.writeWrapped(&pdf, fmt.Sprintf("- %s", symptom))
	}
	pdf.Br(10)

	if len(r.RankedDiseases) > 0 {
		if err := pdf.SetFont("DejaVu", "", 14); err != nil {
			return nil, err
		}
		pdf.Cell(nil, "Các bệnh có khả năng:")
		pdf.Br(15)
		if err := pdf.SetFont("DejaVu", "", 11); err != nil {
			return nil, err
		}
		for i, name := range r.RankedDiseases {
			s.writeWrapped(&pdf, fmt.Sprintf("%d. %s", i+1, name))
		}
		pdf.Br(10)
	}

	if r.DiagnosisText != "" {
		if err := pdf.SetFont("DejaVu", "", 14); err != nil {
			return nil, err
		}
		pdf.Cell(nil, "Phân tích:")
		pdf.Br(15)
		if err := pdf.SetFont("DejaVu", "", 11); err != nil {
			return nil, err
		}
		s.writeWrapped(&pdf, r.DiagnosisText)
		pdf.Br(10)
	}

	if r.Treatment != "" {
		if err := pdf.SetFont("DejaVu", "", 14); err != nil {
			return nil, err
		}
		pdf.Cell(nil, "Khuyến nghị điều trị:")
		pdf.Br(15)
		if err := pdf.SetFont("DejaVu", "", 11); err != nil {
			return nil, err
		}
		s.writeWrapped(&pdf, r.Treatment)
	}

	pdf.SetY(800)
	if err := pdf.SetFont("DejaVu", "", 9); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Tạo lúc %s. Chỉ mang tính tham khảo, hãy gặp bác sĩ chuyên khoa.", time.Now().Format("02.01.2006 15:04")))

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) writeWrapped(pdf *gopdf.GoPdf, text string) {
	lines, _ := pdf.SplitText(text, 500)
	for _, line := range lines {
		pdf.Cell(nil, line)
		pdf.Br(12)
	}
	pdf.Br(3)
}
