package videos

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/drewmudry/lessonreel-api/models"
	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
)

// GetHandout returns a printable PDF of a finished lesson's slides.
func (h *Handler) GetHandout(c *gin.Context) {
	video, ok := h.loadOwnedVideo(c, true)
	if !ok {
		return
	}
	if video.Status != models.StatusComplete {
		c.JSON(http.StatusConflict, gin.H{"error": "Video is not ready yet"})
		return
	}

	var buf bytes.Buffer
	if err := RenderHandout(&buf, video); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render handout"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="lesson-%s.pdf"`, video.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// RenderHandout writes the handout PDF for video to w.
func RenderHandout(w io.Writer, video *models.VideoLesson) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(video.Title, true)
	pdf.SetAuthor("lessonreel", false)
	pdf.AddPage()

	title := video.Title
	if strings.TrimSpace(title) == "" {
		title = video.Topic
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(title), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Grades %s  |  %s  |  %.0f seconds", video.GradeBand, video.Region, video.DurationSeconds)))
	pdf.Ln(10)

	for _, slide := range video.Slides {
		writeSlide(pdf, tr, slide)
		pdf.Ln(4)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func writeSlide(pdf *gofpdf.Fpdf, tr func(string) string, slide models.VideoSlide) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 7, tr(fmt.Sprintf("%d. %s", slide.SlideNumber, slide.Title)), "", "L", false)
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 5.5, tr(slide.Narration), "", "L", false)

	points := slide.Points()
	if len(points) == 0 {
		return
	}
	pdf.Ln(1)
	for _, point := range points {
		point = strings.TrimSpace(point)
		if point == "" {
			continue
		}
		pdf.MultiCell(0, 5.5, tr("- "+point), "", "L", false)
	}
}
