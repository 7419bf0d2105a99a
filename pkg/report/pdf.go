package report

import (
	"fmt"
	"math"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/filler"
)

// tileColor is an RGB fill color of a tile on the density map.
type tileColor struct {
	R, G, B int
}

var (
	colorInBand  = tileColor{R: 76, G: 175, B: 80}   // green
	colorOffBand = tileColor{R: 255, G: 152, B: 0}   // orange
	colorSkipped = tileColor{R: 189, G: 189, B: 189} // grey
	colorFailed  = tileColor{R: 244, G: 67, B: 54}   // red
)

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	legendHeight = 12.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// WritePDF renders one density map page per layer followed by a run
// summary page.
func WritePDF(path string, rec *Record) error {
	if len(rec.Layers) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "run has no layers to report")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.SetTitle("gdsfill "+rec.ID, false)

	for i := range rec.Layers {
		pdf.AddPage()
		renderLayerPage(pdf, &rec.Layers[i])
	}
	pdf.AddPage()
	renderSummaryPage(pdf, rec)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write report %s", path)
	}
	return nil
}

func renderLayerPage(pdf *fpdf.Fpdf, l *LayerRecord) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("%s (%s fill, %d um tiles)", l.Layer, l.Algorithm, l.Span)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Target %.2f%% +/- %.2f%% | Success %d | Skipped %d | Failed %d | Cached %d | Mean %.2f%%",
		l.Target, l.Deviation, l.Success, l.Skipped, l.Failed, l.Cached, l.Density)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	if l.Die.Width <= 0 || l.Die.Height <= 0 {
		return
	}

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - legendHeight
	scale := math.Min(drawWidth/float64(l.Die.Width), drawHeight/float64(l.Die.Height))
	canvasW := float64(l.Die.Width) * scale
	canvasH := float64(l.Die.Height) * scale
	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	pdf.SetFillColor(245, 245, 245)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	top := l.Die.Y + l.Die.Height
	for _, t := range l.Tiles {
		col := l.tileColor(&t)
		tw := float64(t.Width) * scale
		th := float64(t.Height) * scale
		tx := offsetX + float64(t.X-l.Die.X)*scale
		// Layout y grows upwards, page y downwards.
		ty := offsetY + float64(top-t.Y-t.Height)*scale

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.2)
		pdf.Rect(tx, ty, tw, th, "FD")

		if tw > 12 && th > 6 && isSuccess(t.Status) {
			pdf.SetFont("Helvetica", "", labelFontSize(tw, th))
			label := fmt.Sprintf("%.1f", t.Density)
			w := pdf.GetStringWidth(label)
			if w < tw-1 {
				pdf.SetXY(tx+(tw-w)/2, ty+th/2-2)
				pdf.CellFormat(w, 4, label, "", 0, "C", false, 0, "")
			}
		}
	}

	renderLegend(pdf, pageHeight-marginBottom-legendHeight+4)
}

func (l *LayerRecord) tileColor(t *TileRecord) tileColor {
	switch {
	case isSuccess(t.Status) && l.InBand(t.Density):
		return colorInBand
	case isSuccess(t.Status):
		return colorOffBand
	case t.Status == filler.StatusFailed.String():
		return colorFailed
	default:
		return colorSkipped
	}
}

func renderLegend(pdf *fpdf.Fpdf, y float64) {
	entries := []struct {
		label string
		color tileColor
	}{
		{"in band", colorInBand},
		{"out of band", colorOffBand},
		{"skipped", colorSkipped},
		{"failed", colorFailed},
	}
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	x := marginLeft
	for _, e := range entries {
		pdf.SetFillColor(e.color.R, e.color.G, e.color.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.2)
		pdf.Rect(x, y, 4, 4, "FD")
		pdf.SetXY(x+5, y)
		w := pdf.GetStringWidth(e.label) + 2
		pdf.CellFormat(w, 4, e.label, "", 0, "L", false, 0, "")
		x += w + 10
	}
}

func renderSummaryPage(pdf *fpdf.Fpdf, rec *Record) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, "Run summary", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	y := marginTop + headerHeight + 2
	info := [][2]string{
		{"Run", rec.ID},
		{"Process", rec.Process},
		{"Input", rec.Input},
		{"Output", rec.Output},
		{"Checksum", rec.Checksum},
		{"Started", rec.Started.Format("2006-01-02 15:04:05")},
		{"Duration", rec.Duration.Round(time.Millisecond).String()},
	}
	if rec.DryRun {
		info = append(info, [2]string{"Mode", "dry run, layout not modified"})
	}
	for _, kv := range info {
		pdf.SetXY(marginLeft, y)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(30, 6, kv[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(pageWidth-marginLeft-marginRight-30, 6, kv[1], "", 0, "L", false, 0, "")
		y += 6
	}

	y += 6
	headers := []string{"Layer", "Algorithm", "Target", "Tiles", "Success", "Skipped", "Failed", "Cached", "Mean"}
	widths := []float64{35, 30, 30, 20, 25, 25, 25, 25, 25}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.SetXY(marginLeft, y)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	y += 7

	pdf.SetFont("Helvetica", "", 10)
	for _, l := range rec.Layers {
		row := []string{
			l.Layer,
			l.Algorithm,
			fmt.Sprintf("%.1f +/- %.1f", l.Target, l.Deviation),
			fmt.Sprint(len(l.Tiles)),
			fmt.Sprint(l.Success),
			fmt.Sprint(l.Skipped),
			fmt.Sprint(l.Failed),
			fmt.Sprint(l.Cached),
			fmt.Sprintf("%.2f%%", l.Density),
		}
		pdf.SetXY(marginLeft, y)
		for i, v := range row {
			pdf.CellFormat(widths[i], 7, v, "1", 0, "C", false, 0, "")
		}
		y += 7
		if y > pageHeight-marginBottom-7 {
			pdf.AddPage()
			y = marginTop
		}
	}
}

// labelFontSize scales the tile label to the tile size.
func labelFontSize(w, h float64) float64 {
	return math.Max(5, math.Min(9, math.Min(w/4, h/1.5)))
}

func isSuccess(status string) bool { return status == filler.StatusSuccess.String() }
