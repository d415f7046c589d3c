// Package exportpdf renders a whiteboard scene to a PDF document as a
// single page of strokes.
package exportpdf

import (
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/Roman-14/Concurrently-Accessible-Text-Editor-and-Whiteboard/internal/whiteboard"
)

// mmPerUnit scales drawing-area coordinates down to millimetre page
// coordinates, matching the fixed 1:3 scale-down the original export used.
const mmPerUnit = 1.0 / 3.0

// Export renders every path currently in engine's scene onto a single A4
// page and writes the PDF to path.
func Export(path string, engine *whiteboard.Engine) error {
	pdf := build(engine)
	return pdf.OutputFileAndClose(path)
}

// WriteTo renders the scene the same way Export does but streams the PDF
// bytes to w instead of a file, for callers serving it over HTTP.
func WriteTo(w io.Writer, engine *whiteboard.Engine) error {
	pdf := build(engine)
	return pdf.Output(w)
}

func build(engine *whiteboard.Engine) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)

	for _, el := range engine.Paths() {
		drawPath(pdf, el.D)
	}
	return pdf
}

func drawPath(pdf *gofpdf.Fpdf, d string) {
	pts := whiteboard.ParsePath(d)
	for i := 1; i < len(pts); i++ {
		pdf.Line(
			pts[i-1].X*mmPerUnit, pts[i-1].Y*mmPerUnit,
			pts[i].X*mmPerUnit, pts[i].Y*mmPerUnit,
		)
	}
}
