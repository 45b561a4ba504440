package infra

// pdf.go renders the order receipt with go-pdf/fpdf on 80mm thermal paper.
// Layout: restaurant header, client/table/date block, one row per item with
// its detail line underneath, and the bold total.

import (
	"bytes"
	"fmt"

	"comanda/internal/model"

	"github.com/go-pdf/fpdf"
)

const (
	anchoTicket = 80.0
	margen      = 4.0
)

// GenerarComprobantePDF returns the receipt for pedido as PDF bytes.
func GenerarComprobantePDF(pedido model.Pedido, restaurante string) ([]byte, error) {
	// height grows with the number of lines; 8mm per item is enough for
	// the name row plus a detail row
	alto := 70.0 + float64(len(pedido.Items))*8
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: anchoTicket, Ht: alto},
	})
	pdf.SetMargins(margen, margen, margen)
	pdf.SetAutoPageBreak(false, margen)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	ancho := anchoTicket - 2*margen

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(ancho, 6, tr(restaurante), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(ancho, 4, "Comprobante de pedido", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(ancho, 4, tr("Cliente: "+pedido.Cliente), "", 1, "L", false, 0, "")
	pdf.CellFormat(ancho, 4, tr("Mesa: "+pedido.Mesa), "", 1, "L", false, 0, "")
	pdf.CellFormat(ancho, 4, fmt.Sprintf("Fecha: %s  %s", pedido.Fecha, pedido.Hora), "", 1, "L", false, 0, "")
	pdf.Ln(1)
	pdf.Line(margen, pdf.GetY(), anchoTicket-margen, pdf.GetY())
	pdf.Ln(1)

	// ── Items ────────────────────────────────────────────────────────────────
	colCant := ancho * 0.12
	colNombre := ancho * 0.58
	colSub := ancho * 0.30

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(colCant, 5, "Cant", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colNombre, 5, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colSub, 5, "Subtotal", "B", 1, "R", false, 0, "")

	for _, it := range pedido.Items {
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(colCant, 4, fmt.Sprintf("%d", it.Cantidad), "", 0, "L", false, 0, "")
		pdf.CellFormat(colNombre, 4, tr(recortar(it.Nombre, 30)), "", 0, "L", false, 0, "")
		pdf.CellFormat(colSub, 4, "$"+it.Subtotal().StringFixed(2), "", 1, "R", false, 0, "")
		if it.Detalles != "" {
			pdf.SetFont("Helvetica", "I", 6)
			pdf.CellFormat(colCant, 3, "", "", 0, "L", false, 0, "")
			pdf.CellFormat(colNombre+colSub, 3, tr(recortar(it.Detalles, 60)), "", 1, "L", false, 0, "")
		}
	}

	pdf.Ln(1)
	pdf.Line(margen, pdf.GetY(), anchoTicket-margen, pdf.GetY())
	pdf.Ln(1)

	// ── Total ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colCant+colNombre, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(colSub, 6, "$"+pedido.Total.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(ancho, 4, tr("¡Gracias por su visita!"), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: generar comprobante: %w", err)
	}
	return buf.Bytes(), nil
}

func recortar(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
