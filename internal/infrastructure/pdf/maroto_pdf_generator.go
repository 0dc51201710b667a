// Package pdf implementa la representación impresa de los DTE del SII.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  Razón Social + giro + dirección │ R.U.T. / TIPO DTE / Nº    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RECEPTOR: Nombre + RUT + giro, fecha, forma de pago         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | IVA | Subtotal         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TIMBRE PDF417 + leyenda SII   │  Neto / Exento / IVA / Total │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	appbilling "github.com/jhoicas/sii-etd-api/internal/application/billing"
	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
	pkgsii "github.com/jhoicas/sii-etd-api/pkg/sii"
)

var (
	colorSII  = &props.Color{Red: 200, Green: 0, Blue: 0}
	colorGray = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateInvoicePDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(_ context.Context, doc *appbilling.InvoicePrint) ([]byte, error) {
	if doc == nil || doc.Invoice == nil || doc.Company == nil {
		return nil, fmt.Errorf("pdf: documento incompleto")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(className(doc.Class), true).
		WithAuthor(doc.Company.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.5}))
	m.AddRows(receiverRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(doc.Lines)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(doc))

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// headerRow: emisor (izq) y recuadro SII con RUT, tipo y folio (der).
func headerRow(doc *appbilling.InvoicePrint) core.Row {
	c := doc.Company
	folio := "S/N"
	if doc.Invoice.Folio > 0 {
		folio = fmt.Sprintf("%d", doc.Invoice.Folio)
	}
	return row.New(24).Add(
		col.New(7).Add(
			text.New(c.Name, props.Text{Style: fontstyle.Bold, Size: 13, Top: 1}),
			text.New(nonEmpty(c.Activity, ""), props.Text{Size: 8, Top: 9, Color: colorGray}),
			text.New(nonEmpty(c.Address, "")+"  "+nonEmpty(c.Email, ""), props.Text{Size: 8, Top: 14, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("R.U.T.: "+formatRUT(c.RUT), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Center, Color: colorSII, Top: 1,
			}),
			text.New(className(doc.Class), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Center, Color: colorSII, Top: 8,
			}),
			text.New("Nº "+folio, props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Center, Color: colorSII, Top: 15,
			}),
		).WithStyle(&props.Cell{BorderType: border.Full, BorderColor: colorSII, BorderThickness: 0.6}),
	)
}

// receiverRow: datos del receptor y condiciones de pago.
func receiverRow(doc *appbilling.InvoicePrint) core.Row {
	name, rut, activity := "—", "—", "—"
	if cu := doc.Customer; cu != nil {
		name, rut, activity = cu.Name, formatRUT(cu.RUT), nonEmpty(cu.Activity, "—")
	}
	inv := doc.Invoice
	return row.New(16).Add(
		col.New(8).Add(
			text.New("SEÑOR(ES): "+name, props.Text{Style: fontstyle.Bold, Size: 9, Top: 1}),
			text.New("R.U.T.: "+rut, props.Text{Size: 8, Top: 6}),
			text.New("GIRO: "+activity, props.Text{Size: 8, Top: 11}),
		),
		col.New(4).Add(
			text.New("Fecha: "+inv.Date.Format("02/01/2006"), props.Text{Size: 8, Align: align.Right, Top: 1}),
			text.New("Forma de pago: "+nonEmpty(pkgsii.PaymentTerms[inv.PaymentTerm], "—"), props.Text{Size: 8, Align: align.Right, Top: 6}),
			text.New("Medio de pago: "+nonEmpty(pkgsii.PaymentMethods[inv.PaymentMethod], "—"), props.Text{Size: 8, Align: align.Right, Top: 11}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 5, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("IVA%", 1, align.Center),
		h("Subtotal", 3, align.Right),
	)
}

func tableDetailRows(lines []*entity.InvoiceLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(l.Quantity.String(), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(5).Add(text.New(l.Description, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New("$"+formatMoney(l.UnitPrice.StringFixed(0)), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(l.TaxRate.Shift(2).StringFixed(0)+"%", props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(3).Add(text.New("$"+formatMoney(l.Subtotal.StringFixed(0)), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

// footerRow: timbre electrónico (izq) y totales (der).
func footerRow(doc *appbilling.InvoicePrint) core.Row {
	inv := doc.Invoice
	legend := "Timbre Electrónico SII"
	if doc.Company.ResolutionNumber > 0 && !doc.Company.ResolutionDate.IsZero() {
		legend += fmt.Sprintf("\nRes. %d de %d - Verifique documento: www.sii.cl",
			doc.Company.ResolutionNumber, doc.Company.ResolutionDate.Year())
	}

	stamp := col.New(6)
	if len(doc.BarcodePNG) > 0 {
		stamp.Add(
			image.NewFromBytes(doc.BarcodePNG, extension.Png, props.Rect{Percent: 90, Center: true}),
		)
	}
	legendCol := text.New(legend, props.Text{Size: 7, Align: align.Center, Top: 38, Color: colorGray})
	stamp.Add(legendCol)

	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	return row.New(46).Add(
		stamp,
		col.New(3).Add(
			label("Monto neto:"),
			label("Monto exento:"),
			label("IVA 19%:"),
			label("TOTAL:"),
		),
		col.New(3).Add(
			value("$"+formatMoney(inv.NetTotal.StringFixed(0))),
			value("$"+formatMoney(inv.ExemptTotal.StringFixed(0))),
			value("$"+formatMoney(inv.TaxTotal.StringFixed(0))),
			value("$"+formatMoney(inv.GrandTotal.StringFixed(0))),
		),
	)
}

func className(c *entity.DocumentClass) string {
	if c == nil {
		return "DOCUMENTO TRIBUTARIO"
	}
	if name, ok := pkgsii.DocumentClassNames[c.Code]; ok {
		return name
	}
	return c.Name
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatRUT agrega puntos de miles al cuerpo: "76086428-5" → "76.086.428-5".
func formatRUT(rut string) string {
	norm, err := pkgsii.NormalizeRUT(rut)
	if err != nil {
		return rut
	}
	dash := len(norm) - 2
	return formatMoney(norm[:dash]) + norm[dash:]
}

// formatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "-1000000" → "-1.000.000"
func formatMoney(s string) string {
	sign := ""
	if len(s) > 0 && s[0] == '-' {
		sign, s = "-", s[1:]
	}
	n := len(s)
	if n <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
