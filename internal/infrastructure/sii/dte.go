package sii

import (
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// DTEParty emisor o receptor del documento.
type DTEParty struct {
	RUT      string
	Name     string
	Activity string
	Address  string
}

// DTELine línea de detalle.
type DTELine struct {
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
	Exempt    bool
}

// DTETotals montos del documento (pesos, sin decimales).
type DTETotals struct {
	Net    int64
	Exempt int64
	Tax    int64
	Total  int64
}

// DTEData datos para armar el XML del DTE.
type DTEData struct {
	Code          int
	Folio         int64
	IssueDate     time.Time
	PaymentTerm   string // FmaPago; vacío se omite
	PaymentMethod string // MedioPago; vacío se omite
	TransferType  string // IndTraslado, solo guías de despacho
	Issuer        DTEParty
	Receiver      DTEParty
	Totals        DTETotals
	Lines         []DTELine
	TED           string // TED ya firmado
	SignedAt      time.Time
}

// DocumentID identificador del nodo Documento (referencia de la firma).
func DocumentID(code int, folio int64) string {
	return fmt.Sprintf("T%dF%d", code, folio)
}

// DTEBuilder arma el XML <DTE><Documento>…</Documento></DTE>.
type DTEBuilder struct{}

// NewDTEBuilder crea el builder.
func NewDTEBuilder() *DTEBuilder { return &DTEBuilder{} }

// Build devuelve el DTE sin firmar con el TED embebido.
func (b *DTEBuilder) Build(d DTEData) ([]byte, error) {
	if d.TED == "" {
		return nil, fmt.Errorf("sii: DTE requiere TED")
	}
	tedDoc := etree.NewDocument()
	if err := tedDoc.ReadFromString(d.TED); err != nil {
		return nil, fmt.Errorf("sii: parsear TED: %w", err)
	}

	root := etree.NewElement("DTE")
	root.CreateAttr("xmlns", NamespaceSIIDTE)
	root.CreateAttr("version", DTEVersion)
	docEl := root.CreateElement("Documento")
	docEl.CreateAttr("ID", DocumentID(d.Code, d.Folio))

	enc := docEl.CreateElement("Encabezado")
	id := enc.CreateElement("IdDoc")
	id.CreateElement("TipoDTE").SetText(strconv.Itoa(d.Code))
	id.CreateElement("Folio").SetText(strconv.FormatInt(d.Folio, 10))
	id.CreateElement("FchEmis").SetText(d.IssueDate.Format(dateFmt))
	if d.TransferType != "" {
		id.CreateElement("IndTraslado").SetText(d.TransferType)
	}
	if d.PaymentTerm != "" {
		id.CreateElement("FmaPago").SetText(d.PaymentTerm)
	}
	if d.PaymentMethod != "" {
		id.CreateElement("MedioPago").SetText(d.PaymentMethod)
	}

	em := enc.CreateElement("Emisor")
	em.CreateElement("RUTEmisor").SetText(d.Issuer.RUT)
	em.CreateElement("RznSoc").SetText(d.Issuer.Name)
	em.CreateElement("GiroEmis").SetText(d.Issuer.Activity)
	em.CreateElement("DirOrigen").SetText(d.Issuer.Address)

	rc := enc.CreateElement("Receptor")
	rc.CreateElement("RUTRecep").SetText(d.Receiver.RUT)
	rc.CreateElement("RznSocRecep").SetText(d.Receiver.Name)
	if d.Receiver.Activity != "" {
		rc.CreateElement("GiroRecep").SetText(d.Receiver.Activity)
	}
	if d.Receiver.Address != "" {
		rc.CreateElement("DirRecep").SetText(d.Receiver.Address)
	}

	tot := enc.CreateElement("Totales")
	if d.Totals.Net > 0 {
		tot.CreateElement("MntNeto").SetText(strconv.FormatInt(d.Totals.Net, 10))
	}
	if d.Totals.Exempt > 0 {
		tot.CreateElement("MntExe").SetText(strconv.FormatInt(d.Totals.Exempt, 10))
	}
	if d.Totals.Tax > 0 {
		tot.CreateElement("IVA").SetText(strconv.FormatInt(d.Totals.Tax, 10))
	}
	tot.CreateElement("MntTotal").SetText(strconv.FormatInt(d.Totals.Total, 10))

	for i, l := range d.Lines {
		det := docEl.CreateElement("Detalle")
		det.CreateElement("NroLinDet").SetText(strconv.Itoa(i + 1))
		if l.Exempt {
			det.CreateElement("IndExe").SetText("1")
		}
		det.CreateElement("NmbItem").SetText(truncate(l.Name, 80))
		det.CreateElement("QtyItem").SetText(l.Quantity.String())
		if !l.UnitPrice.IsZero() {
			det.CreateElement("PrcItem").SetText(l.UnitPrice.String())
		}
		det.CreateElement("MontoItem").SetText(l.Amount.Round(0).String())
	}

	docEl.AddChild(tedDoc.Root().Copy())
	signedAt := d.SignedAt
	if signedAt.IsZero() {
		signedAt = time.Now()
	}
	docEl.CreateElement("TmstFirma").SetText(signedAt.Format(timestampFmt))

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="ISO-8859-1"`)
	doc.SetRoot(root)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("sii: serializar DTE: %w", err)
	}
	return out, nil
}
