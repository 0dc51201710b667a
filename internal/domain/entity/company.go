package entity

import "time"

// Modelos que pueden emitir DTE; se habilitan por empresa.
const (
	ETDModelInvoice = "account.invoice"
	ETDModelPicking = "stock.picking"
)

// Company representa una organización/tenant emisora de DTE.
type Company struct {
	ID               string
	Name             string
	RUT              string // RUT emisor con dígito verificador
	Activity         string // giro
	Address          string
	Email            string
	ResolutionNumber int       // número de resolución SII
	ResolutionDate   time.Time // fecha de resolución SII
	ETDModels        []string  // modelos habilitados para firma, ver ETDModel*
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SignsModel indica si la empresa tiene habilitada la emisión electrónica para el modelo.
func (c *Company) SignsModel(model string) bool {
	if c == nil {
		return false
	}
	for _, m := range c.ETDModels {
		if m == model {
			return true
		}
	}
	return false
}
