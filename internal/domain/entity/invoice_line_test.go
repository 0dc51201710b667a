package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sii-etd-api/internal/domain/entity"
)

func TestTaxLines_AgrupaPorTasaYOmiteExentas(t *testing.T) {
	iva := decimal.RequireFromString("0.19")
	lines := []*entity.InvoiceLine{
		{Subtotal: decimal.NewFromInt(1000), TaxRate: iva},
		{Subtotal: decimal.NewFromInt(500), TaxRate: decimal.Zero},
		{Subtotal: decimal.NewFromInt(2000), TaxRate: iva},
	}
	taxes := entity.TaxLines(lines)
	require.Len(t, taxes, 1)
	assert.True(t, taxes[0].Base.Equal(decimal.NewFromInt(3000)))
	assert.True(t, taxes[0].Amount.Equal(decimal.NewFromInt(570)))
}

func TestTaxLines_SinImpuestos(t *testing.T) {
	lines := []*entity.InvoiceLine{{Subtotal: decimal.NewFromInt(100)}}
	assert.Empty(t, entity.TaxLines(lines))
	assert.Empty(t, entity.TaxLines(nil))
}

func TestCompany_SignsModel(t *testing.T) {
	c := &entity.Company{ETDModels: []string{entity.ETDModelInvoice}}
	assert.True(t, c.SignsModel(entity.ETDModelInvoice))
	assert.False(t, c.SignsModel(entity.ETDModelPicking))
	var nilCompany *entity.Company
	assert.False(t, nilCompany.SignsModel(entity.ETDModelInvoice))
}
