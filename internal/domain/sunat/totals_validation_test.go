package sunat_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/sunat"
)

func documentFromItems(t *testing.T, discount decimal.Decimal, items ...entity.LineItem) *entity.Document {
	t.Helper()
	res, err := sunat.Calculate(items, discount)
	require.NoError(t, err)
	return &entity.Document{Items: res.Items, Totals: res.Totals, GlobalDiscount: discount}
}

func TestValidateTotals_TotalDeclaradoIncorrecto(t *testing.T) {
	doc := documentFromItems(t, decimal.Zero, line("1", "100", "10"))
	require.Equal(t, "118.00", doc.Totals.Total.StringFixed(2))

	doc.Totals.Total = d("118.01")
	check := sunat.ValidateTotals(doc)
	assert.False(t, check.Valid)
	require.NotEmpty(t, check.Mismatches)
	assert.Contains(t, check.Mismatches[0], "total")

	err := sunat.EnsureTotals(doc)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestValidateTotals_TotalCorrecto(t *testing.T) {
	doc := documentFromItems(t, decimal.Zero, line("1", "100", "10"))
	doc.Totals.Total = d("118.00")
	check := sunat.ValidateTotals(doc)
	assert.True(t, check.Valid, check.Mismatches)
	assert.NoError(t, sunat.EnsureTotals(doc))
}

func TestValidateTotals_IGVFueraDeTolerancia(t *testing.T) {
	doc := documentFromItems(t, decimal.Zero, line("1", "100", "10"))
	doc.Totals.IGV = d("18.05")
	doc.Totals.Total = d("118.05")
	check := sunat.ValidateTotals(doc)
	assert.False(t, check.Valid)
	assert.Len(t, check.Mismatches, 2, "IGV y total")
}

func TestValidateTotals_DocumentoMixtoConDescuento(t *testing.T) {
	doc := documentFromItems(t, d("5.90"),
		line("3", "33.33", "10"),
		line("1", "20", "20"),
		line("1", "10", "30"),
		line("1", "15", "15"),
	)
	check := sunat.ValidateTotals(doc)
	assert.True(t, check.Valid, check.Mismatches)
}
