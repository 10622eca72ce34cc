package sunat_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/domain/sunat"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(qty, price, taxType string) entity.LineItem {
	return entity.LineItem{
		Description: "Producto de prueba",
		Quantity:    d(qty),
		UnitPrice:   d(price),
		TaxType:     taxType,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Caso de referencia: una línea gravada qty=1, precio=500.00 → 500 / 90 / 590.
// ──────────────────────────────────────────────────────────────────────────────

func TestCalculate_LineaGravadaReferencia(t *testing.T) {
	res, err := sunat.Calculate([]entity.LineItem{line("1", "500.00", "10")}, decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, "500.00", res.Totals.Taxable.StringFixed(2))
	assert.Equal(t, "90.00", res.Totals.IGV.StringFixed(2))
	assert.Equal(t, "590.00", res.Totals.Total.StringFixed(2))
	assert.Equal(t, "500.00", res.Totals.Subtotal.StringFixed(2))

	it := res.Items[0]
	assert.Equal(t, entity.BucketTaxable, it.Bucket)
	assert.Equal(t, "90.00", it.TaxAmount.StringFixed(2))
	assert.Equal(t, "590.00", it.Total.StringFixed(2))
	assert.Equal(t, "590.000000", it.ReferencePrice.StringFixed(6))
	assert.Equal(t, "NIU", it.UnitCode)
}

func TestCalculate_SoloGravadas_IGVRedondeadoYTotal(t *testing.T) {
	items := []entity.LineItem{
		line("3", "12.345", "10"),
		line("0.5", "99.99", "10"),
		line("7", "1.10", "10"),
	}
	res, err := sunat.Calculate(items, decimal.Zero)
	require.NoError(t, err)

	for _, it := range res.Items {
		subtotal := it.Quantity.Mul(it.UnitPrice).Sub(it.Discount)
		assert.True(t, it.TaxAmount.Equal(subtotal.Mul(d("0.18")).Round(2)))
		assert.True(t, it.Total.Equal(it.TaxableBase.Add(it.TaxAmount)))
	}
	tot := res.Totals
	assert.True(t, tot.Total.Equal(tot.Subtotal.Add(tot.IGV)))
	assert.True(t, tot.Total.Equal(tot.Taxable.Add(tot.Exempt).Add(tot.Unaffected).Add(tot.IGV)))
}

func TestCalculate_BucketsPorAfectacion(t *testing.T) {
	items := []entity.LineItem{
		line("1", "100", "10"),
		line("1", "50", "20"),
		line("1", "30", "30"),
		line("2", "10", "13"),
		line("1", "200", "40"),
	}
	res, err := sunat.Calculate(items, decimal.Zero)
	require.NoError(t, err)

	tot := res.Totals
	assert.Equal(t, "300.00", tot.Taxable.StringFixed(2), "gravado + exportación")
	assert.Equal(t, "50.00", tot.Exempt.StringFixed(2))
	assert.Equal(t, "30.00", tot.Unaffected.StringFixed(2))
	assert.Equal(t, "20.00", tot.Free.StringFixed(2))
	assert.Equal(t, "18.00", tot.IGV.StringFixed(2))
	assert.Equal(t, "380.00", tot.Subtotal.StringFixed(2))
	assert.Equal(t, "398.00", tot.Total.StringFixed(2), "el gratuito no suma al total")

	free := res.Items[3]
	assert.True(t, free.IsFree)
	assert.True(t, free.TaxAmount.IsZero())
	assert.Equal(t, "10.000000", free.ReferencePrice.StringFixed(6))

	export := res.Items[4]
	assert.Equal(t, entity.BucketExport, export.Bucket)
	assert.True(t, export.TaxAmount.IsZero())
	for _, it := range res.Items[1:] {
		assert.True(t, it.TaxAmount.IsZero(), "sin IGV para %s", it.TaxType)
	}
}

func TestCalculate_DescuentoGlobalSoloAfectaGravado(t *testing.T) {
	items := []entity.LineItem{line("1", "100", "10"), line("1", "50", "20")}
	res, err := sunat.Calculate(items, d("11.80"))
	require.NoError(t, err)

	tot := res.Totals
	assert.Equal(t, "90.00", tot.Taxable.StringFixed(2))
	assert.Equal(t, "16.20", tot.IGV.StringFixed(2))
	assert.Equal(t, "50.00", tot.Exempt.StringFixed(2), "no se prorratea a exonerado")
	assert.Equal(t, "156.20", tot.Total.StringFixed(2))
	assert.Equal(t, "11.80", tot.GlobalDiscount.StringFixed(2))
}

func TestCalculate_DescuentoGlobalSinBaseGravadaSeIgnora(t *testing.T) {
	res, err := sunat.Calculate([]entity.LineItem{line("1", "50", "20")}, d("10"))
	require.NoError(t, err)
	assert.Equal(t, "50.00", res.Totals.Total.StringFixed(2))
}

func TestCalculate_DescuentoPorLinea(t *testing.T) {
	it := line("2", "50", "10")
	it.Discount = d("20")
	res, err := sunat.Calculate([]entity.LineItem{it}, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "80.00", res.Items[0].TaxableBase.StringFixed(2))
	assert.Equal(t, "14.40", res.Items[0].TaxAmount.StringFixed(2))
}

func TestCalculate_Errores(t *testing.T) {
	_, err := sunat.Calculate(nil, decimal.Zero)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = sunat.Calculate([]entity.LineItem{line("0", "10", "10")}, decimal.Zero)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = sunat.Calculate([]entity.LineItem{line("1", "10", "99")}, decimal.Zero)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Problems[0], "línea 1")

	_, err = sunat.Calculate([]entity.LineItem{line("1", "10", "10")}, d("100"))
	assert.True(t, errors.Is(err, domain.ErrValidation), "descuento global mayor a la base")
}
