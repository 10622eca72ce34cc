package sunat

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

// TotalsTolerance es la diferencia absoluta admitida entre la suma de líneas y lo declarado.
var TotalsTolerance = decimal.RequireFromString("0.01")

// TotalsCheck es el resultado de ValidateTotals.
type TotalsCheck struct {
	Valid      bool
	Mismatches []string
}

// ValidateTotals vuelve a sumar las líneas almacenadas y compara contra los totales declarados.
// No modifica el documento.
func ValidateTotals(doc *entity.Document) TotalsCheck {
	var sumTaxable, sumIGV, sumTotal decimal.Decimal
	for _, it := range doc.Items {
		if it.IsFree {
			continue
		}
		if it.Bucket == entity.BucketTaxable || it.Bucket == entity.BucketExport {
			sumTaxable = sumTaxable.Add(it.TaxableBase)
		}
		sumIGV = sumIGV.Add(it.TaxAmount)
		sumTotal = sumTotal.Add(it.Total)
	}

	if d := doc.GlobalDiscount; d.IsPositive() && sumTaxable.IsPositive() {
		base := d.Div(one.Add(pkgsunat.IGVRate))
		sumTaxable = sumTaxable.Sub(base)
		sumIGV = sumIGV.Sub(base.Mul(pkgsunat.IGVRate))
		sumTotal = sumTotal.Sub(d)
	}

	t := doc.Totals
	var mismatches []string
	compare := func(field string, expected, declared decimal.Decimal) {
		expected = expected.Round(2)
		if expected.Sub(declared).Abs().GreaterThan(TotalsTolerance) {
			mismatches = append(mismatches, fmt.Sprintf("%s: esperado %s, declarado %s",
				field, expected.StringFixed(2), declared.StringFixed(2)))
		}
	}
	compare("base gravada", sumTaxable, t.Taxable)
	compare("IGV", sumIGV, t.IGV)
	compare("total", sumTotal, t.Total)

	composed := t.Taxable.Add(t.Exempt).Add(t.Unaffected).Add(t.IGV)
	if !composed.Round(2).Equal(t.Total.Round(2)) {
		mismatches = append(mismatches, fmt.Sprintf("total: esperado %s (gravada + exonerada + inafecta + IGV), declarado %s",
			composed.StringFixed(2), t.Total.StringFixed(2)))
	}

	return TotalsCheck{Valid: len(mismatches) == 0, Mismatches: mismatches}
}

// EnsureTotals bloquea el envío si los totales no cuadran.
func EnsureTotals(doc *entity.Document) error {
	check := ValidateTotals(doc)
	if check.Valid {
		return nil
	}
	return &domain.ValidationError{Problems: check.Mismatches}
}
