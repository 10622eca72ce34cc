// Package sunat contiene las reglas de dominio de comprobantes electrónicos SUNAT:
// cálculo de IGV, validación de totales y documentos, y la máquina de estados de envío.
package sunat

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

var one = decimal.NewFromInt(1)

// CalculationResult contiene las líneas con sus campos derivados y los totales del documento.
type CalculationResult struct {
	Items  []entity.LineItem
	Totals entity.DocumentTotals
}

// Calculate deriva base, IGV y total de cada línea y los totales del documento.
//
// El descuento global se considera con IGV incluido: se descuenta d/1.18 de la base
// gravada y d/1.18*0.18 del IGV. No se prorratea a exonerado, inafecto ni gratuito.
func Calculate(items []entity.LineItem, globalDiscount decimal.Decimal) (*CalculationResult, error) {
	if len(items) == 0 {
		return nil, &domain.ValidationError{Problems: []string{"el comprobante debe tener al menos una línea"}}
	}
	if globalDiscount.IsNegative() {
		return nil, &domain.ValidationError{Problems: []string{"el descuento global no puede ser negativo"}}
	}

	var errs []error
	var taxable, exempt, unaffected, free, igv decimal.Decimal
	out := make([]entity.LineItem, len(items))

	for i, item := range items {
		line, err := calculateLine(item)
		if err != nil {
			errs = append(errs, fmt.Errorf("línea %d: %w", i+1, err))
			continue
		}
		subtotal := item.Quantity.Mul(item.UnitPrice).Sub(item.Discount)
		switch line.Bucket {
		case entity.BucketTaxable:
			taxable = taxable.Add(subtotal)
			igv = igv.Add(subtotal.Mul(pkgsunat.IGVRate))
		case entity.BucketExport:
			taxable = taxable.Add(subtotal)
		case entity.BucketExempt:
			exempt = exempt.Add(subtotal)
		case entity.BucketUnaffected:
			unaffected = unaffected.Add(subtotal)
		case entity.BucketFree:
			free = free.Add(subtotal)
		}
		out[i] = line
	}
	if len(errs) > 0 {
		return nil, domain.NewValidationError(errors.Join(errs...))
	}

	if globalDiscount.IsPositive() && taxable.IsPositive() {
		base := globalDiscount.Div(one.Add(pkgsunat.IGVRate))
		if base.GreaterThan(taxable) {
			return nil, &domain.ValidationError{Problems: []string{
				fmt.Sprintf("el descuento global (%s) excede la base gravada", globalDiscount.StringFixed(2)),
			}}
		}
		taxable = taxable.Sub(base)
		igv = igv.Sub(base.Mul(pkgsunat.IGVRate))
	}

	totals := entity.DocumentTotals{
		Taxable:        taxable.Round(2),
		Exempt:         exempt.Round(2),
		Unaffected:     unaffected.Round(2),
		Free:           free.Round(2),
		IGV:            igv.Round(2),
		GlobalDiscount: globalDiscount.Round(2),
	}
	totals.Subtotal = totals.Taxable.Add(totals.Exempt).Add(totals.Unaffected)
	totals.Total = totals.Subtotal.Add(totals.IGV)

	return &CalculationResult{Items: out, Totals: totals}, nil
}

func calculateLine(item entity.LineItem) (entity.LineItem, error) {
	if !item.Quantity.IsPositive() {
		return item, fmt.Errorf("la cantidad debe ser mayor a cero")
	}
	if item.UnitPrice.IsNegative() {
		return item, fmt.Errorf("el precio unitario no puede ser negativo")
	}
	if item.Discount.IsNegative() {
		return item, fmt.Errorf("el descuento no puede ser negativo")
	}
	treatment, ok := pkgsunat.TreatmentFor(item.TaxType)
	if !ok {
		return item, fmt.Errorf("tipo de afectación IGV desconocido %q", item.TaxType)
	}
	subtotal := item.Quantity.Mul(item.UnitPrice).Sub(item.Discount)
	if subtotal.IsNegative() {
		return item, fmt.Errorf("el descuento excede el valor de la línea")
	}
	if item.UnitCode == "" {
		item.UnitCode = pkgsunat.UnitProduct
	}

	item.Bucket = treatment.Bucket
	item.TaxableBase = subtotal.Round(2)
	item.TaxAmount = decimal.Zero
	item.IsFree = false

	switch treatment.Bucket {
	case entity.BucketTaxable:
		item.TaxAmount = subtotal.Mul(pkgsunat.IGVRate).Round(2)
	case entity.BucketFree:
		item.IsFree = true
	}
	item.Total = item.TaxableBase.Add(item.TaxAmount)

	if item.IsFree {
		item.ReferencePrice = item.UnitPrice.Round(6)
	} else {
		item.ReferencePrice = item.Total.Div(item.Quantity).Round(6)
	}
	return item, nil
}

// Apply recalcula el documento en sitio: reemplaza sus líneas y totales.
func Apply(doc *entity.Document) error {
	res, err := Calculate(doc.Items, doc.GlobalDiscount)
	if err != nil {
		return err
	}
	doc.Items = res.Items
	doc.Totals = res.Totals
	return nil
}
