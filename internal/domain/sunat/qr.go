package sunat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
)

// BuildQRPayload arma la cadena del código QR de la representación impresa:
//
//	RUC|TIPO|SERIE|NUMERO|MTO IGV|MTO TOTAL|FECHA EMISION|TIPO DOC ADQ|NRO DOC ADQ|HASH|
//
// Montos con punto decimal y 2 decimales, fecha YYYY-MM-DD.
func BuildQRPayload(doc *entity.Document) (string, error) {
	if doc == nil || doc.Issuer == nil || doc.Customer == nil {
		return "", fmt.Errorf("sunat: documento sin emisor o cliente resuelto")
	}
	if doc.Issuer.RUC == "" {
		return "", fmt.Errorf("sunat: RUC del emisor es obligatorio para el QR")
	}
	if doc.Hash == "" {
		return "", fmt.Errorf("sunat: el documento aún no tiene hash de firma")
	}
	fields := []string{
		doc.Issuer.RUC,
		doc.Type,
		doc.Series,
		strconv.FormatInt(doc.Number, 10),
		doc.Totals.IGV.Round(2).StringFixed(2),
		doc.Totals.Total.Round(2).StringFixed(2),
		doc.IssueDate.Format("2006-01-02"),
		doc.Customer.IdentityType,
		doc.Customer.IdentityNumber,
		doc.Hash,
	}
	return strings.Join(fields, "|") + "|", nil
}
