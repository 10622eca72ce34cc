package sunat

import (
	"fmt"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
)

// DocumentBaseName genera el nombre exigido por SUNAT para el XML y el ZIP:
//
//	{RUC}-{TIPO}-{SERIE}-{NUMERO}
//
// Ejemplo: 20131312955-01-F001-123
func DocumentBaseName(issuerRUC string, doc *entity.Document) string {
	return fmt.Sprintf("%s-%s-%s-%d", issuerRUC, doc.Type, doc.Series, doc.Number)
}

// BatchBaseName para resúmenes y bajas: {RUC}-RC-YYYYMMDD-n / {RUC}-RA-YYYYMMDD-n.
func BatchBaseName(issuerRUC, batchID string) string {
	return issuerRUC + "-" + batchID
}

// Filenames devuelve (xmlName, zipName) a partir del nombre base.
func Filenames(base string) (xmlName, zipName string) {
	return base + ".xml", base + ".zip"
}
