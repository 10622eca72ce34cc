package sunat

import (
	"fmt"

	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

// Ambientes del servicio SOAP de SUNAT.
const (
	EnvBeta       = "beta"
	EnvProduction = "production"
)

// Familias de servicio: cada una publica su propio billService.
const (
	FamilyInvoice   = "invoice"   // facturas, boletas, notas, RC y RA
	FamilyRetention = "retention" // retenciones y percepciones
	FamilyGuide     = "guide"     // guías de remisión
)

var endpoints = map[string]map[string]string{
	FamilyInvoice: {
		EnvBeta:       "https://e-beta.sunat.gob.pe/ol-ti-itcpfegem-beta/billService",
		EnvProduction: "https://e-factura.sunat.gob.pe/ol-ti-itcpfegem/billService",
	},
	FamilyRetention: {
		EnvBeta:       "https://e-beta.sunat.gob.pe/ol-ti-itemision-otroscpe-gem-beta/billService",
		EnvProduction: "https://e-factura.sunat.gob.pe/ol-ti-itemision-otroscpe-gem/billService",
	},
	FamilyGuide: {
		EnvBeta:       "https://e-beta.sunat.gob.pe/ol-ti-itemision-guia-gem-beta/billService",
		EnvProduction: "https://e-guiaremision.sunat.gob.pe/ol-ti-itemision-guia-gem/billService",
	},
}

// ConsultEndpoint atiende getStatusCdr (sólo producción).
const ConsultEndpoint = "https://e-factura.sunat.gob.pe/ol-it-wsconscpegem/billConsultService"

// FamilyFor devuelve la familia de servicio del tipo de documento.
func FamilyFor(docType string) string {
	switch docType {
	case pkgsunat.DocTypeRetention, pkgsunat.DocTypePerception:
		return FamilyRetention
	case pkgsunat.DocTypeGuide:
		return FamilyGuide
	default:
		return FamilyInvoice
	}
}

// EndpointFor resuelve la URL del billService para la familia y ambiente.
func EndpointFor(family, env string) (string, error) {
	byEnv, ok := endpoints[family]
	if !ok {
		return "", fmt.Errorf("sunat: familia de servicio desconocida %q", family)
	}
	url, ok := byEnv[env]
	if !ok {
		return "", fmt.Errorf("sunat: ambiente desconocido %q (usar 'beta' o 'production')", env)
	}
	return url, nil
}
