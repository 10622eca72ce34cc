package sunat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/internal/infrastructure/sunat"
)

func TestEndpointFor_FamiliasYAmbientes(t *testing.T) {
	cases := []struct {
		docType, env, want string
	}{
		{"01", sunat.EnvBeta, "https://e-beta.sunat.gob.pe/ol-ti-itcpfegem-beta/billService"},
		{"03", sunat.EnvProduction, "https://e-factura.sunat.gob.pe/ol-ti-itcpfegem/billService"},
		{"RA", sunat.EnvProduction, "https://e-factura.sunat.gob.pe/ol-ti-itcpfegem/billService"},
		{"20", sunat.EnvBeta, "https://e-beta.sunat.gob.pe/ol-ti-itemision-otroscpe-gem-beta/billService"},
		{"40", sunat.EnvProduction, "https://e-factura.sunat.gob.pe/ol-ti-itemision-otroscpe-gem/billService"},
		{"09", sunat.EnvProduction, "https://e-guiaremision.sunat.gob.pe/ol-ti-itemision-guia-gem/billService"},
	}
	for _, tc := range cases {
		got, err := sunat.EndpointFor(sunat.FamilyFor(tc.docType), tc.env)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "tipo %s en %s", tc.docType, tc.env)
	}

	_, err := sunat.EndpointFor(sunat.FamilyInvoice, "staging")
	assert.Error(t, err)
}

func TestFilenames_FormatoSUNAT(t *testing.T) {
	doc := &entity.Document{Type: "01", Series: "F001", Number: 123}
	base := sunat.DocumentBaseName("20131312955", doc)
	assert.Equal(t, "20131312955-01-F001-123", base)

	xmlName, zipName := sunat.Filenames(base)
	assert.Equal(t, "20131312955-01-F001-123.xml", xmlName)
	assert.Equal(t, "20131312955-01-F001-123.zip", zipName)

	assert.Equal(t, "20131312955-RA-20260312-1", sunat.BatchBaseName("20131312955", "RA-20260312-1"))
}
