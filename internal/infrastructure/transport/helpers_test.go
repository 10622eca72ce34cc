package transport_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	domsunat "github.com/jhoicas/facturacion-sunat/internal/domain/sunat"
	infrasunat "github.com/jhoicas/facturacion-sunat/internal/infrastructure/sunat"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// sampleInvoice: factura calculada de una línea gravada 1 x 500.00 (total 590.00).
func sampleInvoice(t *testing.T) *entity.Document {
	t.Helper()
	doc := &entity.Document{
		ID:            "doc-1",
		Type:          "01",
		Series:        "F001",
		Number:        123,
		IssueDate:     time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
		Currency:      "PEN",
		OperationType: "0101",
		Issuer: &entity.Company{
			RUC:       "20131312955",
			LegalName: "EMPRESA DE PRUEBA S.A.C.",
			Address:   "AV. LOS OLIVOS 123",
		},
		Customer: &entity.Customer{
			IdentityType:   "6",
			IdentityNumber: "20100070970",
			Name:           "CLIENTE CORPORATIVO S.A.",
			Address:        "JR. HUALLAGA 456",
		},
		Items: []entity.LineItem{{
			ProductCode: "P001",
			Description: "Servicio de consultoría",
			UnitCode:    "ZZ",
			Quantity:    d("1"),
			UnitPrice:   d("500.00"),
			TaxType:     "10",
		}},
	}
	require.NoError(t, domsunat.Apply(doc))
	return doc
}

func newTestCertificate(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(20131312955),
		Subject:      pkix.Name{CommonName: "EMPRESA DE PRUEBA S.A.C."},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(1, 0, 0),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

const soapEnvelopeFmt = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<soap-env:Envelope xmlns:soap-env="http://schemas.xmlsoap.org/soap/envelope/">` +
	`<soap-env:Body>%s</soap-env:Body></soap-env:Envelope>`

// cdrZipBase64 arma un CDR comprimido en Base64 como lo devuelve sendBill.
func cdrZipBase64(t *testing.T, code, description string, notes ...string) string {
	t.Helper()
	xmlBytes, err := infrasunat.BuildCDR("F001-123", code, description, notes, time.Now())
	require.NoError(t, err)
	archive, err := infrasunat.ZipDocument("R-20131312955-01-F001-123.xml", xmlBytes)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(archive)
}

func sendBillResponse(t *testing.T, code, description string, notes ...string) string {
	return fmt.Sprintf(soapEnvelopeFmt,
		`<br:sendBillResponse xmlns:br="http://service.sunat.gob.pe"><applicationResponse>`+
			cdrZipBase64(t, code, description, notes...)+
			`</applicationResponse></br:sendBillResponse>`)
}

func faultResponse(code, message string) string {
	return fmt.Sprintf(soapEnvelopeFmt,
		`<soap-env:Fault><faultcode>`+code+`</faultcode><faultstring>`+message+`</faultstring></soap-env:Fault>`)
}
