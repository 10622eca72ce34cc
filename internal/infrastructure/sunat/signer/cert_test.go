package signer_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/infrastructure/sunat/signer"
)

type testIdentity struct {
	key  *rsa.PrivateKey
	cert *x509.Certificate
}

// issue emite un certificado firmado por parent; con parent nil es autofirmado.
func issue(t *testing.T, cn string, parent *testIdentity, isCA bool) *testIdentity {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: isCA,
		IsCA:                  isCA,
	}
	if isCA {
		tmpl.KeyUsage |= x509.KeyUsageCertSign
	}
	signerCert, signerKey := tmpl, key
	if parent != nil {
		signerCert, signerKey = parent.cert, parent.key
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, signerCert, &key.PublicKey, signerKey)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return &testIdentity{key: key, cert: cert}
}

func writeP12(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "certificado.p12")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadFromP12_CargaFirmaYVerifica(t *testing.T) {
	id := issue(t, "EMPRESA DE PRUEBA S.A.C.", nil, false)
	data, err := gopkcs12.Legacy.Encode(id.key, id.cert, nil, "clave")
	require.NoError(t, err)

	cert, err := signer.LoadFromP12(writeP12(t, data), "clave")
	require.NoError(t, err)
	require.Len(t, cert.Certificate, 1)
	assert.Equal(t, id.cert.Raw, cert.Certificate[0])

	env, err := signer.NewDigitalSignatureService().Sign([]byte(unsignedInvoice), cert)
	require.NoError(t, err)
	assert.True(t, signer.Verify(env.SignedXML))
}

func TestLoadFromP12_ContrasenaIncorrecta(t *testing.T) {
	id := issue(t, "EMPRESA DE PRUEBA S.A.C.", nil, false)

	for name, enc := range map[string]*gopkcs12.Encoder{"legacy": gopkcs12.Legacy, "modern": gopkcs12.Modern} {
		t.Run(name, func(t *testing.T) {
			data, err := enc.Encode(id.key, id.cert, nil, "clave")
			require.NoError(t, err)

			_, err = signer.LoadFromP12(writeP12(t, data), "otra")
			require.ErrorIs(t, err, domain.ErrCertificate)
			assert.Contains(t, err.Error(), "contraseña incorrecta")
		})
	}
}

func TestParseP12_CadenaConCA(t *testing.T) {
	ca := issue(t, "CA INTERMEDIA DE PRUEBA", nil, true)
	leaf := issue(t, "EMPRESA DE PRUEBA S.A.C.", ca, false)
	data, err := gopkcs12.Legacy.Encode(leaf.key, leaf.cert, []*x509.Certificate{ca.cert}, "clave")
	require.NoError(t, err)

	cert, err := signer.ParseP12(data, "clave")
	require.NoError(t, err)

	require.NotNil(t, cert.Leaf)
	assert.Equal(t, "EMPRESA DE PRUEBA S.A.C.", cert.Leaf.Subject.CommonName)
	require.Len(t, cert.Certificate, 2)
	assert.Equal(t, leaf.cert.Raw, cert.Certificate[0], "la hoja va primero")
	assert.Equal(t, ca.cert.Raw, cert.Certificate[1])

	info, err := signer.Describe(cert)
	require.NoError(t, err)
	assert.Equal(t, 2, info.ChainLength)

	env, err := signer.NewDigitalSignatureService().Sign([]byte(unsignedInvoice), cert)
	require.NoError(t, err)
	assert.True(t, signer.Verify(env.SignedXML))
}

func TestParseP12_AlmacenModernoAES(t *testing.T) {
	ca := issue(t, "CA INTERMEDIA DE PRUEBA", nil, true)
	leaf := issue(t, "EMPRESA DE PRUEBA S.A.C.", ca, false)
	data, err := gopkcs12.Modern.Encode(leaf.key, leaf.cert, []*x509.Certificate{ca.cert}, "clave")
	require.NoError(t, err)

	cert, err := signer.ParseP12(data, "clave")
	require.NoError(t, err)
	assert.Equal(t, leaf.cert.Raw, cert.Certificate[0])
	assert.Len(t, cert.Certificate, 2)
}

func TestParseP12_SoloCertificados(t *testing.T) {
	ca := issue(t, "CA INTERMEDIA DE PRUEBA", nil, true)
	leaf := issue(t, "EMPRESA DE PRUEBA S.A.C.", ca, false)
	data, err := gopkcs12.Legacy.EncodeTrustStore([]*x509.Certificate{leaf.cert, ca.cert}, "clave")
	require.NoError(t, err)

	_, err = signer.ParseP12(data, "clave")
	require.ErrorIs(t, err, domain.ErrCertificate)
	assert.Contains(t, err.Error(), "no contiene llave privada")
}

func TestParseP12_LlaveNoRSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "EC"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(1, 0, 0),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	data, err := gopkcs12.Legacy.Encode(key, cert, nil, "clave")
	require.NoError(t, err)

	_, err = signer.ParseP12(data, "clave")
	require.ErrorIs(t, err, domain.ErrCertificate)
	assert.Contains(t, err.Error(), "no es RSA")
}
