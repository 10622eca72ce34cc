// Carga del certificado digital del contribuyente desde .p12/.pfx (PKCS#12).

package signer

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"os"
	"time"

	"golang.org/x/crypto/pkcs12"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
)

// LoadFromP12 carga certificado y llave privada RSA desde un archivo .p12/.pfx.
// Toda falla se devuelve como *domain.CertificateError.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tls.Certificate{}, &domain.CertificateError{Reason: "archivo no encontrado: " + path, Err: err}
		}
		return tls.Certificate{}, &domain.CertificateError{Reason: "leer p12", Err: err}
	}
	return ParseP12(data, password)
}

// ParseP12 decodifica un almacén PKCS#12 en memoria.
// Los almacenes con varias bolsas (cadena de CA) se resuelven vía pkcs12.ToPEM; los
// cifrados con PBES2/AES (OpenSSL 3) los decodifica go-pkcs12.
func ParseP12(data []byte, password string) (tls.Certificate, error) {
	priv, cert, err := pkcs12.Decode(data, password)
	if err == nil {
		return assemble(priv, []*x509.Certificate{cert})
	}
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return tls.Certificate{}, &domain.CertificateError{Reason: "contraseña incorrecta", Err: err}
	}
	return parseMultiBag(data, password)
}

func parseMultiBag(data []byte, password string) (tls.Certificate, error) {
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return tls.Certificate{}, &domain.CertificateError{Reason: "contraseña incorrecta", Err: err}
		}
		return parseModern(data, password, err)
	}

	var certs []*x509.Certificate
	var key any
	for _, b := range blocks {
		switch b.Type {
		case "CERTIFICATE":
			c, err := x509.ParseCertificate(b.Bytes)
			if err != nil {
				return tls.Certificate{}, &domain.CertificateError{Reason: "parsear certificado", Err: err}
			}
			certs = append(certs, c)
		case "PRIVATE KEY":
			k, err := parsePrivateKey(b)
			if err != nil {
				return tls.Certificate{}, &domain.CertificateError{Reason: "parsear llave privada", Err: err}
			}
			key = k
		}
	}
	return assemble(key, certs)
}

// parseModern intenta con go-pkcs12, que además entiende almacenes de solo certificados.
func parseModern(data []byte, password string, legacyErr error) (tls.Certificate, error) {
	key, leaf, cas, err := gopkcs12.DecodeChain(data, password)
	if err == nil {
		return assemble(key, append([]*x509.Certificate{leaf}, cas...))
	}
	if errors.Is(err, gopkcs12.ErrIncorrectPassword) {
		return tls.Certificate{}, &domain.CertificateError{Reason: "contraseña incorrecta", Err: err}
	}
	if certs, tsErr := gopkcs12.DecodeTrustStore(data, password); tsErr == nil {
		return assemble(nil, certs)
	}
	return tls.Certificate{}, &domain.CertificateError{Reason: "decodificar p12", Err: errors.Join(legacyErr, err)}
}

// assemble arma el par certificado/llave. La hoja es el certificado cuya llave
// pública corresponde a la llave privada; el resto forma la cadena.
func assemble(key any, certs []*x509.Certificate) (tls.Certificate, error) {
	if len(certs) == 0 {
		return tls.Certificate{}, &domain.CertificateError{Reason: "el almacén no contiene certificado"}
	}
	if key == nil {
		return tls.Certificate{}, &domain.CertificateError{Reason: "el almacén no contiene llave privada"}
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return tls.Certificate{}, &domain.CertificateError{Reason: "la llave privada no es RSA"}
	}

	leaf := certs[0]
	for _, c := range certs {
		if pub, ok := c.PublicKey.(*rsa.PublicKey); ok && pub.Equal(&rsaKey.PublicKey) {
			leaf = c
			break
		}
	}
	chain := [][]byte{leaf.Raw}
	for _, c := range certs {
		if c != leaf {
			chain = append(chain, c.Raw)
		}
	}
	return tls.Certificate{Certificate: chain, PrivateKey: rsaKey, Leaf: leaf}, nil
}

// ToPEM entrega las llaves RSA como PKCS#1; se acepta PKCS#8 por compatibilidad.
func parsePrivateKey(b *pem.Block) (any, error) {
	if k, err := x509.ParsePKCS1PrivateKey(b.Bytes); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(b.Bytes); err == nil {
		return k, nil
	}
	return x509.ParsePKCS8PrivateKey(b.Bytes)
}

// CertInfo resume un certificado para diagnóstico (cmd/certcheck).
type CertInfo struct {
	Subject     string
	Issuer      string
	Serial      string
	NotBefore   time.Time
	NotAfter    time.Time
	Fingerprint string // SHA-256 del DER en hex
	ChainLength int
}

// Describe devuelve los datos principales del certificado hoja.
func Describe(cert tls.Certificate) (*CertInfo, error) {
	_, leaf, err := signingMaterial(cert)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(leaf.Raw)
	return &CertInfo{
		Subject:     leaf.Subject.String(),
		Issuer:      leaf.Issuer.String(),
		Serial:      leaf.SerialNumber.Text(16),
		NotBefore:   leaf.NotBefore,
		NotAfter:    leaf.NotAfter,
		Fingerprint: hex.EncodeToString(sum[:]),
		ChainLength: len(cert.Certificate),
	}, nil
}

// Expired indica si el certificado está fuera de su vigencia en now.
func (i *CertInfo) Expired(now time.Time) bool {
	return now.Before(i.NotBefore) || now.After(i.NotAfter)
}
