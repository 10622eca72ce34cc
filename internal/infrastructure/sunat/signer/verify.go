package signer

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"strings"

	"github.com/beevik/etree"
)

// Verify comprueba la firma enveloped de un XML firmado con Sign.
// Recalcula el digest del documento sin ds:Signature y valida la firma RSA de
// SignedInfo con el certificado embebido. Nunca devuelve error: cualquier falla es false.
func Verify(signedXML []byte) bool {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signedXML); err != nil {
		return false
	}
	root := doc.Root()
	if root == nil {
		return false
	}
	signature := root.FindElement(".//ds:Signature")
	if signature == nil {
		return false
	}
	signedInfo := signature.SelectElement("SignedInfo")
	sigValue := signature.SelectElement("SignatureValue")
	certEl := signature.FindElement(".//X509Certificate")
	if signedInfo == nil || sigValue == nil || certEl == nil {
		return false
	}
	digestEl := signedInfo.FindElement(".//DigestValue")
	if digestEl == nil {
		return false
	}

	cert, err := x509.ParseCertificate(decode(certEl.Text()))
	if err != nil {
		return false
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return false
	}

	canonicalSignedInfo, err := canonicalInContext(signedInfo, signature, nil)
	if err != nil {
		return false
	}
	hash := sha256.Sum256(canonicalSignedInfo)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, hash[:], decode(sigValue.Text())); err != nil {
		return false
	}

	// transformación enveloped: el digest se calcula sin ds:Signature
	parent := signature.Parent()
	if parent == nil {
		return false
	}
	parent.RemoveChild(signature)
	var unsigned bytes.Buffer
	if _, err := doc.WriteTo(&unsigned); err != nil {
		return false
	}
	canonicalDoc, err := Canonicalize(unsigned.Bytes())
	if err != nil {
		return false
	}
	digest := sha256.Sum256(canonicalDoc)
	return base64.StdEncoding.EncodeToString(digest[:]) == strings.TrimSpace(digestEl.Text())
}

func decode(s string) []byte {
	data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil
	}
	return data
}
