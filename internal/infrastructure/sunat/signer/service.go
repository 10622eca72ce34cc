// Servicio de firma digital XMLDSig enveloped para comprobantes SUNAT (UBL 2.1).
// Inyecta <ds:Signature Id="SignatureSP"> en el ext:ExtensionContent vacío del XML.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
)

// DigitalSignatureService firma el XML y devuelve el sobre firmado con su DigestValue.
type DigitalSignatureService struct{}

// NewDigitalSignatureService crea el servicio.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{}
}

// Sign ejecuta el pipeline: C14N → SHA-256 → SignedInfo → RSA-SHA256 → inyección en el placeholder.
func (s *DigitalSignatureService) Sign(xmlBytes []byte, cert tls.Certificate) (*entity.SignedEnvelope, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("firma: XML vacío")
	}
	priv, x509Cert, err := signingMaterial(cert)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("firma: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("firma: documento sin raíz")
	}
	placeholder := root.FindElement("./ext:UBLExtensions/ext:UBLExtension/ext:ExtensionContent")
	if placeholder == nil {
		return nil, fmt.Errorf("firma: no se encontró ext:ExtensionContent para inyectar la firma")
	}
	if len(placeholder.ChildElements()) > 0 {
		return nil, fmt.Errorf("firma: el documento ya está firmado")
	}

	// 1) Digest del documento completo (Reference URI="", transformación enveloped)
	canonicalDoc, err := Canonicalize(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("firma: canonicalizar documento: %w", err)
	}
	docDigest := sha256.Sum256(canonicalDoc)
	digestB64 := base64.StdEncoding.EncodeToString(docDigest[:])

	// 2) SignedInfo, canonicalizado con los namespaces que hereda dentro del documento
	signedInfo := buildSignedInfo(digestB64)
	canonicalSignedInfo, err := canonicalInContext(signedInfo, placeholder, map[string]string{"xmlns:ds": NamespaceDS})
	if err != nil {
		return nil, fmt.Errorf("firma: canonicalizar SignedInfo: %w", err)
	}
	signHash := sha256.Sum256(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, signHash[:])
	if err != nil {
		return nil, fmt.Errorf("firma: firmar SignedInfo: %w", err)
	}

	// 3) ds:Signature completo
	signature := etree.NewElement("ds:Signature")
	signature.CreateAttr("xmlns:ds", NamespaceDS)
	signature.CreateAttr("Id", SignatureID)
	signature.AddChild(signedInfo)
	signature.CreateElement("ds:SignatureValue").SetText(base64.StdEncoding.EncodeToString(signatureValue))
	x509Data := signature.CreateElement("ds:KeyInfo").CreateElement("ds:X509Data")
	x509Data.CreateElement("ds:X509SubjectName").SetText(x509Cert.Subject.String())
	x509Data.CreateElement("ds:X509Certificate").SetText(base64.StdEncoding.EncodeToString(x509Cert.Raw))

	// 4) Inyectar en el placeholder
	placeholder.AddChild(signature)
	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("firma: serializar XML firmado: %w", err)
	}

	return &entity.SignedEnvelope{
		RawXML:      xmlBytes,
		SignedXML:   out.Bytes(),
		DigestValue: digestB64,
	}, nil
}

func signingMaterial(cert tls.Certificate) (*rsa.PrivateKey, *x509.Certificate, error) {
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok || priv == nil {
		return nil, nil, &domain.CertificateError{Reason: "el certificado debe incluir llave privada RSA"}
	}
	if cert.Leaf != nil {
		return priv, cert.Leaf, nil
	}
	if len(cert.Certificate) == 0 {
		return nil, nil, &domain.CertificateError{Reason: "el almacén no contiene certificado"}
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, nil, &domain.CertificateError{Reason: "parsear certificado", Err: err}
	}
	return priv, x509Cert, nil
}

func buildSignedInfo(digestB64 string) *etree.Element {
	si := etree.NewElement("ds:SignedInfo")
	si.CreateElement("ds:CanonicalizationMethod").CreateAttr("Algorithm", AlgC14N)
	si.CreateElement("ds:SignatureMethod").CreateAttr("Algorithm", AlgRSASHA256)
	ref := si.CreateElement("ds:Reference")
	ref.CreateAttr("URI", "")
	ref.CreateElement("ds:Transforms").CreateElement("ds:Transform").CreateAttr("Algorithm", TransformEnveloped)
	ref.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	ref.CreateElement("ds:DigestValue").SetText(digestB64)
	return si
}

// canonicalInContext canonicaliza el elemento como subconjunto del documento:
// declara en él los namespaces visibles desde parent (el más cercano gana) más extra.
func canonicalInContext(el, parent *etree.Element, extra map[string]string) ([]byte, error) {
	cp := el.Copy()
	declared := map[string]bool{}
	for _, a := range cp.Attr {
		declared[a.FullKey()] = true
	}
	for key, value := range extra {
		if !declared[key] {
			cp.CreateAttr(key, value)
			declared[key] = true
		}
	}
	for p := parent; p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			key := a.FullKey()
			isNS := a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
			if !isNS || declared[key] {
				continue
			}
			cp.CreateAttr(key, a.Value)
			declared[key] = true
		}
	}
	tmp := etree.NewDocument()
	tmp.SetRoot(cp)
	data, err := tmp.WriteToBytes()
	if err != nil {
		return nil, err
	}
	return Canonicalize(data)
}
