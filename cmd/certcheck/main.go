// certcheck diagnostica un certificado digital PKCS#12 antes de registrarlo en una empresa:
// abre el archivo, valida la contraseña, muestra vigencia y huella, y firma un XML de prueba.
//
// Uso: go run ./cmd/certcheck -cert certificado.p12 [-password ...]
// Sin -password se lee SUNAT_CERT_PASSWORD.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/facturacion-sunat/internal/infrastructure/sunat/signer"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2" ` +
	`xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2" ` +
	`xmlns:ds="http://www.w3.org/2000/09/xmldsig#" ` +
	`xmlns:ext="urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2">` +
	`<ext:UBLExtensions><ext:UBLExtension><ext:ExtensionContent></ext:ExtensionContent></ext:UBLExtension></ext:UBLExtensions>` +
	`<cbc:UBLVersionID>2.1</cbc:UBLVersionID><cbc:ID>F001-1</cbc:ID></Invoice>`

func main() {
	certPath := flag.String("cert", "", "ruta del archivo .p12/.pfx")
	password := flag.String("password", os.Getenv("SUNAT_CERT_PASSWORD"), "contraseña del almacén")
	flag.Parse()

	if *certPath == "" {
		fmt.Fprintln(os.Stderr, "uso: certcheck -cert archivo.p12 [-password clave]")
		os.Exit(2)
	}

	cert, err := signer.LoadFromP12(*certPath, *password)
	if err != nil {
		fail("no se pudo abrir el certificado", err)
	}
	info, err := signer.Describe(cert)
	if err != nil {
		fail("certificado sin clave RSA utilizable", err)
	}

	fmt.Printf("Sujeto:      %s\n", info.Subject)
	fmt.Printf("Emisor:      %s\n", info.Issuer)
	fmt.Printf("Serie:       %s\n", info.Serial)
	fmt.Printf("Vigencia:    %s → %s\n", info.NotBefore.Format(time.DateOnly), info.NotAfter.Format(time.DateOnly))
	fmt.Printf("SHA-256:     %s\n", info.Fingerprint)
	fmt.Printf("Cadena:      %d certificado(s)\n", info.ChainLength)

	if info.Expired(time.Now()) {
		fail("el certificado está fuera de vigencia", nil)
	}

	envelope, err := signer.NewDigitalSignatureService().Sign([]byte(sampleXML), cert)
	if err != nil {
		fail("no se pudo firmar el XML de prueba", err)
	}
	if !signer.Verify(envelope.SignedXML) {
		fail("la firma de prueba no verifica", nil)
	}
	fmt.Printf("Firma:       OK (DigestValue %s)\n", envelope.DigestValue)
}

func fail(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", msg)
	}
	os.Exit(1)
}
