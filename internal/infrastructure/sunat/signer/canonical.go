package signer

import (
	"bytes"
	"encoding/xml"
	"regexp"

	"github.com/ucarion/c14n"
)

var (
	xmlDeclaration = regexp.MustCompile(`^\s*<\?xml[^?]*\?>`)
	interTagSpace  = regexp.MustCompile(`>\s+<`)
)

// Canonicalize produce la forma canónica C14N del XML:
// quita la declaración, colapsa el espacio entre etiquetas y aplica C14N inclusivo.
// Es idempotente: Canonicalize(Canonicalize(x)) == Canonicalize(x).
func Canonicalize(data []byte) ([]byte, error) {
	data = xmlDeclaration.ReplaceAll(data, nil)
	data = interTagSpace.ReplaceAll(bytes.TrimSpace(data), []byte("><"))

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}
