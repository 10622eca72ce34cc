package sunat

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	domsunat "github.com/jhoicas/facturacion-sunat/internal/domain/sunat"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	pkgsunat "github.com/jhoicas/facturacion-sunat/pkg/sunat"
)

const nsApplicationResponse = "urn:oasis:names:specification:ubl:schema:xsd:ApplicationResponse-2"

// CDR es la Constancia de Recepción devuelta por SUNAT (ApplicationResponse).
type CDR struct {
	ID           string
	ReferenceID  string
	ResponseCode string
	Description  string
	Notes        []string
}

// Status clasifica el CDR. Un código 0 con notas de observación (>= 4000) es observado.
func (c *CDR) Status() string {
	status := domsunat.StatusForResponseCode(c.ResponseCode)
	if status == entity.DocumentStatusAccepted && c.hasObservations() {
		return entity.DocumentStatusObserved
	}
	return status
}

func (c *CDR) hasObservations() bool {
	for _, note := range c.Notes {
		if noteCode(note) >= pkgsunat.ResponseObservationMin {
			return true
		}
	}
	return false
}

// noteCode extrae el código numérico inicial de una nota ("4287 - El precio...").
func noteCode(note string) int {
	note = strings.TrimSpace(note)
	end := 0
	for end < len(note) && note[end] >= '0' && note[end] <= '9' {
		end++
	}
	if end == 0 {
		return -1
	}
	n, err := strconv.Atoi(note[:end])
	if err != nil {
		return -1
	}
	return n
}

// ParseCDR acepta el ZIP devuelto por SUNAT o el XML ya descomprimido.
func ParseCDR(data []byte) (*CDR, error) {
	content := data
	if len(data) >= 4 && bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		unzipped, err := UnzipResponse(data)
		if err != nil {
			return nil, err
		}
		content = unzipped
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("cdr: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("cdr: documento sin raíz")
	}

	code := root.FindElement(".//ResponseCode")
	if code == nil {
		return nil, fmt.Errorf("cdr: no contiene ResponseCode")
	}
	cdr := &CDR{ResponseCode: strings.TrimSpace(code.Text())}
	if el := root.SelectElement("ID"); el != nil {
		cdr.ID = strings.TrimSpace(el.Text())
	}
	if el := root.FindElement(".//ReferenceID"); el != nil {
		cdr.ReferenceID = strings.TrimSpace(el.Text())
	}
	if el := root.FindElement(".//Description"); el != nil {
		cdr.Description = strings.TrimSpace(el.Text())
	}
	for _, note := range root.SelectElements("Note") {
		if text := strings.TrimSpace(note.Text()); text != "" {
			cdr.Notes = append(cdr.Notes, text)
		}
	}
	return cdr, nil
}

// BuildCDR genera un ApplicationResponse mínimo. Lo usa el adaptador simulado.
func BuildCDR(documentID, code, description string, notes []string, issued time.Time) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("ar:ApplicationResponse")
	root.CreateAttr("xmlns:ar", nsApplicationResponse)
	root.CreateAttr("xmlns:cac", NsCac)
	root.CreateAttr("xmlns:cbc", NsCbc)

	root.CreateElement("cbc:UBLVersionID").SetText("2.0")
	root.CreateElement("cbc:CustomizationID").SetText("1.0")
	root.CreateElement("cbc:ID").SetText(strconv.FormatInt(issued.UnixNano(), 10))
	root.CreateElement("cbc:IssueDate").SetText(issued.Format("2006-01-02"))
	root.CreateElement("cbc:IssueTime").SetText(issued.Format("15:04:05"))
	for _, n := range notes {
		root.CreateElement("cbc:Note").SetText(n)
	}

	response := root.CreateElement("cac:DocumentResponse").CreateElement("cac:Response")
	response.CreateElement("cbc:ReferenceID").SetText(documentID)
	response.CreateElement("cbc:ResponseCode").SetText(code)
	response.CreateElement("cbc:Description").SetText(description)

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("cdr: serializar: %w", err)
	}
	return buf.Bytes(), nil
}

// charsetReader admite respuestas SUNAT declaradas en ISO-8859-1.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") {
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	}
	return input, nil
}
