package sunat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	soapNS    = "http://schemas.xmlsoap.org/soap/envelope/"
	soapNSSer = "http://service.sunat.gob.pe"
	soapNSSec = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"

	// DefaultTimeout es el timeout de red por llamada; el WS SUNAT puede tardar varios segundos.
	DefaultTimeout = 60 * time.Second

	maxResponseSize = 1 << 20
)

// Credentials es el usuario SOL del contribuyente. Username = RUC + usuario SOL.
type Credentials struct {
	Username string
	Password string
}

// NewCredentials arma las credenciales WS-Security a partir del RUC y el usuario SOL.
func NewCredentials(ruc, solUser, solPassword string) Credentials {
	return Credentials{Username: ruc + solUser, Password: solPassword}
}

// Fault es un SOAP Fault devuelto por SUNAT (ej: faultcode "soap-env:Client.0102").
type Fault struct {
	Code    string
	Message string
}

// NumericCode extrae el código SUNAT del faultcode ("soap-env:Client.1033" → "1033").
func (f *Fault) NumericCode() string {
	code := f.Code
	if i := strings.LastIndexAny(code, ".:"); i >= 0 {
		code = code[i+1:]
	}
	if n, err := strconv.Atoi(strings.TrimSpace(code)); err == nil {
		return strconv.Itoa(n)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(f.Message)); err == nil {
		return strconv.Itoa(n)
	}
	return ""
}

// SOAPResponse es la respuesta normalizada de cualquiera de las operaciones del billService.
type SOAPResponse struct {
	ApplicationResponse []byte // ZIP del CDR (sendBill)
	Ticket              string // sendSummary
	StatusCode          string // getStatus / getStatusCdr
	StatusMessage       string
	Content             []byte // ZIP del CDR en getStatus / getStatusCdr
	Fault               *Fault
	HTTPStatus          int
}

// SOAPClient consume el billService de SUNAT (sendBill, sendSummary, getStatus, getStatusCdr).
type SOAPClient struct {
	httpClient *http.Client
}

// NewSOAPClient construye el cliente con el timeout indicado (DefaultTimeout si es 0).
func NewSOAPClient(timeout time.Duration) *SOAPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SOAPClient{httpClient: &http.Client{Timeout: timeout}}
}

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName   xml.Name   `xml:"soapenv:Envelope"`
	XmlnsEnv  string     `xml:"xmlns:soapenv,attr"`
	XmlnsSer  string     `xml:"xmlns:ser,attr"`
	XmlnsWsse string     `xml:"xmlns:wsse,attr"`
	Header    soapHeader `xml:"soapenv:Header"`
	Body      soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct {
	Security struct {
		UsernameToken struct {
			Username string `xml:"wsse:Username"`
			Password string `xml:"wsse:Password"`
		} `xml:"wsse:UsernameToken"`
	} `xml:"wsse:Security"`
}

type soapBody struct {
	SendBill     *fileRequest   `xml:"ser:sendBill,omitempty"`
	SendSummary  *fileRequest   `xml:"ser:sendSummary,omitempty"`
	GetStatus    *statusRequest `xml:"ser:getStatus,omitempty"`
	GetStatusCdr *cdrRequest    `xml:"ser:getStatusCdr,omitempty"`
}

type fileRequest struct {
	FileName    string `xml:"fileName"`
	ContentFile string `xml:"contentFile"` // ZIP en Base64
}

type statusRequest struct {
	Ticket string `xml:"ticket"`
}

type cdrRequest struct {
	RUC    string `xml:"rucComprobante"`
	Type   string `xml:"tipoComprobante"`
	Series string `xml:"serieComprobante"`
	Number string `xml:"numeroComprobante"`
}

// ── Estructuras de respuesta SOAP ─────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	SendBill *struct {
		ApplicationResponse string `xml:"applicationResponse"`
	} `xml:"sendBillResponse"`
	SendSummary *struct {
		Ticket string `xml:"ticket"`
	} `xml:"sendSummaryResponse"`
	GetStatus *struct {
		Status soapStatus `xml:"status"`
	} `xml:"getStatusResponse"`
	GetStatusCdr *struct {
		Status soapStatus `xml:"statusCdr"`
	} `xml:"getStatusCdrResponse"`
	Fault *struct {
		FaultCode   string `xml:"faultcode"`
		FaultString string `xml:"faultstring"`
	} `xml:"Fault"`
}

type soapStatus struct {
	StatusCode    string `xml:"statusCode"`
	StatusMessage string `xml:"statusMessage"`
	Content       string `xml:"content"`
}

// ── Operaciones ───────────────────────────────────────────────────────────────

// SendBill envía un comprobante individual (síncrono): la respuesta trae el CDR.
func (c *SOAPClient) SendBill(ctx context.Context, endpoint string, cred Credentials, fileName string, zipBytes []byte) (*SOAPResponse, error) {
	body := soapBody{SendBill: &fileRequest{
		FileName:    fileName,
		ContentFile: base64.StdEncoding.EncodeToString(zipBytes),
	}}
	return c.call(ctx, endpoint, "urn:sendBill", cred, body)
}

// SendSummary envía un resumen diario o comunicación de baja (asíncrono): la respuesta trae un ticket.
func (c *SOAPClient) SendSummary(ctx context.Context, endpoint string, cred Credentials, fileName string, zipBytes []byte) (*SOAPResponse, error) {
	body := soapBody{SendSummary: &fileRequest{
		FileName:    fileName,
		ContentFile: base64.StdEncoding.EncodeToString(zipBytes),
	}}
	return c.call(ctx, endpoint, "urn:sendSummary", cred, body)
}

// GetStatus consulta el estado de un ticket (98 en proceso, 99 con errores, 0 procesado).
func (c *SOAPClient) GetStatus(ctx context.Context, endpoint string, cred Credentials, ticket string) (*SOAPResponse, error) {
	body := soapBody{GetStatus: &statusRequest{Ticket: ticket}}
	return c.call(ctx, endpoint, "urn:getStatus", cred, body)
}

// GetStatusCdr recupera el CDR de un comprobante ya enviado (servicio de consulta).
func (c *SOAPClient) GetStatusCdr(ctx context.Context, endpoint string, cred Credentials, ruc, docType, series string, number int64) (*SOAPResponse, error) {
	body := soapBody{GetStatusCdr: &cdrRequest{
		RUC:    ruc,
		Type:   docType,
		Series: series,
		Number: strconv.FormatInt(number, 10),
	}}
	return c.call(ctx, endpoint, "urn:getStatusCdr", cred, body)
}

// call serializa el envelope, hace el POST y normaliza la respuesta.
// Un error de red o un cuerpo ilegible devuelve error; un SOAP Fault viene en SOAPResponse.Fault.
func (c *SOAPClient) call(ctx context.Context, endpoint, action string, cred Credentials, body soapBody) (*SOAPResponse, error) {
	envelope := soapEnvelope{
		XmlnsEnv:  soapNS,
		XmlnsSer:  soapNSSer,
		XmlnsWsse: soapNSSec,
		Body:      body,
	}
	envelope.Header.Security.UsernameToken.Username = cred.Username
	envelope.Header.Security.UsernameToken.Password = cred.Password

	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		bytes.NewReader(append([]byte(xml.Header), payload...)))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("soap: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("soap: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("soap: leer respuesta: %w", err)
	}

	parsed, err := parseResponse(rawBody)
	if err != nil {
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("soap: HTTP %d: %s", resp.StatusCode, truncate(string(rawBody), 200))
		}
		return nil, err
	}
	parsed.HTTPStatus = resp.StatusCode
	if parsed.Fault == nil && resp.StatusCode >= 300 {
		return nil, fmt.Errorf("soap: HTTP %d sin SOAP Fault", resp.StatusCode)
	}
	return parsed, nil
}

// parseResponse desempaqueta la respuesta SOAP y decodifica los contenidos Base64.
func parseResponse(rawBody []byte) (*SOAPResponse, error) {
	var envResp soapResponseEnvelope
	dec := xml.NewDecoder(bytes.NewReader(rawBody))
	dec.CharsetReader = charsetReader
	if err := dec.Decode(&envResp); err != nil {
		return nil, fmt.Errorf("soap: parsear respuesta: %w", err)
	}

	b := envResp.Body
	out := &SOAPResponse{}
	switch {
	case b.Fault != nil:
		out.Fault = &Fault{
			Code:    strings.TrimSpace(b.Fault.FaultCode),
			Message: strings.TrimSpace(b.Fault.FaultString),
		}
	case b.SendBill != nil:
		data, err := decodeBase64(b.SendBill.ApplicationResponse)
		if err != nil {
			return nil, fmt.Errorf("soap: applicationResponse: %w", err)
		}
		out.ApplicationResponse = data
	case b.SendSummary != nil:
		out.Ticket = strings.TrimSpace(b.SendSummary.Ticket)
	case b.GetStatus != nil:
		if err := fillStatus(out, b.GetStatus.Status); err != nil {
			return nil, err
		}
	case b.GetStatusCdr != nil:
		if err := fillStatus(out, b.GetStatusCdr.Status); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("soap: respuesta vacía o inesperada: %s", truncate(string(rawBody), 200))
	}
	return out, nil
}

func fillStatus(out *SOAPResponse, st soapStatus) error {
	out.StatusCode = strings.TrimSpace(st.StatusCode)
	out.StatusMessage = strings.TrimSpace(st.StatusMessage)
	if st.Content == "" {
		return nil
	}
	data, err := decodeBase64(st.Content)
	if err != nil {
		return fmt.Errorf("soap: content: %w", err)
	}
	out.Content = data
	return nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	return base64.StdEncoding.DecodeString(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
