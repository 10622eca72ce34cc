package sunat_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sunat/internal/infrastructure/sunat"
)

func soapReply(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soap-env:Envelope xmlns:soap-env="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap-env:Header/><soap-env:Body>` + body + `</soap-env:Body></soap-env:Envelope>`
}

func cdrZip(t *testing.T, code string) []byte {
	t.Helper()
	raw, err := sunat.BuildCDR("F001-123", code, "respuesta "+code, nil, time.Now())
	require.NoError(t, err)
	archive, err := sunat.ZipDocument("R-20131312955-01-F001-123.xml", raw)
	require.NoError(t, err)
	return archive
}

func TestSOAPClient_SendBill(t *testing.T) {
	archive := cdrZip(t, "0")
	var gotBody, gotAction string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotAction = r.Header.Get("SOAPAction")
		_, _ = io.WriteString(w, soapReply(
			`<br:sendBillResponse xmlns:br="http://service.sunat.gob.pe"><applicationResponse>`+
				base64.StdEncoding.EncodeToString(archive)+`</applicationResponse></br:sendBillResponse>`))
	}))
	defer srv.Close()

	client := sunat.NewSOAPClient(5 * time.Second)
	cred := sunat.NewCredentials("20131312955", "MODDATOS", "moddatos")
	resp, err := client.SendBill(context.Background(), srv.URL, cred, "20131312955-01-F001-123.zip", []byte("zip"))
	require.NoError(t, err)

	assert.Equal(t, "urn:sendBill", gotAction)
	assert.Contains(t, gotBody, "<wsse:Username>20131312955MODDATOS</wsse:Username>")
	assert.Contains(t, gotBody, "<wsse:Password>moddatos</wsse:Password>")
	assert.Contains(t, gotBody, "<ser:sendBill><fileName>20131312955-01-F001-123.zip</fileName>")
	assert.Contains(t, gotBody, "<contentFile>"+base64.StdEncoding.EncodeToString([]byte("zip"))+"</contentFile>")
	assert.Equal(t, archive, resp.ApplicationResponse)

	cdr, err := sunat.ParseCDR(resp.ApplicationResponse)
	require.NoError(t, err)
	assert.Equal(t, "0", cdr.ResponseCode)
}

func TestSOAPClient_SendSummaryDevuelveTicket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(b), "<ser:sendSummary>")
		_, _ = io.WriteString(w, soapReply(`<br:sendSummaryResponse xmlns:br="http://service.sunat.gob.pe"><ticket>1703154974517</ticket></br:sendSummaryResponse>`))
	}))
	defer srv.Close()

	resp, err := sunat.NewSOAPClient(0).SendSummary(context.Background(), srv.URL, sunat.Credentials{}, "x.zip", []byte("zip"))
	require.NoError(t, err)
	assert.Equal(t, "1703154974517", resp.Ticket)
}

func TestSOAPClient_GetStatus(t *testing.T) {
	archive := cdrZip(t, "0")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(b), "<ticket>123456</ticket>")
		_, _ = io.WriteString(w, soapReply(`<br:getStatusResponse xmlns:br="http://service.sunat.gob.pe"><status><statusCode>0</statusCode><content>`+
			base64.StdEncoding.EncodeToString(archive)+`</content></status></br:getStatusResponse>`))
	}))
	defer srv.Close()

	resp, err := sunat.NewSOAPClient(0).GetStatus(context.Background(), srv.URL, sunat.Credentials{}, "123456")
	require.NoError(t, err)
	assert.Equal(t, "0", resp.StatusCode)
	assert.Equal(t, archive, resp.Content)
}

func TestSOAPClient_GetStatusCdr(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body := string(b)
		assert.Contains(t, body, "<rucComprobante>20131312955</rucComprobante>")
		assert.Contains(t, body, "<numeroComprobante>123</numeroComprobante>")
		_, _ = io.WriteString(w, soapReply(`<br:getStatusCdrResponse xmlns:br="http://service.sunat.gob.pe"><statusCdr><statusCode>0004</statusCode><statusMessage>La constancia existe</statusMessage></statusCdr></br:getStatusCdrResponse>`))
	}))
	defer srv.Close()

	resp, err := sunat.NewSOAPClient(0).GetStatusCdr(context.Background(), srv.URL, sunat.Credentials{}, "20131312955", "01", "F001", 123)
	require.NoError(t, err)
	assert.Equal(t, "0004", resp.StatusCode)
	assert.Equal(t, "La constancia existe", resp.StatusMessage)
	assert.Empty(t, resp.Content)
}

func TestSOAPClient_FaultConHTTP500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, soapReply(`<soap-env:Fault><faultcode>soap-env:Client.0102</faultcode><faultstring>Usuario o contraseña incorrectos</faultstring></soap-env:Fault>`))
	}))
	defer srv.Close()

	resp, err := sunat.NewSOAPClient(0).SendBill(context.Background(), srv.URL, sunat.Credentials{}, "x.zip", nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Fault)
	assert.Equal(t, "soap-env:Client.0102", resp.Fault.Code)
	assert.Equal(t, "102", resp.Fault.NumericCode())
	assert.Equal(t, "Usuario o contraseña incorrectos", resp.Fault.Message)
	assert.Equal(t, http.StatusInternalServerError, resp.HTTPStatus)
}

func TestSOAPClient_HTTPErrorSinFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "bad gateway")
	}))
	defer srv.Close()

	_, err := sunat.NewSOAPClient(0).SendBill(context.Background(), srv.URL, sunat.Credentials{}, "x.zip", nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "502"))
}

func TestSOAPClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := sunat.NewSOAPClient(50*time.Millisecond).SendBill(context.Background(), srv.URL, sunat.Credentials{}, "x.zip", nil)
	require.Error(t, err)
}

func TestFault_NumericCode(t *testing.T) {
	assert.Equal(t, "1033", (&sunat.Fault{Code: "soap-env:Client.1033"}).NumericCode())
	assert.Equal(t, "2324", (&sunat.Fault{Code: "soap-env:Server", Message: "2324"}).NumericCode())
	assert.Equal(t, "", (&sunat.Fault{Code: "soap-env:Server", Message: "error interno"}).NumericCode())
}
