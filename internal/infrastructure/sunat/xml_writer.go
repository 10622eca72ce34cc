package sunat

import (
	"encoding/xml"

	"github.com/shopspring/decimal"
)

// ublWriter envuelve xml.Encoder usando nombres con prefijo literal (cbc:ID, cac:Party)
// y conserva el primer error de codificación.
type ublWriter struct {
	enc *xml.Encoder
	err error
}

func (w *ublWriter) token(t xml.Token) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(t)
}

func (w *ublWriter) start(name string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *ublWriter) end(name string) {
	w.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *ublWriter) leaf(name, value string, attrs ...xml.Attr) {
	w.start(name, attrs...)
	if value != "" {
		w.token(xml.CharData(value))
	}
	w.end(name)
}

func (w *ublWriter) writeCbc(local, value string, attrs ...xml.Attr) {
	w.leaf("cbc:"+local, value, attrs...)
}

func (w *ublWriter) writeCbcAmount(local string, value decimal.Decimal, currency string) {
	w.writeCbc(local, formatDecimal(value), attr("currencyID", currency))
}

func (w *ublWriter) writeCbcPrice(local string, value decimal.Decimal, currency string) {
	w.writeCbc(local, formatPrice(value), attr("currencyID", currency))
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func formatDecimal(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

func formatPrice(d decimal.Decimal) string {
	return d.Round(6).StringFixed(6)
}
