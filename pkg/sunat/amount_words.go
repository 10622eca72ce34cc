package sunat

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyName contiene las variantes de texto de una moneda para la leyenda.
type CurrencyName struct {
	Singular string
	Plural   string
	Cents    string
}

var currencyNames = map[string]CurrencyName{
	CurrencyPEN: {Singular: "SOL", Plural: "SOLES", Cents: "CENTIMOS"},
	CurrencyUSD: {Singular: "DOLAR AMERICANO", Plural: "DOLARES AMERICANOS", Cents: "CENTAVOS"},
	CurrencyEUR: {Singular: "EURO", Plural: "EUROS", Cents: "CENTIMOS"},
}

// CurrencyNameFor devuelve los nombres de la moneda; PEN si el código no está soportado.
func CurrencyNameFor(code string) CurrencyName {
	if n, ok := currencyNames[strings.ToUpper(code)]; ok {
		return n
	}
	return currencyNames[CurrencyPEN]
}

var (
	units = [10]string{"", "UNO", "DOS", "TRES", "CUATRO", "CINCO", "SEIS", "SIETE", "OCHO", "NUEVE"}
	teens = [10]string{"DIEZ", "ONCE", "DOCE", "TRECE", "CATORCE", "QUINCE",
		"DIECISEIS", "DIECISIETE", "DIECIOCHO", "DIECINUEVE"}
	twenties = [10]string{"VEINTE", "VEINTIUNO", "VEINTIDOS", "VEINTITRES", "VEINTICUATRO",
		"VEINTICINCO", "VEINTISEIS", "VEINTISIETE", "VEINTIOCHO", "VEINTINUEVE"}
	tens     = [10]string{"", "", "", "TREINTA", "CUARENTA", "CINCUENTA", "SESENTA", "SETENTA", "OCHENTA", "NOVENTA"}
	hundreds = [10]string{"", "CIENTO", "DOSCIENTOS", "TRESCIENTOS", "CUATROCIENTOS",
		"QUINIENTOS", "SEISCIENTOS", "SETECIENTOS", "OCHOCIENTOS", "NOVECIENTOS"}
)

// AmountInWords genera la leyenda de monto en letras (código 1000 de la leyenda SUNAT):
//
//	AmountInWords(1234.56, "PEN") = "MIL DOSCIENTOS TREINTA Y CUATRO CON 56/100 SOLES"
func AmountInWords(amount decimal.Decimal, currency string) string {
	amount = amount.Abs()
	integer := amount.Floor()
	cents := amount.Sub(integer).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	n := integer.IntPart()
	if cents >= 100 {
		n++
		cents -= 100
	}
	name := CurrencyNameFor(currency)
	noun := name.Plural
	if n == 1 {
		noun = name.Singular
	}
	return fmt.Sprintf("%s CON %02d/100 %s", IntegerToWords(n), cents, noun)
}

// IntegerToWords convierte un entero no negativo a su forma cardinal en español (mayúsculas, sin tildes).
func IntegerToWords(n int64) string {
	if n < 0 {
		n = -n
	}
	if n == 0 {
		return "CERO"
	}
	var parts []string
	millions := n / 1_000_000
	rest := n % 1_000_000
	switch {
	case millions == 1:
		parts = append(parts, "UN MILLON")
	case millions > 1:
		parts = append(parts, apocope(belowMillion(millions))+" MILLONES")
	}
	if rest > 0 {
		parts = append(parts, belowMillion(rest))
	}
	return strings.Join(parts, " ")
}

func belowMillion(n int64) string {
	var parts []string
	thousands := n / 1000
	rest := n % 1000
	switch {
	case thousands == 1:
		parts = append(parts, "MIL")
	case thousands > 1:
		parts = append(parts, apocope(belowThousand(thousands))+" MIL")
	}
	if rest > 0 {
		parts = append(parts, belowThousand(rest))
	}
	return strings.Join(parts, " ")
}

func belowThousand(n int64) string {
	if n == 100 {
		return "CIEN"
	}
	h := n / 100
	rest := n % 100
	switch {
	case h == 0:
		return belowHundred(rest)
	case rest == 0:
		return hundreds[h]
	default:
		return hundreds[h] + " " + belowHundred(rest)
	}
}

func belowHundred(n int64) string {
	switch {
	case n < 10:
		return units[n]
	case n < 20:
		return teens[n-10]
	case n < 30:
		return twenties[n-20]
	}
	t, u := n/10, n%10
	if u == 0 {
		return tens[t]
	}
	return tens[t] + " Y " + units[u]
}

// apocope convierte "UNO" final en "UN" delante de MIL y MILLONES.
func apocope(words string) string {
	if strings.HasSuffix(words, "UNO") {
		return strings.TrimSuffix(words, "O")
	}
	return words
}
