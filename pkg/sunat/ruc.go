package sunat

import (
	"fmt"
	"unicode"
)

// pesos del dígito verificador del RUC, aplicados a los 10 primeros dígitos.
var rucWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// prefijos válidos: 10 persona natural, 15/17 no domiciliados y sucesiones, 20 persona jurídica.
var rucPrefixes = map[string]bool{"10": true, "15": true, "17": true, "20": true}

// ValidateRUC valida longitud, prefijo y dígito verificador (módulo 11) de un RUC.
func ValidateRUC(ruc string) error {
	if len(ruc) != 11 {
		return fmt.Errorf("sunat: RUC debe tener 11 dígitos, se recibieron %d caracteres", len(ruc))
	}
	for _, r := range ruc {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("sunat: RUC solo admite dígitos: %q", ruc)
		}
	}
	if !rucPrefixes[ruc[:2]] {
		return fmt.Errorf("sunat: prefijo de RUC inválido %q", ruc[:2])
	}
	expected := ComputeRUCCheckDigit(ruc[:10])
	if ruc[10] != expected {
		return fmt.Errorf("sunat: dígito verificador del RUC inválido: esperado %c, recibido %c", expected, ruc[10])
	}
	return nil
}

// ComputeRUCCheckDigit calcula el dígito verificador para los 10 primeros dígitos.
// Se asume que base contiene solo dígitos.
func ComputeRUCCheckDigit(base string) byte {
	var sum int
	for i := 0; i < len(rucWeights) && i < len(base); i++ {
		sum += int(base[i]-'0') * rucWeights[i]
	}
	check := 11 - sum%11
	switch check {
	case 10:
		return '0'
	case 11:
		return '1'
	default:
		return byte('0' + check)
	}
}

// ValidateIdentity valida el número según el tipo de documento de identidad (Catálogo 06).
func ValidateIdentity(identityType, number string) error {
	if !ValidIdentityTypes[identityType] {
		return fmt.Errorf("sunat: tipo de documento de identidad desconocido %q", identityType)
	}
	switch identityType {
	case IdentityRUC:
		return ValidateRUC(number)
	case IdentityDNI:
		if len(number) != 8 || !allDigits(number) {
			return fmt.Errorf("sunat: DNI debe tener 8 dígitos: %q", number)
		}
	case IdentityVarious:
		return nil
	default:
		if number == "" || len(number) > 15 {
			return fmt.Errorf("sunat: número de documento inválido para tipo %s", identityType)
		}
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
