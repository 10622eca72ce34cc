package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	ErrValidation              = errors.New("validación fallida")
	ErrConfiguration           = errors.New("configuración inválida")
	ErrCertificate             = errors.New("certificado inválido")
	ErrInvalidArchive          = errors.New("archivo ZIP inválido")
	ErrUnsupportedDocumentType = errors.New("tipo de documento no soportado")
	ErrInvalidTransition       = errors.New("transición de estado no permitida")
	ErrVoidWindowExpired       = errors.New("plazo de comunicación de baja vencido")
)

// ValidationError agrupa los problemas detectados antes de cualquier envío a SUNAT.
// Nunca se corrige automáticamente: el llamador debe mostrarlo.
type ValidationError struct {
	Problems []string
}

// NewValidationError aplana un error (posiblemente producido por errors.Join) en problemas.
func NewValidationError(err error) *ValidationError {
	if err == nil {
		return nil
	}
	var problems []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			problems = append(problems, e.Error())
		}
	} else {
		problems = append(problems, err.Error())
	}
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return "validación: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConfigurationError se produce al construir un adaptador sin las credenciales requeridas.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuración: " + e.Message
	}
	return fmt.Sprintf("configuración: %s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// CertificateError indica un almacén PKCS#12 inutilizable (archivo, contraseña, bolsas).
type CertificateError struct {
	Reason string
	Err    error
}

func (e *CertificateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("certificado: %s: %v", e.Reason, e.Err)
	}
	return "certificado: " + e.Reason
}

func (e *CertificateError) Unwrap() error { return e.Err }

func (e *CertificateError) Is(target error) bool { return target == ErrCertificate }

// ArchiveError indica un ZIP que no puede decodificarse.
type ArchiveError struct {
	Reason string
}

func (e *ArchiveError) Error() string { return "zip: " + e.Reason }

func (e *ArchiveError) Is(target error) bool { return target == ErrInvalidArchive }

// UnsupportedDocumentTypeError se devuelve cuando no existe esquema UBL para el tipo.
type UnsupportedDocumentTypeError struct {
	Type string
}

func (e *UnsupportedDocumentTypeError) Error() string {
	return fmt.Sprintf("tipo de documento no soportado: %q", e.Type)
}

func (e *UnsupportedDocumentTypeError) Is(target error) bool {
	return target == ErrUnsupportedDocumentType
}
