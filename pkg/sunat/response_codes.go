package sunat

import "strconv"

// Rangos de códigos de respuesta de SUNAT (Catálogo de errores CPE).
const (
	ResponseCodeAccepted      = 0
	ResponseExceptionMin      = 100
	ResponseExceptionMax      = 1999
	ResponseRejectedMin       = 2000
	ResponseRejectedMax       = 3999
	ResponseObservationMin    = 4000
	ResponseStatusProcessing  = "98" // getStatus: en proceso
	ResponseStatusWithErrors  = "99" // getStatus: procesado con errores
	ResponseStatusProcessedOK = "0"  // getStatus: procesado correctamente
)

// responseMessages subconjunto del catálogo de errores usado para mensajes sintetizados.
var responseMessages = map[string]string{
	"0":    "El comprobante ha sido aceptado",
	"98":   "El envío se encuentra en proceso",
	"99":   "El envío fue procesado con errores",
	"100":  "El sistema no puede responder su solicitud. Intente nuevamente o comuníquese con su Administrador",
	"102":  "Usuario o contraseña incorrectos",
	"109":  "El sistema no puede responder su solicitud. (El servicio de autenticación no está disponible)",
	"130":  "El sistema no puede responder su solicitud. (No se pudo obtener el ticket de proceso)",
	"150":  "El nombre del archivo ZIP es incorrecto",
	"151":  "El nombre del archivo ZIP es incorrecto",
	"154":  "El RUC del archivo no corresponde al RUC del usuario",
	"155":  "El archivo ZIP está vacío",
	"156":  "El archivo ZIP está corrupto",
	"1032": "El comprobante ya esta informado y se encuentra con estado anulado o rechazado",
	"1033": "El comprobante fue registrado previamente con otros datos",
	"1034": "Número de RUC del nombre del archivo no coincide con el consignado en el contenido del archivo XML",
	"2010": "El numero de documento del receptor no cumple con el formato establecido",
	"2017": "El numero de documento de identidad del receptor debe ser RUC",
	"2324": "El archivo de comunicacion de baja ya fue presentado anteriormente",
	"2335": "El documento electrónico ingresado ha sido alterado",
	"2800": "El dato ingresado en el tipo de documento de identidad del receptor no esta permitido",
	"3105": "El XML no contiene el tag o no existe información del codigo de tributo de la linea",
	"4000": "El documento ya fue presentado anteriormente",
	"4287": "El precio unitario de la operación que está informando difiere de los cálculos realizados en base a la cantidad, valor unitario y tributos",
	"4332": "El valor del IGV debe ser igual al resultado de multiplicar la base imponible por la tasa",
}

// ResponseMessage devuelve el texto fijo asociado a un código de respuesta.
func ResponseMessage(code string) (string, bool) {
	msg, ok := responseMessages[code]
	if !ok {
		if n, err := strconv.Atoi(code); err == nil {
			msg, ok = responseMessages[strconv.Itoa(n)]
		}
	}
	return msg, ok
}
