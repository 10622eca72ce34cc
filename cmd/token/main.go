// token emite un JWT para operar la API en nombre de una empresa; sirve para crear el primer admin.
//
// Uso: go run ./cmd/token -company <uuid> [-user <id>] [-role admin|emisor|consulta]
// Secreto, emisor y expiración salen de la misma configuración que la API (JWT_*).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	"github.com/jhoicas/facturacion-sunat/pkg/config"
	"github.com/jhoicas/facturacion-sunat/pkg/jwt"
)

func main() {
	companyID := flag.String("company", "", "ID de la empresa (tenant)")
	userID := flag.String("user", "cli", "identificador del usuario")
	role := flag.String("role", entity.RoleIssuer, "rol: admin, emisor o consulta")
	flag.Parse()

	if *companyID == "" {
		fmt.Fprintln(os.Stderr, "uso: token -company <uuid> [-user id] [-role rol]")
		os.Exit(2)
	}
	if !entity.ValidRoles[*role] {
		fmt.Fprintf(os.Stderr, "rol desconocido %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(1)
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, *userID, *companyID, *role, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintln(os.Stderr, "generar token:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
