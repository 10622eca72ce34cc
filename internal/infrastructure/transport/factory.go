package transport

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-sunat/internal/domain"
	"github.com/jhoicas/facturacion-sunat/internal/domain/entity"
	infrasunat "github.com/jhoicas/facturacion-sunat/internal/infrastructure/sunat"
)

// Config reúne la configuración de cualquiera de los tres backends.
type Config struct {
	Provider string

	// SUNAT directo
	RUC              string
	SOLUser          string
	SOLPassword      string
	CertPath         string
	CertData         []byte
	CertPassword     string
	Environment      string
	EndpointOverride string
	Timeout          time.Duration

	// OSE
	OSEURL   string
	OSEToken string

	// Simulador
	MockDelay          time.Duration
	MockForceStatus    string
	MockForceErrorCode string
}

// Defaults son los valores globales que completan la configuración por empresa.
type Defaults struct {
	Provider         string
	Environment      string
	EndpointOverride string
	Timeout          time.Duration
	Mock             MockConfig
}

// ConfigFromCompany arma la configuración del adaptador a partir de las credenciales del tenant.
func ConfigFromCompany(c *entity.Company, def Defaults) Config {
	provider := c.Provider
	if provider == "" {
		provider = def.Provider
	}
	return Config{
		Provider:           provider,
		RUC:                c.RUC,
		SOLUser:            c.SOLUser,
		SOLPassword:        c.SOLPassword,
		CertPath:           c.CertPath,
		CertPassword:       c.CertPassword,
		Environment:        def.Environment,
		EndpointOverride:   def.EndpointOverride,
		Timeout:            def.Timeout,
		OSEURL:             c.OSEURL,
		OSEToken:           c.OSEToken,
		MockDelay:          def.Mock.Delay,
		MockForceStatus:    def.Mock.ForceStatus,
		MockForceErrorCode: def.Mock.ForceErrorCode,
	}
}

// NewAdapter construye el backend indicado por Provider. Sin proveedor se usa el simulador.
// Un proveedor desconocido o un campo obligatorio ausente devuelve *domain.ConfigurationError.
func NewAdapter(cfg Config, log zerolog.Logger) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", entity.ProviderMock:
		return NewMockAdapter(MockConfig{
			Delay:          cfg.MockDelay,
			ForceStatus:    cfg.MockForceStatus,
			ForceErrorCode: cfg.MockForceErrorCode,
		}, log), nil

	case entity.ProviderSUNAT:
		if err := requireFields(map[string]string{
			"ruc":           cfg.RUC,
			"sol_user":      cfg.SOLUser,
			"sol_password":  cfg.SOLPassword,
			"cert_password": cfg.CertPassword,
		}); err != nil {
			return nil, err
		}
		if cfg.CertPath == "" && len(cfg.CertData) == 0 {
			return nil, &domain.ConfigurationError{Field: "cert_path", Message: "se requiere el certificado digital (.p12)"}
		}
		if cfg.Environment != "" && cfg.Environment != infrasunat.EnvBeta && cfg.Environment != infrasunat.EnvProduction {
			return nil, &domain.ConfigurationError{Field: "environment", Message: "ambiente desconocido " + cfg.Environment}
		}
		return NewDirectAdapter(DirectConfig{
			RUC:              cfg.RUC,
			SOLUser:          cfg.SOLUser,
			SOLPassword:      cfg.SOLPassword,
			CertPath:         cfg.CertPath,
			CertData:         cfg.CertData,
			CertPassword:     cfg.CertPassword,
			Environment:      cfg.Environment,
			EndpointOverride: cfg.EndpointOverride,
			Timeout:          cfg.Timeout,
		}, log), nil

	case entity.ProviderOSE:
		if err := requireFields(map[string]string{
			"ose_url":   cfg.OSEURL,
			"ose_token": cfg.OSEToken,
		}); err != nil {
			return nil, err
		}
		return NewOSEAdapter(OSEConfig{URL: cfg.OSEURL, Token: cfg.OSEToken, Timeout: cfg.Timeout}, log), nil

	default:
		return nil, &domain.ConfigurationError{Field: "provider", Message: "proveedor desconocido " + cfg.Provider}
	}
}

// requireFields reporta el primer campo vacío en orden alfabético.
func requireFields(fields map[string]string) error {
	var missing string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" && (missing == "" || name < missing) {
			missing = name
		}
	}
	if missing != "" {
		return &domain.ConfigurationError{Field: missing, Message: "campo obligatorio"}
	}
	return nil
}
