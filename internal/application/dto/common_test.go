package dto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/facturacion-sunat/internal/application/dto"
)

func TestPageRequest_Normalize(t *testing.T) {
	cases := []struct {
		name          string
		limit, offset int
		wantLimit     int
		wantOffset    int
	}{
		{"vacío usa el límite por defecto", 0, 0, dto.DefaultPageLimit, 0},
		{"negativos", -5, -3, dto.DefaultPageLimit, 0},
		{"dentro del rango", 50, 10, 50, 10},
		{"en el máximo", 100, 0, 100, 0},
		{"sobre el máximo se recorta", 500, 7, dto.MaxPageLimit, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := dto.NewPageRequest(tc.limit, tc.offset)
			assert.Equal(t, tc.wantLimit, p.Limit)
			assert.Equal(t, tc.wantOffset, p.Offset)
			assert.Equal(t, dto.PageResponse{Limit: tc.wantLimit, Offset: tc.wantOffset}, p.Response())
		})
	}
}
