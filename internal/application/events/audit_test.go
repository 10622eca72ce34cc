package events_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sunat/internal/application/events"
)

func TestAudit_RegistraEventosHastaElCierre(t *testing.T) {
	var buf bytes.Buffer
	b := events.NewBroker(4, zerolog.Nop())
	done := events.Audit(b, zerolog.New(&buf))

	b.Publish(events.Event{Type: events.TypeStatusChanged, CompanyID: "c1", DocumentID: "d1", Number: "F001-1", Status: "accepted", ResponseCode: "0"})
	b.Publish(events.Event{Type: events.TypeStatusChanged, CompanyID: "c2", DocumentID: "d2", Number: "F001-2", Status: "rejected", ResponseCode: "2010"})
	b.Close()
	<-done

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "F001-1", first["number"])
	assert.Equal(t, "warn", second["level"])
	assert.Equal(t, "2010", second["code"])
}
