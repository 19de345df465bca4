package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
)

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"E-MAIL":   "e-mail",
		" E-mail ": "e-mail",
		"Função":   "funcao",
		"SETOR":    "setor",
		"Líder":    "lider",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeHeader(in), "input %q", in)
	}
}

func TestBuildHeaderMapKeepsOriginalLetters(t *testing.T) {
	m := BuildHeaderMap([]string{"Nome", "E-MAIL", "", "Setor"})

	require.Contains(t, m, "e-mail")
	assert.Equal(t, "B", m["e-mail"].Letter)
	assert.Equal(t, 1, m["e-mail"].Index)

	assert.Equal(t, "A", m["nome"].Letter)
	assert.Equal(t, "D", m["setor"].Letter)
	assert.NotContains(t, m, "")
}

func TestRenderAndParseSheetRoundTrip(t *testing.T) {
	rows := []models.ReportRow{
		{{Column: "Employee", Value: "Ana"}, {Column: "Date", Value: "2024-01-01"}},
		{{Column: "Employee", Value: "Bruno"}, {Column: "Date", Value: "2024-01-02"}},
	}

	data, err := RenderSheet("feedback", rows)
	require.NoError(t, err)

	header, parsed, err := ParseSheet(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Employee", "Date"}, header)
	require.Len(t, parsed, 2)
	assert.Equal(t, []string{"Ana", "2024-01-01"}, parsed[0])
	assert.Equal(t, []string{"Bruno", "2024-01-02"}, parsed[1])
}

func TestRenderSheetWithNoRows(t *testing.T) {
	data, err := RenderSheet("feedback", nil)
	require.NoError(t, err)

	header, rows, err := ParseSheet(data)
	require.NoError(t, err)
	assert.Empty(t, header)
	assert.Empty(t, rows)
}
