package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_EncodeRoundTrip(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	codec := NewCodec(c)

	variants := []func(string) string{
		func(s string) string { return s },
		strings.ToUpper,
		strings.ToLower,
		func(s string) string { return "   " + s + "\t" },
		func(s string) string { return "¡" + s + "!" },
		func(s string) string { return strings.ReplaceAll(s, " ", "   ") },
	}

	for _, q := range c.Questions() {
		for _, opt := range q.Options {
			for _, variant := range variants {
				code, ok := codec.Encode(q.ID, variant(opt.Text))
				require.True(t, ok, "question %s option %q", q.ID, opt.Text)
				assert.Equal(t, opt.Code, code, "question %s option %q", q.ID, opt.Text)
			}
		}
	}
}

func TestCodec_Encode(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	codec := NewCodec(c)

	tests := []struct {
		name       string
		questionID string
		raw        string
		expected   int
		ok         bool
	}{
		{name: "accent stripped answer", questionID: "p1", raw: "muy comodo", expected: 5, ok: true},
		{name: "trailing space option", questionID: "p7", raw: "Sí, me gustan", expected: 5, ok: true},
		{name: "lower case option in catalog", questionID: "p13", raw: "RARA VEZ", expected: 2, ok: true},
		{name: "unmapped answer", questionID: "p1", raw: "No sé", ok: false},
		{name: "empty answer", questionID: "p1", raw: "", ok: false},
		{name: "unknown question", questionID: "p99", raw: "Neutro", ok: false},
		{name: "option of another question", questionID: "p1", raw: "Muy energizado", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := codec.Encode(tt.questionID, tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, code)
			}
		})
	}
}

func TestCodec_ResolveColumn(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	codec := NewCodec(c)

	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "exact question text",
			header:   "¿Qué tan cómodo te sientes al iniciar una conversación con alguien que no conoces?",
			expected: "p1",
		},
		{
			name:     "reformatted question text",
			header:   "  QUE TAN COMODO te sientes al iniciar una conversacion con alguien que no conoces ",
			expected: "p1",
		},
		{
			name:     "last question",
			header:   "¿Te gusta estar en grupos grandes de WhatsApp o redes?",
			expected: "p45",
		},
		{name: "question id", header: " P12 ", expected: "p12"},
		{name: "unknown id passes through", header: "p46", expected: "p46"},
		{name: "free text column passes through", header: "Nombre completo", expected: "Nombre completo"},
		{name: "timestamp passes through", header: "Marca temporal", expected: "Marca temporal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, codec.ResolveColumn(tt.header))
		})
	}
}
