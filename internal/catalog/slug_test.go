package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Estrategias de Marketing Digital", "estrategias-de-marketing-digital"},
		{"Innovación y Transformación Digital", "innovacion-y-transformacion-digital"},
		{"Hacking Ético y Pentesting", "hacking-etico-y-pentesting"},
		{"Ciberseguridad  --  Empresarial!!", "ciberseguridad-empresarial"},
		{"¿IA para Empresas?", "ia-para-empresas"},
		{"  spaced out  ", "spaced-out"},
		{"UPPER case 123", "upper-case-123"},
		{"", ""},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}
