package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	assert.Equal(t,
		[]string{"contacto", "compras", "navegación"},
		DedupeAndTrim([]string{" contacto ", "compras", "contacto", "", "   ", "navegación"}))
}

func TestDedupeAndTrimKeepsFirstAppearanceOrder(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, DedupeAndTrim([]string{"b", "a", "b "}))
}

func TestDedupeAndTrimEmptyInput(t *testing.T) {
	assert.Empty(t, DedupeAndTrim(nil))
	assert.Empty(t, DedupeAndTrim([]string{"", "  "}))
}
