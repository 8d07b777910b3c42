package rut

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Body 12345678: weighted sum right-to-left with weights 2..7 is
// 8*2+7*3+6*4+5*5+4*6+3*7+2*2+1*3 = 138, 138 mod 11 = 6, 11-6 = 5.
// So 12.345.678-5 is the known-good fixture and -9 the known-bad one.
func TestIsValid_Fixtures(t *testing.T) {
	assert.True(t, IsValid("12345678-5"))
	assert.True(t, IsValid("12.345.678-5"))
	assert.True(t, IsValid("123456785"))

	assert.False(t, IsValid("12345678-9"))
	assert.False(t, IsValid("12.345.678-9"))
}

func TestIsValid_CheckDigitK(t *testing.T) {
	// Body 20347878: sum = 8*2+7*3+8*4+7*5+4*6+3*7+0*2+2*3 = 155,
	// 155 mod 11 = 1, 11-1 = 10 -> K.
	assert.True(t, IsValid("20347878-K"))
	assert.True(t, IsValid("20347878-k"))
	assert.False(t, IsValid("20347878-0"))
}

func TestIsValid_RejectsShortAndGarbage(t *testing.T) {
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("1234567")) // seven significant chars
	assert.False(t, IsValid("no-digits-here"))
	assert.False(t, IsValid("1K34567-8")) // K inside the body
}

func TestIsValid_SingleDigitMutationInvalidates(t *testing.T) {
	const valid = "123456785"
	for pos := 0; pos < len(valid)-1; pos++ {
		mutated := []byte(valid)
		mutated[pos] = '0' + (mutated[pos]-'0'+1)%10
		// Changing any single body digit changes the weighted sum by less
		// than 11, so the check digit can no longer match.
		assert.False(t, IsValid(string(mutated)),
			"mutation at position %d should invalidate: %s", pos, mutated)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12.345.678-5", Format("123456785"))
	assert.Equal(t, "12.345.678-5", Format("12345678-5"))
	assert.Equal(t, "1.234.567-4", Format("12345674"))
	assert.Equal(t, "9.876.543-3", Format("9876543-3"))

	// Shorter than two significant characters: returned unchanged.
	assert.Equal(t, "", Format(""))
	assert.Equal(t, "5", Format("5"))
}

func TestFormatThenValidate(t *testing.T) {
	for _, body := range []string{"12345678", "9876543", "20347878", "11111111"} {
		withDV := body + string(checkDigit(body))
		require.True(t, IsValid(withDV), "computed check digit for %s", body)
		assert.True(t, IsValid(Format(withDV)), "formatting must preserve validity")
	}
}

func TestMask(t *testing.T) {
	masked := Mask("12.345.678-5")
	assert.Equal(t, "**.***.**8-5", masked)
	assert.NotContains(t, masked[:len(masked)-4], "1")
}

func ExampleFormat() {
	fmt.Println(Format("123456785"))
	// Output: 12.345.678-5
}
