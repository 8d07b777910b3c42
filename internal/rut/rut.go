// Package rut validates and formats Chilean national identity numbers (RUT).
// All functions are pure and total: invalid input yields false or an unchanged
// string, never an error.
package rut

import "strings"

// normalize strips everything that is not a digit or the letter K.
func normalize(rut string) string {
	var b strings.Builder
	for _, r := range rut {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'k' || r == 'K':
			b.WriteRune('K')
		}
	}
	return b.String()
}

// checkDigit computes the modulus-11 check digit for a RUT body. Digits are
// weighted right-to-left with a cycle of 2..7.
func checkDigit(body string) byte {
	sum := 0
	weight := 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * weight
		if weight == 7 {
			weight = 2
		} else {
			weight++
		}
	}
	switch d := 11 - sum%11; d {
	case 11:
		return '0'
	case 10:
		return 'K'
	default:
		return byte('0' + d)
	}
}

// IsValid reports whether rut carries a correct modulus-11 check digit.
// Separators and casing are ignored; fewer than 8 significant characters is
// always invalid.
func IsValid(rut string) bool {
	clean := normalize(rut)
	if len(clean) < 8 {
		return false
	}
	body := clean[:len(clean)-1]
	if strings.ContainsRune(body, 'K') {
		return false
	}
	return clean[len(clean)-1] == checkDigit(body)
}

// Format re-inserts thousands separators and the check-digit hyphen, e.g.
// "123456785" becomes "12.345.678-5". Inputs shorter than two significant
// characters are returned unchanged.
func Format(rut string) string {
	clean := normalize(rut)
	if len(clean) < 2 {
		return clean
	}
	body := clean[:len(clean)-1]
	dv := clean[len(clean)-1]

	var b strings.Builder
	for i, c := range body {
		if i > 0 && (len(body)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	b.WriteByte('-')
	b.WriteByte(dv)
	return b.String()
}

// Mask hides the body of a RUT for non-sensitive summaries, keeping the last
// body digit and check digit visible: "12.345.678-5" -> "**.***.**8-5".
func Mask(rut string) string {
	formatted := Format(rut)
	if len(formatted) < 4 {
		return formatted
	}
	masked := []byte(formatted)
	// Leave the hyphen, check digit and the digit just before the hyphen.
	for i := 0; i < len(masked)-3; i++ {
		if masked[i] != '.' {
			masked[i] = '*'
		}
	}
	return string(masked)
}
