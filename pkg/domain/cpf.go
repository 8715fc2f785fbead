package domain

import "strings"

// cpfLength is the number of digits in a CPF: nine base digits plus two
// check digits.
const cpfLength = 11

// CPFDigits strips every non-digit character from s.
func CPFDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ValidCPF reports whether s carries a well-formed CPF. Formatting
// punctuation is ignored; anything that does not reduce to eleven digits is
// invalid. Sequences of a single repeated digit pass the checksum but are
// rejected as known placeholders.
func ValidCPF(s string) bool {
	d := CPFDigits(s)
	if len(d) != cpfLength {
		return false
	}
	if strings.Count(d, d[:1]) == cpfLength {
		return false
	}
	return checkDigit(d[:9]) == d[9] && checkDigit(d[:10]) == d[10]
}

// checkDigit computes the check digit following base. Weights start at
// len(base)+1 and fall to 2.
func checkDigit(base string) byte {
	sum := 0
	weight := len(base) + 1
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * weight
		weight--
	}
	r := 11 - sum%11
	if r >= 10 {
		r = 0
	}
	return byte('0' + r)
}

// FormatCPF renders s as XXX.XXX.XXX-XX. It returns false when s does not
// reduce to exactly eleven digits; the checksum is not checked.
func FormatCPF(s string) (string, bool) {
	d := CPFDigits(s)
	if len(d) != cpfLength {
		return "", false
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11], true
}
