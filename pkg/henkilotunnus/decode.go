package henkilotunnus

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const codeLength = 11

// checksumAlphabet is the ordered 31-symbol set used for the trailing
// check character. It is both the valid-symbol set for position 10 and the
// index-to-symbol table for the mod-31 checksum.
const checksumAlphabet = "0123456789ABCDEFHJKLMNPRSTUVWXY"

// centuryStart maps a century marker to the first year of its century.
// The marker set is fixed: + for the 1800s, - Y X W V U for the 1900s,
// and A through F for the 2000s.
func centuryStart(marker byte) (int, bool) {
	switch marker {
	case '+':
		return 1800, true
	case '-', 'Y', 'X', 'W', 'V', 'U':
		return 1900, true
	case 'A', 'B', 'C', 'D', 'E', 'F':
		return 2000, true
	default:
		return 0, false
	}
}

// checkFormat gates the structure of a candidate code without interpreting
// it: exact length, digits at positions 0-5 and 7-9, a known century
// marker at position 6, and a checksum-alphabet symbol at position 10.
func checkFormat(value string) error {
	if len(value) != codeLength {
		return formatError(value)
	}
	for i := 0; i < 6; i++ {
		if !isDigit(value[i]) {
			return formatError(value)
		}
	}
	if _, ok := centuryStart(value[6]); !ok {
		return formatError(value)
	}
	for i := 7; i < 10; i++ {
		if !isDigit(value[i]) {
			return formatError(value)
		}
	}
	if strings.IndexByte(checksumAlphabet, value[10]) < 0 {
		return formatError(value)
	}
	return nil
}

// checkChecksum verifies the trailing symbol of a gated code. The nine
// date and individual-number digits, read as one integer, select the
// expected symbol by remainder of 31.
func checkChecksum(value string) error {
	n, err := strconv.Atoi(value[:6] + value[7:10])
	if err != nil {
		// Unreachable after checkFormat, but a gate bypass must not
		// turn into an accepted code.
		return ErrChecksumMismatch
	}
	index := n % 31
	if index < 0 || index >= len(checksumAlphabet) {
		return ErrChecksumMismatch
	}
	if checksumAlphabet[index] != value[10] {
		return ErrChecksumMismatch
	}
	return nil
}

// decodeBirthDate resolves the full birth date of a gated, checksum-valid
// code. Day and month are range-checked numerically first; the calendar
// check then rejects days past the end of the resolved month, which is
// what enforces February 29 against the resolved four-digit year rather
// than the bare two-digit one.
func decodeBirthDate(value string) (time.Time, error) {
	day := digitsValue(value[0:2])
	month := digitsValue(value[2:4])
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, ErrInvalidBirthDate
	}

	// Total after checkFormat; unknown markers never reach this point.
	century, _ := centuryStart(value[6])
	year := century + digitsValue(value[4:6])

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || date.Month() != time.Month(month) || date.Day() != day {
		// time.Date normalizes overflow (Feb 30 becomes Mar 1 or 2), so
		// a changed component means the day did not exist in that month.
		return time.Time{}, ErrInvalidBirthDate
	}
	return date, nil
}

// decodeSex derives the sex category from the individual-number parity.
// The digits are guaranteed by the format gate, so there is no failure
// mode.
func decodeSex(value string) Sex {
	if digitsValue(value[7:10])%2 == 1 {
		return SexMale
	}
	return SexFemale
}

// formatError wraps ErrInvalidFormat with the rejected input and the
// expected shape, so the message shows what was refused and why while
// errors.Is still matches the sentinel.
func formatError(value string) error {
	return fmt.Errorf("%w: %q does not match ddmmyysrrrc", ErrInvalidFormat, value)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// digitsValue reads a digit-only substring as an integer. Callers must
// have gated the input; there is deliberately no error path.
func digitsValue(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}
