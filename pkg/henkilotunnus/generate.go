package henkilotunnus

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// testIndividualMin is the start of the 900-999 individual-number range
// reserved for test codes; Generate never emits a number below it.
const testIndividualMin = 900

// Generate builds a valid identity code for the given birth date and sex.
// The individual number is drawn from the official 900-999 test range, so
// generated codes never collide with codes issued to real people. Pass a
// seeded rng for reproducible output; nil uses the shared generator. The
// birth year must fall in 1800-2099, the span the century markers can
// express.
func Generate(birthDate time.Time, sex Sex, rng *rand.Rand) (Identifier, error) {
	d := birthDate.UTC()
	marker, ok := markerForYear(d.Year())
	if !ok {
		return Identifier{}, fmt.Errorf("%w: no century marker for year %d", ErrInvalidBirthDate, d.Year())
	}

	intn := rand.IntN
	if rng != nil {
		intn = rng.IntN
	}
	// 50 even offsets cover 900, 902, ... 998; +1 flips parity for male.
	individual := testIndividualMin + intn(50)*2
	if sex == SexMale {
		individual++
	}

	digits := fmt.Sprintf("%02d%02d%02d%03d", d.Day(), int(d.Month()), d.Year()%100, individual)
	code := digits[:6] + string(marker) + digits[6:] + string(checksumAlphabet[digitsValue(digits)%31])
	return Parse(code)
}

// markerForYear picks the canonical century marker for a year: + for the
// 1800s, - for the 1900s, A for the 2000s. The alternative 1900s and
// 2000s markers are accepted by Parse but never generated.
func markerForYear(year int) (byte, bool) {
	switch {
	case year >= 1800 && year <= 1899:
		return '+', true
	case year >= 1900 && year <= 1999:
		return '-', true
	case year >= 2000 && year <= 2099:
		return 'A', true
	default:
		return 0, false
	}
}
