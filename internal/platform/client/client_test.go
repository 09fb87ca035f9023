package client

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		assertion func(t *testing.T, result string)
	}{
		{
			name:      "empty user agent returns unknown client",
			userAgent: "",
			assertion: func(t *testing.T, result string) {
				assert.Equal(t, "Unknown Client", result)
			},
		},
		{
			name:      "chrome on desktop",
			userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			assertion: func(t *testing.T, result string) {
				assert.Contains(t, result, "Chrome")
				assert.Contains(t, result, "on")
				assert.NotContains(t, result, "  ")
			},
		},
		{
			name:      "safari on iphone",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			assertion: func(t *testing.T, result string) {
				// Mobile clients should surface the platform
				assert.Contains(t, result, "on")
				assert.Contains(t, result, "iPhone")
			},
		},
		{
			name:      "curl is formatted with defaults",
			userAgent: "curl/8.5.0",
			assertion: func(t *testing.T, result string) {
				assert.Contains(t, result, "on")
				assert.NotEmpty(t, result)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Describe(tt.userAgent)
			tt.assertion(t, result)
		})
	}

	t.Run("result has no leading or trailing whitespace", func(t *testing.T) {
		result := Describe("Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
		assert.Equal(t, result, strings.TrimSpace(result))
	})
}

func TestFingerprint(t *testing.T) {
	const chromeUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	t.Run("empty user agent yields empty fingerprint", func(t *testing.T) {
		assert.Empty(t, Fingerprint(""))
	})

	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, Fingerprint(chromeUA), Fingerprint(chromeUA))
	})

	t.Run("is a hex sha256 digest", func(t *testing.T) {
		fp := Fingerprint(chromeUA)
		assert.Len(t, fp, 64)
	})

	t.Run("patch version changes do not change fingerprint", func(t *testing.T) {
		patched := strings.Replace(chromeUA, "Chrome/120.0.0.0", "Chrome/120.0.6099.234", 1)
		assert.Equal(t, Fingerprint(chromeUA), Fingerprint(patched))
	})

	t.Run("major version changes change fingerprint", func(t *testing.T) {
		upgraded := strings.Replace(chromeUA, "Chrome/120.0.0.0", "Chrome/121.0.0.0", 1)
		assert.NotEqual(t, Fingerprint(chromeUA), Fingerprint(upgraded))
	})

	t.Run("does not expose the raw user agent", func(t *testing.T) {
		assert.NotContains(t, Fingerprint(chromeUA), "Chrome")
	})
}
