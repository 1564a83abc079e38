package uacscope

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
)

const fullManifest = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<assembly xmlns="urn:schemas-microsoft-com:asm.v1" manifestVersion="1.0">
  <trustInfo xmlns="urn:schemas-microsoft-com:asm.v3">
    <security>
      <requestedPrivileges>
        <requestedExecutionLevel level="requireAdministrator" uiAccess="true"/>
      </requestedPrivileges>
    </security>
  </trustInfo>
  <application xmlns="urn:schemas-microsoft-com:asm.v3">
    <windowsSettings xmlns:ws="http://schemas.microsoft.com/SMI/2005/WindowsSettings">
      <ws:autoElevate>true</ws:autoElevate>
    </windowsSettings>
  </application>
</assembly>`

func TestParseManifest_fullManifest(t *testing.T) {
	m := ParseManifest([]byte(fullManifest))

	assert.False(t, m.ParseError)
	assert.Equal(t, "requireAdministrator", m.ExecutionLevel)
	assert.True(t, m.UIAccess)
	assert.True(t, m.AutoElevate)

	assert.NotContains(t, m.XML, "<?xml", "canonical form has no declaration")
	assert.Contains(t, m.XML, "level=\"requireAdministrator\"")
}

func TestParseManifest_defaults(t *testing.T) {
	m := ParseManifest([]byte(`<assembly xmlns="urn:schemas-microsoft-com:asm.v1" manifestVersion="1.0"/>`))

	assert.False(t, m.ParseError)
	assert.Equal(t, DefaultExecutionLevel, m.ExecutionLevel)
	assert.False(t, m.UIAccess)
	assert.False(t, m.AutoElevate)
}

func TestParseManifest_autoElevate(t *testing.T) {
	template := `<assembly xmlns="urn:schemas-microsoft-com:asm.v1">
  <application xmlns="urn:schemas-microsoft-com:asm.v3">
    <windowsSettings xmlns:ws="http://schemas.microsoft.com/SMI/2005/WindowsSettings">
      <ws:autoElevate>%s</ws:autoElevate>
    </windowsSettings>
  </application>
</assembly>`

	tests := []struct {
		text string
		want bool
	}{
		{"true", true},
		{"1", true},
		{"\n\t  true  \n", true}, // surrounding whitespace is trimmed
		{"false", false},
		{"0", false},
		{"TRUE", false}, // xs:boolean is case-sensitive
		{"yes", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.text), func(t *testing.T) {
			m := ParseManifest([]byte(fmt.Sprintf(template, tt.text)))
			assert.False(t, m.ParseError)
			assert.Equal(t, tt.want, m.AutoElevate)
		})
	}
}

func TestParseManifest_executionLevelPassThrough(t *testing.T) {
	template := `<assembly xmlns="urn:schemas-microsoft-com:asm.v1">
  <trustInfo>
    <security>
      <requestedPrivileges>
        <requestedExecutionLevel %s/>
      </requestedPrivileges>
    </security>
  </trustInfo>
</assembly>`

	t.Run("arbitrary level text is not validated", func(t *testing.T) {
		m := ParseManifest([]byte(fmt.Sprintf(template, `level="wizard"`)))
		assert.Equal(t, "wizard", m.ExecutionLevel)
	})

	t.Run("present but empty level", func(t *testing.T) {
		m := ParseManifest([]byte(fmt.Sprintf(template, `level=""`)))
		assert.Equal(t, "", m.ExecutionLevel)
	})

	t.Run("absent level falls back to asInvoker", func(t *testing.T) {
		m := ParseManifest([]byte(fmt.Sprintf(template, `uiAccess="true"`)))
		assert.Equal(t, DefaultExecutionLevel, m.ExecutionLevel)
		assert.True(t, m.UIAccess)
	})

	t.Run("unparsable uiAccess", func(t *testing.T) {
		m := ParseManifest([]byte(fmt.Sprintf(template, `uiAccess="maybe"`)))
		assert.False(t, m.UIAccess)
	})
}

func TestParseManifest_malformed(t *testing.T) {
	raw := []byte(`<assembly xmlns="urn:schemas-microsoft-com:asm.v1"><trustInfo></assembly>`)

	m := ParseManifest(raw)

	assert.True(t, m.ParseError)
	assert.Equal(t, string(raw), m.XML, "raw text is captured verbatim")
	assert.Equal(t, DefaultExecutionLevel, m.ExecutionLevel)
	assert.False(t, m.UIAccess)
	assert.False(t, m.AutoElevate)
}

func TestParseManifest_noRootElement(t *testing.T) {
	raw := []byte("this is not an xml document at all")

	m := ParseManifest(raw)

	assert.True(t, m.ParseError)
	assert.Equal(t, string(raw), m.XML)
}

func TestParseManifest_utf16(t *testing.T) {
	raw := encodeUTF16LE(fullManifest)

	m := ParseManifest(raw)

	assert.False(t, m.ParseError)
	assert.Equal(t, "requireAdministrator", m.ExecutionLevel)
	assert.True(t, m.UIAccess)
	assert.True(t, m.AutoElevate)
}

func TestParseManifest_utf8BOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte(fullManifest)...)

	m := ParseManifest(raw)

	assert.False(t, m.ParseError)
	assert.Equal(t, "requireAdministrator", m.ExecutionLevel)
}

func TestParseManifest_canonicalRoundTrip(t *testing.T) {
	first := ParseManifest([]byte(fullManifest))
	assert.False(t, first.ParseError)

	second := ParseManifest([]byte(first.XML))
	assert.False(t, second.ParseError)

	assert.Equal(t, first.ExecutionLevel, second.ExecutionLevel)
	assert.Equal(t, first.UIAccess, second.UIAccess)
	assert.Equal(t, first.AutoElevate, second.AutoElevate)
}

func TestParseManifest_attributePerLine(t *testing.T) {
	m := ParseManifest([]byte(fullManifest))
	assert.False(t, m.ParseError)

	// both root attributes end up on lines of their own
	lines := strings.Split(m.XML, "\n")
	assert.Contains(t, lines, `  xmlns="urn:schemas-microsoft-com:asm.v1"`)
	assert.Contains(t, lines, `  manifestVersion="1.0">`)
}

// encodeUTF16LE produces a little-endian UTF-16 buffer with a BOM,
// the encoding Windows tooling commonly uses for embedded manifests.
func encodeUTF16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	buf := make([]byte, 2, 2+2*len(units))
	buf[0], buf[1] = 0xFF, 0xFE
	for _, u := range units {
		buf = append(buf, byte(u), byte(u>>8))
	}
	return buf
}
