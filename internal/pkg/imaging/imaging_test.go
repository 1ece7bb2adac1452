package imaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedExtension(t *testing.T) {
	assert.True(t, AllowedExtension("site-photo.JPG"))
	assert.True(t, AllowedExtension("crack.png"))
	assert.False(t, AllowedExtension("report.pdf"))
	assert.False(t, AllowedExtension("noextension"))
}

func TestDataURIRoundTrip(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	uri := EncodeDataURI("image/jpeg", raw)
	require.True(t, IsDataURI(uri))

	mime, data, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, raw, data)
}

func TestDecodeDataURIRejectsPlainURL(t *testing.T) {
	_, _, err := DecodeDataURI("https://example.com/pic.jpg")
	assert.Error(t, err)
}
