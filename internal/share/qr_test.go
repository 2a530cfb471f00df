package share

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRCode(t *testing.T) {
	data, err := QRCode("http://localhost:56218/public/output.gif", 128)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 128, img.Bounds().Dy())

	_, err = QRCode("", 128)
	assert.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	got, err := PublicURL("http://localhost:56218/public", "generated/gif_1.gif")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:56218/public/generated/gif_1.gif", got)

	got, err = PublicURL("https://example.com/", "/output.gif")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/output.gif", got)

	for _, bad := range []string{"", "/", "../secret", "a/../../b"} {
		_, err := PublicURL("https://example.com", bad)
		assert.Error(t, err, bad)
	}
	_, err = PublicURL("", "output.gif")
	assert.Error(t, err)
}
