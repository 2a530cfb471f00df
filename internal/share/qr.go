package share

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultQRSize = 256

// QRCode renders url as a PNG QR code of size×size pixels.
func QRCode(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr: empty content")
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}

// PublicURL joins baseURL with a slash-separated path relative to the
// public root. Paths escaping the root are rejected.
func PublicURL(baseURL, rel string) (string, error) {
	if baseURL == "" {
		return "", fmt.Errorf("base url is empty")
	}
	clean := path.Clean("/" + strings.TrimPrefix(rel, "/"))
	if clean == "/" || strings.Contains(rel, "..") {
		return "", fmt.Errorf("invalid public path %q", rel)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	return u.JoinPath(clean).String(), nil
}
