// Package qr renders payment links as inline SVG QR codes for embedding
// in document previews.
package qr

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// SVG encodes link as a QR code and returns it as a standalone SVG
// document scaled to size pixels. An empty link is an error; a QR code
// pointing nowhere is never useful.
func SVG(link string, size int) (string, error) {
	if strings.TrimSpace(link) == "" {
		return "", fmt.Errorf("qr: link is required")
	}
	if size <= 0 {
		size = 128
	}

	code, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("qr: failed to encode link: %w", err)
	}
	code.DisableBorder = true

	bitmap := code.Bitmap()
	modules := len(bitmap)

	var b strings.Builder
	fmt.Fprintf(&b,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		size, size, modules, modules)
	b.WriteString(`<rect width="100%" height="100%" fill="#ffffff"/>`)
	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				fmt.Fprintf(&b, `<rect x="%d" y="%d" width="1" height="1" fill="#000000"/>`, x, y)
			}
		}
	}
	b.WriteString(`</svg>`)
	return b.String(), nil
}
