package services

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const QRSize = 256

// GuestLinks builds the public URLs printed on tables and receipts.
type GuestLinks struct {
	BaseURL string
}

func NewGuestLinks(baseURL string) GuestLinks {
	return GuestLinks{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (g GuestLinks) Restaurant(shortCode string) string {
	return fmt.Sprintf("%s/guest/%s", g.BaseURL, shortCode)
}

func (g GuestLinks) Table(shortCode string, table int) string {
	return fmt.Sprintf("%s/guest/%s/table/%d", g.BaseURL, shortCode, table)
}

// For returns the table URL when table > 0, else the restaurant URL.
func (g GuestLinks) For(shortCode string, table int) string {
	if table > 0 {
		return g.Table(shortCode, table)
	}
	return g.Restaurant(shortCode)
}

func (g GuestLinks) Tracking(orderID uint, secret string) string {
	return fmt.Sprintf("%s/track/%d/%s", g.BaseURL, orderID, secret)
}

// QRCode encodes url as a PNG.
func QRCode(url string) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, QRSize)
	if err != nil {
		return nil, opError("encode qr code", err)
	}
	return png, nil
}
