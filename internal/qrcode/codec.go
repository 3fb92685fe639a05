// Package qrcode turns person data into scannable QR images and back.
package qrcode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	goqrcode "github.com/skip2/go-qrcode"

	"github.com/qr-attendance/backend/internal/models"
)

// ErrNoSymbol is returned by Decode when the image holds no readable QR code.
var ErrNoSymbol = errors.New("qrcode: no symbol found")

const dataURIPrefix = "data:image/png;base64,"

// Codec encodes text to PNG QR images of a fixed size and decodes frames back to text.
type Codec struct {
	size   int
	margin int
	dark   color.Color
	light  color.Color
}

// NewCodec returns a codec rendering size×size images with a quiet zone of margin modules.
func NewCodec(size, margin int) *Codec {
	if size <= 0 {
		size = 300
	}
	if margin < 0 {
		margin = 0
	}
	return &Codec{
		size:   size,
		margin: margin,
		dark:   color.Black,
		light:  color.White,
	}
}

// Image renders text as a QR symbol.
func (c *Codec) Image(text string) (image.Image, error) {
	q, err := goqrcode.New(text, goqrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("build symbol: %w", err)
	}
	q.DisableBorder = true
	modules := q.Bitmap()
	n := len(modules)
	if n == 0 {
		return nil, fmt.Errorf("build symbol: empty bitmap")
	}

	total := n + 2*c.margin
	scale := c.size / total
	if scale < 1 {
		scale = 1
	}
	side := c.size
	if scale*total > side {
		side = scale * total
	}
	offset := (side-scale*total)/2 + c.margin*scale

	// palette index 0 is the background, so the zero-valued Pix is already light
	img := image.NewPaletted(image.Rect(0, 0, side, side), color.Palette{c.light, c.dark})
	for y, row := range modules {
		for x, on := range row {
			if !on {
				continue
			}
			x0, y0 := offset+x*scale, offset+y*scale
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.SetColorIndex(x0+dx, y0+dy, 1)
				}
			}
		}
	}
	return img, nil
}

// Encode renders text as a PNG.
func (c *Codec) Encode(text string) ([]byte, error) {
	img, err := c.Image(text)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeDataURI renders text as a PNG data URI suitable for an <img src>.
func (c *Codec) EncodeDataURI(text string) (string, error) {
	b, err := c.Encode(text)
	if err != nil {
		return "", err
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(b), nil
}

// Decode reads the first QR symbol in img. It returns ErrNoSymbol when none is found.
func (c *Codec) Decode(img image.Image) (string, error) {
	return Decode(img)
}

// Decode reads the first QR symbol in img. It returns ErrNoSymbol when none is found.
func Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize frame: %w", err)
	}
	result, err := zxingqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		// not-found, checksum and format failures all mean nothing usable in this frame
		return "", ErrNoSymbol
	}
	return result.GetText(), nil
}

// PNGFromDataURI returns the PNG bytes of a data URI produced by EncodeDataURI.
func PNGFromDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return nil, fmt.Errorf("not a png data uri")
	}
	raw, err := base64.StdEncoding.DecodeString(uri[len(dataURIPrefix):])
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return raw, nil
}

// DecodeDataURI decodes a PNG data URI produced by EncodeDataURI.
func DecodeDataURI(uri string) (string, error) {
	raw, err := PNGFromDataURI(uri)
	if err != nil {
		return "", err
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode png: %w", err)
	}
	return Decode(img)
}

// Generated is the result of Generate: the image plus the data actually embedded.
type Generated struct {
	QRCode string            `json:"qrCode"`
	Data   models.PersonData `json:"data"`
}

// Generate validates p, trims the names and renders the canonical payload.
// It has no persistence side effect.
func (c *Codec) Generate(p models.PersonData) (*Generated, error) {
	p = p.Normalized()
	if !p.Complete() {
		return nil, models.NewValidationError("All personal data fields are required")
	}
	text, err := Payload(p)
	if err != nil {
		return nil, &models.DependencyError{Op: "encode payload", Err: err}
	}
	uri, err := c.EncodeDataURI(text)
	if err != nil {
		return nil, &models.DependencyError{Op: "encode qr", Err: err}
	}
	return &Generated{QRCode: uri, Data: p}, nil
}
