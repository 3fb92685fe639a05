package qrcode

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qr-attendance/backend/internal/models"
)

func TestGenerate_RoundTrip(t *testing.T) {
	codec := NewCodec(300, 2)
	ada := models.PersonData{FirstName: "Ada", LastName: "Lovelace", BirthDate: "1815-12-10"}

	out, err := codec.Generate(ada)
	require.NoError(t, err)
	assert.Equal(t, ada, out.Data)
	assert.Contains(t, out.QRCode, "data:image/png;base64,")

	text, err := DecodeDataURI(out.QRCode)
	require.NoError(t, err)
	got, err := ParsePayload(text)
	require.NoError(t, err)
	assert.Equal(t, ada, got)
}

func TestGenerate_RoundTripVariedPeople(t *testing.T) {
	codec := NewCodec(300, 2)
	people := []models.PersonData{
		{FirstName: "Grace", LastName: "Hopper", BirthDate: "1906-12-09"},
		{FirstName: "Mary-Jane", LastName: "O'Neil", BirthDate: "2001-02-03"},
		{FirstName: "A", LastName: "B", BirthDate: "not-a-date"},
	}
	for _, p := range people {
		t.Run(p.FullName(), func(t *testing.T) {
			out, err := codec.Generate(p)
			require.NoError(t, err)
			text, err := DecodeDataURI(out.QRCode)
			require.NoError(t, err)
			got, err := ParsePayload(text)
			require.NoError(t, err)
			assert.Equal(t, p, got)
		})
	}
}

func TestGenerate_TrimsNamesOnly(t *testing.T) {
	out, err := NewCodec(300, 2).Generate(models.PersonData{FirstName: "  Ada ", LastName: " Lovelace", BirthDate: "1815-12-10"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", out.Data.FirstName)
	assert.Equal(t, "Lovelace", out.Data.LastName)
}

func TestGenerate_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		in   models.PersonData
	}{
		{"empty", models.PersonData{}},
		{"no first name", models.PersonData{LastName: "Lovelace", BirthDate: "1815-12-10"}},
		{"blank first name", models.PersonData{FirstName: "   ", LastName: "Lovelace", BirthDate: "1815-12-10"}},
		{"no last name", models.PersonData{FirstName: "Ada", BirthDate: "1815-12-10"}},
		{"no birth date", models.PersonData{FirstName: "Ada", LastName: "Lovelace"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodec(300, 2).Generate(tt.in)
			require.Error(t, err)
			assert.True(t, models.IsValidation(err))
		})
	}
}

func TestEncode_FixedSize(t *testing.T) {
	img, err := NewCodec(300, 2).Image(`{"firstName":"Ada"}`)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
	// quiet zone corner stays light
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r&g&b)
}

func TestDecode_BlankFrameIsNoSymbol(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	_, err := Decode(img)
	assert.ErrorIs(t, err, ErrNoSymbol)
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantMsg string
	}{
		{"not json", "hello world", msgInvalidCode},
		{"wrong types", `{"firstName":1,"lastName":"x","birthDate":"y"}`, msgInvalidCode},
		{"missing birth date", `{"firstName":"Ada","lastName":"Lovelace"}`, msgInvalidFormat},
		{"empty object", `{}`, msgInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePayload(tt.text)
			require.Error(t, err)
			assert.True(t, models.IsValidation(err))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}

	p, err := ParsePayload(`{"firstName":"Ada","lastName":"Lovelace","birthDate":"1815-12-10","extra":true}`)
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FirstName)
}

func TestPNGFromDataURI(t *testing.T) {
	_, err := PNGFromDataURI("data:image/jpeg;base64,AAAA")
	assert.Error(t, err)

	uri, err := NewCodec(300, 2).EncodeDataURI("hello")
	require.NoError(t, err)
	raw, err := PNGFromDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), raw[:4])
}
