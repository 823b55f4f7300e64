// Package media converts reference images between the forms CineGen sees
// them in: data URLs from browsers, files on disk, and the raw bytes plus
// MIME type the video model accepts.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/png"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// Supported MIME types.
const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEGIF  = "image/gif"
	MIMEWebP = "image/webp"
	MIMEBMP  = "image/bmp"
	MIMETIFF = "image/tiff"
)

// ErrEmptyReference is returned when there are no image bytes to decode.
var ErrEmptyReference = errors.New("reference image is empty")

// Reference is a decoded reference image ready to send to the video model.
type Reference struct {
	Data     []byte
	MIMEType string
}

// StripDataURLPrefix removes a leading "data:...;base64," header. Input
// without one is returned unchanged, so applying it twice is harmless.
func StripDataURLPrefix(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ","); i >= 0 {
		return s[i+1:]
	}
	return s
}

// DataURL renders data as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeReference turns a base64 payload (optionally a data URL) into image
// bytes the video model accepts. PNG and JPEG pass through unchanged; GIF,
// WebP, BMP and TIFF are re-encoded as PNG.
func DecodeReference(encoded string) (*Reference, error) {
	payload := StripDataURLPrefix(encoded)
	if payload == "" {
		return nil, ErrEmptyReference
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return nil, fmt.Errorf("reference image is not valid base64: %w", err)
	}
	return Normalize(data)
}

// Normalize sniffs raw image bytes and converts them to PNG when the video
// model would not accept the original format.
func Normalize(data []byte) (*Reference, error) {
	if len(data) == 0 {
		return nil, ErrEmptyReference
	}

	mimeType := DetectMIME(data)
	switch mimeType {
	case MIMEPNG, MIMEJPEG:
		return &Reference{Data: data, MIMEType: mimeType}, nil
	case MIMEGIF, MIMEWebP, MIMEBMP, MIMETIFF:
		converted, err := toPNG(data, mimeType)
		if err != nil {
			return nil, err
		}
		log.Debug().
			Str("from", mimeType).
			Int("original_bytes", len(data)).
			Int("png_bytes", len(converted)).
			Msg("Reference image converted to PNG")
		return &Reference{Data: converted, MIMEType: MIMEPNG}, nil
	default:
		return nil, fmt.Errorf("unsupported reference image type %q", mimeType)
	}
}

// DetectMIME sniffs the image type from magic bytes.
func DetectMIME(data []byte) string {
	if len(data) >= 4 && (bytes.Equal(data[:4], []byte("II*\x00")) || bytes.Equal(data[:4], []byte("MM\x00*"))) {
		return MIMETIFF
	}
	return http.DetectContentType(data)
}

// EncodeFile reads an image from disk and returns it as a data URL with its
// sniffed MIME type.
func EncodeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read reference image: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyReference)
	}
	return DataURL(DetectMIME(data), data), nil
}

func toPNG(data []byte, mimeType string) ([]byte, error) {
	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch mimeType {
	case MIMEWebP:
		img, err = webp.Decode(r)
	case MIMEBMP:
		img, err = bmp.Decode(r)
	case MIMETIFF:
		img, err = tiff.Decode(r)
	case MIMEGIF:
		img, err = gif.Decode(r)
	default:
		return nil, fmt.Errorf("no PNG conversion for %s", mimeType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s reference image: %w", mimeType, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode reference image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeBase64 accepts standard and URL-safe alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	if data, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}
