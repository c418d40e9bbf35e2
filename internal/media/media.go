// Package media sniffs upload content types and derives normalized images and thumbnails.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeHEIC = "image/heic"

	// ThumbWidth is the width of generated thumbnails; height keeps the aspect ratio
	ThumbWidth = 320
)

var (
	// ErrUnsupportedType is returned when content or extension is not an allowed image type
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrConversion is returned when a source format cannot be converted to JPEG
	ErrConversion = errors.New("image conversion failed")
)

var allowedExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".heic": true}

// Image is an upload after sniffing and normalization
type Image struct {
	Data []byte
	Mime string
	Ext  string
}

// Processor converts uploads to a servable format and renders thumbnails
type Processor interface {
	Normalize(data []byte, originalName string) (*Image, error)
	Thumbnail(img *Image) ([]byte, error)
}

// Sniff detects the content type of data and checks it together with the file extension
// against the jpeg/png/heic allow-list. It returns the canonical mime type.
func Sniff(data []byte, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExts[ext] {
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedType, ext)
	}

	detected := mimetype.Detect(data)
	switch {
	case detected.Is(MimeJPEG):
		return MimeJPEG, nil
	case detected.Is(MimePNG):
		return MimePNG, nil
	case detected.Is(MimeHEIC), detected.Is("image/heif"), detected.Is("image/heic-sequence"), detected.Is("image/heif-sequence"):
		return MimeHEIC, nil
	}
	return "", fmt.Errorf("%w: content %s", ErrUnsupportedType, detected.String())
}

// ImagingProcessor works on JPEG and PNG through disintegration/imaging.
// HEIC input is handed to Converter; without one it fails with ErrConversion.
type ImagingProcessor struct {
	Converter   func(data []byte) ([]byte, error)
	JPEGQuality int
}

// NewProcessor returns an ImagingProcessor with default quality settings
func NewProcessor() *ImagingProcessor {
	return &ImagingProcessor{JPEGQuality: 70}
}

// Normalize sniffs data and converts HEIC to JPEG. JPEG and PNG pass through unchanged.
func (p *ImagingProcessor) Normalize(data []byte, originalName string) (*Image, error) {
	mime, err := Sniff(data, originalName)
	if err != nil {
		return nil, err
	}

	switch mime {
	case MimeJPEG:
		return &Image{Data: data, Mime: MimeJPEG, Ext: ".jpg"}, nil
	case MimePNG:
		return &Image{Data: data, Mime: MimePNG, Ext: ".png"}, nil
	}

	if p.Converter == nil {
		return nil, fmt.Errorf("%w: no HEIC decoder available", ErrConversion)
	}
	converted, err := p.Converter(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return &Image{Data: converted, Mime: MimeJPEG, Ext: ".jpg"}, nil
}

// Thumbnail renders a ThumbWidth-wide copy in the image's own format
func (p *ImagingProcessor) Thumbnail(img *Image) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	thumb := imaging.Resize(src, ThumbWidth, 0, imaging.Lanczos)

	format := imaging.JPEG
	if img.Mime == MimePNG {
		format = imaging.PNG
	}
	quality := p.JPEGQuality
	if quality <= 0 {
		quality = 70
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// ThumbName derives the thumbnail file name for name
func ThumbName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_thumb" + ext
}
