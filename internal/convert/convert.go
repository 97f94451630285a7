// convert.go - Document-capture collaborator: turns whatever the claim
// form uploads (single-page PDFs, HEIC phone photos, assorted bitmaps)
// into PNG bytes the pipeline accepts.

package convert

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
)

// ToPNG normalizes an upload into a PNG RawDocument. PDFs contribute their
// first page only; invoices from the supplier are single-page documents.
func ToPNG(data []byte, contentType string) (invoice.RawDocument, error) {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))

	switch {
	case mediaType == "application/pdf" || isPDF(data):
		pngData, err := pdfPageToPNG(data)
		if err != nil {
			return invoice.RawDocument{}, err
		}
		return invoice.RawDocument{Data: pngData, MediaType: "image/png"}, nil

	case isHEIC(data) || strings.Contains(mediaType, "heic") || strings.Contains(mediaType, "heif"):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return invoice.RawDocument{}, &invoice.DecodeError{Reason: "decode HEIC image", Err: err}
		}
		return encodePNG(img)

	case mediaType == "image/png":
		return invoice.RawDocument{Data: data, MediaType: "image/png"}, nil

	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return invoice.RawDocument{}, &invoice.DecodeError{Reason: "decode image", Err: err}
		}
		return encodePNG(img)
	}
}

func pdfPageToPNG(data []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, &invoice.DecodeError{Reason: "open PDF", Err: err}
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, &invoice.DecodeError{Reason: "render PDF page", Err: err}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &invoice.DecodeError{Reason: "encode PDF page", Err: err}
	}
	return buf.Bytes(), nil
}

func encodePNG(img image.Image) (invoice.RawDocument, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return invoice.RawDocument{}, &invoice.DecodeError{Reason: "encode PNG", Err: err}
	}
	return invoice.RawDocument{Data: buf.Bytes(), MediaType: "image/png"}, nil
}

func isPDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// isHEIC sniffs the ftyp box brands iPhones write.
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// Validate enforces the caller-side upload policy before any decoding.
func Validate(data []byte, maxBytes int64) error {
	if len(data) == 0 {
		return &invoice.DecodeError{Reason: "empty upload"}
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return fmt.Errorf("upload of %d bytes exceeds limit of %d", len(data), maxBytes)
	}
	return nil
}
