// normalizer.go - Image preprocessing ahead of OCR.
//
// Supplier invoices arrive as phone photos: small glyphs, colored logos,
// uneven lighting. Upscaling plus hard binarization gets the engine a page
// that looks like a clean black-and-white scan.

package processor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
)

const (
	// upscaleFactor enlarges the page before recognition; small print on
	// the itemized table is unreadable at capture resolution.
	upscaleFactor = 2

	// luminanceCutoff separates print from paper. Pixels above it become
	// white, which suppresses colored logos and watermark tints while
	// keeping black print intact.
	luminanceCutoff = 160
)

// Normalize turns raw document bytes into an OCR-ready grayscale bitmap.
// It is deterministic and has no I/O beyond the buffers it is handed.
func Normalize(doc invoice.RawDocument) (invoice.NormalizedImage, error) {
	src, err := imaging.Decode(bytes.NewReader(doc.Data))
	if err != nil {
		return invoice.NormalizedImage{}, &invoice.DecodeError{Reason: "unreadable image bytes", Err: err}
	}

	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return invoice.NormalizedImage{}, &invoice.DecodeError{Reason: "empty image"}
	}

	scaled := imaging.Resize(src, bounds.Dx()*upscaleFactor, bounds.Dy()*upscaleFactor, imaging.Lanczos)

	gray := binarize(scaled)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return invoice.NormalizedImage{}, &invoice.DecodeError{Reason: "encode normalized image", Err: err}
	}

	return invoice.NormalizedImage{
		Data:   buf.Bytes(),
		Width:  gray.Bounds().Dx(),
		Height: gray.Bounds().Dy(),
	}, nil
}

// binarize maps every pixel to pure black or pure white using the ITU-R
// luminance weights.
func binarize(src image.Image) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)

			var v uint8
			if lum > luminanceCutoff {
				v = 255
			}
			dst.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.Gray{Y: v})
		}
	}
	return dst
}
