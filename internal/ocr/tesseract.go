// tesseract.go - Tesseract adapter behind the recognition-engine boundary.

package ocr

import (
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
)

// charWhitelist covers everything the supplier layout can print: Latin
// letters with the Norwegian extensions, digits, and the punctuation used
// in amounts, dates and codes. Restricting the engine to it cuts down on
// garbage glyphs from logos and stamps.
const charWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyzÆØÅæøå0123456789.,:-%/()+ "

// Engine is the text-recognition boundary: normalized image bytes in,
// lineated UTF-8 text out. The call may block for seconds.
type Engine interface {
	Recognize(img invoice.NormalizedImage) (invoice.OcrText, error)
}

// Tesseract runs a local Tesseract engine through gosseract.
type Tesseract struct {
	languages []string
	dpi       string
}

// Config for the Tesseract engine.
type Config struct {
	Languages string // "+"-joined, e.g. "nor+eng"
	DPI       int
}

func NewTesseract(cfg Config) *Tesseract {
	langs := strings.Split(cfg.Languages, "+")
	if cfg.Languages == "" {
		langs = []string{"nor", "eng"}
	}
	dpi := "300"
	if cfg.DPI > 0 {
		dpi = strconv.Itoa(cfg.DPI)
	}
	return &Tesseract{languages: langs, dpi: dpi}
}

// Recognize runs OCR over the normalized page. A fresh client per call
// keeps the adapter safe for concurrent requests; gosseract clients are
// not goroutine-safe.
func (t *Tesseract) Recognize(img invoice.NormalizedImage) (invoice.OcrText, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return invoice.OcrText{}, &invoice.OcrEngineError{Reason: "set languages", Err: err}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return invoice.OcrText{}, &invoice.OcrEngineError{Reason: "set page segmentation mode", Err: err}
	}
	if err := client.SetWhitelist(charWhitelist); err != nil {
		return invoice.OcrText{}, &invoice.OcrEngineError{Reason: "set character whitelist", Err: err}
	}
	if err := client.SetVariable("user_defined_dpi", t.dpi); err != nil {
		return invoice.OcrText{}, &invoice.OcrEngineError{Reason: "set dpi hint", Err: err}
	}
	if err := client.SetImageFromBytes(img.Data); err != nil {
		return invoice.OcrText{}, &invoice.OcrEngineError{Reason: "load image", Err: err}
	}

	text, err := client.Text()
	if err != nil {
		return invoice.OcrText{}, &invoice.OcrEngineError{Reason: "recognition", Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return invoice.OcrText{}, &invoice.OcrEngineError{Reason: "engine produced no text"}
	}

	return Lineate(text), nil
}

// Lineate splits raw engine output into ordered OcrLines, preserving the
// layout's line structure and dropping trailing whitespace.
func Lineate(text string) invoice.OcrText {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]invoice.OcrLine, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, invoice.OcrLine{Text: l})
	}
	return invoice.OcrText{Lines: lines}
}
