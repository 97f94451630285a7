// handlers.go - HTTP handlers for the extraction service.

package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/convert"
	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/storage"
)

// Extractor is the pipeline boundary the handler depends on.
type Extractor interface {
	Extract(ctx context.Context, doc invoice.RawDocument) (invoice.ExtractionResult, error)
}

// Handler serves the extraction endpoint.
type Handler struct {
	pipe           Extractor
	archive        *storage.Archive
	maxUploadBytes int64
	log            *slog.Logger
}

func NewHandler(pipe Extractor, archive *storage.Archive, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{pipe: pipe, archive: archive, maxUploadBytes: maxUploadBytes, log: logger}
}

// ExtractInvoice handles POST /api/v1/extract-invoice: multipart upload in,
// ExtractionResult JSON out. The result is pre-fill data for the claim
// form, not validated truth; confidence and warnings travel with it.
func (h *Handler) ExtractInvoice(c *gin.Context) {
	requestID := uuid.New().String()
	start := time.Now()
	logger := h.log.With("request_id", requestID)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "uploaded file exceeds the size limit"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open uploaded file"})
		return
	}
	defer f.Close()

	var reader io.Reader = f
	if h.maxUploadBytes > 0 {
		reader = io.LimitReader(f, h.maxUploadBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	if err := convert.Validate(data, h.maxUploadBytes); err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}

	doc, err := convert.ToPNG(data, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		logger.Warn("extract.convert_failed", "filename", fileHeader.Filename, "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not decode the uploaded document"})
		return
	}

	logger.Info("extract.start", "filename", fileHeader.Filename, "bytes", len(doc.Data))

	result, err := h.pipe.Extract(c.Request.Context(), doc)
	if err != nil {
		h.writeExtractionError(c, logger, err)
		return
	}

	elapsed := time.Since(start)
	logger.Info("extract.ok",
		"source", string(result.Source),
		"confidence", result.Confidence,
		"warnings", len(result.Warnings),
		"elapsed_ms", elapsed.Milliseconds(),
	)

	if err := h.archive.Record(c.Request.Context(), requestID, fileHeader.Filename, result, elapsed); err != nil {
		logger.Warn("extract.archive_failed", "error", err)
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) writeExtractionError(c *gin.Context, logger *slog.Logger, err error) {
	var decodeErr *invoice.DecodeError
	var engineErr *invoice.OcrEngineError
	var failed *invoice.ExtractionFailed

	switch {
	case errors.As(err, &decodeErr):
		logger.Warn("extract.decode_error", "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "document could not be decoded"})
	case errors.As(err, &engineErr):
		logger.Error("extract.engine_error", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "text recognition is unavailable, retry later"})
	case errors.As(err, &failed):
		logger.Error("extract.failed", "strategy", failed.Strategy, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "no extraction strategy produced a result"})
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		logger.Warn("extract.cancelled", "error", err)
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "extraction cancelled"})
	default:
		logger.Error("extract.error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "extraction failed"})
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "invoice-extraction",
	})
}
