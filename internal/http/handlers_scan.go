package http

import (
	"io"
	"net/http"

	"spendsmart/internal/log"
)

// maxReceiptBytes caps uploaded receipt images at 10 MB
const maxReceiptBytes = 10 << 20

func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scanner == nil {
		respondError(w, http.StatusServiceUnavailable, "Receipt scanning not available")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBytes)
	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form or image too large (max 10 MB)")
		return
	}

	// The frontend uploads as "receipt"; "image" is accepted for
	// direct API use
	file, header, err := r.FormFile("receipt")
	if err != nil {
		file, header, err = r.FormFile("image")
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "Receipt image is required (field 'receipt')")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read image")
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "Image file is empty")
		return
	}

	contentType := header.Header.Get("Content-Type")
	result, method, err := s.deps.Scanner.ScanReceipt(r.Context(), data, contentType)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Receipt scan failed",
			log.FieldError, err,
			log.FieldOperation, log.OpScan)
		respondError(w, http.StatusUnprocessableEntity, "Could not extract receipt data from image")
		return
	}

	s.logger.InfoContext(r.Context(), "Receipt scanned",
		log.FieldOperation, log.OpScan,
		log.FieldMerchant, result.Merchant,
		log.FieldAmount, result.Amount,
		log.FieldCategory, result.Category,
		"method", method)
	respondData(w, http.StatusOK, map[string]any{
		"merchant":   result.Merchant,
		"amount":     result.Amount,
		"date":       result.Date,
		"category":   result.Category,
		"confidence": result.Confidence,
		"items":      result.Items,
		"method":     method,
	})
}
