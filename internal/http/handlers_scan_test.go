package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"spendsmart/internal/receipt"
	"spendsmart/internal/scanning"
	"spendsmart/internal/services"
)

type stubVision struct {
	result scanning.Result
	err    error
}

func (v *stubVision) Scan(_ context.Context, _ []byte, _ string) (scanning.Result, error) {
	return v.result, v.err
}

func newScanTestServer(t *testing.T, vision scanning.Scanner) *Server {
	t.Helper()

	repo := &memRepo{}
	logger := testLogger()
	budget := services.NewBudgetService(repo, nil, logger)
	caches := services.NewCaches(nil, time.Minute)
	expenses := services.NewExpenseService(repo, budget, caches, logger)
	viz := services.NewVisualizationService(repo, caches, logger)
	scanner := scanning.NewService(vision, nil, receipt.New(receipt.DefaultThresholds()))

	s := NewServer(":0", Deps{
		Expenses: expenses,
		Budget:   budget,
		Viz:      viz,
		Scanner:  scanner,
	}, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

// postReceipt uploads image bytes as a multipart form under the given
// field name and returns the decoded envelope
func postReceipt(t *testing.T, s *Server, field string, image []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, "receipt.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(image); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/receipt/scan", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
		}
	}
	return rec, env
}

func TestScanReceiptEndpoint(t *testing.T) {
	vision := &stubVision{result: scanning.Result{
		Candidate: receipt.Candidate{
			Merchant: "Cafe Roma",
			Amount:   "45.50",
			Date:     "2024-03-15",
			Items:    []receipt.Item{{Name: "Espresso", Price: "4.50"}},
		},
		Category:   "Food & Dining",
		Confidence: 0.95,
	}}
	s := newScanTestServer(t, vision)

	rec, env := postReceipt(t, s, "receipt", []byte("fake-image-bytes"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	if !env.Success {
		t.Fatal("success = false, want true")
	}

	data := dataMap(t, env)
	if data["merchant"] != "Cafe Roma" {
		t.Errorf("merchant = %v, want Cafe Roma", data["merchant"])
	}
	if data["amount"] != "45.50" {
		t.Errorf("amount = %v, want 45.50", data["amount"])
	}
	if data["date"] != "2024-03-15" {
		t.Errorf("date = %v, want 2024-03-15", data["date"])
	}
	if data["category"] != "Food & Dining" {
		t.Errorf("category = %v, want Food & Dining", data["category"])
	}
	if data["confidence"] != 0.95 {
		t.Errorf("confidence = %v, want 0.95", data["confidence"])
	}
	if data["method"] != "gemini" {
		t.Errorf("method = %v, want gemini", data["method"])
	}
	items, ok := data["items"].([]any)
	if !ok || len(items) != 1 {
		t.Errorf("items = %v, want one entry", data["items"])
	}
}

func TestScanReceiptAcceptsImageField(t *testing.T) {
	vision := &stubVision{result: scanning.Result{
		Candidate: receipt.Candidate{
			Merchant: "Shell",
			Amount:   "60.00",
			Date:     "2024-03-15",
			Items:    []receipt.Item{{Name: "Fuel", Price: "60.00"}},
		},
		Category:   "Transportation",
		Confidence: 0.9,
	}}
	s := newScanTestServer(t, vision)

	rec, env := postReceipt(t, s, "image", []byte("fake-image-bytes"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	data := dataMap(t, env)
	if data["merchant"] != "Shell" {
		t.Errorf("merchant = %v, want Shell", data["merchant"])
	}
}

func TestScanReceiptMissingFile(t *testing.T) {
	s := newScanTestServer(t, &stubVision{})

	rec, env := postReceipt(t, s, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error != "Receipt image is required (field 'receipt')" {
		t.Errorf("error = %q", env.Error)
	}
}

func TestScanReceiptEmptyFile(t *testing.T) {
	s := newScanTestServer(t, &stubVision{})

	rec, env := postReceipt(t, s, "receipt", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error != "Image file is empty" {
		t.Errorf("error = %q", env.Error)
	}
}

func TestScanReceiptUnreadableImage(t *testing.T) {
	s := newScanTestServer(t, &stubVision{err: fmt.Errorf("model refused")})

	rec, env := postReceipt(t, s, "receipt", []byte("fake-image-bytes"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if env.Error != "Could not extract receipt data from image" {
		t.Errorf("error = %q", env.Error)
	}
}
