package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/boleta58/convert"
	"github.com/ByLCY/boleta58/metrics"
	"github.com/ByLCY/boleta58/receipt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeConverter struct {
	calls int
	got   []byte
	res   convert.Result
}

func (f *fakeConverter) Convert(_ context.Context, src io.ReaderAt, size int64) convert.Result {
	f.calls++
	buf := make([]byte, size)
	if _, err := src.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		return convert.Result{Err: convert.NewError(convert.PhaseInput, convert.CodeUnreadable, "read", err)}
	}
	f.got = buf
	return f.res
}

func okConverter() *fakeConverter {
	rec := receipt.New()
	rec.Items = []receipt.Item{{Quantity: "1.00", UnitPrice: "2.50", Description: "Pan"}}
	return &fakeConverter{res: convert.Result{Document: []byte("%PDF-1.7 fake"), Receipt: &rec}}
}

func uploadRequest(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "-" {
		part, err := w.CreateFormFile(formField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexServesForm(t *testing.T) {
	s := New(okConverter(), Options{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Conversor de Boleta a 58mm")
	assert.Contains(t, body, `name="pdf_file"`)
	assert.Contains(t, body, `enctype="multipart/form-data"`)
	assert.NotContains(t, body, "color:red")
}

func TestConvertSuccessReturnsPDFAttachment(t *testing.T) {
	conv := okConverter()
	s := New(conv, Options{})
	rec := serve(s, uploadRequest(t, "/convert", "boleta.pdf", []byte("input bytes")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="boleta_58mm.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.7 fake", rec.Body.String())
	assert.Equal(t, []byte("input bytes"), conv.got)
	assert.NotEmpty(t, rec.Header().Get(requestIDHdr))
}

func TestMissingFileIsRejectedBeforeConversion(t *testing.T) {
	conv := okConverter()
	s := New(conv, Options{})
	rec := serve(s, uploadRequest(t, "/convert", "-", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, msgNoFile, body["error"])
	assert.Equal(t, convert.CodeNoFile, body["code"])
	assert.Equal(t, 0, conv.calls)
}

func TestEmptyFilenameIsRejected(t *testing.T) {
	conv := okConverter()
	s := New(conv, Options{})
	rec := serve(s, uploadRequest(t, "/convert", "", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, msgEmptyFilename, body["error"])
	assert.Equal(t, convert.CodeEmptyFilename, body["code"])
	assert.Equal(t, 0, conv.calls)
}

func TestFormPostRendersErrorInPage(t *testing.T) {
	s := New(okConverter(), Options{})
	rec := serve(s, uploadRequest(t, "/", "-", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "No se encontró el archivo PDF.")
	assert.Contains(t, rec.Body.String(), "color:red")
}

func TestConversionFailureIsUnprocessable(t *testing.T) {
	conv := &fakeConverter{res: convert.Result{
		Err: convert.NewError(convert.PhaseExtraction, convert.CodeNoText, "sin texto", errors.New("el PDF no contiene texto")),
	}}
	s := New(conv, Options{})
	rec := serve(s, uploadRequest(t, "/convert", "boleta.pdf", []byte("x")))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Error al convertir: el PDF no contiene texto", body["error"])
	assert.Equal(t, string(convert.PhaseExtraction), body["phase"])
	assert.Equal(t, 1, conv.calls)
}

func TestUploadLimit(t *testing.T) {
	conv := okConverter()
	s := New(conv, Options{MaxUploadBytes: 64})
	rec := serve(s, uploadRequest(t, "/convert", "boleta.pdf", bytes.Repeat([]byte("a"), 4096)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, conv.calls)
}

func TestRateLimit(t *testing.T) {
	s := New(okConverter(), Options{RateLimit: 0.001, RateBurst: 1})

	first := serve(s, uploadRequest(t, "/convert", "a.pdf", []byte("x")))
	assert.Equal(t, http.StatusOK, first.Code)

	second := serve(s, uploadRequest(t, "/convert", "b.pdf", []byte("x")))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// 限流只作用于上传
	health := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := New(okConverter(), Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHdr, "abc-123")
	rec := serve(s, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHdr))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.RecordConversion(metrics.OutcomeSuccess, 0, 3)
	s := New(okConverter(), Options{Metrics: m})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `boleta58_conversions_total{phase="success"} 1`))

	none := serve(New(okConverter(), Options{}), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, none.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(okConverter(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}
