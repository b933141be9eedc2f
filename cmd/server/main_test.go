package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/WessleyAI/vehicle-form/engine/classify"
	"github.com/WessleyAI/vehicle-form/engine/domain"
	"github.com/WessleyAI/vehicle-form/engine/form"
	"github.com/WessleyAI/vehicle-form/pkg/metrics"
	"github.com/WessleyAI/vehicle-form/pkg/resilience"
)

type fakeClassifier struct {
	got       []domain.Vehicle
	text      string
	err       error
	unconfig  bool
	breakerSt resilience.State
}

func (f *fakeClassifier) Classify(_ context.Context, v domain.Vehicle) (classify.Result, error) {
	f.got = append(f.got, v)
	if f.err != nil {
		return classify.Result{}, f.err
	}
	cat, _ := classify.ExtractCategory(f.text)
	return classify.Result{ID: "id-1", Vehicle: v, Category: cat, Text: f.text, Model: "llama3"}, nil
}

func (f *fakeClassifier) Configured() bool          { return !f.unconfig }
func (f *fakeClassifier) Breaker() resilience.State { return f.breakerSt }

const civicAnswer = "Vehicle Classification: 2020 Honda Civic - Medium\n\n- Type: Sedan\n\n<script>alert(1)</script>"

func testServer(t *testing.T, c *fakeClassifier, cfg Config) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := newServer(c, metrics.New(), logger, false)
	s.now = func() time.Time { return time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC) }
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	return s.routes(cfg)
}

func do(h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(h http.Handler, vals url.Values) *httptest.ResponseRecorder {
	return do(h, "POST", "/", "application/x-www-form-urlencoded", vals.Encode())
}

func TestIndexRendersForm(t *testing.T) {
	rec := do(testServer(t, &fakeClassifier{}, Config{}), "GET", "/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, id := range form.ElementIDs {
		if !strings.Contains(body, `id="`+id+`"`) {
			t.Errorf("missing #%s", id)
		}
	}
	if !strings.Contains(body, `id="loading-spinner" class="spinner hidden"`) {
		t.Error("expected spinner hidden")
	}
	if !strings.Contains(body, `id="error-modal" class="modal hidden"`) {
		t.Error("expected modal hidden")
	}
	if !strings.Contains(body, `<option value="Chevrolet">`) {
		t.Error("expected make suggestions")
	}
	if strings.Contains(body, "wasm_exec.js") {
		t.Error("expected no wasm loader without WASM_DIR")
	}
}

func TestUnknownPathIs404(t *testing.T) {
	if rec := do(testServer(t, &fakeClassifier{}, Config{}), "GET", "/nope", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSubmitMissingFields(t *testing.T) {
	c := &fakeClassifier{text: civicAnswer}
	rec := postForm(testServer(t, c, Config{}), url.Values{"year": {"2020"}, "model": {"Civic"}})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `id="error-modal" class="modal"`) {
		t.Error("expected modal shown")
	}
	if !strings.Contains(body, domain.RequiredMessage) {
		t.Error("expected required message")
	}
	if !strings.Contains(body, `value="" autofocus`) {
		t.Error("expected make to be autofocused")
	}
	if len(c.got) != 0 {
		t.Fatal("expected classifier not to be called")
	}
}

func TestSubmitYearOutOfRange(t *testing.T) {
	rec := postForm(testServer(t, &fakeClassifier{}, Config{}), url.Values{"year": {"2031"}, "make": {"Ford"}, "model": {"Bronco"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Please enter a year between 1960 and 2026") {
		t.Fatalf("expected range message, got:\n%s", rec.Body.String())
	}
}

func TestSubmitClassifies(t *testing.T) {
	c := &fakeClassifier{text: civicAnswer}
	rec := postForm(testServer(t, c, Config{}), url.Values{"year": {" 2020 "}, "make": {"honda"}, "model": {"Civic"}, "trim": {"EX"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := domain.Vehicle{Year: 2020, Make: "Honda", Model: "Civic", Trim: "EX"}
	if len(c.got) != 1 || c.got[0] != want {
		t.Fatalf("expected classifier called with %+v, got %+v", want, c.got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `data-category="Medium"`) || !strings.Contains(body, "<li>Type: Sedan</li>") {
		t.Fatalf("expected rendered result, got:\n%s", body)
	}
	if strings.Contains(body, "alert(1)") {
		t.Fatal("expected model output to be sanitized")
	}
}

func TestSubmitClassifierError(t *testing.T) {
	c := &fakeClassifier{err: &classify.OutputError{Content: "no idea"}}
	rec := postForm(testServer(t, c, Config{}), url.Values{"year": {"2020"}, "make": {"Honda"}, "model": {"Civic"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Unexpected output from the classifier - no idea") {
		t.Fatal("expected classifier error box")
	}
}

func TestValidateAPI(t *testing.T) {
	h := testServer(t, &fakeClassifier{}, Config{})

	rec := do(h, "POST", "/api/validate", "application/json", `{"year":"19a99x","make":"Toyota","model":"Corolla"}`)
	var ok ValidateResponse
	if err := json.NewDecoder(rec.Body).Decode(&ok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ok.Valid || ok.Year != "1999" {
		t.Fatalf("expected valid sanitized 1999, got %+v", ok)
	}

	rec = do(h, "POST", "/api/validate", "application/json", `{"year":"","make":"Toyota","model":""}`)
	var bad ValidateResponse
	json.NewDecoder(rec.Body).Decode(&bad)
	if bad.Valid || bad.Focus != form.IDYear || bad.Message != domain.RequiredMessage {
		t.Fatalf("unexpected response %+v", bad)
	}
	if len(bad.Failures) != 1 || bad.Failures[0].Kind != form.FailureRequired {
		t.Fatalf("unexpected failures %+v", bad.Failures)
	}
}

func TestValidateAPIBadJSON(t *testing.T) {
	rec := do(testServer(t, &fakeClassifier{}, Config{}), "POST", "/api/validate", "application/json", "not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestClassifyAPI(t *testing.T) {
	c := &fakeClassifier{text: civicAnswer}
	rec := do(testServer(t, c, Config{}), "POST", "/api/classify", "application/json", `{"year":"2020","make":"chevy","model":"Tahoe"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ClassifyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Vehicle.Make != "Chevrolet" || resp.Category != domain.CategoryMedium || resp.ID != "id-1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if strings.Contains(string(resp.HTML), "<script") {
		t.Fatal("expected sanitized html")
	}
}

func TestClassifyAPIInvalid(t *testing.T) {
	rec := do(testServer(t, &fakeClassifier{}, Config{}), "POST", "/api/classify", "application/json", `{"year":"1950","make":"Ford","model":"F1"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestClassifyAPIErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{classify.ErrNotConfigured, http.StatusServiceUnavailable},
		{resilience.ErrCircuitOpen, http.StatusServiceUnavailable},
		{resilience.ErrRateLimited, http.StatusTooManyRequests},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&classify.OutputError{Content: "x"}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		c := &fakeClassifier{err: tt.err}
		rec := do(testServer(t, c, Config{}), "POST", "/api/classify", "application/json", `{"year":"2020","make":"Honda","model":"Civic"}`)
		if rec.Code != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, rec.Code)
		}
	}
}

func TestSubmitRateLimited(t *testing.T) {
	h := testServer(t, &fakeClassifier{text: civicAnswer}, Config{SubmitRPS: 0.01, SubmitBurst: 1})
	body := `{"year":"2020","make":"Honda","model":"Civic"}`

	if rec := do(h, "POST", "/api/classify", "application/json", body); rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	rec := do(h, "POST", "/api/classify", "application/json", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Fatalf("expected JSON error body, got %s", rec.Body.String())
	}
	// The native form shares the same per-client budget.
	if rec := postForm(h, url.Values{"year": {"2020"}, "make": {"Honda"}, "model": {"Civic"}}); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected form post to be limited, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name string
		c    *fakeClassifier
		want string
	}{
		{"ready", &fakeClassifier{}, "closed"},
		{"open", &fakeClassifier{breakerSt: resilience.StateOpen}, "open"},
		{"disabled", &fakeClassifier{unconfig: true}, "disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(testServer(t, tt.c, Config{}), "GET", "/api/health", "", "")
			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp["status"] != "ok" || resp["classifier"] != tt.want {
				t.Fatalf("unexpected health %v", resp)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := testServer(t, &fakeClassifier{}, Config{})
	postForm(h, url.Values{"year": {"2020"}})
	rec := do(h, "GET", "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `form_submissions_total{outcome="required"} 1`) {
		t.Errorf("missing submission counter:\n%s", body)
	}
	if !strings.Contains(body, `http_requests_total{method="POST",route="POST /{$}",status="422"} 1`) {
		t.Errorf("missing request counter:\n%s", body)
	}
}

func TestStaticCSS(t *testing.T) {
	rec := do(testServer(t, &fakeClassifier{}, Config{}), "GET", "/static/style.css", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(".hidden")) {
		t.Fatal("expected hidden class rule")
	}
}

func TestWasmDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "form.wasm"), []byte("\x00asm"), 0o644); err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := newServer(&fakeClassifier{}, metrics.New(), logger, true)
	h := s.routes(Config{WASMDir: dir, CORSOrigin: "*"})

	if rec := do(h, "GET", "/wasm/form.wasm", "", ""); rec.Code != http.StatusOK || rec.Body.String() != "\x00asm" {
		t.Fatalf("expected wasm file, got %d", rec.Code)
	}
	if rec := do(h, "GET", "/", "", ""); !strings.Contains(rec.Body.String(), "/wasm/wasm_exec.js") {
		t.Fatal("expected wasm loader in page")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := loadConfig()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.CORSOrigin != "*" {
		t.Fatalf("expected default CORS *, got %s", cfg.CORSOrigin)
	}
	if cfg.ClassifyTimeout != 60*time.Second || cfg.SubmitBurst != 5 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.NATSURL != "" {
		t.Fatalf("expected NATS disabled by default, got %q", cfg.NATSURL)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CLASSIFY_TIMEOUT", "5s")
	t.Setenv("CLASSIFY_RPS", "0.5")
	t.Setenv("SUBMIT_BURST", "not-a-number")
	cfg := loadConfig()
	if cfg.Port != "9090" || cfg.ClassifyTimeout != 5*time.Second || cfg.ClassifyRPS != 0.5 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.SubmitBurst != 5 {
		t.Fatalf("expected fallback burst 5, got %d", cfg.SubmitBurst)
	}
}
