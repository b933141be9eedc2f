package main

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/WessleyAI/vehicle-form/engine/classify"
	"github.com/WessleyAI/vehicle-form/engine/domain"
	"github.com/WessleyAI/vehicle-form/engine/form"
	"github.com/WessleyAI/vehicle-form/engine/form/memdom"
	"github.com/WessleyAI/vehicle-form/pkg/markup"
	"github.com/WessleyAI/vehicle-form/pkg/metrics"
	"github.com/WessleyAI/vehicle-form/pkg/resilience"
)

//go:embed web
var webFS embed.FS

var indexTmpl = template.Must(template.ParseFS(webFS, "web/templates/index.html"))

func staticFS() fs.FS {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	return sub
}

// maxBody caps JSON and form request bodies.
const maxBody = 16 << 10

// classifier is the subset of classify.Service the handlers use.
type classifier interface {
	Classify(ctx context.Context, v domain.Vehicle) (classify.Result, error)
	Configured() bool
	Breaker() resilience.State
}

type server struct {
	classifier classifier
	metrics    *metrics.Registry
	logger     *slog.Logger
	now        func() time.Time
	wasm       bool

	submissions *prometheus.CounterVec
}

func newServer(c classifier, reg *metrics.Registry, logger *slog.Logger, wasm bool) *server {
	return &server{
		classifier:  c,
		metrics:     reg,
		logger:      logger,
		now:         time.Now,
		wasm:        wasm,
		submissions: reg.Counter("form_submissions_total", "Form submissions by validation outcome.", "outcome"),
	}
}

// --- Page ---

type resultView struct {
	Vehicle  string
	Category domain.Category
	HTML     template.HTML
}

type pageData struct {
	Values       domain.FormInput
	MaxYear      int
	Makes        []string
	Focus        string
	ModalShown   bool
	ModalMessage string
	Result       *resultView
	Error        string
	Wasm         bool
}

func (s *server) page(values domain.FormInput) pageData {
	return pageData{
		Values:  values,
		MaxYear: domain.MaxModelYear(s.now()),
		Makes:   domain.MakeSuggestions(),
		Wasm:    s.wasm,
	}
}

func (s *server) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, data); err != nil {
		s.logger.Error("render page", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, s.page(domain.FormInput{}))
}

// handleSubmit serves native form posts, for browsers that did not run the
// form controller or submitted before it loaded.
func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := domain.FormInput{
		Year:  strings.TrimSpace(r.PostForm.Get("year")),
		Make:  strings.TrimSpace(r.PostForm.Get("make")),
		Model: strings.TrimSpace(r.PostForm.Get("model")),
		Trim:  strings.TrimSpace(r.PostForm.Get("trim")),
	}

	out, v, ok := s.validate(in)
	data := s.page(out.Values)
	if !ok {
		data.Focus = out.Focus
		data.ModalShown = true
		data.ModalMessage = out.Message()
		s.render(w, http.StatusUnprocessableEntity, data)
		return
	}

	res, err := s.classifier.Classify(r.Context(), v)
	if err != nil {
		data.Error = classify.UserMessage(err)
		s.render(w, http.StatusOK, data)
		return
	}
	html, err := markup.Render(res.Text)
	if err != nil {
		s.logger.Error("render classification", "id", res.ID, "err", err)
		html = markup.Sanitize(template.HTMLEscapeString(res.Text))
	}
	data.Result = &resultView{Vehicle: v.String(), Category: res.Category, HTML: html}
	s.render(w, http.StatusOK, data)
}

// validate replays the browser controller over in and, when it passes,
// normalises the values into a Vehicle.
func (s *server) validate(in domain.FormInput) (memdom.Outcome, domain.Vehicle, bool) {
	out, err := memdom.Replay(in, form.WithClock(s.now), form.WithLogger(s.logger))
	if err != nil {
		// The in-memory document always has every element.
		panic(err)
	}
	if !out.Valid {
		s.submissions.WithLabelValues(string(out.Failures[0].Kind)).Inc()
		return out, domain.Vehicle{}, false
	}
	v, err := domain.ValidateForm(out.Values, s.now())
	if err != nil {
		var ve *domain.ValidationError
		kind := form.FailureRequired
		if errors.Is(err, domain.ErrYearOutOfRange) {
			kind = form.FailureYearRange
		}
		field := form.IDYear
		if errors.As(err, &ve) {
			field = string(ve.Field)
		}
		out.Valid = false
		out.Focus = field
		out.Failures = append(out.Failures, form.Failure{Kind: kind, Field: field, Message: domain.UserMessage(err)})
		s.submissions.WithLabelValues(string(kind)).Inc()
		return out, domain.Vehicle{}, false
	}
	s.submissions.WithLabelValues("valid").Inc()
	return out, v, true
}

// --- JSON API ---

type failureJSON struct {
	Kind    form.FailureKind `json:"kind"`
	Field   string           `json:"field"`
	Message string           `json:"message"`
}

// ValidateResponse is the JSON response for POST /api/validate.
type ValidateResponse struct {
	Valid    bool          `json:"valid"`
	Year     string        `json:"year"`
	Message  string        `json:"message,omitempty"`
	Focus    string        `json:"focus,omitempty"`
	Failures []failureJSON `json:"failures,omitempty"`
}

// ClassifyResponse is the JSON response for POST /api/classify.
type ClassifyResponse struct {
	ID         string          `json:"id"`
	Vehicle    domain.Vehicle  `json:"vehicle"`
	Category   domain.Category `json:"category,omitempty"`
	Text       string          `json:"text"`
	HTML       template.HTML   `json:"html"`
	Model      string          `json:"model"`
	TokensUsed int             `json:"tokens_used"`
}

func validateResponse(out memdom.Outcome) ValidateResponse {
	resp := ValidateResponse{
		Valid:   out.Valid,
		Year:    out.Values.Year,
		Message: out.Message(),
	}
	if !out.Valid {
		resp.Focus = out.Focus
	}
	for _, f := range out.Failures {
		resp.Failures = append(resp.Failures, failureJSON(f))
	}
	return resp
}

func decodeInput(w http.ResponseWriter, r *http.Request) (domain.FormInput, bool) {
	var in domain.FormInput
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return in, false
	}
	return in, true
}

func (s *server) handleValidate(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	out, _, _ := s.validate(in)
	writeJSON(w, http.StatusOK, validateResponse(out))
}

func (s *server) handleClassify(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	out, v, ok := s.validate(in)
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, validateResponse(out))
		return
	}

	res, err := s.classifier.Classify(r.Context(), v)
	if err != nil {
		writeError(w, classifyStatus(err), classify.UserMessage(err))
		return
	}
	html, err := markup.Render(res.Text)
	if err != nil {
		s.logger.Error("render classification", "id", res.ID, "err", err)
	}
	writeJSON(w, http.StatusOK, ClassifyResponse{
		ID:         res.ID,
		Vehicle:    res.Vehicle,
		Category:   res.Category,
		Text:       res.Text,
		HTML:       html,
		Model:      res.Model,
		TokensUsed: res.TokensUsed,
	})
}

func classifyStatus(err error) int {
	switch {
	case errors.Is(err, classify.ErrNotConfigured), errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, resilience.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := map[string]string{"status": "ok", "classifier": "disabled"}
	if s.classifier.Configured() {
		status["classifier"] = s.classifier.Breaker().String()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *server) handleLimited(w http.ResponseWriter, r *http.Request) {
	const msg = "Too many submissions. Please wait a moment and try again."
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusTooManyRequests, msg)
		return
	}
	data := s.page(domain.FormInput{})
	data.Error = msg
	s.render(w, http.StatusTooManyRequests, data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
