// Package viewer exposes the upload form, the ingestion trigger and the
// published chart over HTTP.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/kilianp07/evload/core/chart"
	"github.com/kilianp07/evload/core/logger"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/pipeline"
	"github.com/kilianp07/evload/pkg/export"
)

// fileField is the multipart field used by the single-slot upload route.
const fileField = "file"

// Registrar stores input files until the next submission.
type Registrar interface {
	RegisterFile(slot model.Slot, f model.File) error
	Registered() map[model.Slot]bool
}

// Cycle runs one submission and ingestion.
type Cycle interface {
	Run(ctx context.Context) (pipeline.Outcome, error)
}

// Handler serves the viewer routes.
type Handler struct {
	files     Registrar
	cycle     Cycle
	surface   *pipeline.Surface
	opts      chart.Options
	format    chart.Format
	maxUpload int64
	metrics   http.Handler
	log       logger.Logger

	archive atomic.Pointer[string]
}

// Option customises a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option { return func(h *Handler) { h.log = logger.OrNop(l) } }

// WithChart sets the default chart format and layout.
func WithChart(f chart.Format, opts chart.Options) Option {
	return func(h *Handler) {
		h.format = f
		h.opts = opts
	}
}

// WithMaxUpload caps multipart request bodies at n bytes.
func WithMaxUpload(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// WithMetrics mounts h under /metrics.
func WithMetrics(m http.Handler) Option { return func(h *Handler) { h.metrics = m } }

// New creates a Handler.
func New(files Registrar, cycle Cycle, surface *pipeline.Surface, opts ...Option) *Handler {
	h := &Handler{
		files:     files,
		cycle:     cycle,
		surface:   surface,
		opts:      chart.DefaultOptions(),
		format:    chart.FormatPNG,
		maxUpload: 32 << 20,
		log:       logger.Nop{},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Routes returns the router serving every viewer endpoint.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLog)
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Get("/download", h.download)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics)
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/files", h.registered)
		r.Post("/files/{slot}", h.registerFile)
		r.Post("/submit", h.submit)
		r.Get("/status", h.status)
		r.Get("/dataset", h.dataset)
		r.Get("/summary", h.summary)
		r.Get("/readout", h.readout)
		r.Get("/chart", h.chart)
		r.Get("/export", h.export)
	})
	return r
}

func (h *Handler) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debugw("http request", map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Detail    string `json:"detail,omitempty"`
	SavedPath string `json:"saved_path,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, code int, resp errorResponse) {
	render.Status(r, code)
	render.JSON(w, r, resp)
}

type fileResponse struct {
	Slot       string              `json:"slot"`
	Name       string              `json:"name"`
	Bytes      int                 `json:"bytes"`
	Registered map[model.Slot]bool `json:"registered"`
}

func (h *Handler) registered(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.files.Registered())
}

func (h *Handler) registerFile(w http.ResponseWriter, r *http.Request) {
	slot, err := model.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, r, http.StatusBadRequest, errorResponse{Error: "invalid multipart body", Detail: err.Error()})
		return
	}
	f, ok, err := formFile(r, fileField, slot.PartName(), slot.String())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, errorResponse{Error: "read upload", Detail: err.Error()})
		return
	}
	if !ok {
		writeError(w, r, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("missing %q form field", fileField)})
		return
	}
	if err := h.files.RegisterFile(slot, f); err != nil {
		writeError(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, fileResponse{Slot: slot.String(), Name: f.Name, Bytes: len(f.Content), Registered: h.files.Registered()})
}

type submitResponse struct {
	RunID      string        `json:"run_id"`
	Rows       int           `json:"rows"`
	SavedPath  string        `json:"saved_path,omitempty"`
	SaveError  string        `json:"save_error,omitempty"`
	Mismatches int           `json:"time_mismatches"`
	Skipped    []string      `json:"skipped,omitempty"`
	Unreadable []string      `json:"unreadable,omitempty"`
	Summary    chart.Summary `json:"summary"`
}

// submit registers any files attached to the request, then runs a cycle with
// whatever is registered.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			writeError(w, r, http.StatusBadRequest, errorResponse{Error: "invalid multipart body", Detail: err.Error()})
			return
		}
		for _, slot := range model.Slots {
			f, ok, err := formFile(r, slot.PartName(), slot.String())
			if err != nil {
				writeError(w, r, http.StatusBadRequest, errorResponse{Error: "read upload", Detail: err.Error()})
				return
			}
			if !ok {
				continue
			}
			if err := h.files.RegisterFile(slot, f); err != nil {
				writeError(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
				return
			}
		}
	}

	out, err := h.cycle.Run(r.Context())
	if out.Submission.SavedPath != "" {
		p := out.Submission.SavedPath
		h.archive.Store(&p)
	}
	if err != nil {
		writeError(w, r, statusFor(err), errorResponse{
			Error:     pipeline.Message(err),
			Kind:      pipeline.KindOf(err),
			Detail:    err.Error(),
			SavedPath: out.Submission.SavedPath,
		})
		return
	}
	resp := submitResponse{
		RunID:      out.Submission.RunID,
		Rows:       out.Result.Dataset.Len(),
		SavedPath:  out.Submission.SavedPath,
		Mismatches: len(out.Result.Mismatches),
		Skipped:    out.Result.Skipped,
		Unreadable: out.Result.Unreadable,
		Summary:    chart.Summarize(out.Result.Dataset),
	}
	if out.Submission.SaveErr != nil {
		resp.SaveError = out.Submission.SaveErr.Error()
	}
	render.JSON(w, r, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrSubmission):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrDecode), errors.Is(err, pipeline.ErrAlignment):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.surface.Status())
}

// current writes a 404 and returns false when nothing has been published.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) (model.ChartDataset, bool) {
	ds, ok := h.surface.Current()
	if !ok {
		writeError(w, r, http.StatusNotFound, errorResponse{Error: "no dataset published yet"})
	}
	return ds, ok
}

func (h *Handler) dataset(w http.ResponseWriter, r *http.Request) {
	if ds, ok := h.current(w, r); ok {
		render.JSON(w, r, ds)
	}
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if ds, ok := h.current(w, r); ok {
		render.JSON(w, r, chart.Summarize(ds))
	}
}

func (h *Handler) readout(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.current(w, r)
	if !ok {
		return
	}
	var (
		ro  chart.Readout
		err error
	)
	q := r.URL.Query()
	switch {
	case q.Get("time") != "":
		ro, err = chart.ReadoutFor(ds, q.Get("time"))
	case q.Get("index") != "":
		idx, perr := strconv.Atoi(q.Get("index"))
		if perr != nil {
			writeError(w, r, http.StatusBadRequest, errorResponse{Error: "index must be an integer"})
			return
		}
		ro, err = chart.ReadoutAt(ds, idx)
	default:
		writeError(w, r, http.StatusBadRequest, errorResponse{Error: "index or time is required"})
		return
	}
	if err != nil {
		writeError(w, r, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	render.JSON(w, r, ro)
}

func (h *Handler) chart(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.current(w, r)
	if !ok {
		return
	}
	format := h.format
	if s := r.URL.Query().Get("format"); s != "" {
		f, err := chart.ParseFormat(s)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		format = f
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	if err := chart.Render(ds, format, h.opts, w); err != nil {
		h.log.Errorf("render chart: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.current(w, r)
	if !ok {
		return
	}
	f := export.FormatCSV
	if s := r.URL.Query().Get("format"); s != "" {
		var err error
		if f, err = export.ParseFormat(s); err != nil {
			writeError(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}
	ct := "text/csv"
	if f == export.FormatJSON {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(ds, f)))
	if err := export.Write(w, f, ds); err != nil {
		h.log.Errorf("export dataset: %v", err)
	}
}

// download serves the archive saved by the last submission that reached the
// simulation, whether or not its results could be charted.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	p := h.archive.Load()
	if p == nil {
		writeError(w, r, http.StatusNotFound, errorResponse{Error: "no archive saved yet"})
		return
	}
	f, err := os.Open(*p)
	if err != nil {
		writeError(w, r, http.StatusNotFound, errorResponse{Error: "saved archive unavailable", Detail: err.Error()})
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(*p)))
	http.ServeContent(w, r, filepath.Base(*p), st.ModTime(), f)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// formFile reads the first of names present in the parsed multipart form.
func formFile(r *http.Request, names ...string) (model.File, bool, error) {
	for _, name := range names {
		fh, hdr, err := r.FormFile(name)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return model.File{}, false, err
		}
		data, err := io.ReadAll(fh)
		_ = fh.Close()
		if err != nil {
			return model.File{}, false, err
		}
		return model.File{Name: hdr.Filename, Content: data}, true, nil
	}
	return model.File{}, false, nil
}
