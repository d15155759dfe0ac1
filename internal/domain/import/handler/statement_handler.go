// Package handler exposes statement processing over HTTP.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/parser"
	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/service"
	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/insights"
	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/statement"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/middleware"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/storage"
)

// PasswordHeader carries the statement password on raw PDF uploads.
const PasswordHeader = "X-Statement-Password"

// StatementProcessor is what the handler needs from the statement service.
type StatementProcessor interface {
	Process(ctx context.Context, data []byte, opts service.Options) (*service.Report, error)
	ProcessBatch(ctx context.Context, inputs []service.Input, opts service.Options) ([]service.BatchResult, error)
	ExportLedger(ctx context.Context, id uuid.UUID) (io.ReadCloser, *storage.FileInfo, error)
}

// StatementHandler handles statement upload and export requests
type StatementHandler struct {
	svc            StatementProcessor
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewStatementHandler creates a new statement handler
func NewStatementHandler(svc StatementProcessor, maxUploadBytes int64, logger *slog.Logger) *StatementHandler {
	return &StatementHandler{
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Register mounts the statement routes on mux.
func (h *StatementHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/statements", h.Upload)
	mux.HandleFunc("POST /v1/statements/batch", h.UploadBatch)
	mux.HandleFunc("GET /v1/statements/{id}/ledger.csv", h.DownloadLedger)
}

// Upload processes one statement sent either as multipart form field "file" (with an
// optional "password" field) or as a raw application/pdf body.
func (h *StatementHandler) Upload(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var data []byte
	if isMultipart(r) {
		var files []upload
		files, err = h.readForm(r)
		if err == nil && len(files) != 1 {
			err = errBadUpload("expected exactly one file")
		}
		if err == nil {
			data = files[0].data
			opts.Filename = files[0].name
			if p := r.FormValue("password"); p != "" {
				opts.Password = p
			}
		}
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	report, err := h.svc.Process(r.Context(), data, opts)
	if err != nil {
		h.writeProcessError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// BatchItem is one entry of a batch response.
type BatchItem struct {
	Name   string          `json:"name"`
	Report *service.Report `json:"report,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// UploadBatch processes every "file" part of a multipart form. Each statement
// succeeds or fails on its own.
func (h *StatementHandler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !isMultipart(r) {
		middleware.WriteError(w, http.StatusUnsupportedMediaType, "batch uploads must be multipart/form-data")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	files, err := h.readForm(r)
	if err == nil && len(files) == 0 {
		err = errBadUpload("no files uploaded")
	}
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	inputs := make([]service.Input, len(files))
	for i, f := range files {
		inputs[i] = service.Input{Name: f.name, Data: f.data, Password: r.FormValue("password")}
	}

	results, err := h.svc.ProcessBatch(r.Context(), inputs, opts)
	if err != nil {
		h.writeProcessError(w, err)
		return
	}

	items := make([]BatchItem, len(results))
	for i, res := range results {
		items[i] = BatchItem{Name: res.Name, Report: res.Report}
		if res.Err != nil {
			items[i].Error = res.Err.Error()
		}
	}
	middleware.WriteJSON(w, http.StatusOK, items)
}

// DownloadLedger streams the stored ledger CSV of a processed statement.
func (h *StatementHandler) DownloadLedger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid statement id")
		return
	}

	rc, info, err := h.svc.ExportLedger(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "statement not found")
		return
	case errors.Is(err, service.ErrExportsDisabled):
		middleware.WriteError(w, http.StatusNotImplemented, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to open ledger export", slog.String("statement_id", id.String()), slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "failed to open ledger export")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id.String()+"-"+info.Name))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("failed to stream ledger export", slog.String("statement_id", id.String()), slog.Any("error", err))
	}
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *StatementHandler) options(r *http.Request) (service.Options, error) {
	opts := service.Options{Password: r.Header.Get(PasswordHeader)}
	if p := r.URL.Query().Get("period"); p != "" {
		period, err := insights.ParsePeriod(p)
		if err != nil {
			return opts, err
		}
		opts.Period = period
	}
	return opts, nil
}

type upload struct {
	name string
	data []byte
}

type errBadUpload string

func (e errBadUpload) Error() string { return string(e) }

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mt, "multipart/")
}

// readForm reads every "file" part of a multipart request.
func (h *StatementHandler) readForm(r *http.Request) ([]upload, error) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, err
	}

	var files []upload
	for _, fh := range r.MultipartForm.File["file"] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, upload{name: fh.Filename, data: data})
	}
	return files, nil
}

func (h *StatementHandler) writeUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	var bad errBadUpload
	switch {
	case errors.As(err, &tooLarge):
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
	case errors.As(err, &bad):
		middleware.WriteError(w, http.StatusBadRequest, bad.Error())
	default:
		middleware.WriteError(w, http.StatusBadRequest, "failed to read upload")
	}
}

func (h *StatementHandler) writeProcessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, parser.ErrProtectedDocument):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "statement is password protected; send the password")
	case errors.Is(err, parser.ErrInvalidDocument):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "file is not a readable PDF statement")
	case errors.Is(err, statement.ErrNoPages):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "statement has no pages")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		middleware.WriteError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.logger.Error("failed to process statement", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "failed to process statement")
	}
}
