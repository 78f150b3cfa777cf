package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	csvadapter "github.com/iho/txengine/internal/adapter/csv"
	"github.com/iho/txengine/internal/adapter/http/dto"
	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/ledger"
	"github.com/iho/txengine/internal/usecase"
)

// DefaultMaxBatchBytes limits request bodies when no limit is configured.
const DefaultMaxBatchBytes = 10 << 20

// BatchProcessor runs record sources through a fresh ledger.
type BatchProcessor interface {
	Run(ctx context.Context, input usecase.RunInput) (*domain.RunReport, error)
}

// BatchHandlerConfig configures a BatchHandler.
type BatchHandlerConfig struct {
	Processor BatchProcessor
	// Cache keeps responses for GET /batches/{id}. Optional.
	Cache    usecase.ReportCache
	CacheTTL time.Duration
	MaxBytes int64
	Logger   zerolog.Logger
}

// BatchHandler handles batch requests. Every request gets its own ledger.
type BatchHandler struct {
	processor BatchProcessor
	cache     usecase.ReportCache
	cacheTTL  time.Duration
	maxBytes  int64
	logger    zerolog.Logger
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(cfg BatchHandlerConfig) *BatchHandler {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBatchBytes
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = usecase.IdempotencyKeyTTL
	}
	return &BatchHandler{
		processor: cfg.Processor,
		cache:     cfg.Cache,
		cacheTTL:  cfg.CacheTTL,
		maxBytes:  cfg.MaxBytes,
		logger:    cfg.Logger,
	}
}

// Create handles POST /batches. The body is either CSV with a header row or,
// with Content-Type application/json, a dto.BatchRequest.
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, h.maxBytes)

	src, err := h.source(r, body)
	if err != nil {
		writeError(w, mapError(err), "invalid request body", err.Error())
		return
	}

	rejections := ledger.NewRecorder()
	report, err := h.processor.Run(r.Context(), usecase.RunInput{
		Sources: []usecase.RecordSource{src},
		Sink:    rejections,
	})
	if report == nil {
		writeError(w, mapError(err), "failed to process batch", err.Error())
		return
	}
	if err != nil {
		// The ledger result is complete; only delivery to an exporter failed.
		h.logger.Error().Err(err).Str("run_id", report.ID).Msg("batch export failed")
	}

	resp := dto.BatchFromReport(report, rejections.Rejections())
	h.store(r.Context(), resp)

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /batches/{id}.
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusNotFound, "batch not found", "")
		return
	}

	id := chi.URLParam(r, "id")
	body, err := h.cache.Get(r.Context(), id)
	if err != nil {
		writeError(w, mapError(err), "batch not found", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *BatchHandler) source(r *http.Request, body io.Reader) (usecase.RecordSource, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return csvadapter.NewReader(body, "request"), nil
	}

	var req dto.BatchRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)
	}
	return &requestSource{records: req.Transactions}, nil
}

func (h *BatchHandler) store(ctx context.Context, resp dto.BatchResponse) {
	if h.cache == nil {
		return
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, resp.RunID, body, h.cacheTTL); err != nil {
		h.logger.Warn().Err(err).Str("run_id", resp.RunID).Msg("failed to cache batch response")
	}
}

// requestSource yields the records of a decoded JSON batch.
type requestSource struct {
	records []dto.TransactionRecord
	pos     int
}

func (s *requestSource) Next(ctx context.Context) (domain.Transaction, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	i := s.pos
	s.pos++

	tx, err := s.records[i].ToTransaction()
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", i, err)
	}
	return tx, nil
}
