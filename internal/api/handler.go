package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/rules"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/texts"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/logger"
)

type Handler struct {
	service *Service
	library *texts.Library
	rules   *rules.Store
	cache   *cache.Cache
}

func NewHandler(service *Service, library *texts.Library, store *rules.Store, resultCache *cache.Cache) *Handler {
	return &Handler{
		service: service,
		library: library,
		rules:   store,
		cache:   resultCache,
	}
}

// WordsResponse is the body of GET /api/v1/texts/{name}/words.
type WordsResponse struct {
	Text            string          `json:"text"`
	TotalWords      uint64          `json:"total_words"`
	DistinctWords   int             `json:"distinct_words"`
	Lines           uint64          `json:"lines"`
	Workers         int             `json:"workers"`
	RulesGeneration uint64          `json:"rules_generation"`
	Cached          bool            `json:"cached"`
	Words           []ranking.Entry `json:"words"`
}

type textResponse struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

type rulesResponse struct {
	Generation    uint64    `json:"generation"`
	Fingerprint   string    `json:"fingerprint"`
	LoadedAt      time.Time `json:"loaded_at"`
	Separators    int       `json:"separators"`
	NoiseWords    int       `json:"noise_words"`
	Synonyms      int       `json:"synonyms"`
	SynonymGroups int       `json:"synonym_groups"`
}

// Legacy serves GET /{name} with the bare [[word, count], ...] array the
// word-cloud page expects.
func (h *Handler) Legacy(w http.ResponseWriter, r *http.Request) {
	v, _, err := h.service.Rank(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	words := v.Words
	if words == nil {
		words = []ranking.Entry{}
	}
	writeJSON(w, r, http.StatusOK, words)
}

// Words serves GET /api/v1/texts/{name}/words?limit=N.
func (h *Handler) Words(w http.ResponseWriter, r *http.Request) {
	limit := h.service.TopK()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > h.service.TopK() {
			writeError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"limit must be between 1 and %d", h.service.TopK()))
			return
		}
		limit = n
	}

	v, cached, err := h.service.Rank(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	words := ranking.Truncate(v.Words, limit)
	if words == nil {
		words = []ranking.Entry{}
	}
	writeJSON(w, r, http.StatusOK, WordsResponse{
		Text:            v.Text,
		TotalWords:      v.TotalWords,
		DistinctWords:   v.DistinctWords,
		Lines:           v.Lines,
		Workers:         v.Workers,
		RulesGeneration: v.Generation,
		Cached:          cached,
		Words:           words,
	})
}

// Texts serves GET /api/v1/texts.
func (h *Handler) Texts(w http.ResponseWriter, r *http.Request) {
	infos, err := h.library.List()
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]textResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, textResponse{Name: info.Name, Size: info.Size, ModTime: info.ModTime})
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"texts": out,
		"count": len(out),
	})
}

// CacheStats serves GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.cache.Stats(r.Context()))
}

// CacheInvalidate serves POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	n, err := h.cache.Invalidate(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("cache invalidated", "entries", n)
	writeJSON(w, r, http.StatusOK, map[string]any{"invalidated": n})
}

// Rules serves GET /api/v1/rules.
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, describeRules(h.rules.Current()))
}

// ReloadRules serves POST /api/v1/rules/reload. A failed reload leaves the
// previous rules active and reports why.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	snap, err := h.rules.Reload(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, describeRules(snap))
}

func describeRules(snap *rules.Snapshot) rulesResponse {
	return rulesResponse{
		Generation:    snap.Generation,
		Fingerprint:   snap.Fingerprint,
		LoadedAt:      snap.LoadedAt,
		Separators:    snap.Separators.Len(),
		NoiseWords:    snap.NoiseWords.Len(),
		Synonyms:      snap.Collapser.Len(),
		SynonymGroups: len(snap.Collapser.Canonicals()),
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, r, status, map[string]string{
		"error": message,
		"code":  errorCode(err),
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, apperrors.ErrFormat):
		return "FORMAT_ERROR"
	case errors.Is(err, apperrors.ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, apperrors.ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, apperrors.ErrIO):
		return "IO_ERROR"
	case errors.Is(err, apperrors.ErrDispatch):
		return "DISPATCH_ERROR"
	case errors.Is(err, apperrors.ErrCollect):
		return "COLLECT_ERROR"
	default:
		return "INTERNAL"
	}
}
