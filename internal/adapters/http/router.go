package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
	"github.com/mirceapaciu/econ-assistant/internal/core/ports"
	"github.com/mirceapaciu/econ-assistant/internal/observability/metrics"
)

// Router exposes the chat, load-trigger, and status surfaces. When a load
// queue is configured, load requests are handed to worker instances and
// answered with 202; without one the load runs in-process under the
// configured wall-clock ceiling.
type Router struct {
	service     string
	chatUC      ports.ChatService
	loadUC      ports.CorpusLoader
	statuses    ports.StatusReader
	queue       ports.LoadQueue
	metrics     *metrics.HTTPServerMetrics
	loadTimeout time.Duration
}

func NewRouter(
	service string,
	chatUC ports.ChatService,
	loadUC ports.CorpusLoader,
	statuses ports.StatusReader,
	queue ports.LoadQueue,
	httpMetrics *metrics.HTTPServerMetrics,
	loadTimeout time.Duration,
) *Router {
	if loadTimeout <= 0 {
		loadTimeout = 30 * time.Minute
	}
	return &Router{
		service:     service,
		chatUC:      chatUC,
		loadUC:      loadUC,
		statuses:    statuses,
		queue:       queue,
		metrics:     httpMetrics,
		loadTimeout: loadTimeout,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat", rt.chat)
	mux.HandleFunc("/v1/corpus/load", rt.loadCorpus)
	mux.HandleFunc("/v1/corpus/status", rt.listStatuses)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string            `json:"question"`
		History  []domain.ChatTurn `json:"history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.chatUC.Answer(r.Context(), req.Question, req.History)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordChatAnswer(rt.service, len(answer.Citations), answer.KnowledgeBaseEmpty, time.Since(start))
	}

	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) loadCorpus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Policy string `json:"policy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	policy := domain.LoadPolicy(strings.TrimSpace(req.Policy))
	if policy == "" {
		policy = domain.PolicyMissingOnly
	}
	switch policy {
	case domain.PolicyMissingOnly, domain.PolicyAll:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "policy must be missing_only or all"})
		return
	}

	if rt.queue != nil {
		if err := rt.queue.PublishLoadRequest(r.Context(), policy); err != nil {
			writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"policy": string(policy),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), rt.loadTimeout)
	defer cancel()

	summary, err := rt.loadUC.Load(ctx, policy)
	if err != nil {
		if domain.IsKind(err, domain.ErrLoadInProgress) && rt.metrics != nil {
			rt.metrics.RecordLoadRefused(rt.service)
		}
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) listStatuses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rows, err := rt.statuses.ListStatuses(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"statuses": rows})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
