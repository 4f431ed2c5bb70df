package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	adminservice "tapgate/contexts/faucet-access/admin-service"
	adminhttp "tapgate/contexts/faucet-access/admin-service/transport/http"
	claimservice "tapgate/contexts/faucet-access/claim-service"
	claimadapter "tapgate/contexts/faucet-access/claim-service/adapters/http"
	claimerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
	claimhttp "tapgate/contexts/faucet-access/claim-service/transport/http"
	"tapgate/internal/platform/metrics"
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	claims  claimservice.Module
	admin   adminservice.Module
	metrics *metrics.Metrics
}

func New(
	claims claimservice.Module,
	admin adminservice.Module,
	collectors *metrics.Metrics,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		claims:  claims,
		admin:   admin,
		metrics: collectors,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
		"distributors", len(s.claims.Handlers),
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the assembled mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.HTTPHandler())
	}

	// Claim routes are declared by configuration, one POST route per
	// distributor.
	for path, handler := range s.claims.Handlers {
		s.mux.HandleFunc("POST "+path, s.claimHandlerFor(handler))
	}

	s.mux.HandleFunc("GET /admin/distributors", s.handleListDistributors)
	s.mux.HandleFunc("GET /admin/stats", s.handleStats)
	s.mux.HandleFunc("GET /admin/distributors/{distributor_id}/rules", s.handleRules)
	s.mux.HandleFunc("POST /admin/distributors/{distributor_id}/rules/sync", s.handleSyncRules)
	s.mux.HandleFunc("GET /admin/distributors/{distributor_id}/claim-codes", s.handleClaimCodes)
	s.mux.HandleFunc("POST /admin/distributors/{distributor_id}/claim-codes", s.handleCreateClaimCodes)
	s.mux.HandleFunc("GET /admin/transactions/{transaction_id}", s.handleTransactionStatus)

	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("/", s.handleNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	paths := make([]string, 0, len(s.claims.Handlers))
	for path := range s.claims.Handlers {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	writeJSON(w, http.StatusOK, map[string]any{
		"service":      "tapgate",
		"distributors": paths,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeClaimError(w, http.StatusNotFound, "not found")
}

func (s *Server) claimHandlerFor(handler claimadapter.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req claimhttp.ClaimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeClaimError(w, http.StatusBadRequest, "request body must be valid JSON")
			return
		}

		distributorID := handler.Distributor.ID
		started := time.Now()
		resp, err := handler.ClaimHandler(
			r.Context(),
			bearerToken(r),
			resolveClientIP(r),
			req,
		)
		if s.metrics != nil {
			s.metrics.ClaimDuration.WithLabelValues(distributorID).
				Observe(time.Since(started).Seconds())
			s.metrics.ClaimsTotal.WithLabelValues(distributorID, claimOutcome(err)).Inc()
			if errors.Is(err, claimerrors.ErrTapClosed) {
				s.metrics.UpstreamFailures.WithLabelValues("tap_closed").Inc()
			} else if errors.Is(err, claimerrors.ErrUpstreamRejected) {
				s.metrics.UpstreamFailures.WithLabelValues("rejected").Inc()
			}
		}
		if err != nil {
			writeClaimDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleListDistributors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.admin.Handler.ListDistributorsHandler(r.Context()))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.admin.Handler.StatsHandler(r.Context())
	if err != nil {
		writeClaimDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	resp, err := s.admin.Handler.RulesHandler(r.Context(), r.PathValue("distributor_id"))
	if err != nil {
		writeClaimDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSyncRules(w http.ResponseWriter, r *http.Request) {
	resp, err := s.admin.Handler.SyncRulesHandler(r.Context(), r.PathValue("distributor_id"))
	if err != nil {
		writeClaimDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaimCodes(w http.ResponseWriter, r *http.Request) {
	resp, err := s.admin.Handler.ClaimCodesHandler(r.Context(), r.PathValue("distributor_id"))
	if err != nil {
		writeClaimDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateClaimCodes(w http.ResponseWriter, r *http.Request) {
	var req adminhttp.CreateClaimCodesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeClaimError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}
	resp, err := s.admin.Handler.CreateClaimCodesHandler(r.Context(), r.PathValue("distributor_id"), req)
	if err != nil {
		writeClaimDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransactionStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.admin.Handler.TransactionStatusHandler(r.Context(), r.PathValue("transaction_id"))
	if err != nil {
		writeClaimDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeClaimDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, claimerrors.ErrTokenRequired),
		errors.Is(err, claimerrors.ErrInvalidToken),
		errors.Is(err, claimerrors.ErrWalletsNotFound),
		errors.Is(err, claimerrors.ErrWalletVerificationFailed):
		writeClaimError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, claimerrors.ErrNFTNotOwned):
		writeClaimError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, claimerrors.ErrAlreadyClaimed),
		errors.Is(err, claimerrors.ErrRateLimited):
		writeClaimError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, claimerrors.ErrTapClosed):
		writeClaimError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, claimerrors.ErrDistributorNotFound):
		writeClaimError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, claimerrors.ErrVisitorRequired),
		errors.Is(err, claimerrors.ErrWalletRequired),
		errors.Is(err, claimerrors.ErrInvalidWalletAddress),
		errors.Is(err, claimerrors.ErrWalletUnavailable),
		errors.Is(err, claimerrors.ErrUpstreamRejected):
		writeClaimError(w, http.StatusBadRequest, err.Error())
	default:
		writeClaimError(w, http.StatusInternalServerError, "internal server error")
	}
}

func claimOutcome(err error) string {
	switch {
	case err == nil:
		return "granted"
	case errors.Is(err, claimerrors.ErrAlreadyClaimed),
		errors.Is(err, claimerrors.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, claimerrors.ErrTapClosed):
		return "tap_closed"
	default:
		return "rejected"
	}
}

func writeClaimError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, claimhttp.ErrorResponse{
		Success: false,
		Error:   message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// resolveClientIP mirrors the edge proxy chain: the CDN header wins, then the
// first hop of X-Forwarded-For, then X-Real-IP. Empty when nothing is set so
// the upstream applies its own fallback.
func resolveClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
