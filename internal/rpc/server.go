package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

const maxBodyBytes = 1 << 20

type procedure func(ctx context.Context, body []byte) (interface{}, error)

// HealthFunc reports whether the backend's dependencies are reachable
type HealthFunc func(ctx context.Context) bool

// Server exposes an API over HTTP
type Server struct {
	api        API
	logger     *logger.Logger
	timeout    time.Duration
	health     HealthFunc
	procedures map[string]procedure
}

// NewServer creates a new RPC server. A nil health func always reports healthy.
func NewServer(api API, log *logger.Logger, timeout time.Duration, health HealthFunc) *Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if health == nil {
		health = func(context.Context) bool { return true }
	}
	s := &Server{
		api:     api,
		logger:  log,
		timeout: timeout,
		health:  health,
	}
	s.procedures = map[string]procedure{
		OrdersCreate:   bind(api.CreateOrder),
		OrdersAddItem:  bind(api.AddOrderItem),
		OrdersUpdate:   bind(api.UpdateOrder),
		OrdersCancel:   bind(api.CancelOrder),
		OrdersGet:      bind(api.GetOrder),
		OrdersList:     bind(api.ListOrders),
		OrdersCheckout: bind(api.Checkout),

		TablesList:   noInput(api.ListTables),
		TablesUpdate: bind(api.UpdateTable),

		TableMergesMerge:     bind(api.MergeTables),
		TableMergesUnmerge:   bind(api.UnmergeTables),
		TableMergesGetActive: noInput(api.ActiveMerges),

		SplitBillsCreate:  bind(api.CreateSplitBill),
		SplitBillsAddPart: bind(api.AddSplitPart),
		SplitBillsPayPart: bind(api.PaySplitPart),
		SplitBillsGet:     bind(api.GetSplitBill),

		DiscountsList:         noInput(api.ListDiscounts),
		DiscountsApplyToOrder: bind(api.ApplyDiscount),

		TipsAddToOrder: bind(api.AddTip),

		StaffVerifyManagerPin: bind(api.VerifyManagerPin),

		ReportsZReport: bind(api.ZReport),

		KitchenStations: noInput(api.ListStations),
	}
	return s
}

func bind[In any, Out any](fn func(context.Context, In) (Out, error)) procedure {
	return func(ctx context.Context, body []byte) (interface{}, error) {
		var in In
		if len(bytes.TrimSpace(body)) > 0 {
			decoder := json.NewDecoder(bytes.NewReader(body))
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(&in); err != nil {
				return nil, models.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON format: %v", err)}
			}
		}
		return fn(ctx, in)
	}
}

func noInput[Out any](fn func(context.Context) (Out, error)) procedure {
	return func(ctx context.Context, _ []byte) (interface{}, error) {
		return fn(ctx)
	}
}

// Routes sets up the HTTP routes
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.withLogging)

	r.Get("/health", s.handleHealth)
	r.Post("/rpc/{procedure}", s.handleCall)
	return r
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	requestID := RequestID(r.Context())
	name := chi.URLParam(r, "procedure")

	proc, ok := s.procedures[name]
	if !ok {
		s.writeError(w, http.StatusNotFound, &Error{Code: CodeNotFound, Message: fmt.Sprintf("unknown procedure %q", name)})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, &Error{Code: CodeValidation, Message: "failed to read request body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	result, err := proc(ctx, body)
	if err != nil {
		status, wireErr := fromError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("rpc_call_failed", fmt.Sprintf("%s failed", name), requestID, err, map[string]interface{}{
				"procedure": name,
			})
		} else {
			s.logger.Debug("rpc_call_rejected", fmt.Sprintf("%s rejected", name), requestID, map[string]interface{}{
				"procedure": name,
				"code":      wireErr.Code,
				"message":   wireErr.Message,
			})
		}
		s.writeError(w, status, wireErr)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"result": result})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := s.health(ctx)
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "pos-api",
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
		response["status"] = "unhealthy"
	}
	s.writeJSON(w, status, response)
}

func (s *Server) writeError(w http.ResponseWriter, status int, e *Error) {
	s.writeJSON(w, status, map[string]interface{}{"error": e})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response_encoding_failed", "Failed to encode response", "", err, nil)
	}
}

type ctxKey struct{}

// RequestID returns the id the logging middleware attached to ctx
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// withLogging adds request logging middleware
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, requestID))
		w.Header().Set("X-Request-ID", requestID)

		s.logger.Debug("request_started", fmt.Sprintf("%s %s", r.Method, r.URL.Path), requestID, map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.Header.Get("User-Agent"),
		})

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.Debug("request_completed", fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode), requestID, map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": rw.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
