package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/flora-agent/flora/internal/domain"
	"github.com/flora-agent/flora/internal/metrics"
	"github.com/flora-agent/flora/internal/service/auth"
)

type contextKey string

const claimsContextKey contextKey = "auth-claims"

// ClaimsFromContext возвращает claims аутентифицированного запроса.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok
}

// statusRecorder перехватывает статус и тело ответа вложенного хендлера.
type statusRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}

// requestLogger логирует завершённые запросы и пишет HTTP-метрики.
func requestLogger(logger *log.Entry, httpMetrics *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(recorder, r)

			status := recorder.status
			if status == 0 {
				status = http.StatusOK
			}

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}

			duration := time.Since(start)
			if httpMetrics != nil {
				httpMetrics.RecordRequest(r.Method, route, status, duration)
			}

			entry := logger.WithFields(log.Fields{
				"method":      r.Method,
				"route":       route,
				"status":      status,
				"duration_ms": duration.Milliseconds(),
			})
			if status >= http.StatusInternalServerError {
				entry.Error("http request failed")
			} else {
				entry.Info("http request")
			}
		})
	}
}

// requireAuth проверяет Bearer-токен и кладёт claims в контекст запроса.
func requireAuth(authService *auth.Service, logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "authorization header with bearer token is required")
				return
			}

			claims, err := authService.Authenticate(token)
			if err != nil {
				logger.WithError(err).Debug("token rejected")
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyTTL       = 24 * time.Hour
)

// withIdempotency обслуживает повторы мутаций с заголовком Idempotency-Key.
// Успешный ответ кэшируется и воспроизводится при повторе с тем же телом;
// тот же ключ с другим телом — 422, параллельная обработка — 409.
// Без заголовка запрос проходит как обычно.
func withIdempotency(repo domain.IdempotencyRepository, logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if repo == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashIdempotencyRequest(r.Method, r.URL.Path, body)
			record, err := repo.CreateProcessing(key, requestHash, time.Now().UTC().Add(idempotencyTTL))
			if err != nil {
				replayIdempotency(w, logger, err, record)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r)

			status := recorder.status
			if status == 0 {
				status = http.StatusOK
			}

			if status < http.StatusBadRequest {
				err = repo.MarkDone(key, recorder.body.Bytes(), status)
			} else {
				err = repo.MarkFailed(key, recorder.body.Bytes(), status)
			}
			if err != nil {
				logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotent response")
			}
		})
	}
}

func replayIdempotency(w http.ResponseWriter, logger *log.Entry, createErr error, record domain.IdempotencyRecord) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		writeError(w, http.StatusUnprocessableEntity, "idempotency_mismatch",
			"idempotency key is already used with different request payload")
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusProcessing:
			writeError(w, http.StatusConflict, "idempotency_processing",
				"request with the same idempotency key is already processing")
		case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
			replayStoredResponse(w, record)
		default:
			writeError(w, http.StatusInternalServerError, "internal", "unknown idempotency record status")
		}
	default:
		logger.WithError(createErr).Warn("failed to create idempotency record")
		writeError(w, http.StatusInternalServerError, "internal", "failed to initialize idempotent request")
	}
}

func replayStoredResponse(w http.ResponseWriter, record domain.IdempotencyRecord) {
	status := record.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(record.ResponseBody)
}

func hashIdempotencyRequest(method, path string, body []byte) string {
	payload := make([]byte, 0, len(method)+len(path)+len(body)+2)
	payload = append(payload, method...)
	payload = append(payload, ':')
	payload = append(payload, path...)
	payload = append(payload, ':')
	payload = append(payload, body...)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
