package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/leave-ledger/store/idempotency"
)

// RequestLogger writes one structured log line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// IdempotencyHeader carries the client's retry key.
const IdempotencyHeader = "Idempotency-Key"

// Idempotent replays the stored response of a request retried with the
// same Idempotency-Key and body. Requests without the header pass through.
// The key is reserved before the handler runs; only successful responses
// are stored, anything else releases the key.
func Idempotent(store *idempotency.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if store == nil || key == "" || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Failed to read request body", err)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			storeKey := r.Method + " " + r.URL.Path + " " + key
			hash := idempotency.RequestHash(body)

			entry, err := store.Reserve(storeKey, hash)
			if errors.Is(err, idempotency.ErrConflict) {
				writeErrorCode(w, http.StatusConflict, "idempotency_conflict", "Idempotency-Key was used with a different request", nil)
				return
			}
			if errors.Is(err, idempotency.ErrInFlight) {
				writeErrorCode(w, http.StatusConflict, "idempotency_in_flight", "A request with this Idempotency-Key is still in progress", nil)
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Idempotency lookup failed", err)
				return
			}
			if entry != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(entry.Status)
				w.Write(entry.Body)
				return
			}

			saved := false
			defer func() {
				if saved {
					return
				}
				if err := store.Release(storeKey); err != nil {
					slog.Warn("idempotency release failed", "key", key, "path", r.URL.Path, "err", err)
				}
			}()

			var buf bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&buf)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status < 200 || status >= 300 || !json.Valid(buf.Bytes()) {
				return
			}
			err = store.Save(storeKey, idempotency.Entry{
				RequestHash: hash,
				Status:      status,
				Body:        json.RawMessage(bytes.TrimSpace(buf.Bytes())),
			})
			if err != nil {
				slog.Warn("idempotency save failed", "key", key, "path", r.URL.Path, "err", err)
				return
			}
			saved = true
		})
	}
}
