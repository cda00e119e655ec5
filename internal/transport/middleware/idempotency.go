package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyKeyHeader   = "Idempotency-Key"
	IdempotentReplayHeader = "Idempotent-Replayed"

	// provisional lock held while the first request runs
	provisionalLockTTL = 60 * time.Second
	storeTimeout       = 2 * time.Second
)

var reIdempotencyKey = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

type idempotencyEntry struct {
	InProgress bool      `json:"in_progress"`
	Code       int       `json:"code"`
	Body       []byte    `json:"body"`
	BodySHA256 string    `json:"body_sha256"`
	CreatedAt  time.Time `json:"created_at"`
}

type bodyRecorder struct {
	http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if r.code == 0 {
		r.code = http.StatusOK
	}
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency makes mutating requests that carry an Idempotency-Key safe to
// retry. The first request takes a provisional lock; a retry with the same key
// and body replays the stored response, a retry while it still runs or with a
// different body gets 409. Requests without the header pass through.
// Keys are scoped per user and path, so it must run after authentication.
func Idempotency(rdb redis.Cmdable, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !reIdempotencyKey.MatchString(key) {
				writeAppError(w, internal.NewValidationError("invalid Idempotency-Key format", internal.ErrCodeIdempotencyKeyInvalid))
				return
			}

			userID := internal.UserIDFromContext(r.Context())

			var body []byte
			if r.Body != nil {
				body, _ = io.ReadAll(r.Body)
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			hash := bodyHash(body)

			storeKey := idempotencyStoreKey(r.Method, r.URL.Path, userID, key)
			lg := logger.From(r.Context()).With("idempotency_key", key)

			ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
			defer cancel()

			acquired, err := provisionalSet(ctx, rdb, storeKey, idempotencyEntry{
				InProgress: true,
				BodySHA256: hash,
				CreatedAt:  time.Now().UTC(),
			})
			if err != nil {
				lg.Error("idempotency store unavailable", "error", err)
				writeAppError(w, internal.NewUnavailableError("idempotency store unavailable", err))
				return
			}

			if !acquired {
				cur, err := loadEntry(ctx, rdb, storeKey)
				if err != nil && !errors.Is(err, redis.Nil) {
					lg.Warn("failed to load idempotency entry", "error", err)
				}
				if cur.BodySHA256 != "" && cur.BodySHA256 != hash {
					writeAppError(w, internal.NewConflictError("Idempotency-Key reused with a different body", internal.ErrCodeIdempotencyKeyReused))
					return
				}
				if !cur.InProgress && cur.Code != 0 {
					lg.Info("replaying stored response", "status", cur.Code)
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set(IdempotentReplayHeader, "true")
					w.WriteHeader(cur.Code)
					_, _ = w.Write(cur.Body)
					return
				}
				writeAppError(w, internal.NewConflictError("a request with this Idempotency-Key is in progress", internal.ErrCodeIdempotencyInProgress))
				return
			}

			rec := &bodyRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.code == 0 {
				rec.code = http.StatusOK
			}

			// server errors release the key so the client can retry for real
			saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(r.Context()), storeTimeout)
			defer saveCancel()
			if rec.code >= http.StatusInternalServerError {
				if err := rdb.Del(saveCtx, storeKey).Err(); err != nil {
					lg.Warn("failed to release idempotency key", "error", err)
				}
				return
			}
			err = saveFinal(saveCtx, rdb, storeKey, idempotencyEntry{
				Code:       rec.code,
				Body:       rec.buf.Bytes(),
				BodySHA256: hash,
				CreatedAt:  time.Now().UTC(),
			}, ttl)
			if err != nil {
				lg.Warn("failed to store idempotent response", "error", err)
			}
		})
	}
}

func idempotencyStoreKey(method, path string, userID int64, key string) string {
	return "idemp:" + strings.ToLower(method) + ":" + path + ":" + strconv.FormatInt(userID, 10) + ":" + key
}

func bodyHash(b []byte) string {
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:])
}

func provisionalSet(ctx context.Context, rdb redis.Cmdable, key string, entry idempotencyEntry) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	return rdb.SetNX(ctx, key, payload, provisionalLockTTL).Result()
}

func loadEntry(ctx context.Context, rdb redis.Cmdable, key string) (idempotencyEntry, error) {
	var e idempotencyEntry
	v, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(v, &e)
	return e, err
}

func saveFinal(ctx context.Context, rdb redis.Cmdable, key string, entry idempotencyEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, payload, ttl).Err()
}
