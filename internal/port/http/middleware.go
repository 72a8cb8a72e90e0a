package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/logger"
	"github.com/rasuu-adhi/bloodline-streetwear-shop/internal/platform/metrics"
)

type contextKey string

const (
	sessionCtxKey = contextKey("cart_session")
	claimsCtxKey  = contextKey("claims")
)

const (
	SessionHeader     = "X-Cart-Session"
	SessionCookieName = "cart_session"
	RoleAdmin         = "admin"

	maxSessionIDLen  = 128
	sessionCookieAge = 30 * 24 * time.Hour
)

var (
	errUnauthenticated = errors.New("authentication required")
	errForbidden       = errors.New("insufficient role")
	errBadSession      = errors.New("cart session id is too long")
)

// Claims is the identity carried by a bearer token.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionCtxKey).(string)
	return id
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey).(*Claims)
	return c, ok
}

// unmatchedRoute labels requests that no route matched.
const unmatchedRoute = "unmatched"

// RequestLogger logs each request once it completes and feeds the latency
// histogram. The route label is chi's pattern, so path parameters do not
// explode label cardinality.
func RequestLogger(log logger.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := unmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			if m != nil {
				m.HTTPLatency.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
			}
			log.Infof("%s %s -> %d (%d bytes) in %s request_id=%s",
				r.Method, r.URL.Path, status, ww.BytesWritten(), elapsed, middleware.GetReqID(r.Context()))
		})
	}
}

// CartSession resolves the cart session id from the X-Cart-Session header or
// the cart_session cookie. A request carrying neither gets a new id, set as a
// cookie on the response.
func CartSession(secureCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(SessionHeader))
			if id == "" {
				if c, err := r.Cookie(SessionCookieName); err == nil {
					id = strings.TrimSpace(c.Value)
				}
			}
			if len(id) > maxSessionIDLen {
				writeError(w, http.StatusBadRequest, errBadSession.Error())
				return
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(sessionCookieAge.Seconds()),
					HttpOnly: true,
					Secure:   secureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionCtxKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// JWTAuth accepts HS256 bearer tokens signed with secret and stores their
// claims in the request context.
func JWTAuth(secret string, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Fields(r.Header.Get("Authorization"))
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, errUnauthenticated.Error())
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				log.Warnf("JWTAuth: rejected token for %s %s: %v", r.Method, r.URL.Path, err)
				if errors.Is(err, jwt.ErrTokenExpired) {
					writeError(w, http.StatusUnauthorized, "token has expired")
					return
				}
				writeError(w, http.StatusUnauthorized, "token is invalid")
				return
			}
			if claims.UserID == "" {
				writeError(w, http.StatusUnauthorized, "token has no user_id")
				return
			}

			ctx := context.WithValue(r.Context(), claimsCtxKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole must run after JWTAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, errUnauthenticated.Error())
				return
			}
			if claims.Role != role {
				writeError(w, http.StatusForbidden, errForbidden.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
