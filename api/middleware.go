package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"watchpost/config"
	"watchpost/core/auth"
	"watchpost/core/rbac"

	"golang.org/x/time/rate"
)

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Errorf("PANIC %s %s: %v\n%s", r.Method, r.URL.Path, rec, string(debug.Stack()))
				writeError(w, http.StatusInternalServerError, "internal", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

const (
	loginPayloadMaxBytes        = 64 * 1024
	loginLimiterTTL             = 10 * time.Minute
	loginLimiterCleanupInterval = time.Minute
	loginLimiterMaxBuckets      = 10000
)

// requestLimiter keeps one token bucket per key (client IP or username).
// Idle keys are dropped on a cleanup pass and the map is capped.
type requestLimiter struct {
	mu              sync.Mutex
	visitors        map[string]*visitor
	limit           rate.Limit
	burst           int
	ttl             time.Duration
	cleanupInterval time.Duration
	lastCleanup     time.Time
	maxVisitors     int
	now             func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newLimiter allows capacity attempts per refill window, replenished evenly.
func newLimiter(capacity int, refill time.Duration) *requestLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	return &requestLimiter{
		visitors:        make(map[string]*visitor),
		limit:           rate.Every(refill / time.Duration(capacity)),
		burst:           capacity,
		ttl:             loginLimiterTTL,
		cleanupInterval: loginLimiterCleanupInterval,
		maxVisitors:     loginLimiterMaxBuckets,
		now:             time.Now,
	}
}

func (l *requestLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if l.cleanupInterval > 0 && now.Sub(l.lastCleanup) >= l.cleanupInterval {
		l.cleanup(now)
		l.lastCleanup = now
	}
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *requestLimiter) cleanup(now time.Time) {
	if l.ttl > 0 {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.ttl {
				delete(l.visitors, key)
			}
		}
	}
	for l.maxVisitors > 0 && len(l.visitors) > l.maxVisitors {
		oldestKey := ""
		var oldest time.Time
		for key, v := range l.visitors {
			if oldestKey == "" || v.lastSeen.Before(oldest) {
				oldestKey = key
				oldest = v.lastSeen
			}
		}
		delete(l.visitors, oldestKey)
	}
}

func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		if isHTTPSRequest(r, s.cfg) {
			w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		s.logger.Debugf("REQ %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		user := "-"
		if rec.identity.Authenticated() {
			user = rec.identity.Username
		}
		s.logger.Printf("RESP %s %s user=%s status=%d dur=%s bytes=%d", r.Method, r.URL.Path, user, rec.status, time.Since(start), rec.size)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status   int
	size     int
	identity auth.Identity
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// noteIdentity lets the outer logging middleware see who the session
// middleware resolved, since the request context does not flow back out.
func noteIdentity(w http.ResponseWriter, id auth.Identity) {
	if rec, ok := w.(*statusRecorder); ok {
		rec.identity = id
	}
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// withSession requires a valid bearer token.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.logger.Printf("AUTH fail (missing token) %s %s", r.Method, r.URL.Path)
			s.respondUnauthorized(w)
			return
		}
		id, err := s.sessions.Verify(r.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				s.logger.Errorf("AUTH verify %s %s: %v", r.Method, r.URL.Path, err)
			} else {
				s.logger.Printf("AUTH fail (session invalid) %s %s", r.Method, r.URL.Path)
			}
			s.respondUnauthorized(w)
			return
		}
		noteIdentity(w, id)
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	}
}

// withOptionalSession attaches an identity when a valid token is present and
// serves the request as the public caller otherwise.
func (s *Server) withOptionalSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := auth.Public()
		if token := bearerToken(r); token != "" {
			verified, err := s.sessions.Verify(r.Context(), token)
			if err != nil {
				s.respondUnauthorized(w)
				return
			}
			id = verified
			noteIdentity(w, id)
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	}
}

func (s *Server) respondUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "unauthenticated", "unauthorized")
}

func (s *Server) requirePermission(perm rbac.Permission) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id := auth.FromContext(r.Context())
			if !id.Authenticated() {
				s.logger.Printf("PERM fail (no session) %s %s need=%s", r.Method, r.URL.Path, perm)
				s.respondUnauthorized(w)
				return
			}
			if !s.policy.Allowed(id.Roles(), perm) {
				s.logger.Printf("PERM fail %s %s user=%s role=%s need=%s", r.Method, r.URL.Path, id.Username, id.Role, perm)
				writeError(w, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}

func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := s.clientIP(r)
		r.Body = http.MaxBytesReader(w, r.Body, loginPayloadMaxBytes+1)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "validation", "payload too large")
				return
			}
			writeError(w, http.StatusBadRequest, "validation", "bad request")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var cred auth.Credentials
		_ = json.Unmarshal(body, &cred)
		username := strings.ToLower(strings.TrimSpace(cred.Username))
		if !s.loginLimiter.allow(strings.ToLower(ip)) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
			return
		}
		if username != "" && !s.loginLimiter.allow("user|"+username) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (s *Server) clientIP(r *http.Request) string {
	ip, _, _ := net.SplitHostPort(r.RemoteAddr)
	if ip == "" {
		ip = r.RemoteAddr
	}
	ip = strings.TrimSpace(ip)
	if s == nil || s.cfg == nil || !isTrustedProxy(ip, s.cfg.Security.TrustedProxies) {
		return ip
	}
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		if candidate := extractClientIPFromXFF(xff, s.cfg.Security.TrustedProxies); candidate != "" {
			return candidate
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		if parsed := net.ParseIP(realIP); parsed != nil {
			return parsed.String()
		}
	}
	return ip
}

func isHTTPSRequest(r *http.Request, cfg *config.AppConfig) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if cfg == nil {
		return false
	}
	remoteIP, _, _ := net.SplitHostPort(r.RemoteAddr)
	if remoteIP == "" {
		remoteIP = strings.TrimSpace(r.RemoteAddr)
	}
	if !isTrustedProxy(strings.TrimSpace(remoteIP), cfg.Security.TrustedProxies) {
		return false
	}
	xffProto := strings.ToLower(strings.TrimSpace(strings.SplitN(r.Header.Get("X-Forwarded-Proto"), ",", 2)[0]))
	return xffProto == "https"
}

func extractClientIPFromXFF(xff string, trusted []string) string {
	parts := strings.Split(xff, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		parsed := net.ParseIP(strings.TrimSpace(parts[i]))
		if parsed == nil {
			continue
		}
		val := parsed.String()
		if !isTrustedProxy(val, trusted) {
			return val
		}
	}
	return ""
}

// isTrustedProxy matches ip against trusted entries given as single
// addresses or CIDR prefixes. IPv4-mapped IPv6 addresses compare as IPv4.
func isTrustedProxy(ip string, trusted []string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, raw := range trusted {
		entry := strings.TrimSpace(raw)
		switch {
		case entry == "":
		case strings.Contains(entry, "/"):
			if prefix, err := netip.ParsePrefix(entry); err == nil && prefix.Masked().Contains(addr) {
				return true
			}
		default:
			if other, err := netip.ParseAddr(entry); err == nil && other.Unmap() == addr {
				return true
			}
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
