package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/resume-billing/internal/http/response"
	"github.com/magabrotheeeer/resume-billing/internal/metrics"
	"github.com/magabrotheeeer/resume-billing/internal/ratelimit"
)

// RateLimitMiddleware возвращает HTTP middleware, ограничивающий частоту
// запросов по клиенту. Клиент определяется по первому адресу из
// X-Forwarded-For, при его отсутствии — по RemoteAddr.
//
// При превышении лимита возвращает 429 Too Many Requests c заголовком Retry-After.
func RateLimitMiddleware(gate *ratelimit.SlidingWindow, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := ClientID(r)
			if !gate.Admit(clientID) {
				log.Warn("too many requests", slog.String("client_id", clientID))
				metrics.RateLimited.Inc()
				retryAfter := int(gate.RetryAfter().Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientID определяет клиента запроса: первый адрес из X-Forwarded-For,
// при его отсутствии - хост из RemoteAddr. Один и тот же идентификатор
// используется и как ключ окна допуска, и в событиях безопасности.
func ClientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
