package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/pkg/log"
)

// accountKey — ключ echo-контекста, под которым живёт аутентифицированный аккаунт.
const accountKey = "account"

// RequestLogger — middleware логирования запросов с контекстным логгером.
//
// Поведение и формат логов:
//   - Вытягивает X-Request-Id из заголовков, иначе генерирует UUID;
//   - Кладёт обогащённый *slog.Logger в context (pkg/log), чтобы он был
//     доступен глубже по стеку;
//   - После выполнения хэндлера пишет одну строку уровня Info: msg="http",
//     status=<код>, dur=<время выполнения> и инкрементит счетчик запросов.
//
// Безопасность: в логи попадают только метод/путь/peer/request_id,
// никаких тел запросов и заголовков Authorization.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	if base == nil {
		base = slog.Default()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
				slog.String("peer", c.RealIP()),
			)

			ctx := log.Into(c.Request().Context(), l)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status

			l.Info("http",
				slog.Int("status", status),
				slog.Duration("dur", time.Since(start)),
			)

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Inc()

			return err
		}
	}
}

// WithTimeout ограничивает время обработки запроса, если дедлайн
// ещё не задан вызывающим.
func WithTimeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqCtx := c.Request().Context()
			if _, ok := reqCtx.Deadline(); ok {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(reqCtx, d)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// bearerToken достаёт токен из заголовка Authorization: Bearer <token>.
func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}

	return ""
}

// RequireAuth аутентифицирует запрос по bearer-токену и кладёт аккаунт
// в echo-контекст. Любая проблема токена — единый 401 без деталей.
func (s *Server) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c)
		if token == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
		}

		account, err := s.svc.Authenticate(c.Request().Context(), token)
		if err != nil {
			return s.writeServiceError(c, err)
		}

		c.Set(accountKey, account)
		return next(c)
	}
}

// RequireRole пускает дальше только аккаунты с одной из перечисленных ролей.
// Ставится после RequireAuth.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account := currentAccount(c)
			if account == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
			}

			for _, r := range roles {
				if account.Role == r {
					return next(c)
				}
			}

			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
}

// currentAccount возвращает аккаунт, положенный RequireAuth, или nil.
func currentAccount(c echo.Context) *models.Account {
	if v := c.Get(accountKey); v != nil {
		if a, ok := v.(*models.Account); ok {
			return a
		}
	}

	return nil
}
