// rest содержит HTTP-эндпоинты accounts-сервиса.
// Здесь выполняется только маппинг данных и ошибок доменного слоя (service)
// в HTTP. Вся валидация и бизнес-логика находятся в пакете service.
//
// Принципы:
//   - Контекст запроса прокидывается в сервис без потерь;
//   - Ошибки сервиса явно транслируются в статусы:
//   - ErrInvalidEmail/ErrWeakPassword/ErrEmptyPassword/ErrInvalidArgument,
//     а также ErrResetTokenNotFound/ErrResetTokenExpired -> 400;
//   - ErrInvalidCredentials/ErrInvalidToken/ErrTokenExpired/ErrTokenRevoked -> 401;
//   - ErrNotFound -> 404;
//   - ErrEmailTaken -> 409;
//   - иные ошибки -> 500 с единым безопасным сообщением.
//
// Безопасность:
//   - Для 500 наружу не утекают детали внутренних ошибок; подробности
//     попадают в логи через middleware;
//   - Ошибки аутентификации не различают «нет такого аккаунта» и
//     «неверный пароль».
package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/accounts-service/internal/config"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/service"
)

type Server struct {
	svc  *service.Service
	cfg  *config.Config
	echo *echo.Echo
}

// New собирает HTTP-сервер поверх сервисного слоя: middleware + маршруты.
func New(svc *service.Service, cfg *config.Config, log *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		svc:  svc,
		cfg:  cfg,
		echo: e,
	}

	e.Use(RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(WithTimeout(cfg.Timeouts.Service))

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	e := s.echo

	e.GET("/livez", s.Livez)
	e.GET("/healthz", s.Healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/refresh", s.Refresh)
	auth.POST("/password-reset/request", s.RequestPasswordReset)
	auth.POST("/password-reset/confirm", s.ConfirmPasswordReset)

	api.POST("/users", s.Register)

	me := api.Group("/users/me", s.RequireAuth)
	me.GET("", s.Me)
	me.PUT("/password", s.ChangePassword)

	admin := api.Group("/users", s.RequireAuth, RequireRole(models.RoleAdmin))
	admin.GET("", s.ListAccounts)
	admin.GET("/:id", s.GetAccount)
	admin.PUT("/:id", s.UpdateAccount)
	admin.DELETE("/:id", s.DeleteAccount)
}

// Start запускает сервер и блокирует до остановки.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown гасит сервер gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo отдаёт внутренний echo-инстанс (нужен тестам).
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Livez — процесс жив.
func (s *Server) Livez(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Healthz — сервис готов обслуживать запросы.
func (s *Server) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// writeServiceError транслирует типизированную ошибку сервиса в HTTP-ответ.
func (s *Server) writeServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrEmptyPassword),
		errors.Is(err, service.ErrInvalidArgument):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": unwrapMessage(err)})

	case errors.Is(err, service.ErrResetTokenNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reset token not found"})

	case errors.Is(err, service.ErrResetTokenExpired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reset token expired"})

	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})

	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})

	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})

	case errors.Is(err, service.ErrEmailTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already taken"})

	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

// unwrapMessage отдаёт наружу текст сентинельной ошибки без op-префиксов.
func unwrapMessage(err error) string {
	for _, sentinel := range []error{
		service.ErrInvalidEmail,
		service.ErrWeakPassword,
		service.ErrEmptyPassword,
		service.ErrInvalidArgument,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}

	return "bad request"
}
