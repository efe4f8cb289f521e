package rest

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// ----- DTO -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type resetRequestReq struct {
	Email string `json:"email"`
}

type resetConfirmReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Login аутентифицирует по email+паролю и возвращает access-токен.
func (s *Server) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	token, err := s.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, tokenResp{
		AccessToken: token.Token,
		TokenType:   "bearer",
		ExpiresAt:   token.ExpiresAt,
	})
}

// Logout отзывает предъявленный bearer-токен. Отзыв подтверждается только
// после durable-записи в блэклист.
func (s *Server) Logout(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	}

	if err := s.svc.Logout(c.Request().Context(), token); err != nil {
		return s.writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "successfully logged out"})
}

// Refresh меняет предъявленный токен на свежий (ротация: старый отзывается).
func (s *Server) Refresh(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	}

	fresh, err := s.svc.Refresh(c.Request().Context(), token)
	if err != nil {
		return s.writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, tokenResp{
		AccessToken: fresh.Token,
		TokenType:   "bearer",
		ExpiresAt:   fresh.ExpiresAt,
	})
}

// RequestPasswordReset принимает email и всегда отвечает 202:
// существование аккаунта по ответу не определить.
func (s *Server) RequestPasswordReset(c echo.Context) error {
	var req resetRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	if err := s.svc.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return s.writeServiceError(c, err)
	}

	return c.JSON(http.StatusAccepted, echo.Map{
		"message": "if the email exists, a reset link has been sent",
	})
}

// ConfirmPasswordReset гасит reset-токен и устанавливает новый пароль.
func (s *Server) ConfirmPasswordReset(c echo.Context) error {
	var req resetConfirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	if err := s.svc.ConfirmPasswordReset(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return s.writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password has been reset"})
}
