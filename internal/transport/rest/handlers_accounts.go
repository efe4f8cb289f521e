package rest

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/service"
)

// ----- DTO -----

type registerReq struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type updateAccountReq struct {
	Email    *string      `json:"email"`
	FullName *string      `json:"full_name"`
	IsActive *bool        `json:"is_active"`
	Role     *models.Role `json:"role"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Register создаёт аккаунт с ролью CLIENT и возвращает публичный профиль.
// Роль через публичную регистрацию не выбирается.
func (s *Server) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	account, err := s.svc.CreateAccount(c.Request().Context(), service.CreateAccountInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Role:     models.RoleClient,
	})
	if err != nil {
		return s.writeServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, account.Profile())
}

// Me возвращает профиль аутентифицированного аккаунта.
func (s *Server) Me(c echo.Context) error {
	account := currentAccount(c)
	if account == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}

	return c.JSON(http.StatusOK, account.Profile())
}

// ChangePassword меняет пароль текущего аккаунта после проверки старого.
func (s *Server) ChangePassword(c echo.Context) error {
	account := currentAccount(c)
	if account == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}

	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	if err := s.svc.ChangePassword(c.Request().Context(), account.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return s.writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

// ListAccounts возвращает последние N аккаунтов (админский эндпоинт).
func (s *Server) ListAccounts(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}

	accounts, err := s.svc.ListAccounts(c.Request().Context(), limit)
	if err != nil {
		return s.writeServiceError(c, err)
	}

	profiles := make([]models.Profile, 0, len(accounts))
	for i := range accounts {
		profiles = append(profiles, accounts[i].Profile())
	}

	return c.JSON(http.StatusOK, profiles)
}

// GetAccount возвращает профиль аккаунта по ID (админский эндпоинт).
func (s *Server) GetAccount(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	account, err := s.svc.AccountByID(c.Request().Context(), id)
	if err != nil {
		return s.writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, account.Profile())
}

// UpdateAccount частично обновляет профиль аккаунта (админский эндпоинт).
func (s *Server) UpdateAccount(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	var req updateAccountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	account, err := s.svc.UpdateAccount(c.Request().Context(), id, service.UpdateAccountInput{
		Email:    req.Email,
		FullName: req.FullName,
		IsActive: req.IsActive,
		Role:     req.Role,
	})
	if err != nil {
		return s.writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, account.Profile())
}

// DeleteAccount удаляет аккаунт (админский эндпоинт).
func (s *Server) DeleteAccount(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	if err := s.svc.DeleteAccount(c.Request().Context(), id); err != nil {
		return s.writeServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// pathID разбирает числовой :id из пути.
func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
