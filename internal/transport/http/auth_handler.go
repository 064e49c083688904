package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/contacthub/contacthub-api/internal/service"
	"github.com/contacthub/contacthub-api/internal/util"
)

func RegisterAuth(e *echo.Echo, auth *service.AuthService) {
	e.POST("/api/v1/auth/login", func(c echo.Context) error {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
		}
		token, err := auth.LoginWithEmail(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, util.Error("invalid credentials"))
		}
		return c.JSON(http.StatusOK, util.Data("token", token))
	})

	e.POST("/api/v1/auth/google", func(c echo.Context) error {
		var req struct {
			IDToken string `json:"id_token"`
		}
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
		}
		token, err := auth.LoginWithGoogle(c.Request().Context(), req.IDToken)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, util.Error("google sign-in rejected"))
		}
		return c.JSON(http.StatusOK, util.Data("token", token))
	})
}
