package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/pot-code/lessonrelay/internal/infrastructure/auth"
)

// IdentifyFromToken websocket identity taken from the token verified upstream
func IdentifyFromToken(ju *auth.JWTUtil) func(c echo.Context) (string, error) {
	return func(c echo.Context) (string, error) {
		claims := ju.GetContextToken(c)
		if claims == nil {
			return "", auth.ErrNoToken
		}
		return claims.UID, nil
	}
}
