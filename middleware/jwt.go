package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/apperr"
)

// GenerateJWT signs an identity token for the user
func GenerateJWT(secret string, userID uint, email, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"email":  email,
		"role":   role,
		"iat":    time.Now().Unix(),          // issued at
		"exp":    time.Now().Add(ttl).Unix(), // expiry
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// JWTMiddleware checks for a valid Bearer token and stores the user id in
// c.Locals("userId"). Tokens are issued by the auth service.
func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get the token from the Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Missing or invalid Authorization header", nil)
		}

		// The token should be prefixed with "Bearer "
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid Authorization header format", nil)
		}
		tokenString := authHeader[len("Bearer "):]

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid or expired token", nil)
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid token payload", nil)
		}
		// JWT numbers decode as float64
		userID, ok := claims["userId"].(float64)
		if !ok || userID <= 0 {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid token payload", nil)
		}
		c.Locals("userId", uint(userID))

		return c.Next()
	}
}

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Validation failed!", errors)
}

// ErrorResponse answers with the status apperr.HTTPStatus picks for err.
// Storage failures never leak their cause.
func ErrorResponse(c *fiber.Ctx, err error) error {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve.Fields))
		for _, f := range ve.Fields {
			fields[f.Field] = f.Message
		}
		return ValidationErrorResponse(c, fields)
	}

	status := apperr.HTTPStatus(err)
	switch status {
	case fiber.StatusNotFound:
		entity := "resource"
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) && nf.Entity != "" {
			entity = nf.Entity
		}
		return JsonResponse(c, status, false, strings.ToUpper(entity[:1])+entity[1:]+" not found!", nil)
	case fiber.StatusConflict:
		return JsonResponse(c, status, false, "No quiz attempts remaining!", nil)
	default:
		return JsonResponse(c, fiber.StatusInternalServerError, false, "Something went wrong!", nil)
	}
}

// UserID returns the id stored by JWTMiddleware.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userId").(uint)
	return id, ok && id > 0
}
