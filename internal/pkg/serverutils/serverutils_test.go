package serverutils

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func TestJwtMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	userID := uuid.New()
	valid := signed(t, jwt.MapClaims{
		"user_id": userID.String(),
		"email":   "jane@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256)
	expired := signed(t, jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(-time.Hour).Unix(),
	}, jwt.SigningMethodHS256)
	noUser := signed(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}, jwt.SigningMethodHS256)

	app := fiber.New()
	app.Get("/me", JwtMiddleware, func(c *fiber.Ctx) error {
		id, err := UserID(c)
		if err != nil {
			return err
		}
		return c.SendString(id.String() + "|" + Email(c))
	})

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
	}{
		{name: "bearer header", header: "Bearer " + valid, wantCode: 200},
		{name: "query token", query: "?token=" + valid, wantCode: 200},
		{name: "missing", wantCode: 401},
		{name: "expired", header: "Bearer " + expired, wantCode: 401},
		{name: "no user claim", header: "Bearer " + noUser, wantCode: 401},
		{name: "garbage", header: "Bearer abc.def.ghi", wantCode: 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
		})
	}
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	tok := signed(t, jwt.MapClaims{"user_id": uuid.NewString()}, jwt.SigningMethodHS512)
	_, err := ParseToken(tok, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type createReq struct {
	Type       string `validate:"required,oneof=general phone coding"`
	Difficulty string `validate:"required,oneof=easy medium hard"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(createReq{Type: "coding", Difficulty: "hard"}))

	err := ValidateRequest(createReq{Type: "panel"})
	var fe *fiber.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
	assert.Contains(t, fe.Message, "type must be one of [general phone coding]")
	assert.Contains(t, fe.Message, "difficulty is required")
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusNotFound, "Interview not found") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db down") })

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	var body BaseResponse[any]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "Interview not found", body.Message)

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}
