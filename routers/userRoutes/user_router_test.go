package userProfileRoutes

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	userProfileController "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/controllers/userControllers"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/tagging"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/testutil"
)

const secret = "test-secret"

func request(t *testing.T, app *fiber.App, method, path string, userID uint) (int, map[string]interface{}) {
	t.Helper()
	tok, err := middleware.GenerateJWT(secret, userID, "ada@example.com", models.RoleUser, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set(fiber.HeaderUserAgent, "test-agent")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestRecordLoginAndTags(t *testing.T) {
	db := testutil.DB(t)
	at := testutil.Date(2025, time.March, 3, 9)
	tags := tagging.NewService(db, testutil.Logger(t))

	ctl := userProfileController.NewUserController(db, tags)
	ctl.Now = func() time.Time { return at }
	app := fiber.New()
	SetupUserRoutes(app, ctl, middleware.JWTMiddleware(secret))

	user := testutil.SeedUser(t, db, "ada@example.com")
	require.NoError(t, tags.Tag(context.Background(), nil, user.ID, "Source:Quiz", nil))

	status, body := request(t, app, "POST", "/user/login", user.ID)
	require.Equal(t, fiber.StatusOK, status, body["message"])

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.True(t, reloaded.LastLoginAt.Equal(at))

	var logins []models.LoginTracking
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&logins).Error)
	require.Len(t, logins, 1)
	assert.Equal(t, "test-agent", logins[0].Device)

	status, body = request(t, app, "GET", "/user/tags", user.ID)
	require.Equal(t, fiber.StatusOK, status)
	list := body["data"].(map[string]interface{})["tags"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "source:quiz", list[0].(map[string]interface{})["tag"])

	status, _ = request(t, app, "POST", "/user/login", user.ID+100)
	assert.Equal(t, fiber.StatusNotFound, status)
}
