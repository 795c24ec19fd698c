package sequenceRoutes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	controllers "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/controllers/sequence"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/mailer"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models"
	sequenceModels "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models/sequence"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/sequence"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/testutil"
)

const secret = "test-secret"

type fixture struct {
	app    *fiber.App
	db     *gorm.DB
	mail   *mailer.Recorder
	admin  string
	clock  *testutil.Clock
	ctl    *controllers.SequenceController
	sched  *sequence.Scheduler
	events *lifecycle.Fanout
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: testutil.DB(t), mail: &mailer.Recorder{}, clock: testutil.NewClock(testutil.Date(2025, time.March, 3, 9))}
	log := testutil.Logger(t)

	f.sched = sequence.NewScheduler(f.db, f.mail, log, sequence.WithClock(f.clock.Now))
	f.events = lifecycle.NewFanout(log, f.sched)
	f.ctl = controllers.NewSequenceController(f.sched, f.events)
	f.ctl.Now = f.clock.Now

	admin := &models.User{Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin}
	require.NoError(t, f.db.Create(admin).Error)
	tok, err := middleware.GenerateJWT(secret, admin.ID, admin.Email, admin.Role, time.Hour)
	require.NoError(t, err)
	f.admin = "Bearer " + tok

	f.app = fiber.New()
	SetupSequenceRoutes(f.app, f.ctl, middleware.JWTMiddleware(secret), middleware.RequireRole(f.db, models.RoleAdmin))
	return f
}

func (f *fixture) post(t *testing.T, path, auth string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestPublishEventThenRun(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	testutil.SeedSequence(t, f.db, "nurture", lifecycle.CourseEnrolled, testutil.Step(0, 0), testutil.Step(1, 0))

	status, body := f.post(t, "/admin/sequence/event", f.admin, fiber.Map{"name": lifecycle.CourseEnrolled, "user_id": user.ID})
	require.Equal(t, fiber.StatusAccepted, status, body["message"])

	status, body = f.post(t, "/admin/sequence/run", f.admin, nil)
	require.Equal(t, fiber.StatusOK, status, body["message"])
	assert.EqualValues(t, 1, body["data"].(map[string]interface{})["sent"])
	require.Len(t, f.mail.Sent(), 1)
	assert.Equal(t, "ada@example.com", f.mail.Sent()[0].ToEmail)

	// The second step is due a day later.
	status, body = f.post(t, "/admin/sequence/run", f.admin, fiber.Map{"at": f.clock.Now().Add(24 * time.Hour)})
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["data"].(map[string]interface{})["sent"])
	assert.Len(t, f.mail.Sent(), 2)
}

func TestAdminSequenceRoutesAreGuarded(t *testing.T) {
	f := newFixture(t)
	learner := testutil.SeedUser(t, f.db, "ada@example.com")
	tok, err := middleware.GenerateJWT(secret, learner.ID, learner.Email, learner.Role, time.Hour)
	require.NoError(t, err)

	status, _ := f.post(t, "/admin/sequence/run", "Bearer "+tok, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = f.post(t, "/admin/sequence/event", f.admin, fiber.Map{"name": "user.birthday", "user_id": learner.ID})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestPublishInactivityEventsByName(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	testutil.SeedSequence(t, f.db, "never-logged-in", "user.neverLoggedIn", testutil.Step(0, 0))
	testutil.SeedSequence(t, f.db, "abandoned", "user.abandonedLearning", testutil.Step(0, 0))

	for _, name := range []string{"user.neverLoggedIn", "user.abandonedLearning"} {
		status, body := f.post(t, "/admin/sequence/event", f.admin, fiber.Map{"name": name, "user_id": user.ID, "attrs": fiber.Map{"after_days": "3"}})
		require.Equal(t, fiber.StatusAccepted, status, name)
		assert.Equal(t, name, body["data"].(map[string]interface{})["name"])
	}

	var enrolled int64
	require.NoError(t, f.db.Model(&sequenceModels.SequenceEnrollment{}).Where("user_id = ?", user.ID).Count(&enrolled).Error)
	assert.EqualValues(t, 2, enrolled)

	// The snake_case spellings are not lifecycle events.
	status, _ := f.post(t, "/admin/sequence/event", f.admin, fiber.Map{"name": "user.never_logged_in", "user_id": user.ID})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestReplyWebhookExitsSequence(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.db, "ada@example.com")
	seq := testutil.SeedSequence(t, f.db, "welcome", lifecycle.UserRegistered, testutil.Step(0, 0), testutil.Step(2, 0))
	require.NoError(t, f.db.Model(seq).Update("exit_on_reply", true).Error)

	_, err := f.sched.HandleEvent(context.Background(), lifecycle.Event{Name: lifecycle.UserRegistered, UserID: user.ID, OccurredAt: f.clock.Now()})
	require.NoError(t, err)

	status, body := f.post(t, "/sequence/webhook/reply", "", fiber.Map{"user_id": user.ID, "sequence_email_id": seq.Emails[0].ID})
	require.Equal(t, fiber.StatusOK, status, body["message"])

	var enr sequenceModels.SequenceEnrollment
	require.NoError(t, f.db.Where("user_id = ?", user.ID).First(&enr).Error)
	assert.Equal(t, sequenceModels.StatusExited, enr.Status)

	status, _ = f.post(t, "/sequence/webhook/bounce", "", fiber.Map{"user_id": user.ID, "sequence_id": seq.ID})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = f.post(t, "/sequence/webhook/click", "", fiber.Map{"user_id": user.ID})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, fmt.Sprint(body["data"]), "sequence_id")
}
