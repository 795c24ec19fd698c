package userController

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/middleware"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/tagging"
)

type UserController struct {
	DB   *gorm.DB
	Tags *tagging.Service
	Now  func() time.Time
}

func NewUserController(db *gorm.DB, tags *tagging.Service) *UserController {
	return &UserController{DB: db, Tags: tags, Now: time.Now}
}

// RecordLogin stores a sign-in and refreshes last_login_at, which inactivity
// detection reads.
func (uc *UserController) RecordLogin(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	now := uc.Now()
	device := c.Get(fiber.HeaderUserAgent)
	if len(device) > 255 {
		device = device[:255]
	}
	entry := models.LoginTracking{
		UserID:     userID,
		IPAddress:  c.IP(),
		Device:     device,
		LoggedInAt: now,
	}

	err := uc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", userID).Update("last_login_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(&entry).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found!", nil)
	}
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to record login!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login recorded!", entry)
}

func (uc *UserController) GetUserTags(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	tags, err := uc.Tags.Tags(c.UserContext(), userID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Tags fetched successfully!", fiber.Map{"tags": tags})
}
