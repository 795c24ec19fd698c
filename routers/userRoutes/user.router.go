package userProfileRoutes

import (
	"github.com/gofiber/fiber/v2"

	userProfileController "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/controllers/userControllers"
)

func SetupUserRoutes(app fiber.Router, ctl *userProfileController.UserController, auth fiber.Handler) {
	userGroup := app.Group("/user")

	userGroup.Post("/login", auth, ctl.RecordLogin)
	userGroup.Get("/tags", auth, ctl.GetUserTags)
}
