package courseRoutes

import (
	"github.com/gofiber/fiber/v2"

	controllers "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/controllers/course"
	validators "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/validators/course"
)

// SetupAdminCourseRoutes sets up admin course management routes. admin must
// authenticate and authorize the caller.
func SetupAdminCourseRoutes(app fiber.Router, ctl *controllers.CourseController, admin ...fiber.Handler) {
	adminGroup := app.Group("/admin/course")
	adminGroup.Post("/:course_id/reset/:user_id", withAdmin(admin, validators.ResetProgress(), ctl.AdminResetProgress)...)

	contentGroup := app.Group("/admin/content")
	contentGroup.Post("/import", withAdmin(admin, validators.ImportContent(), ctl.AdminImportContent)...)
}

// withAdmin prepends the admin guard to a route's handlers.
func withAdmin(admin []fiber.Handler, handlers ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(admin)+len(handlers))
	out = append(out, admin...)
	return append(out, handlers...)
}

