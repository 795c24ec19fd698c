package courseRoutes

import (
	"github.com/gofiber/fiber/v2"

	controllers "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/controllers/course"
	validators "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/validators/course"
)

// SetupCourseRoutes sets up all user-facing course routes
func SetupCourseRoutes(app fiber.Router, ctl *controllers.CourseController, auth fiber.Handler) {
	userGroup := app.Group("/course")

	// Enrollment and progress
	userGroup.Post("/:id/enroll", auth, validators.CourseID(), ctl.EnrollInCourse)
	userGroup.Get("/:id/progress", auth, validators.CourseID(), ctl.GetUserProgress)

	// Lessons
	userGroup.Post("/lesson/:lesson_id/visit", auth, validators.LessonID(), validators.LessonVisit(), ctl.RecordLessonVisit)
	userGroup.Post("/lesson/:lesson_id/complete", auth, validators.LessonID(), ctl.MarkLessonComplete)

	// Quiz submission
	userGroup.Post("/quiz/:quiz_id/submit", auth, validators.SubmitQuiz(), ctl.SubmitQuiz)

	// User enrollments and certificates
	userEnrollGroup := app.Group("/user")
	userEnrollGroup.Get("/enrollments", auth, ctl.GetUserEnrollments)
	userEnrollGroup.Get("/certificates", auth, ctl.GetUserCertificates)
}
