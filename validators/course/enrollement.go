package courseValidator

import "github.com/gofiber/fiber/v2"

// CourseID validates the :id param of enroll and progress routes.
func CourseID() fiber.Handler {
	return paramID("id", "Course ID", "courseID")
}
