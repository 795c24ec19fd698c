package leadRoutes

import (
	"github.com/gofiber/fiber/v2"

	controllers "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/controllers/lead"
	validators "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/validators/lead"
)

// SetupLeadRoutes registers the public opt-in endpoint and the admin segment lookup.
func SetupLeadRoutes(app fiber.Router, ctl *controllers.LeadController, admin ...fiber.Handler) {
	leadGroup := app.Group("/lead")
	leadGroup.Post("/capture", validators.CaptureLead(), ctl.CaptureLead)

	tagGroup := app.Group("/admin/tags", admin...)
	tagGroup.Get("/:tag/users", ctl.AdminUsersWithTag)
}
