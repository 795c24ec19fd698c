package sequenceRoutes

import (
	"github.com/gofiber/fiber/v2"

	controllers "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/controllers/sequence"
	validators "github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/validators/sequence"
)

// SetupSequenceRoutes registers the admin sequence tools and the public mail
// provider webhook.
func SetupSequenceRoutes(app fiber.Router, ctl *controllers.SequenceController, admin ...fiber.Handler) {
	adminGroup := app.Group("/admin/sequence", admin...)
	adminGroup.Post("/run", validators.RunSequences(), ctl.AdminRunSequences)
	adminGroup.Post("/event", validators.SequenceEvent(), ctl.AdminPublishEvent)

	app.Post("/sequence/webhook/:type", validators.EmailWebhook(), ctl.EmailWebhook)
}
