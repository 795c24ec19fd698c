package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/models"
	"gorm.io/gorm"
)

const certificateBody = `<p>Dear {{.Name}},</p>
<p>Congratulations! Your certificate <strong>{{.CertificateNumber}}</strong> has been issued.</p>
<p><a class="btn" href="{{.Link}}">View certificate</a></p>`

// CertificateNotifier emails the learner whenever a certificate is issued.
// It runs inside the request that completed the course, so each send is
// bounded by timeout.
type CertificateNotifier struct {
	db      *gorm.DB
	mailer  Mailer
	baseURL string
	timeout time.Duration
	log     *logger.Logger
}

func NewCertificateNotifier(db *gorm.DB, m Mailer, baseURL string, timeout time.Duration, log *logger.Logger) *CertificateNotifier {
	return &CertificateNotifier{
		db:      db,
		mailer:  m,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		log:     log.With("service", "certificate-mail"),
	}
}

func (n *CertificateNotifier) Notify(ctx context.Context, ev lifecycle.Event) error {
	if ev.Name != lifecycle.CertificateIssued {
		return nil
	}
	var user models.User
	if err := n.db.WithContext(ctx).First(&user, ev.UserID).Error; err != nil {
		return fmt.Errorf("load user %d: %w", ev.UserID, err)
	}

	number := ev.Attr("certificate_number")
	subject := "Your certificate is ready"
	if ev.Attr("module_id") == "" {
		subject = "Course complete: your certificate is ready"
	}
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	ref, err := n.mailer.Send(sendCtx, Message{
		ToEmail:      user.Email,
		ToName:       user.Name,
		Subject:      subject,
		BodyTemplate: certificateBody,
		TemplateVars: map[string]string{
			"Name":              user.Name,
			"CertificateNumber": number,
			"CourseSlug":        ev.Attr("course_slug"),
			"Link":              n.baseURL + "/certificates/" + number,
		},
	})
	if err != nil {
		return err
	}
	n.log.Info("certificate email sent", "user_id", user.ID, "number", number, "ref", ref)
	return nil
}
