package mailer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/lifecycle"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/testutil"
)

func TestCertificateNotifier(t *testing.T) {
	db := testutil.DB(t)
	user := testutil.SeedUser(t, db, "ada@example.com")
	rec := &Recorder{}
	n := NewCertificateNotifier(db, rec, "https://academy.example.com/", time.Second, testutil.Logger(t))

	require.NoError(t, n.Notify(context.Background(), lifecycle.Event{Name: lifecycle.CourseCompleted, UserID: user.ID}))
	assert.Empty(t, rec.Sent())

	err := n.Notify(context.Background(), lifecycle.Event{
		Name:   lifecycle.CertificateIssued,
		UserID: user.ID,
		Attrs:  map[string]string{"certificate_number": "ASI-LX2-ABC123", "course_slug": "herbalism"},
	})
	require.NoError(t, err)
	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ada@example.com", sent[0].ToEmail)
	assert.Equal(t, "Course complete: your certificate is ready", sent[0].Subject)
	assert.Equal(t, "https://academy.example.com/certificates/ASI-LX2-ABC123", sent[0].TemplateVars["Link"])

	err = n.Notify(context.Background(), lifecycle.Event{Name: lifecycle.CertificateIssued, UserID: 999})
	assert.Error(t, err)
}

// stalledMailer blocks until the caller gives up.
type stalledMailer struct{}

func (stalledMailer) Send(ctx context.Context, msg Message) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCertificateNotifierBoundsSend(t *testing.T) {
	db := testutil.DB(t)
	user := testutil.SeedUser(t, db, "ada@example.com")
	n := NewCertificateNotifier(db, stalledMailer{}, "https://academy.example.com", 50*time.Millisecond, testutil.Logger(t))

	start := time.Now()
	err := n.Notify(context.Background(), lifecycle.Event{Name: lifecycle.CertificateIssued, UserID: user.ID})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
