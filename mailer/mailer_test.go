package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
)

func TestRenderEscapesVarsAndWrapsLayout(t *testing.T) {
	html, err := Render(Message{
		Subject:      "Welcome",
		BodyTemplate: `<p>Hi {{.Name}}, see {{.Missing}}</p>`,
		TemplateVars: map[string]string{"Name": "<Ada>"},
	})
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>Welcome</h2>")
	assert.Contains(t, html, "<p>Hi &lt;Ada&gt;, see </p>")
	assert.Contains(t, html, "ACCREDIPRO ACADEMY")
}

func TestRenderRejectsBrokenTemplate(t *testing.T) {
	_, err := Render(Message{BodyTemplate: "{{.Name"})
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ref, err := r.Send(context.Background(), Message{ToEmail: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", ref)
	assert.Len(t, r.Sent(), 1)

	r.Err = errors.New("smtp down")
	_, err = r.Send(context.Background(), Message{})
	assert.EqualError(t, err, "smtp down")
	assert.Len(t, r.Sent(), 1)
}

func TestConsoleReturnsReference(t *testing.T) {
	ref, err := NewConsole(logger.Nop()).Send(context.Background(), Message{Subject: "x", BodyTemplate: "<p>ok</p>"})
	require.NoError(t, err)
	assert.Regexp(t, `^console-[0-9a-f-]{36}$`, ref)
}

func TestResendPostsEmail(t *testing.T) {
	var got resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"4ef9a417-02e9-4d39-ad75-9611e0fcc33c"}`))
	}))
	defer srv.Close()

	m := NewResend(srv.URL, "re_test", "Academy", "hello@example.com", time.Second)
	ref, err := m.Send(context.Background(), Message{ToEmail: "ada@example.com", Subject: "Day 1", BodyTemplate: "<p>{{.Name}}</p>", TemplateVars: map[string]string{"Name": "Ada"}})
	require.NoError(t, err)
	assert.Equal(t, "4ef9a417-02e9-4d39-ad75-9611e0fcc33c", ref)
	assert.Equal(t, "Academy <hello@example.com>", got.From)
	assert.Equal(t, []string{"ada@example.com"}, got.To)
	assert.Equal(t, "Day 1", got.Subject)
	assert.Contains(t, got.HTML, "<p>Ada</p>")
}

func TestResendSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"invalid to"}`))
	}))
	defer srv.Close()

	_, err := NewResend(srv.URL, "re_test", "", "hello@example.com", time.Second).Send(context.Background(), Message{ToEmail: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
	assert.Contains(t, err.Error(), "invalid to")
}

func TestSendGridPreparesPersonalization(t *testing.T) {
	s := NewSendGrid("SG.key", "Academy", "hello@example.com", time.Second)
	m := s.prepare(Message{ToEmail: "ada@example.com", ToName: "Ada", Subject: "Welcome"}, "<p>hi</p>")
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "Welcome", m.Personalizations[0].Subject)
	require.Len(t, m.Personalizations[0].To, 1)
	assert.Equal(t, "ada@example.com", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "hello@example.com", m.From.Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/html", m.Content[0].Type)
}

// hangingServer accepts connections and never answers while the test runs.
func hangingServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	return srv
}

func TestResendTimesOutOnHungProvider(t *testing.T) {
	srv := hangingServer(t)
	m := NewResend(srv.URL, "re_test", "", "hello@example.com", 100*time.Millisecond)

	start := time.Now()
	_, err := m.Send(context.Background(), Message{ToEmail: "ada@example.com", BodyTemplate: "<p>hi</p>"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSendGridTimesOutOnHungProvider(t *testing.T) {
	srv := hangingServer(t)
	msg := Message{ToEmail: "ada@example.com", Subject: "Welcome", BodyTemplate: "<p>hi</p>"}

	s := NewSendGrid("SG.key", "Academy", "hello@example.com", 100*time.Millisecond)
	s.host = srv.URL
	start := time.Now()
	_, err := s.Send(context.Background(), msg)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	// The caller's deadline applies even with a generous client timeout.
	s = NewSendGrid("SG.key", "Academy", "hello@example.com", time.Minute)
	s.host = srv.URL
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = s.Send(ctx, msg)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
