package email

import (
	"strings"
	"testing"

	"ClinOps/Models"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	cfg := Models.EmailConfig{FromName: "DM Bot", FromEmail: "bot@clinops.local"}
	msg := Models.EmailMessage{
		To:      []string{"a@x.org", "b@x.org"},
		CC:      []string{"c@x.org"},
		BCC:     []string{"hidden@x.org"},
		Subject: "Query Q-1001 assigned",
		Body:    "<p>hi</p>",
		IsHTML:  true,
	}

	raw := string(BuildMessage(cfg, msg))
	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	assert.True(t, ok)
	assert.Equal(t, "<p>hi</p>", body)
	assert.Contains(t, head, "From: DM Bot <bot@clinops.local>")
	assert.Contains(t, head, "To: a@x.org, b@x.org")
	assert.Contains(t, head, "Cc: c@x.org")
	assert.Contains(t, head, "Content-Type: text/html; charset=UTF-8")
	assert.NotContains(t, raw, "hidden@x.org")
}

func TestSendEmail_NoRecipients(t *testing.T) {
	err := SendEmail(Models.EmailConfig{SMTPServer: "localhost", SMTPPort: 25}, Models.EmailMessage{Subject: "x"})
	assert.ErrorIs(t, err, ErrNoRecipients)
}
