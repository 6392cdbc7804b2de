package email

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"ClinOps/Models"
)

var ErrNoRecipients = errors.New("email has no recipients")

// SendEmail sends an email using the provided configuration and message details
func SendEmail(config Models.EmailConfig, message Models.EmailMessage) error {
	recipients := make([]string, 0, len(message.To)+len(message.CC)+len(message.BCC))
	recipients = append(recipients, message.To...)
	recipients = append(recipients, message.CC...)
	recipients = append(recipients, message.BCC...)
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	body := BuildMessage(config, message)
	auth := smtp.PlainAuth("", config.Username, config.Password, config.SMTPServer)
	serverAddr := net.JoinHostPort(config.SMTPServer, strconv.Itoa(config.SMTPPort))

	if !config.TLSEnabled {
		return smtp.SendMail(serverAddr, auth, config.FromEmail, recipients, body)
	}

	conn, err := tls.Dial("tcp", serverAddr, &tls.Config{
		ServerName:         config.SMTPServer,
		InsecureSkipVerify: config.SkipTLSCheck,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, config.SMTPServer)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err = client.Mail(config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, recipient := range recipients {
		if err = client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data connection: %w", err)
	}
	if _, err = w.Write(body); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data connection: %w", err)
	}
	return client.Quit()
}

// BuildMessage renders headers and body. BCC recipients never appear in the
// headers.
func BuildMessage(config Models.EmailConfig, message Models.EmailMessage) []byte {
	var b strings.Builder
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }

	header("From", fmt.Sprintf("%s <%s>", config.FromName, config.FromEmail))
	header("To", strings.Join(message.To, ", "))
	if len(message.CC) > 0 {
		header("Cc", strings.Join(message.CC, ", "))
	}
	header("Subject", message.Subject)
	header("MIME-Version", "1.0")
	if message.IsHTML {
		header("Content-Type", "text/html; charset=UTF-8")
	} else {
		header("Content-Type", "text/plain; charset=UTF-8")
	}

	b.WriteString("\r\n")
	b.WriteString(message.Body)
	return []byte(b.String())
}
