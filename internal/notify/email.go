package notify

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/spf13/viper"
)

// EmailSink delivers out-of-band messages. Delivery is best-effort: failures
// are logged and never abort the operation that triggered them.
type EmailSink interface {
	SendChallenge(toEmail, code string)
	SendAlertTriggered(toEmail string, currentRate, targetRate float64, condition string)
}

// SMTPSink sends mail through a plain SMTP relay. Credentials come from
// configuration; without them every send becomes a log line.
type SMTPSink struct{}

func NewSMTPSink() *SMTPSink {
	viper.SetDefault("smtp.host", "smtp.gmail.com")
	viper.SetDefault("smtp.port", "465")
	return &SMTPSink{}
}

func (s *SMTPSink) SendChallenge(toEmail, code string) {
	body := fmt.Sprintf("Your security verification code is: %s\n\nThis code will expire in 5 minutes.", code)
	s.send(toEmail, "Your Security Code", body)
}

func (s *SMTPSink) SendAlertTriggered(toEmail string, currentRate, targetRate float64, condition string) {
	body := fmt.Sprintf(
		"The USD/LBP exchange rate has crossed your threshold.\nCurrent mid rate: %.2f LBP\nYour alert: %s %.2f LBP",
		currentRate, condition, targetRate)
	s.send(toEmail, "Exchange Rate Alert Triggered", body)
}

func (s *SMTPSink) send(toEmail, subject, body string) {
	user := viper.GetString("smtp.user")
	password := viper.GetString("smtp.password")
	if user == "" || password == "" {
		log.Printf("[EMAIL] SMTP credentials not set, skipping mail to %s (%s)", toEmail, subject)
		return
	}

	addr := viper.GetString("smtp.host") + ":" + viper.GetString("smtp.port")
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", user, toEmail, subject, body))

	auth := smtp.PlainAuth("", user, password, viper.GetString("smtp.host"))
	if err := smtp.SendMail(addr, auth, user, []string{toEmail}, msg); err != nil {
		log.Printf("[EMAIL] Failed to send mail to %s: %v", toEmail, err)
		return
	}
	log.Printf("[EMAIL] Sent %q to %s", subject, toEmail)
}
