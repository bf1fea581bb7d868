package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/iliyamo/bookmyseat/internal/queue"
)

// MailerSendNotifier emails the booking confirmation through MailerSend.
type MailerSendNotifier struct {
	Client    *mailersend.Mailersend
	FromEmail string
	FromName  string
}

func NewMailerSendNotifier(apiKey, fromName, fromEmail string) *MailerSendNotifier {
	return &MailerSendNotifier{
		Client:    mailersend.NewMailersend(apiKey),
		FromEmail: fromEmail,
		FromName:  fromName,
	}
}

func (m *MailerSendNotifier) HandleBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	if ev.Email == "" {
		log.Printf("notify: booking %s for user %d has no email, skipped", ev.PaymentID, ev.UserID)
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	message := m.Client.Email.NewMessage()
	message.SetFrom(mailersend.From{Name: m.FromName, Email: m.FromEmail})
	message.SetRecipients([]mailersend.Recipient{{Email: ev.Email}})
	message.SetSubject(confirmationSubject)
	message.SetText(confirmationText(ev))

	res, err := m.Client.Email.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	log.Printf("notify: confirmation sent to %s, message id %s", ev.Email, res.Header.Get("X-Message-Id"))
	return nil
}
