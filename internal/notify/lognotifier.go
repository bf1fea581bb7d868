package notify

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/iliyamo/bookmyseat/internal/queue"
)

// LogNotifier appends one line per confirmed booking to <Dir>/booking.log.
// It stands in for email when no MailerSend key is configured.
type LogNotifier struct {
	Dir string
	mu  sync.Mutex
}

func NewLogNotifier(dir string) *LogNotifier {
	if dir == "" {
		dir = "logs"
	}
	return &LogNotifier{Dir: dir}
}

func (n *LogNotifier) HandleBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	if ev.Email == "" {
		log.Printf("notify: booking %s for user %d has no email, skipped", ev.PaymentID, ev.UserID)
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := os.MkdirAll(n.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(n.Dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(logLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func logLine(ev queue.BookingConfirmedEvent) string {
	return fmt.Sprintf("[%s] Booking confirmed | payment_id=%s | user_id=%d | email=%s | theater=%q | movie=%q | show_time=%s | total=%d cents | seats=[%s]\n",
		ev.ConfirmedAt, ev.PaymentID, ev.UserID, ev.Email, ev.TheaterName, ev.MovieName, ev.ShowTime,
		ev.TotalAmountCents, strings.Join(ev.SeatNumbers, ","))
}
