// Package notify tells customers about their confirmed bookings.  Both
// notifiers implement queue.EventHandler so the booking consumer can drive
// them.
package notify

import (
	"fmt"
	"strings"

	"github.com/iliyamo/bookmyseat/internal/queue"
)

const confirmationSubject = "Booking Confirmation"

// confirmationText renders the plain text body of the confirmation email.
func confirmationText(ev queue.BookingConfirmedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your booking for %s is confirmed.\n\n", ev.MovieName)
	fmt.Fprintf(&b, "Theater: %s\n", ev.TheaterName)
	fmt.Fprintf(&b, "Show time: %s\n", ev.ShowTime)
	fmt.Fprintf(&b, "Seats: %s\n", strings.Join(ev.SeatNumbers, ", "))
	fmt.Fprintf(&b, "Total: %s\n", formatAmount(ev.TotalAmountCents, ev.Currency))
	fmt.Fprintf(&b, "Payment reference: %s\n", ev.PaymentID)
	return b.String()
}

// formatAmount renders minor units as "20.00 USD".
func formatAmount(cents int64, currency string) string {
	if currency == "" {
		currency = "usd"
	}
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}
