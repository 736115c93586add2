package notifier

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/a7exd/cheap-flights-finder/internal/flight"
)

const (
	messageDateLayout = "2006-01-02"
	linkDateLayout    = "0201"

	DefaultBookingURL = "https://www.aviasales.com/search"
)

// FormatMessage renders the alert body for an offer. The stopover clause
// is only added when the route reports at least one stopover.
func FormatMessage(offer *flight.Offer) (string, error) {
	if err := offer.Validate(); err != nil {
		return "", err
	}
	r := offer.Route
	var b strings.Builder
	fmt.Fprintf(&b, "Cheap flight! Only $%s to fly from %s-%s to %s-%s, from %s to %s.",
		offer.Price.Decimal.String(),
		offer.FromCity, r.ForwardDepAirport,
		offer.ToCity, r.ForwardArrAirport,
		r.ForwardDeparture.Format(messageDateLayout),
		r.ReturnArrival.Format(messageDateLayout),
	)
	if r.StopoversCount > 0 {
		fmt.Fprintf(&b, " Flight has %d stopover, forward via %s, backward via %s.",
			r.StopoversCount,
			strings.Join(r.ForwardStopovers, ", "),
			strings.Join(r.BackwardStopovers, ", "),
		)
	}
	return b.String(), nil
}

// BookingLink builds a search deep link of the form
// <base>/<FROM><DDMM><TO><DDMM><passengers>.
func BookingLink(base string, offer *flight.Offer, passengers int) (string, error) {
	if err := offer.Validate(); err != nil {
		return "", err
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultBookingURL
	}
	if passengers <= 0 {
		passengers = 1
	}
	r := offer.Route
	var b strings.Builder
	b.WriteString(base)
	b.WriteByte('/')
	b.WriteString(strings.ToUpper(r.ForwardDepAirport))
	b.WriteString(r.ForwardDeparture.Format(linkDateLayout))
	b.WriteString(strings.ToUpper(r.ForwardArrAirport))
	b.WriteString(r.ReturnDate().Format(linkDateLayout))
	b.WriteString(strconv.Itoa(passengers))
	return b.String(), nil
}
