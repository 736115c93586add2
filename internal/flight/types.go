package flight

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformedOffer marks an offer that is missing a required field or
// carries an invalid one.
var ErrMalformedOffer = errors.New("malformed flight offer")

// Offer is a single priced round-trip itinerary.
type Offer struct {
	Price    decimal.NullDecimal `json:"price"`
	FromCity string              `json:"from_city"`
	ToCity   string              `json:"to_city"`
	Route    Route               `json:"route"`
}

// Route holds the airports, dates and stopovers of an offer.
// StopoversCount is authoritative; the name lists are display-only.
type Route struct {
	ForwardDepAirport string    `json:"forward_dep_airport"`
	ForwardArrAirport string    `json:"forward_arr_airport"`
	ForwardDeparture  time.Time `json:"forward_dep_time"`
	ReturnArrival     time.Time `json:"return_arr_time"`
	ReturnDeparture   time.Time `json:"return_dep_time,omitempty"`

	StopoversCount    int      `json:"stopovers_count"`
	ForwardStopovers  []string `json:"forward_stopovers,omitempty"`
	BackwardStopovers []string `json:"backward_stopovers,omitempty"`
}

// ReturnDate is the date used to search for the way back: the return
// departure when known, otherwise the return arrival.
func (r Route) ReturnDate() time.Time {
	if !r.ReturnDeparture.IsZero() {
		return r.ReturnDeparture
	}
	return r.ReturnArrival
}

// Validate reports the first missing or invalid field.
func (o *Offer) Validate() error {
	if o == nil {
		return fmt.Errorf("%w: offer is nil", ErrMalformedOffer)
	}
	switch {
	case !o.Price.Valid:
		return malformed("price")
	case o.Price.Decimal.IsNegative():
		return fmt.Errorf("%w: price must be >= 0, got %s", ErrMalformedOffer, o.Price.Decimal)
	case strings.TrimSpace(o.FromCity) == "":
		return malformed("from_city")
	case strings.TrimSpace(o.ToCity) == "":
		return malformed("to_city")
	}
	return o.Route.validate()
}

func (r Route) validate() error {
	switch {
	case strings.TrimSpace(r.ForwardDepAirport) == "":
		return malformed("route.forward_dep_airport")
	case strings.TrimSpace(r.ForwardArrAirport) == "":
		return malformed("route.forward_arr_airport")
	case r.ForwardDeparture.IsZero():
		return malformed("route.forward_dep_time")
	case r.ReturnArrival.IsZero():
		return malformed("route.return_arr_time")
	case r.StopoversCount < 0:
		return fmt.Errorf("%w: route.stopovers_count must be >= 0, got %d", ErrMalformedOffer, r.StopoversCount)
	}
	return nil
}

func malformed(field string) error {
	return fmt.Errorf("%w: missing %s", ErrMalformedOffer, field)
}
