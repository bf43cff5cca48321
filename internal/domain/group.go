package domain

import "fmt"

// Group identifies an exam group, the claimant of reservations and bookings.
// Identity and equality are by number.
type Group struct {
	Number int
}

// String renders the display label the frontends use.
func (g Group) String() string {
	return fmt.Sprintf("Gruppe %d", g.Number)
}
