package workspace

import "github.com/spec-kit/helpdesk-console/internal/domain"

// Stats are counts over the whole, unfiltered collection.
type Stats struct {
	Total    int `json:"total"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Software int `json:"software"`
	Hardware int `json:"hardware"`
	General  int `json:"general"`
	Resolved int `json:"resolved"`
	Pending  int `json:"pending"`
}

// ComputeStats counts tickets per bucket. A ticket with an out-of-range
// priority or type still counts towards Total but lands in no bucket of
// that dimension. Tickets read through the gateway are already normalised,
// so only tickets built elsewhere take that path.
func ComputeStats(tickets []domain.Ticket) Stats {
	var s Stats
	for i := range tickets {
		t := &tickets[i]
		s.Total++

		if t.Priority.Valid() {
			switch t.Priority {
			case domain.TicketPriorityHigh:
				s.High++
			case domain.TicketPriorityMedium:
				s.Medium++
			case domain.TicketPriorityLow:
				s.Low++
			}
		}
		if t.Type.Valid() {
			switch t.Type {
			case domain.TicketTypeSoftware:
				s.Software++
			case domain.TicketTypeHardware:
				s.Hardware++
			case domain.TicketTypeGeneral:
				s.General++
			}
		}

		if t.IsResolved {
			s.Resolved++
		} else {
			s.Pending++
		}
	}
	return s
}
