package domain

// Requester identifies the customer who opened a ticket.
type Requester struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Ticket is the immutable input record for the pipeline. It mirrors the
// ticketing system's representation, reduced to the fields the pipeline reads.
type Ticket struct {
	ID          int64      `json:"id"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Requester   *Requester `json:"requester,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// RequesterName returns the customer name, or "customer" when unknown.
// Draft prompts always need something to address the reply to.
func (t Ticket) RequesterName() string {
	if t.Requester != nil && t.Requester.Name != "" {
		return t.Requester.Name
	}
	return "customer"
}

// Priority enumerates the ticketing system's priority levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)
