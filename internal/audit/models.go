package audit

import "time"

// Category classifies events so sinks can apply different retention.
type Category string

const (
	// CategoryMarketplace covers state transitions of users, chargers and
	// matches.
	CategoryMarketplace Category = "marketplace"
	// CategorySecurity covers rejected attempts to act for someone else.
	CategorySecurity Category = "security"
)

// Action names what happened.
type Action string

const (
	ActionUserRegistered  Action = "user_registered"
	ActionChargerListed   Action = "charger_listed"
	ActionChargerReserved Action = "charger_reserved"
	ActionChargeConfirmed Action = "charge_confirmed"
	ActionAccessDenied    Action = "access_denied"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  Category  `json:"category"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	// Subject is the identity hash the action concerns, hex encoded.
	Subject string `json:"subject,omitempty"`
	// Actor is the authority that performed the action.
	Actor string `json:"actor,omitempty"`
	// Resource is the hex address of the charger or match involved.
	Resource  string `json:"resource,omitempty"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
