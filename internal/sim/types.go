package sim

import "time"

// Plan types. A user may move from free to paid during simulation; the
// final plan is reconciled into the user table by the assembler.
const (
	PlanFree = "free"
	PlanPaid = "paid"
)

// Event types emitted by the journey simulator.
const (
	EventSignup          = "signup"
	EventPageCreated     = "page_created"
	EventPageViewed      = "page_viewed"
	EventContentEdited   = "content_edited"
	EventSearchPerformed = "search_performed"
	EventWorkspaceShared = "workspace_shared"
	EventUpgradedToPaid  = "upgraded_to_paid"
)

// TrackedEvents lists every event type the simulator can emit, in
// funnel-relevant order.
var TrackedEvents = []string{
	EventSignup,
	EventPageCreated,
	EventPageViewed,
	EventContentEdited,
	EventSearchPerformed,
	EventWorkspaceShared,
	EventUpgradedToPaid,
}

// User is a synthetic user profile. Immutable after generation except
// for PlanType, which the assembler rewrites when a journey ends on a
// paid plan.
type User struct {
	ID                 string    `json:"user_id"`
	SignupDate         time.Time `json:"signup_date"`
	Segment            string    `json:"segment"`
	AcquisitionChannel string    `json:"acquisition_channel"`
	DeviceType         string    `json:"device_type"`
	Region             string    `json:"region"`
	UseCase            string    `json:"use_case"`
	PlanType           string    `json:"plan_type"`
}

// Properties carries the type-specific payload of an event. Zero
// values mean "not applicable".
type Properties struct {
	PageType        string  `json:"page_type,omitempty"`
	EditDurationMin float64 `json:"edit_duration_min,omitempty"`
	Collaborators   int     `json:"collaborators,omitempty"`
}

// Event is one row of the behavioral log. Immutable once emitted.
type Event struct {
	UserID    string     `json:"user_id"`
	Type      string     `json:"event_type"`
	Timestamp time.Time  `json:"timestamp"`
	Props     Properties `json:"properties"`
}
