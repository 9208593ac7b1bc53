package models

// WaiverSummary is the shape returned by the waiver list endpoint; only the
// identifier is trusted, the full record is always fetched separately.
type WaiverSummary struct {
	WaiverID string `json:"waiverId"`
}

// Participant holds the nested participant sub-record of a waiver. All fields
// are optional upstream.
type Participant struct {
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Phone       string `json:"phone"`
	Mobile      string `json:"mobile"`
	DateOfBirth string `json:"dateOfBirth"`
}

// ParticipantEntry is one entry of the flat participants list some waiver
// templates produce instead of (or alongside) the participant sub-record.
type ParticipantEntry struct {
	Phone string `json:"phone"`
}

// Waiver is a full waiver record as returned by fetch-by-identifier.
// Participant fields may appear at the top level, nested, or both.
type Waiver struct {
	WaiverID     string             `json:"waiverId"`
	TemplateID   string             `json:"templateId"`
	CreatedOn    string             `json:"createdOn"`
	Email        string             `json:"email"`
	FirstName    string             `json:"firstName"`
	LastName     string             `json:"lastName"`
	Phone        string             `json:"phone"`
	DOB          string             `json:"dob"`
	Participant  Participant        `json:"participant"`
	Participants []ParticipantEntry `json:"participants"`
}

// Profile is the canonical participant identity derived from a waiver.
// Email is always non-empty after extraction: either a genuine address or a
// deterministic placeholder keyed by the waiver identifier.
type Profile struct {
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	DateOfBirth string
}

// WebhookPayload is the body of an inbound push notification.
type WebhookPayload struct {
	UniqueID string `json:"unique_id"`
}
