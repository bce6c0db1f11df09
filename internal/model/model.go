// Package model defines the core domain types for the event catalog.
package model

// TypeEvent is the discriminator stored on every event document.
const TypeEvent = "event"

// Event is a scheduled activity with descriptive metadata and attached files.
type Event struct {
	ID          string            `json:"id"`
	Type        string            `json:"type,omitempty"`
	Name        string            `json:"name"`
	Tagline     string            `json:"tagline"`
	Schedule    string            `json:"schedule"`
	Description string            `json:"description"`
	Files       map[string]string `json:"files"`
	Moderator   string            `json:"moderator"`
	Category    string            `json:"category"`
	SubCategory string            `json:"sub_category"`
	RigorRank   string            `json:"rigor_rank"`
	Attendees   []string          `json:"attendees"`
}

// EventFields holds the caller-editable text fields of an event.
// Create and full update both require every field.
type EventFields struct {
	Name        string `json:"name" validate:"required,notblank"`
	Tagline     string `json:"tagline" validate:"required,notblank"`
	Schedule    string `json:"schedule" validate:"required,notblank"`
	Description string `json:"description" validate:"required,notblank"`
	Moderator   string `json:"moderator" validate:"required,notblank"`
	Category    string `json:"category" validate:"required,notblank"`
	SubCategory string `json:"sub_category" validate:"required,notblank"`
	RigorRank   string `json:"rigor_rank" validate:"required,notblank"`
}

// Fields returns the editable subset of the event.
func (e *Event) Fields() EventFields {
	return EventFields{
		Name:        e.Name,
		Tagline:     e.Tagline,
		Schedule:    e.Schedule,
		Description: e.Description,
		Moderator:   e.Moderator,
		Category:    e.Category,
		SubCategory: e.SubCategory,
		RigorRank:   e.RigorRank,
	}
}

// Apply replaces every editable field and the file map. ID, Type and
// Attendees are left untouched.
func (e *Event) Apply(fields EventFields, files map[string]string) {
	e.Name = fields.Name
	e.Tagline = fields.Tagline
	e.Schedule = fields.Schedule
	e.Description = fields.Description
	e.Moderator = fields.Moderator
	e.Category = fields.Category
	e.SubCategory = fields.SubCategory
	e.RigorRank = fields.RigorRank
	e.Files = files
}

// NewEvent builds a fresh event document with an empty attendee list.
func NewEvent(id string, fields EventFields, files map[string]string) Event {
	e := Event{ID: id, Type: TypeEvent, Attendees: []string{}}
	e.Apply(fields, files)
	return e
}

// Page is the listing envelope returned by the paginated endpoint.
type Page struct {
	TotalEvents int64   `json:"totalEvents"`
	CurrentPage int64   `json:"currentPage"`
	TotalPages  int64   `json:"totalPages"`
	Items       []Event `json:"items"`
}
