package domain

import "time"

// Kind is the category of data-subject right being exercised. The public form
// only submits KindAccess today; the remaining kinds are reserved so stored
// records and stats keep their meaning when the other rights are opened up.
type Kind string

const (
	KindAccess        Kind = "ACCESS"
	KindRectification Kind = "RECTIFICATION"
	KindCancellation  Kind = "CANCELLATION"
	KindObjection     Kind = "OBJECTION"
	KindPortability   Kind = "PORTABILITY"
	KindBlock         Kind = "BLOCK"
)

func (k Kind) Valid() bool {
	switch k {
	case KindAccess, KindRectification, KindCancellation, KindObjection, KindPortability, KindBlock:
		return true
	}
	return false
}

// Scope narrows an access request to all data or to named categories.
type Scope string

const (
	ScopeAll      Scope = "ALL"
	ScopeSpecific Scope = "SPECIFIC"
)

func (s Scope) Valid() bool {
	return s == ScopeAll || s == ScopeSpecific
}

// Format is the delivery format the requester asked for.
type Format string

const (
	FormatPDF  Format = "PDF"
	FormatCSV  Format = "CSV"
	FormatJSON Format = "JSON"
)

func (f Format) Valid() bool {
	return f == FormatPDF || f == FormatCSV || f == FormatJSON
}

// Request is the central entity: one data-subject-access request moving
// through the lifecycle. ID and Number are assigned at creation and immutable;
// ResponseDeadline is computed once at creation and never recalculated.
type Request struct {
	ID     string
	Number string

	FullName string
	RUT      string
	Email    string
	Phone    string

	Kind       Kind
	Scope      Scope
	Categories []string
	Format     Format

	Status            Status
	IdentityValidated bool
	ValidationToken   string
	TokenExpiry       time.Time
	ResponseDeadline  time.Time
	AssignedTo        string
	ResolvedAt        *time.Time
	DownloadURL       string
	DownloadURLExpiry *time.Time

	OriginIP  string
	UserAgent string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Version guards read-then-write sequences: updates carry the version the
	// caller read, and stores reject stale writes.
	Version int64
}

// TokenExpired reports whether the validation token window has passed.
func (r Request) TokenExpired(now time.Time) bool {
	return now.After(r.TokenExpiry)
}

// Overdue reports whether the response deadline has passed without the
// request reaching a terminal state.
func (r Request) Overdue(now time.Time) bool {
	return !r.Status.IsTerminal() && now.After(r.ResponseDeadline)
}

// DaysRemaining is the whole number of days until the response deadline,
// negative once overdue. Kept for parity with the exported record layout.
func (r Request) DaysRemaining(now time.Time) int {
	return int(r.ResponseDeadline.Sub(now) / (24 * time.Hour))
}

// Patch is a typed partial update. Only the named fields can change after
// creation; a nil field means "leave unchanged". Unknown fields are impossible
// by construction, unlike a free-form column map.
type Patch struct {
	Status            *Status
	IdentityValidated *bool
	AssignedTo        *string
	ResolvedAt        *time.Time
	DownloadURL       *string
	DownloadURLExpiry *time.Time
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && p.IdentityValidated == nil && p.AssignedTo == nil &&
		p.ResolvedAt == nil && p.DownloadURL == nil && p.DownloadURLExpiry == nil
}

// Apply copies the patch onto a request, returning the updated copy.
func (p Patch) Apply(r Request, now time.Time) Request {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.IdentityValidated != nil {
		r.IdentityValidated = *p.IdentityValidated
	}
	if p.AssignedTo != nil {
		r.AssignedTo = *p.AssignedTo
	}
	if p.ResolvedAt != nil {
		r.ResolvedAt = p.ResolvedAt
	}
	if p.DownloadURL != nil {
		r.DownloadURL = *p.DownloadURL
	}
	if p.DownloadURLExpiry != nil {
		r.DownloadURLExpiry = p.DownloadURLExpiry
	}
	r.UpdatedAt = now
	r.Version++
	return r
}

// Counts aggregates requests by status, kind and preferred format.
type Counts struct {
	Total    int
	ByStatus map[Status]int
	ByKind   map[Kind]int
	ByFormat map[Format]int
}
