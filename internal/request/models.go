package request

import (
	"time"

	"arcop/internal/domain"
	"arcop/internal/rut"
)

// CreateCommand carries the raw intake form. Kind is optional and defaults to
// ACCESS, the only right the public form exposes today.
type CreateCommand struct {
	FullName      string
	RUT           string
	Email         string
	Phone         string
	Kind          string
	Scope         string
	Categories    []string
	Format        string
	TermsAccepted bool
}

// CreateResult is what the requester gets back after a successful intake.
type CreateResult struct {
	ID               string
	Number           string
	Status           domain.Status
	Email            string
	CreatedAt        time.Time
	ResponseDeadline time.Time
}

// Summary is the public view of a request. It masks the RUT and only carries
// the download link while it is still live.
type Summary struct {
	Number            string
	Status            domain.Status
	Kind              domain.Kind
	Format            domain.Format
	MaskedRUT         string
	IdentityValidated bool
	CreatedAt         time.Time
	ResponseDeadline  time.Time
	DaysRemaining     int
	DownloadURL       string
}

// Stats aggregates the portfolio for the reviewer dashboard.
type Stats struct {
	Total    int
	Overdue  int
	ByStatus map[domain.Status]int
	ByKind   map[domain.Kind]int
	ByFormat map[domain.Format]int
}

func newSummary(req domain.Request, now time.Time) Summary {
	s := Summary{
		Number:            req.Number,
		Status:            req.Status,
		Kind:              req.Kind,
		Format:            req.Format,
		MaskedRUT:         rut.Mask(req.RUT),
		IdentityValidated: req.IdentityValidated,
		CreatedAt:         req.CreatedAt,
		ResponseDeadline:  req.ResponseDeadline,
		DaysRemaining:     req.DaysRemaining(now),
	}
	if req.Status == domain.StatusResolved && req.DownloadURL != "" &&
		req.DownloadURLExpiry != nil && now.Before(*req.DownloadURLExpiry) {
		s.DownloadURL = req.DownloadURL
	}
	return s
}
