package capability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CameronXie/tailor-ledger/internal/enforcer"
)

type Status string

const (
	Available   Status = "available"
	Unavailable Status = "unavailable"
	Granted     Status = "granted"
	Denied      Status = "denied"
)

const (
	ReceiptFont = "receipt-font"
	PDFExport   = "pdf-export"
	Thumbnails  = "thumbnails"
	URLCache    = "url-cache"
)

const requestAction = "use"

var ErrUnknown = errors.New("unknown capability")

// Capability is an optional server feature. Detect reports whether the
// deployment provides it and Request whether a subject may use it.
type Capability interface {
	Name() string
	Detect(ctx context.Context) Status
	Request(ctx context.Context, subject string) (Status, error)
}

// Probe reports whether a feature is usable right now.
type Probe func(ctx context.Context) bool

// Static is a probe for features fixed at startup.
func Static(ok bool) Probe {
	return func(context.Context) bool { return ok }
}

type serverCapability struct {
	name     string
	probe    Probe
	enforcer enforcer.Enforcer
}

func (c *serverCapability) Name() string {
	return c.name
}

func (c *serverCapability) Detect(ctx context.Context) Status {
	if c.probe(ctx) {
		return Available
	}

	return Unavailable
}

// Request grants the capability when it is available and the access policy
// lets the subject use it.
func (c *serverCapability) Request(ctx context.Context, subject string) (Status, error) {
	if c.Detect(ctx) != Available {
		return Denied, nil
	}

	ok, err := c.enforcer.Enforce(ctx, &enforcer.AccessRequest{
		Subject:  subject,
		Resource: "/capabilities/" + c.name,
		Action:   requestAction,
	})
	if err != nil {
		return Denied, fmt.Errorf("failed to enforce %s: %w", c.name, err)
	}

	if !ok {
		return Denied, nil
	}

	return Granted, nil
}

func New(name string, probe Probe, e enforcer.Enforcer) Capability {
	return &serverCapability{name: name, probe: probe, enforcer: e}
}

// Report is one row of the capability listing.
type Report struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Permission Status `json:"permission"`
}

// Registry holds the capabilities in listing order.
type Registry struct {
	capabilities []Capability
	logger       *slog.Logger
}

func NewRegistry(logger *slog.Logger, capabilities ...Capability) *Registry {
	return &Registry{capabilities: capabilities, logger: logger}
}

func (r *Registry) Lookup(name string) (Capability, error) {
	for _, c := range r.capabilities {
		if c.Name() == name {
			return c, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
}

// Report detects every capability and asks for each on behalf of subject.
// A failed permission check is logged and reported as denied.
func (r *Registry) Report(ctx context.Context, subject string) []Report {
	reports := make([]Report, 0, len(r.capabilities))
	for _, c := range r.capabilities {
		permission, err := c.Request(ctx, subject)
		if err != nil {
			r.logger.WarnContext(ctx, "failed to request capability", "capability", c.Name(), "error", err)
		}

		reports = append(reports, Report{
			Name:       c.Name(),
			Status:     c.Detect(ctx),
			Permission: permission,
		})
	}

	return reports
}
