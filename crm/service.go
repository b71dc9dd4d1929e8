// ABOUTME: CRM service layer over an entity store
// ABOUTME: Validation, stage rules, referential integrity, logging and metrics for every surface
package crm

import (
	"errors"
	"strings"
	"time"

	"github.com/harperreed/dealdesk/metrics"
	"github.com/harperreed/dealdesk/models"
	"github.com/harperreed/dealdesk/pipeline"
	"github.com/harperreed/dealdesk/store"
	"go.uber.org/zap"
)

// ErrInUse is returned when a delete would leave other records dangling.
var ErrInUse = errors.New("record in use")

// Fallback labels for dangling references.
const (
	NoCompany      = "No Company"
	UnknownContact = "Unknown"
)

// Service is shared by the HTTP API, MCP tools, CLI and TUI.
type Service struct {
	store       store.Store
	log         *zap.Logger
	metrics     metrics.Recorder
	now         func() time.Time
	transitions *pipeline.Handler
}

type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source used for stage stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a Service. Without options it logs nowhere and records no metrics.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:   st,
		log:     zap.NewNop(),
		metrics: metrics.Nop{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.transitions = &pipeline.Handler{Deals: st.Deals(), Now: s.now}
	return s
}

// Store exposes the backing store, e.g. for seeding.
func (s *Service) Store() store.Store {
	return s.store
}

func (s *Service) record(entity, op string, err error) {
	s.metrics.RecordOperation(entity, op, err)
	if err != nil && !IsCallerError(err) {
		s.log.Warn("operation failed",
			zap.String("entity", entity),
			zap.String("op", op),
			zap.Error(err))
	}
}

// IsCallerError reports whether err was caused by the request rather than
// the backend.
func IsCallerError(err error) bool {
	var verr *models.ValidationError
	return errors.As(err, &verr) || errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrInUse)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &models.ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// matches is a case-insensitive substring test; an empty query matches all.
func matches(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
