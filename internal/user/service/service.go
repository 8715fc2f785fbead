package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cadastro/internal/audit"
	"cadastro/internal/platform/logger"
	"cadastro/internal/platform/metrics"
	"cadastro/internal/user/models"
	"cadastro/pkg/domain"
	dErrors "cadastro/pkg/domain-errors"
	"cadastro/pkg/platform/sentinel"
	"cadastro/pkg/requestcontext"
)

var tracer = otel.Tracer("cadastro/user")

// UserStore is the registry the service drives.
type UserStore interface {
	List(ctx context.Context) []models.User
	Count(ctx context.Context) int
	Insert(ctx context.Context, r models.Registration) (models.User, error)
	Find(ctx context.Context, cpf string) (models.User, error)
	Update(ctx context.Context, cpf string, p models.Patch) bool
	Delete(ctx context.Context, cpf string) int
	SortedByName(ctx context.Context) []models.User
	Paginate(ctx context.Context, page, pageSize int) models.Page
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates user registration and maintenance.
type Service struct {
	users           UserStore
	logger          *slog.Logger
	auditPublisher  AuditPublisher
	metrics         *metrics.Metrics
	requireValidCPF bool
	pageSize        int
	now             func() time.Time
}

type Option func(s *Service)

// WithLogger sets the service logger. A nil logger keeps the default, which
// discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCPFValidation toggles checksum validation on Register. On by default.
func WithCPFValidation(enabled bool) Option {
	return func(s *Service) {
		s.requireValidCPF = enabled
	}
}

// WithPageSize sets the page size used by Page. Non-positive values keep the default.
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service.
func New(users UserStore, opts ...Option) *Service {
	s := &Service{
		users:           users,
		logger:          logger.Discard(),
		requireValidCPF: true,
		pageSize:        models.DefaultPageSize,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateCPF reports whether cpf passes the check-digit test.
func (s *Service) ValidateCPF(ctx context.Context, cpf string) bool {
	_, span := tracer.Start(ctx, "user.ValidateCPF")
	defer span.End()

	valid := domain.ValidCPF(cpf)
	span.SetAttributes(attribute.Bool("cpf.valid", valid))
	s.metrics.ObserveCPFValidation(valid)
	return valid
}

// Register adds a user. The CPF is stored exactly as given; surrounding
// whitespace is trimmed from the other text fields.
func (s *Service) Register(ctx context.Context, r models.Registration) (models.User, error) {
	ctx, span := tracer.Start(ctx, "user.Register")
	defer span.End()

	r.Name = strings.TrimSpace(r.Name)
	r.BirthDate = strings.TrimSpace(r.BirthDate)
	r.Address = strings.TrimSpace(r.Address)
	r.Phone = strings.TrimSpace(r.Phone)

	if r.Name == "" {
		return models.User{}, fail(span, dErrors.New(dErrors.CodeValidation, "name is required"))
	}
	if s.requireValidCPF && !s.ValidateCPF(ctx, r.CPF) {
		s.metrics.IncrementUsersRejected(metrics.ReasonInvalidCPF)
		return models.User{}, fail(span, dErrors.New(dErrors.CodeValidation, "invalid cpf"))
	}

	u, err := s.users.Insert(ctx, r)
	if err != nil {
		if errors.Is(err, sentinel.ErrDuplicateKey) {
			s.metrics.IncrementUsersRejected(metrics.ReasonDuplicateCPF)
			s.logger.WarnContext(ctx, "cpf already registered", "cpf_hash", audit.SubjectHash(r.CPF))
			return models.User{}, fail(span, dErrors.Wrap(err, dErrors.CodeConflict, "cpf already registered"))
		}
		return models.User{}, fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register user"))
	}

	s.metrics.IncrementUsersCreated()
	s.metrics.SetUsersRegistered(s.users.Count(ctx))
	s.emit(ctx, audit.ActionUserCreated, u.CPF, "")
	s.logger.InfoContext(ctx, "user registered", "cpf_hash", audit.SubjectHash(u.CPF), "active", u.Active)
	return u, nil
}

// Get returns the user registered under cpf.
func (s *Service) Get(ctx context.Context, cpf string) (models.User, error) {
	ctx, span := tracer.Start(ctx, "user.Get")
	defer span.End()

	u, err := s.users.Find(ctx, cpf)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.User{}, fail(span, dErrors.Wrap(err, dErrors.CodeNotFound, "user not found"))
		}
		return models.User{}, fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user"))
	}
	return u, nil
}

// Update applies p to the user registered under cpf and reports whether a
// user was found. An unknown cpf or an empty patch changes nothing.
func (s *Service) Update(ctx context.Context, cpf string, p models.Patch) bool {
	return s.update(ctx, "user.Update", audit.ActionUserUpdated, cpf, p)
}

// SetActive activates or deactivates the user registered under cpf.
func (s *Service) SetActive(ctx context.Context, cpf string, active bool) bool {
	action := audit.ActionUserDeactivated
	if active {
		action = audit.ActionUserActivated
	}
	return s.update(ctx, "user.SetActive", action, cpf, models.ActivePatch(active))
}

func (s *Service) update(ctx context.Context, spanName string, action audit.Action, cpf string, p models.Patch) bool {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()

	if p.IsEmpty() {
		return false
	}
	if !s.users.Update(ctx, cpf, p) {
		span.SetAttributes(attribute.Bool("user.found", false))
		s.logger.DebugContext(ctx, "update skipped, user not found", "cpf_hash", audit.SubjectHash(cpf))
		return false
	}

	s.metrics.IncrementUsersUpdated()
	s.emit(ctx, action, cpf, strings.Join(p.Fields(), ","))
	s.logger.InfoContext(ctx, "user updated", "cpf_hash", audit.SubjectHash(cpf), "action", string(action))
	return true
}

// Remove deletes every user registered under cpf and returns how many were
// removed.
func (s *Service) Remove(ctx context.Context, cpf string) int {
	ctx, span := tracer.Start(ctx, "user.Remove")
	defer span.End()

	n := s.users.Delete(ctx, cpf)
	span.SetAttributes(attribute.Int("user.deleted", n))
	if n == 0 {
		s.logger.DebugContext(ctx, "delete skipped, user not found", "cpf_hash", audit.SubjectHash(cpf))
		return 0
	}

	s.metrics.AddUsersDeleted(n)
	s.metrics.SetUsersRegistered(s.users.Count(ctx))
	s.emit(ctx, audit.ActionUserDeleted, cpf, strconv.Itoa(n)+" removed")
	s.logger.InfoContext(ctx, "user deleted", "cpf_hash", audit.SubjectHash(cpf), "count", n)
	return n
}

// List returns every user in registration order.
func (s *Service) List(ctx context.Context) []models.User {
	ctx, span := tracer.Start(ctx, "user.List")
	defer span.End()
	return s.users.List(ctx)
}

// SortedByName returns every user ordered by name.
func (s *Service) SortedByName(ctx context.Context) []models.User {
	ctx, span := tracer.Start(ctx, "user.SortedByName")
	defer span.End()
	return s.users.SortedByName(ctx)
}

// Page returns one page of the name-sorted registry using the service page size.
func (s *Service) Page(ctx context.Context, page int) models.Page {
	ctx, span := tracer.Start(ctx, "user.Page", trace.WithAttributes(attribute.Int("page.requested", page)))
	defer span.End()

	p := s.users.Paginate(ctx, page, s.pageSize)
	span.SetAttributes(attribute.Int("page.number", p.Number), attribute.Int("page.total", p.TotalPages))
	return p
}

// emit is fail-open: a lost audit event never fails the registry operation.
func (s *Service) emit(ctx context.Context, action audit.Action, cpf, detail string) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Timestamp:   s.now(),
		Action:      action,
		SubjectHash: audit.SubjectHash(cpf),
		Detail:      detail,
		RunID:       requestcontext.RunID(ctx),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "action", string(action), "error", err)
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}
