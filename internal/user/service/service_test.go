package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,AuditPublisher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cadastro/internal/audit"
	"cadastro/internal/platform/metrics"
	"cadastro/internal/user/models"
	"cadastro/internal/user/service/mocks"
	dErrors "cadastro/pkg/domain-errors"
	"cadastro/pkg/platform/sentinel"
)

var fixedNow = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

func maria() models.Registration {
	return models.Registration{
		CPF:       "123.456.789-09",
		Name:      "Maria da Silva Santos",
		BirthDate: "1990-05-15",
		Address:   "Rua das Flores, 123 - Centro",
		Phone:     "(11) 98765-4321",
	}
}

// ServiceSuite drives the service against mocked ports to pin error
// translation, audit emission and metrics.
type ServiceSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockStore     *mocks.MockUserStore
	mockPublisher *mocks.MockAuditPublisher
	metrics       *metrics.Metrics
	service       *Service
	ctx           context.Context
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockUserStore(s.ctrl)
	s.mockPublisher = mocks.NewMockAuditPublisher(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.mockStore,
		WithAuditPublisher(s.mockPublisher),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return fixedNow }),
	)
	s.ctx = context.Background()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestRegister() {
	s.Run("stores the user and emits user_created", func() {
		s.SetupTest()
		want := maria().User()
		s.mockStore.EXPECT().Insert(gomock.Any(), maria()).Return(want, nil)
		s.mockStore.EXPECT().Count(gomock.Any()).Return(1)
		s.mockPublisher.EXPECT().Emit(gomock.Any(), audit.Event{
			Timestamp:   fixedNow,
			Action:      audit.ActionUserCreated,
			SubjectHash: audit.SubjectHash(want.CPF),
		}).Return(nil)

		got, err := s.service.Register(s.ctx, maria())
		s.Require().NoError(err)
		s.Equal(want, got)
		s.InDelta(1, testutil.ToFloat64(s.metrics.UsersCreated), 0)
		s.InDelta(1, testutil.ToFloat64(s.metrics.UsersRegistered), 0)
	})

	s.Run("trims text fields but keeps the CPF verbatim", func() {
		s.SetupTest()
		r := maria()
		r.Name = "  Maria da Silva Santos "
		r.Phone = " (11) 98765-4321"
		s.mockStore.EXPECT().Insert(gomock.Any(), maria()).Return(maria().User(), nil)
		s.mockStore.EXPECT().Count(gomock.Any()).Return(1)
		s.mockPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.service.Register(s.ctx, r)
		s.Require().NoError(err)
	})

	s.Run("rejects invalid CPF without touching the store", func() {
		s.SetupTest()
		r := maria()
		r.CPF = "123.456.789-00"

		_, err := s.service.Register(s.ctx, r)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.InDelta(1, testutil.ToFloat64(s.metrics.UsersRejected.WithLabelValues(metrics.ReasonInvalidCPF)), 0)
		s.InDelta(1, testutil.ToFloat64(s.metrics.CPFValidations.WithLabelValues("invalid")), 0)
	})

	s.Run("rejects blank name", func() {
		s.SetupTest()
		r := maria()
		r.Name = "   "

		_, err := s.service.Register(s.ctx, r)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("CPF validation can be disabled", func() {
		s.SetupTest()
		svc := New(s.mockStore, WithCPFValidation(false))
		r := maria()
		r.CPF = "not-a-cpf"
		s.mockStore.EXPECT().Insert(gomock.Any(), r).Return(r.User(), nil)
		s.mockStore.EXPECT().Count(gomock.Any()).Return(1)

		_, err := svc.Register(s.ctx, r)
		s.Require().NoError(err)
	})

	s.Run("maps duplicate key to conflict", func() {
		s.SetupTest()
		s.mockStore.EXPECT().Insert(gomock.Any(), maria()).
			Return(models.User{}, fmt.Errorf("cpf %q: %w", maria().CPF, sentinel.ErrDuplicateKey))

		_, err := s.service.Register(s.ctx, maria())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.ErrorIs(err, sentinel.ErrDuplicateKey)
		s.InDelta(1, testutil.ToFloat64(s.metrics.UsersRejected.WithLabelValues(metrics.ReasonDuplicateCPF)), 0)
	})

	s.Run("maps unexpected store errors to internal", func() {
		s.SetupTest()
		s.mockStore.EXPECT().Insert(gomock.Any(), maria()).Return(models.User{}, errors.New("boom"))

		_, err := s.service.Register(s.ctx, maria())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("audit failure does not fail registration", func() {
		s.SetupTest()
		s.mockStore.EXPECT().Insert(gomock.Any(), maria()).Return(maria().User(), nil)
		s.mockStore.EXPECT().Count(gomock.Any()).Return(1)
		s.mockPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("sink down"))

		_, err := s.service.Register(s.ctx, maria())
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestGet() {
	s.Run("maps not found", func() {
		s.SetupTest()
		s.mockStore.EXPECT().Find(gomock.Any(), "000.000.000-00").
			Return(models.User{}, fmt.Errorf("cpf: %w", sentinel.ErrNotFound))

		_, err := s.service.Get(s.ctx, "000.000.000-00")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("maps other errors to internal", func() {
		s.SetupTest()
		s.mockStore.EXPECT().Find(gomock.Any(), gomock.Any()).Return(models.User{}, errors.New("boom"))

		_, err := s.service.Get(s.ctx, maria().CPF)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestUpdate() {
	s.Run("emits user_updated with the changed fields", func() {
		s.SetupTest()
		phone := "(21) 99999-0000"
		patch := models.Patch{Phone: &phone}
		s.mockStore.EXPECT().Update(gomock.Any(), maria().CPF, patch).Return(true)
		s.mockPublisher.EXPECT().Emit(gomock.Any(), audit.Event{
			Timestamp:   fixedNow,
			Action:      audit.ActionUserUpdated,
			SubjectHash: audit.SubjectHash(maria().CPF),
			Detail:      "phone",
		}).Return(nil)

		s.True(s.service.Update(s.ctx, maria().CPF, patch))
		s.InDelta(1, testutil.ToFloat64(s.metrics.UsersUpdated), 0)
	})

	s.Run("not found emits nothing", func() {
		s.SetupTest()
		s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(false)

		s.False(s.service.Update(s.ctx, "000.000.000-00", models.ActivePatch(false)))
		s.InDelta(0, testutil.ToFloat64(s.metrics.UsersUpdated), 0)
	})

	s.Run("empty patch skips the store", func() {
		s.SetupTest()
		s.False(s.service.Update(s.ctx, maria().CPF, models.Patch{}))
	})
}

func (s *ServiceSuite) TestSetActive() {
	s.Run("deactivate emits user_deactivated", func() {
		s.SetupTest()
		s.mockStore.EXPECT().Update(gomock.Any(), maria().CPF, models.ActivePatch(false)).Return(true)
		s.mockPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal(audit.ActionUserDeactivated, e.Action)
				return nil
			})

		s.True(s.service.SetActive(s.ctx, maria().CPF, false))
	})

	s.Run("activate emits user_activated", func() {
		s.SetupTest()
		s.mockStore.EXPECT().Update(gomock.Any(), maria().CPF, models.ActivePatch(true)).Return(true)
		s.mockPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal(audit.ActionUserActivated, e.Action)
				return nil
			})

		s.True(s.service.SetActive(s.ctx, maria().CPF, true))
	})
}

func (s *ServiceSuite) TestRemove() {
	s.Run("records deletions", func() {
		s.SetupTest()
		s.mockStore.EXPECT().Delete(gomock.Any(), maria().CPF).Return(1)
		s.mockStore.EXPECT().Count(gomock.Any()).Return(0)
		s.mockPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e audit.Event) error {
				s.Equal(audit.ActionUserDeleted, e.Action)
				s.Equal("1 removed", e.Detail)
				return nil
			})

		s.Equal(1, s.service.Remove(s.ctx, maria().CPF))
		s.InDelta(1, testutil.ToFloat64(s.metrics.UsersDeleted), 0)
	})

	s.Run("missing CPF is a silent no-op", func() {
		s.SetupTest()
		s.mockStore.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(0)

		s.Equal(0, s.service.Remove(s.ctx, "000.000.000-00"))
	})
}

func (s *ServiceSuite) TestPage() {
	s.Run("uses the configured page size", func() {
		s.SetupTest()
		svc := New(s.mockStore, WithPageSize(5))
		s.mockStore.EXPECT().Paginate(gomock.Any(), 2, 5).Return(models.Page{Number: 2, Size: 5, TotalPages: 3})

		page := svc.Page(s.ctx, 2)
		s.Equal(2, page.Number)
	})

	s.Run("defaults to twenty per page", func() {
		s.SetupTest()
		s.mockStore.EXPECT().Paginate(gomock.Any(), 1, models.DefaultPageSize).Return(models.Page{Number: 1, TotalPages: 1})

		s.service.Page(s.ctx, 1)
	})

	s.Run("ignores non-positive page size", func() {
		s.SetupTest()
		svc := New(s.mockStore, WithPageSize(0))
		s.mockStore.EXPECT().Paginate(gomock.Any(), 1, models.DefaultPageSize).Return(models.Page{})

		svc.Page(s.ctx, 1)
	})
}
