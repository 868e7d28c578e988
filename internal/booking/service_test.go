package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"hemobank/internal/bank"
	"hemobank/internal/inventory"
	"hemobank/internal/platform/metrics"
	"hemobank/pkg/domain"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/sentinel"
)

// testMetrics is shared because promauto registers into the default registry
// once per process.
var testMetrics = metrics.New()

// spyInvalidator counts cache invalidations so tests can pin which paths
// drop the stock report.
type spyInvalidator struct {
	calls int
}

func (i *spyInvalidator) Invalidate(context.Context) { i.calls++ }

type centralStub struct {
	bank *bank.Bank
}

func (c *centralStub) Central(context.Context) (*bank.Bank, error) {
	if c.bank == nil {
		return nil, sentinel.ErrNotFound
	}
	return c.bank, nil
}

// flakyLedger delegates to a real ledger but can be told to fail writes, so
// the compensation paths are testable in isolation.
type flakyLedger struct {
	inner         Ledger
	failAppend    bool
	failSetStatus bool
}

func (l *flakyLedger) Append(ctx context.Context, b *Booking) error {
	if l.failAppend {
		return errors.New("disk full")
	}
	return l.inner.Append(ctx, b)
}

func (l *flakyLedger) Get(ctx context.Context, id domain.BookingID) (*Booking, error) {
	return l.inner.Get(ctx, id)
}

func (l *flakyLedger) ListAll(ctx context.Context) ([]*Booking, error) {
	return l.inner.ListAll(ctx)
}

func (l *flakyLedger) SetStatus(ctx context.Context, id domain.BookingID, status Status) (*Booking, error) {
	if l.failSetStatus {
		return nil, errors.New("disk full")
	}
	return l.inner.SetStatus(ctx, id, status)
}

// flakyTxRunner fails the nth transaction of a test, counting from one.
type flakyTxRunner struct {
	inner  inventory.TxRunner
	calls  int
	failOn map[int]error
}

func (r *flakyTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	if err := r.failOn[r.calls]; err != nil {
		return err
	}
	return r.inner.RunInTx(ctx, fn)
}

type ServiceSuite struct {
	suite.Suite
	ctx context.Context

	store   *inventory.InMemory
	txr     *flakyTxRunner
	ledger  *flakyLedger
	central *centralStub
	cache   *spyInvalidator
	svc     *Service

	centralBank *bank.Bank
	cityBank    *bank.Bank
	centralRec  *inventory.Record
	cityRec     *inventory.Record

	admin   domain.Principal
	doctor  domain.Principal
	patient domain.Principal
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = inventory.NewInMemory()
	s.txr = &flakyTxRunner{inner: inventory.NewMemoryTx(s.store), failOn: map[int]error{}}
	s.ledger = &flakyLedger{inner: NewFileLedger(filepath.Join(s.T().TempDir(), "bookings.json"))}

	now := time.Now()
	s.centralBank = &bank.Bank{ID: domain.NewBankID(), Name: "Central Blood Bank", City: "Metropolis", CreatedAt: now, UpdatedAt: now}
	s.cityBank = &bank.Bank{ID: domain.NewBankID(), Name: "City Hospital Bank", City: "Metropolis", CreatedAt: now, UpdatedAt: now}
	s.central = &centralStub{bank: s.centralBank}

	var err error
	s.centralRec, err = s.store.UpsertAdd(s.ctx, s.centralBank.ID, domain.BloodGroupOPos, 3)
	s.Require().NoError(err)
	s.cityRec, err = s.store.UpsertAdd(s.ctx, s.cityBank.ID, domain.BloodGroupOPos, 5)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.cache = &spyInvalidator{}
	s.svc = NewService(s.central, s.store, s.txr, s.ledger, s.cache, logger, testMetrics, nil)

	s.admin = domain.Principal{ID: domain.UserID(uuid.New()), Role: domain.RoleAdmin}
	s.doctor = domain.Principal{ID: domain.UserID(uuid.New()), Role: domain.RoleDoctor}
	s.patient = domain.Principal{ID: domain.UserID(uuid.New()), Role: domain.RolePatient}
}

func (s *ServiceSuite) totalOPos() int {
	totals, err := s.store.AggregateByGroup(s.ctx)
	s.Require().NoError(err)
	return totals[domain.BloodGroupOPos]
}

func (s *ServiceSuite) TestBookPrefersCentralBank() {
	b, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroupOPos, 6, false)
	s.Require().NoError(err)

	s.Equal(StatusActive, b.Status)
	s.Equal(PriorityNormal, b.Priority)
	s.Require().Len(b.Deductions, 2)
	s.Equal(s.centralRec.ID, b.Deductions[0].InventoryRecordID)
	s.Equal(3, b.Deductions[0].Units)
	s.Equal(s.cityRec.ID, b.Deductions[1].InventoryRecordID)
	s.Equal(3, b.Deductions[1].Units)
	s.Equal(2, s.totalOPos())

	stored, err := s.ledger.Get(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(StatusActive, stored.Status)
}

func (s *ServiceSuite) TestBookRecordsEmergencyPriority() {
	b, err := s.svc.Book(s.ctx, s.patient, domain.BloodGroupOPos, 1, true)
	s.Require().NoError(err)
	s.Equal(PriorityEmergency, b.Priority)
	// Priority is a label only: the draw still comes from the central bank.
	s.Equal(s.centralRec.ID, b.Deductions[0].InventoryRecordID)
}

func (s *ServiceSuite) TestBookWithoutCentralBank() {
	s.central.bank = nil

	b, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroupOPos, 6, false)
	s.Require().NoError(err)
	// Largest holding first when no central bank exists.
	s.Equal(s.cityRec.ID, b.Deductions[0].InventoryRecordID)
	s.Equal(5, b.Deductions[0].Units)
	s.Equal(2, s.totalOPos())
}

func (s *ServiceSuite) TestBookInsufficientStockLeavesStateUntouched() {
	_, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroupOPos, 9, false)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientStock))

	s.Equal(8, s.totalOPos())
	all, listErr := s.ledger.ListAll(s.ctx)
	s.Require().NoError(listErr)
	s.Empty(all)
	// Nothing changed, so the cached stock report is still accurate.
	s.Equal(0, s.cache.calls)
}

func (s *ServiceSuite) TestBookRejectsAdmin() {
	_, err := s.svc.Book(s.ctx, s.admin, domain.BloodGroupOPos, 1, false)
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))
}

func (s *ServiceSuite) TestBookRejectsNonPositiveQuantity() {
	_, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroupOPos, 0, false)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestBookRejectsUnknownGroup() {
	_, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroup("O%"), 1, false)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestLedgerFailureCompensates() {
	s.ledger.failAppend = true

	_, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroupOPos, 6, false)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePersistenceFailed))
	s.Contains(err.Error(), "compensation succeeded")

	// Every deducted unit is back and nothing was persisted.
	s.Equal(8, s.totalOPos())
	all, listErr := s.ledger.ListAll(s.ctx)
	s.Require().NoError(listErr)
	s.Empty(all)

	// Both the allocation and the compensating restore invalidated the
	// cached stock report.
	s.Equal(2, s.cache.calls)
}

func (s *ServiceSuite) TestLedgerFailureWithFailedCompensation() {
	s.ledger.failAppend = true
	// Transaction 1 is the allocation, transaction 2 the compensation.
	s.txr.failOn[2] = errors.New("connection reset")

	_, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroupOPos, 6, false)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInconsistentState))
	s.Contains(err.Error(), "manual reconciliation")
}

func (s *ServiceSuite) TestCancelRestoresInventory() {
	b, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroupOPos, 6, false)
	s.Require().NoError(err)
	s.Equal(2, s.totalOPos())

	cancelled, err := s.svc.Cancel(s.ctx, s.doctor, b.ID)
	s.Require().NoError(err)
	s.Equal(StatusCancelled, cancelled.Status)
	s.Equal(8, s.totalOPos())

	central, err := s.store.FindByID(s.ctx, s.centralRec.ID)
	s.Require().NoError(err)
	s.Equal(3, central.Units)
}

func (s *ServiceSuite) TestCancelByAdmin() {
	b, err := s.svc.Book(s.ctx, s.patient, domain.BloodGroupOPos, 2, false)
	s.Require().NoError(err)

	_, err = s.svc.Cancel(s.ctx, s.admin, b.ID)
	s.Require().NoError(err)
	s.Equal(8, s.totalOPos())
}

func (s *ServiceSuite) TestCancelDeniedForStranger() {
	b, err := s.svc.Book(s.ctx, s.patient, domain.BloodGroupOPos, 2, false)
	s.Require().NoError(err)

	_, err = s.svc.Cancel(s.ctx, s.doctor, b.ID)
	s.True(dErrors.HasCode(err, dErrors.CodePermissionDenied))
	s.Equal(6, s.totalOPos())
}

func (s *ServiceSuite) TestCancelTwiceFails() {
	b, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroupOPos, 2, false)
	s.Require().NoError(err)

	_, err = s.svc.Cancel(s.ctx, s.doctor, b.ID)
	s.Require().NoError(err)

	_, err = s.svc.Cancel(s.ctx, s.doctor, b.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	// No double restore.
	s.Equal(8, s.totalOPos())
}

func (s *ServiceSuite) TestCancelUnknownBooking() {
	_, err := s.svc.Cancel(s.ctx, s.admin, domain.NewBookingID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestCancelStatusWriteFailureRollsBack() {
	b, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroupOPos, 6, false)
	s.Require().NoError(err)

	s.ledger.failSetStatus = true
	_, err = s.svc.Cancel(s.ctx, s.doctor, b.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePersistenceFailed))
	s.Contains(err.Error(), "retry the cancellation")

	// Restore was rolled back, the booking still reads ACTIVE, and a retry
	// after the ledger recovers completes cleanly.
	s.Equal(2, s.totalOPos())
	stored, err := s.ledger.Get(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(StatusActive, stored.Status)

	s.ledger.failSetStatus = false
	_, err = s.svc.Cancel(s.ctx, s.doctor, b.ID)
	s.Require().NoError(err)
	s.Equal(8, s.totalOPos())
}

func (s *ServiceSuite) TestBookAndCancelInvalidateStockReport() {
	b, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroupOPos, 2, false)
	s.Require().NoError(err)
	s.Equal(1, s.cache.calls)

	_, err = s.svc.Cancel(s.ctx, s.doctor, b.ID)
	s.Require().NoError(err)
	s.Equal(2, s.cache.calls)
}

func (s *ServiceSuite) TestCancelRollbackInvalidatesStockReport() {
	b, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroupOPos, 2, false)
	s.Require().NoError(err)

	s.ledger.failSetStatus = true
	_, err = s.svc.Cancel(s.ctx, s.doctor, b.ID)
	s.Require().Error(err)

	// Book, the restore, and the restore's rollback each touched inventory.
	s.Equal(3, s.cache.calls)
}

func (s *ServiceSuite) TestListVisibilityAndOrder() {
	first, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroupOPos, 1, false)
	s.Require().NoError(err)
	time.Sleep(2 * time.Millisecond)
	second, err := s.svc.Book(s.ctx, s.patient, domain.BloodGroupOPos, 1, false)
	s.Require().NoError(err)
	time.Sleep(2 * time.Millisecond)
	third, err := s.svc.Book(s.ctx, s.doctor, domain.BloodGroupOPos, 1, false)
	s.Require().NoError(err)

	all, err := s.svc.List(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(third.ID, all[0].ID)
	s.Equal(second.ID, all[1].ID)
	s.Equal(first.ID, all[2].ID)

	own, err := s.svc.List(s.ctx, s.doctor)
	s.Require().NoError(err)
	s.Require().Len(own, 2)
	s.Equal(third.ID, own[0].ID)
	s.Equal(first.ID, own[1].ID)
}
