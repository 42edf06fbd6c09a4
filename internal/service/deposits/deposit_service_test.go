package deposits

import (
	"context"
	"errors"
	"testing"

	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/pkg/store/repository"
	"sacco-ledger/internal/service/allocation"
	"sacco-ledger/internal/service/interfaces"
	"sacco-ledger/internal/service/ledger"
	"sacco-ledger/internal/service/servicetest"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) InitiateDeposit(ctx context.Context, phone string, amount models.Money, reference string) (string, error) {
	args := m.Called(ctx, phone, amount, reference)
	return args.String(0), args.Error(1)
}

type harness struct {
	*servicetest.Fixture
	svc     *DepositService
	gateway *MockPaymentGateway
	member  *storemodels.Member
	finance models.Actor
}

func newHarness(t *testing.T, seen interfaces.RedisStoreOperations, balances storemodels.WalletDelta) *harness {
	f := servicetest.New()
	ledgerService := ledger.NewLedgerService(f.Store, f.Store.Wallets(), f.Store.Transactions(), f.Rules).WithClock(f.Clock())
	gateway := &MockPaymentGateway{}
	svc := NewDepositService(f.Store, Repositories{
		Members:      f.Store.Members(),
		Wallets:      f.Store.Wallets(),
		Transactions: f.Store.Transactions(),
	}, ledgerService, gateway, seen, f.Audit, f.Notifier, f.Rules).WithClock(f.Clock())

	member, _ := f.SeedMember(t, servicetest.MemberSpec{Email: "akinyi@sacco.test", Balances: balances})
	finance, _ := f.SeedMember(t, servicetest.MemberSpec{Email: "fin@sacco.test", Role: models.RoleFinanceOfficer})
	return &harness{Fixture: f, svc: svc, gateway: gateway, member: member, finance: servicetest.Actor(finance)}
}

func miniredisStore(t *testing.T) (*miniredis.Miniredis, *repository.RedisStoreAdapter) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, repository.NewRedisStoreAdapter(client)
}

func TestRecordManualRunsWaterfall(t *testing.T) {
	h := newHarness(t, nil, storemodels.WalletDelta{Fines: models.KES(200), Welfare: models.KES(3000)})

	deposit, err := h.svc.RecordManual(context.Background(), h.finance, models.ManualDepositRequest{
		MemberEmail: "Akinyi@Sacco.test",
		Amount:      models.KES(5000),
	})
	require.NoError(t, err)

	assert.Equal(t, models.KES(200), deposit.Split.ToFines)
	assert.Equal(t, models.KES(1000), deposit.Split.ToWelfare)
	assert.Equal(t, models.KES(3800), deposit.Split.ToSavings)

	w := h.Wallet(t, h.member)
	assert.Equal(t, models.Money(0), w.Fines)
	assert.Equal(t, models.KES(4000), w.Welfare)
	assert.Equal(t, models.KES(3800), w.Savings)
	assert.Equal(t, w.Savings, deposit.Wallet.Savings)

	assert.Equal(t, models.TxManualDeposit, deposit.Journal.Kind)
	assert.Equal(t, models.ProviderCash, deposit.Journal.Provider)
	assert.Regexp(t, `^DEP-`, deposit.Journal.Reference)
	assert.Equal(t, h.finance.MemberID.Hex(), deposit.Journal.Metadata["recordedBy"])
	assert.Equal(t, []string{consts.AuditDepositRecorded}, h.Audit.Actions())
	assert.Equal(t, []string{models.EventDepositReceived}, h.Notifier.Events())
}

func TestRecordManualSplitsAgainstCommittedWallet(t *testing.T) {
	h := newHarness(t, nil, storemodels.WalletDelta{Fines: models.KES(500)})
	// welfare is topped up and the fine paid after the deposit read the wallet
	wallets := &servicetest.MovingWallets{
		WalletRepositoryInterface: h.Store.Wallets(),
		Move:                      storemodels.WalletDelta{Welfare: models.KES(4000), Fines: -models.KES(500)},
	}
	ledgerService := ledger.NewLedgerService(h.Store, wallets, h.Store.Transactions(), h.Rules).WithClock(h.Clock())
	svc := NewDepositService(h.Store, Repositories{
		Members:      h.Store.Members(),
		Wallets:      wallets,
		Transactions: h.Store.Transactions(),
	}, ledgerService, h.gateway, nil, h.Audit, h.Notifier, h.Rules).WithClock(h.Clock())

	deposit, err := svc.RecordManual(context.Background(), h.finance, models.ManualDepositRequest{
		MemberEmail: "akinyi@sacco.test",
		Amount:      models.KES(4000),
	})
	require.NoError(t, err)

	assert.Equal(t, allocation.Split{ToSavings: models.KES(4000)}, deposit.Split)
	assert.Equal(t, deposit.Split.Metadata(), deposit.Journal.Metadata["split"])
	w := h.Wallet(t, h.member)
	assert.Equal(t, models.KES(4000), w.Welfare)
	assert.Equal(t, models.Money(0), w.Fines)
	assert.Equal(t, models.KES(4000), w.Savings)
	h.RequireInvariants(t)
}

func TestRecordManualGates(t *testing.T) {
	h := newHarness(t, nil, storemodels.WalletDelta{})
	ctx := context.Background()
	treasurer, _ := h.SeedMember(t, servicetest.MemberSpec{Email: "treasurer@sacco.test", Role: models.RoleTreasurer})

	tests := []struct {
		name  string
		actor models.Actor
		req   models.ManualDepositRequest
		code  string
	}{
		{
			name:  "member cannot record cash",
			actor: servicetest.Actor(h.member),
			req:   models.ManualDepositRequest{MemberEmail: h.member.Email, Amount: models.KES(100)},
			code:  models.ErrCodeForbidden,
		},
		{
			name:  "zero amount",
			actor: h.finance,
			req:   models.ManualDepositRequest{MemberEmail: h.member.Email},
			code:  models.ErrCodeValidation,
		},
		{
			name:  "unknown member",
			actor: servicetest.Actor(treasurer),
			req:   models.ManualDepositRequest{MemberEmail: "ghost@sacco.test", Amount: models.KES(100)},
			code:  models.ErrCodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.RecordManual(ctx, tt.actor, tt.req)
			assert.True(t, models.IsCode(err, tt.code), "got %v", err)
		})
	}

	_, err := h.svc.RecordManual(ctx, h.finance, models.ManualDepositRequest{
		MemberEmail: h.member.Email, Amount: models.KES(100), Reference: "RCPT-7",
	})
	require.NoError(t, err)
	_, err = h.svc.RecordManual(ctx, h.finance, models.ManualDepositRequest{
		MemberEmail: h.member.Email, Amount: models.KES(100), Reference: "RCPT-7",
	})
	assert.True(t, models.IsCode(err, models.ErrCodeConflict))
	assert.Equal(t, models.KES(100), h.Wallet(t, h.member).Welfare)
}

func TestGatewayCallbackIsIdempotent(t *testing.T) {
	mr, seen := miniredisStore(t)
	h := newHarness(t, seen, storemodels.WalletDelta{Welfare: models.KES(4000)})
	ctx := context.Background()
	h.gateway.On("InitiateDeposit", mock.Anything, "0712345678", models.KES(1500), mock.AnythingOfType("string")).
		Return("ws_CO_1", nil).Once()

	pending, err := h.svc.InitiateGateway(ctx, servicetest.Actor(h.member),
		models.GatewayDepositRequest{Phone: "0712345678", Amount: models.KES(1500)})
	require.NoError(t, err)
	assert.Equal(t, models.TxPending, pending.Status)
	assert.Equal(t, "ws_CO_1", pending.TrackingID)
	assert.Equal(t, models.Money(0), h.Wallet(t, h.member).Savings)

	cb := models.GatewayCallback{TrackingID: "ws_CO_1", ResultCode: 0, ReceiptNumber: "QK12AB"}
	applied, err := h.svc.HandleCallback(ctx, cb)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, mr.Exists(consts.CallbackSeenKeyPrefix+"ws_CO_1"))

	applied, err = h.svc.HandleCallback(ctx, cb)
	require.NoError(t, err)
	assert.False(t, applied)

	w := h.Wallet(t, h.member)
	assert.Equal(t, models.KES(1500), w.Savings)
	stored, err := h.Store.Transactions().GetByTrackingID(ctx, "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, models.TxCompleted, stored.Status)
	assert.Equal(t, "QK12AB", stored.Metadata["receiptNumber"])
	h.gateway.AssertExpectations(t)
	assert.Subset(t, h.Audit.Actions(), []string{consts.AuditDepositInitiated, consts.AuditDepositSettled})
}

func TestReplayWithoutDedupStoreHitsFinalStatus(t *testing.T) {
	h := newHarness(t, nil, storemodels.WalletDelta{})
	ctx := context.Background()
	h.gateway.On("InitiateDeposit", mock.Anything, "254712345678", models.KES(6000), mock.Anything).Return("ws_CO_2", nil)

	_, err := h.svc.InitiateGateway(ctx, servicetest.Actor(h.member),
		models.GatewayDepositRequest{Phone: "254712345678", Amount: models.KES(6000)})
	require.NoError(t, err)

	cb := models.GatewayCallback{TrackingID: "ws_CO_2", ResultCode: 0, Amount: models.KES(6000)}
	for i, want := range []bool{true, false, false} {
		applied, err := h.svc.HandleCallback(ctx, cb)
		require.NoError(t, err)
		assert.Equal(t, want, applied, "delivery %d", i+1)
	}

	w := h.Wallet(t, h.member)
	assert.Equal(t, models.KES(4000), w.Welfare)
	assert.Equal(t, models.KES(2000), w.Savings)
	h.RequireInvariants(t)
}

func TestFailedCallbackMovesNoMoney(t *testing.T) {
	h := newHarness(t, nil, storemodels.WalletDelta{})
	ctx := context.Background()
	h.gateway.On("InitiateDeposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("ws_CO_3", nil)
	_, err := h.svc.InitiateGateway(ctx, servicetest.Actor(h.member),
		models.GatewayDepositRequest{Phone: "0712345678", Amount: models.KES(500)})
	require.NoError(t, err)

	applied, err := h.svc.HandleCallback(ctx, models.GatewayCallback{TrackingID: "ws_CO_3", ResultCode: 1032, ResultDesc: "Request cancelled by user"})

	require.NoError(t, err)
	assert.True(t, applied)
	stored, err := h.Store.Transactions().GetByTrackingID(ctx, "ws_CO_3")
	require.NoError(t, err)
	assert.Equal(t, models.TxFailed, stored.Status)
	w := h.Wallet(t, h.member)
	assert.Equal(t, models.Money(0), w.Savings)
	assert.Equal(t, models.Money(0), w.Welfare)
	assert.Empty(t, h.Notifier.Events())
}

func TestUnknownCallbackIsIgnored(t *testing.T) {
	_, seen := miniredisStore(t)
	h := newHarness(t, seen, storemodels.WalletDelta{})

	applied, err := h.svc.HandleCallback(context.Background(), models.GatewayCallback{TrackingID: "ws_CO_missing"})

	require.NoError(t, err)
	assert.False(t, applied)

	_, err = h.svc.HandleCallback(context.Background(), models.GatewayCallback{})
	assert.True(t, models.IsCode(err, models.ErrCodeValidation))
}

func TestGatewayFailureFailsPendingEntry(t *testing.T) {
	h := newHarness(t, nil, storemodels.WalletDelta{})
	ctx := context.Background()
	h.gateway.On("InitiateDeposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("gateway unavailable"))

	_, err := h.svc.InitiateGateway(ctx, servicetest.Actor(h.member),
		models.GatewayDepositRequest{Phone: "0712345678", Amount: models.KES(500)})
	require.Error(t, err)

	journal, err := h.Store.Transactions().ListByWallet(ctx, h.Wallet(t, h.member).ID)
	require.NoError(t, err)
	require.Len(t, journal, 1)
	assert.Equal(t, models.TxFailed, journal[0].Status)
	assert.Equal(t, "gateway unavailable", journal[0].Metadata["failure"])
	assert.Equal(t, models.Money(0), h.Wallet(t, h.member).Savings)
}

func TestDedupStoreOutageFallsBackToJournal(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	h := newHarness(t, repository.NewRedisStoreAdapter(client), storemodels.WalletDelta{Welfare: models.KES(4000)})
	ctx := context.Background()
	h.gateway.On("InitiateDeposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("ws_CO_4", nil)
	_, err := h.svc.InitiateGateway(ctx, servicetest.Actor(h.member),
		models.GatewayDepositRequest{Phone: "0712345678", Amount: models.KES(700)})
	require.NoError(t, err)

	redisMock.ExpectSetNX(consts.CallbackSeenKeyPrefix+"ws_CO_4", 0, consts.CallbackSeenTTL).SetErr(errors.New("connection refused"))

	applied, err := h.svc.HandleCallback(ctx, models.GatewayCallback{TrackingID: "ws_CO_4", ResultCode: 0})

	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.KES(700), h.Wallet(t, h.member).Savings)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
