package compliance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sacco-ledger/internal/pkg/config"
	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/pkg/otel"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// LoanHooks are the individually transactional loan operations a sweep drives.
type LoanHooks interface {
	FindOverdueLoans(ctx context.Context, asOf time.Time) ([]storemodels.Loan, error)
	ApplyPenalty(ctx context.Context, loanID primitive.ObjectID, asOf time.Time) (bool, error)
	MarkDefault(ctx context.Context, loanID primitive.ObjectID, asOf time.Time) (bool, error)
}

type ComplianceServiceInterface interface {
	Sweep(ctx context.Context) *SweepResponse
}

type ComplianceService struct {
	loans        LoanHooks
	lock         interfaces.RedisStoreOperations
	workerConfig config.ComplianceSweepConfig
	now          func() time.Time
}

// NewComplianceService builds a sweep over the loan hooks. lock may be nil, in
// which case concurrent sweeps rely on the loan-level guards alone.
func NewComplianceService(
	loans LoanHooks,
	lock interfaces.RedisStoreOperations,
	workerConfig config.ComplianceSweepConfig,
) *ComplianceService {
	return &ComplianceService{
		loans:        loans,
		lock:         lock,
		workerConfig: workerConfig,
		now:          time.Now,
	}
}

func (cs *ComplianceService) WithClock(now func() time.Time) *ComplianceService {
	cs.now = now
	return cs
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomePenalized
	outcomeDefaulted
)

// Sweep penalizes or defaults every overdue loan as of now. Each loan runs in
// its own transaction; a failing loan is logged, listed and skipped.
func (cs *ComplianceService) Sweep(ctx context.Context) *SweepResponse {
	asOf := cs.now().UTC()
	response := &SweepResponse{AsOf: asOf.Format(consts.DateFormat)}

	if cs.workerConfig.WorkerCount <= 0 {
		response.SetError(errors.New(log_messages.NoWorkerConfigured))
		return response
	}

	lockKey := consts.ComplianceSweepLockKeyPrefix + response.AsOf
	held, err := cs.acquire(ctx, lockKey, asOf)
	if err != nil {
		response.SetError(err)
		return response
	}
	if !held {
		logger.CtxInfo(ctx, log_messages.ComplianceSweepAlreadyRan, zap.String("lockKey", lockKey))
		response.Message = log_messages.ComplianceSweepAlreadyRan
		return response
	}

	ctx, span := otel.StartSpan(ctx, "compliance.Sweep")
	defer span.End()

	overdue, err := cs.loans.FindOverdueLoans(ctx, asOf)
	if err != nil {
		span.RecordError(err)
		cs.release(ctx, lockKey)
		response.SetError(fmt.Errorf("finding overdue loans: %w", err))
		return response
	}
	response.Scanned = len(overdue)
	span.SetAttributes(attribute.Int("compliance.overdue", len(overdue)))
	logger.CtxInfo(ctx, log_messages.ComplianceSweepStarted,
		zap.String("asOf", response.AsOf),
		zap.Int("overdue", len(overdue)),
		zap.Int("workers", cs.workerConfig.WorkerCount))

	loanChan, wg, resultsDone, closeResults := cs.setupChannelsAndWorkers(ctx, asOf, response)
feed:
	for _, loan := range overdue {
		select {
		case loanChan <- loan:
		case <-ctx.Done():
			break feed
		}
	}
	close(loanChan)
	wg.Wait()
	closeResults()
	<-resultsDone

	response.Message = log_messages.ComplianceSweepCompleted
	logger.CtxInfo(ctx, log_messages.ComplianceSweepCompleted,
		zap.String("asOf", response.AsOf),
		zap.Int("penalized", len(response.PenalizedIDs)),
		zap.Int("defaulted", len(response.DefaultedIDs)),
		zap.Int("failed", len(response.FailedIDs)))
	return response
}

func (cs *ComplianceService) acquire(ctx context.Context, key string, asOf time.Time) (bool, error) {
	if cs.lock == nil {
		return true, nil
	}
	ok, err := cs.lock.SetNX(ctx, key, asOf.Format(time.RFC3339), cs.workerConfig.LockTTL)
	if err != nil {
		return false, fmt.Errorf("acquiring sweep lock %s: %w", key, err)
	}
	return ok, nil
}

func (cs *ComplianceService) release(ctx context.Context, key string) {
	if cs.lock == nil {
		return
	}
	if err := cs.lock.Delete(ctx, key); err != nil {
		logger.CtxError(ctx, log_messages.ComplianceSweepLockReleaseFailed, err, zap.String("lockKey", key))
	}
}

func (cs *ComplianceService) setupChannelsAndWorkers(
	ctx context.Context,
	asOf time.Time,
	response *SweepResponse,
) (chan storemodels.Loan, *sync.WaitGroup, chan struct{}, func()) {
	bufferSize := cs.workerConfig.BufferSize

	loanChan := make(chan storemodels.Loan, bufferSize)
	penalizedChan := make(chan string, bufferSize)
	defaultedChan := make(chan string, bufferSize)
	failedChan := make(chan string, bufferSize)
	errorChan := make(chan error, bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < cs.workerConfig.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cs.processLoansWorker(ctx, asOf, loanChan, penalizedChan, defaultedChan, failedChan, errorChan)
		}()
	}

	resultsDone := make(chan struct{})
	go cs.collectResults(response, penalizedChan, defaultedChan, failedChan, errorChan, resultsDone)

	closeResults := func() {
		close(penalizedChan)
		close(defaultedChan)
		close(failedChan)
		close(errorChan)
	}
	return loanChan, &wg, resultsDone, closeResults
}

func (cs *ComplianceService) processLoansWorker(
	ctx context.Context,
	asOf time.Time,
	loanChan <-chan storemodels.Loan,
	penalizedChan, defaultedChan, failedChan chan<- string,
	errorChan chan<- error,
) {
	for loan := range loanChan {
		id := loan.ID.Hex()
		result, err := cs.processLoan(ctx, loan.ID, asOf)
		if err != nil {
			logger.CtxError(ctx, log_messages.ComplianceSweepItemFailed, err, zap.String("loanId", id))
			failedChan <- id
			select {
			case errorChan <- fmt.Errorf("loan %s: %w", id, err):
			default:
				logger.CtxError(ctx, log_messages.ErrorChannelFullLoggingInstead, err, zap.String("loanId", id))
			}
			continue
		}
		switch result {
		case outcomeDefaulted:
			defaultedChan <- id
		case outcomePenalized:
			penalizedChan <- id
		}
	}
}

// processLoan defaults a loan past the default window and otherwise tries the
// one-time penalty.
func (cs *ComplianceService) processLoan(ctx context.Context, loanID primitive.ObjectID, asOf time.Time) (outcome, error) {
	ctx, span := otel.StartSpan(ctx, "compliance.processLoan")
	defer span.End()
	span.SetAttributes(attribute.String("loan.id", loanID.Hex()))

	defaulted, err := cs.loans.MarkDefault(ctx, loanID, asOf)
	if err != nil {
		span.RecordError(err)
		return outcomeNone, err
	}
	if defaulted {
		return outcomeDefaulted, nil
	}

	penalized, err := cs.loans.ApplyPenalty(ctx, loanID, asOf)
	if err != nil {
		span.RecordError(err)
		return outcomeNone, err
	}
	if penalized {
		return outcomePenalized, nil
	}
	return outcomeNone, nil
}

func (cs *ComplianceService) collectResults(
	response *SweepResponse,
	penalizedChan, defaultedChan, failedChan chan string,
	errorChan chan error,
	resultsDone chan struct{},
) {
	defer close(resultsDone)

	closedCount := 0
	const totalChannels = 4

	for closedCount < totalChannels {
		select {
		case id, ok := <-penalizedChan:
			if !ok {
				penalizedChan = nil
				closedCount++
				continue
			}
			response.PenalizedIDs = append(response.PenalizedIDs, id)

		case id, ok := <-defaultedChan:
			if !ok {
				defaultedChan = nil
				closedCount++
				continue
			}
			response.DefaultedIDs = append(response.DefaultedIDs, id)

		case id, ok := <-failedChan:
			if !ok {
				failedChan = nil
				closedCount++
				continue
			}
			response.FailedIDs = append(response.FailedIDs, id)

		case err, ok := <-errorChan:
			if !ok {
				errorChan = nil
				closedCount++
				continue
			}
			if response.ErrorMsg == "" {
				response.SetError(err)
			}
		}
	}
}
