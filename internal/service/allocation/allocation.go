// Package allocation splits an incoming deposit across fines, the welfare
// fund and savings.
package allocation

import (
	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
)

type Split struct {
	ToFines   models.Money `json:"toFines"`
	ToWelfare models.Money `json:"toWelfare"`
	ToSavings models.Money `json:"toSavings"`
}

// Allocate runs the waterfall: outstanding fines first, then the gap up to
// welfareTarget, then savings. The parts are never negative and always sum
// to incoming.
func Allocate(incoming, currentFines, currentWelfare, welfareTarget models.Money) (Split, error) {
	if incoming < 0 {
		return Split{}, models.NewValidationError("incoming amount must not be negative, got %s", incoming)
	}

	remaining := incoming
	toFines := models.MinMoney(remaining, nonNegative(currentFines))
	remaining -= toFines

	toWelfare := models.MinMoney(remaining, nonNegative(welfareTarget-currentWelfare))
	remaining -= toWelfare

	return Split{ToFines: toFines, ToWelfare: toWelfare, ToSavings: remaining}, nil
}

// Delta is the wallet change that books the split.
func (s Split) Delta() storemodels.WalletDelta {
	return storemodels.WalletDelta{
		Savings: s.ToSavings,
		Welfare: s.ToWelfare,
		Fines:   -s.ToFines,
	}
}

// Metadata is the breakdown stored on the journal entry.
func (s Split) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"toFines":   int64(s.ToFines),
		"toWelfare": int64(s.ToWelfare),
		"toSavings": int64(s.ToSavings),
	}
}

func nonNegative(m models.Money) models.Money {
	if m < 0 {
		return 0
	}
	return m
}
