package consts

const (
	MembersCollection       = "members"
	WalletsCollection       = "wallets"
	TransactionsCollection  = "transactions"
	LoansCollection         = "loans"
	GuarantorsCollection    = "guarantors"
	WithdrawalsCollection   = "withdrawal_requests"
	WelfareClaimsCollection = "welfare_claims"
)
