package models

import "time"

// Currency mirrors the currency ENUM. Entry fees are paid in coins, prizes
// are paid out in diamonds.
type Currency string

const (
	CurrencyCoin    Currency = "COIN"
	CurrencyDiamond Currency = "DIAMOND"
)

// TransactionType mirrors the transaction_type ENUM for the ledger entries
// this core writes.
type TransactionType string

const (
	TransactionTournamentEntry  TransactionType = "TOURNAMENT_ENTRY"
	TransactionTournamentRefund TransactionType = "TOURNAMENT_REFUND"
	TransactionTournamentPrize  TransactionType = "TOURNAMENT_PRIZE"
)

// Transaction is an append-only ledger entry tied to a balance mutation.
type Transaction struct {
	ID                int             `json:"id" db:"id"`
	UserID            int             `json:"user_id" db:"user_id"`
	Type              TransactionType `json:"transaction_type" db:"transaction_type"`
	Amount            int64           `json:"amount" db:"amount"`
	Currency          Currency        `json:"currency" db:"currency"`
	RelatedEntityID   int             `json:"related_entity_id" db:"related_entity_id"`
	RelatedEntityType string          `json:"related_entity_type" db:"related_entity_type"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}
