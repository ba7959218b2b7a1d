package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safak-senal-61/websachat-arena/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientCoins = errors.New("coin balance is insufficient")
)

// WalletRepository mutates user balances and appends the matching ledger
// rows. Debits are conditional on the balance covering the amount, so the
// balance check and the decrement cannot race apart.
type WalletRepository interface {
	GetUser(ctx context.Context, exec SQLExecutor, id int) (*models.User, error)
	DebitCoins(ctx context.Context, exec SQLExecutor, userID int, amount int64) error
	CreditCoins(ctx context.Context, exec SQLExecutor, userID int, amount int64) error
	CreditDiamonds(ctx context.Context, exec SQLExecutor, userID int, amount int64) error
	AppendTransaction(ctx context.Context, exec SQLExecutor, tx *models.Transaction) error
}

type postgresWalletRepository struct {
	db *sql.DB
}

func NewPostgresWalletRepository(db *sql.DB) WalletRepository {
	return &postgresWalletRepository{db: db}
}

func (r *postgresWalletRepository) GetUser(ctx context.Context, exec SQLExecutor, id int) (*models.User, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT id, username, coins, diamonds FROM users WHERE id = $1`

	u := &models.User{}
	err := exec.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.Coins, &u.Diamonds)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user %d: %w", id, err)
	}
	return u, nil
}

func (r *postgresWalletRepository) DebitCoins(ctx context.Context, exec SQLExecutor, userID int, amount int64) error {
	query := `UPDATE users SET coins = coins - $1 WHERE id = $2 AND coins >= $1`
	result, err := exec.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to debit coins from user %d: %w", userID, err)
	}
	return checkAffectedRows(result, ErrInsufficientCoins)
}

func (r *postgresWalletRepository) CreditCoins(ctx context.Context, exec SQLExecutor, userID int, amount int64) error {
	query := `UPDATE users SET coins = coins + $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to credit coins to user %d: %w", userID, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresWalletRepository) CreditDiamonds(ctx context.Context, exec SQLExecutor, userID int, amount int64) error {
	query := `UPDATE users SET diamonds = diamonds + $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to credit diamonds to user %d: %w", userID, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresWalletRepository) AppendTransaction(ctx context.Context, exec SQLExecutor, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions
			(user_id, transaction_type, amount, currency, related_entity_id, related_entity_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		tx.UserID, tx.Type, tx.Amount, tx.Currency, tx.RelatedEntityID, tx.RelatedEntityType,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger transaction: %w", err)
	}
	return nil
}
