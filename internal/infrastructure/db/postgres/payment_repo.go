package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/jmoiron/sqlx"
)

const (
	insertPayment = `INSERT INTO payment (id, amount, fee, timestamp, status, payment_type, invoice, description)
VALUES (:id, :amount, :fee, :timestamp, :status, :payment_type, :invoice, :description)`

	selectPayment = `SELECT id, amount, fee, timestamp, status, payment_type, invoice, description FROM payment`
)

type paymentRow struct {
	Id          string `db:"id"`
	Amount      int64  `db:"amount"`
	Fee         int64  `db:"fee"`
	Timestamp   int64  `db:"timestamp"`
	Status      int    `db:"status"`
	PaymentType int    `db:"payment_type"`
	Invoice     string `db:"invoice"`
	Description string `db:"description"`
}

func (p paymentRow) toDomain() domain.Payment {
	return domain.Payment{
		Id:          p.Id,
		Amount:      p.Amount,
		Fee:         p.Fee,
		Timestamp:   p.Timestamp,
		Status:      domain.PaymentStatus(p.Status),
		Type:        domain.PaymentType(p.PaymentType),
		Invoice:     p.Invoice,
		Description: p.Description,
	}
}

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) (domain.PaymentRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("cannot open payment repository: db is nil")
	}
	return &paymentRepository{db}, nil
}

func (r *paymentRepository) Add(ctx context.Context, payment domain.Payment) error {
	if _, err := r.db.NamedExecContext(ctx, insertPayment, paymentRow{
		Id:          payment.Id,
		Amount:      payment.Amount,
		Fee:         payment.Fee,
		Timestamp:   payment.Timestamp,
		Status:      int(payment.Status),
		PaymentType: int(payment.Type),
		Invoice:     payment.Invoice,
		Description: payment.Description,
	}); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("payment %s already exists", payment.Id)
		}
		return fmt.Errorf("failed to insert payment: %s", err)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, paymentId string) (*domain.Payment, error) {
	var row paymentRow
	if err := r.db.GetContext(ctx, &row, selectPayment+` WHERE id = $1`, paymentId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment %s not found", paymentId)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	payment := row.toDomain()
	return &payment, nil
}

// GetAll returns the stored payments, newest first.
func (r *paymentRepository) GetAll(ctx context.Context) ([]domain.Payment, error) {
	var rows []paymentRow
	if err := r.db.SelectContext(
		ctx, &rows, selectPayment+` ORDER BY timestamp DESC, id DESC`,
	); err != nil {
		return nil, fmt.Errorf("failed to get all payments: %w", err)
	}

	payments := make([]domain.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toDomain())
	}
	return payments, nil
}

func (r *paymentRepository) Close() {
	// nolint:all
	r.db.Close()
}
