package repository

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
)

// SimilarQuery describes the match window for duplicate candidates: same
// profile, same vendor (case-insensitive), same purchase date, and a total
// within Tolerance. InvoiceNumber further narrows the match when set.
type SimilarQuery struct {
	ProfileID     uuid.UUID
	VendorName    string
	PurchaseDate  string
	TotalAmount   float64
	Tolerance     float64
	InvoiceNumber string
}

type BillRepository interface {
	Insert(ctx context.Context, profileID uuid.UUID, bill *entity.Bill) (*entity.StoredBill, error)
	FindSimilar(ctx context.Context, q SimilarQuery) ([]*entity.StoredBill, error)
	ListBills(ctx context.Context, profileID uuid.UUID) ([]*entity.StoredBill, error)
}

type billRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewBillRepository(pool *pgxpool.Pool, logger *slog.Logger) BillRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &billRepository{pool: pool, logger: logger}
}

const billColumns = `id, profile_id, invoice_number, vendor_name, purchase_date, purchase_time,
	currency, payment_method, subtotal, tax_amount, total_amount,
	original_currency, original_total_amount, exchange_rate, conversion_warning, created_at`

func (r *billRepository) Insert(ctx context.Context, profileID uuid.UUID, bill *entity.Bill) (*entity.StoredBill, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error("failed to begin transaction", "error", err)
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stored := &entity.StoredBill{
		ID:        uuid.New(),
		ProfileID: profileID,
		Bill:      *bill,
		CreatedAt: time.Now().UTC(),
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bills (id, profile_id, invoice_number, vendor_name, purchase_date, purchase_time,
			currency, payment_method, subtotal, tax_amount, total_amount,
			original_currency, original_total_amount, exchange_rate, conversion_warning, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		stored.ID, profileID, bill.InvoiceNumber, bill.VendorName, bill.PurchaseDate, bill.PurchaseTime,
		bill.Currency, bill.PaymentMethod, bill.Subtotal, bill.TaxAmount, bill.TotalAmount,
		nullString(bill.OriginalCurrency), bill.OriginalTotalAmount, bill.ExchangeRate,
		nullString(bill.ConversionWarning), stored.CreatedAt)
	if err != nil {
		r.logger.Error("failed to insert bill", "vendor", bill.VendorName, "error", err)
		return nil, err
	}

	for _, item := range bill.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO bill_items (bill_id, s_no, item_name, quantity, unit_price, item_total)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			stored.ID, item.SNo, item.ItemName, math.Round(item.Quantity), item.UnitPrice, item.ItemTotal)
		if err != nil {
			r.logger.Error("failed to insert bill item", "bill_id", stored.ID, "s_no", item.SNo, "error", err)
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("failed to commit bill", "error", err)
		return nil, err
	}

	r.logger.Info("bill saved", "bill_id", stored.ID, "vendor", bill.VendorName, "total", bill.TotalAmount)
	return stored, nil
}

func (r *billRepository) FindSimilar(ctx context.Context, q SimilarQuery) ([]*entity.StoredBill, error) {
	query := `SELECT ` + billColumns + `
		FROM bills
		WHERE profile_id = $1
		  AND LOWER(vendor_name) = LOWER($2)
		  AND purchase_date = $3
		  AND ABS(total_amount - $4) <= $5`
	args := []any{q.ProfileID, q.VendorName, q.PurchaseDate, q.TotalAmount, q.Tolerance}
	if q.InvoiceNumber != "" {
		query += ` AND invoice_number = $6`
		args = append(args, q.InvoiceNumber)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query similar bills", "profile_id", q.ProfileID, "error", err)
		return nil, err
	}
	defer rows.Close()
	return scanBills(rows)
}

func (r *billRepository) ListBills(ctx context.Context, profileID uuid.UUID) ([]*entity.StoredBill, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+billColumns+`
		FROM bills WHERE profile_id = $1 ORDER BY purchase_date, created_at`, profileID)
	if err != nil {
		r.logger.Error("failed to list bills", "profile_id", profileID, "error", err)
		return nil, err
	}
	defer rows.Close()

	bills, err := scanBills(rows)
	if err != nil {
		return nil, err
	}

	for _, b := range bills {
		items, err := r.listItems(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		b.Items = items
	}
	return bills, nil
}

func (r *billRepository) listItems(ctx context.Context, billID uuid.UUID) ([]entity.LineItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT s_no, item_name, quantity, unit_price, item_total
		FROM bill_items WHERE bill_id = $1 ORDER BY s_no`, billID)
	if err != nil {
		r.logger.Error("failed to list bill items", "bill_id", billID, "error", err)
		return nil, err
	}
	defer rows.Close()

	items := make([]entity.LineItem, 0, 8)
	for rows.Next() {
		var it entity.LineItem
		if err := rows.Scan(&it.SNo, &it.ItemName, &it.Quantity, &it.UnitPrice, &it.ItemTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanBills(rows pgx.Rows) ([]*entity.StoredBill, error) {
	var bills []*entity.StoredBill
	for rows.Next() {
		b, err := scanBill(rows.Scan)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// scanBill works off a Scan func so the postgres and sqlite stores share one
// row layout.
func scanBill(scan func(dest ...any) error) (*entity.StoredBill, error) {
	var (
		b                       entity.StoredBill
		origCurrency, convWarn  *string
		origTotal, exchangeRate *float64
	)
	err := scan(&b.ID, &b.ProfileID, &b.InvoiceNumber, &b.VendorName, &b.PurchaseDate, &b.PurchaseTime,
		&b.Currency, &b.PaymentMethod, &b.Subtotal, &b.TaxAmount, &b.TotalAmount,
		&origCurrency, &origTotal, &exchangeRate, &convWarn, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	if origCurrency != nil {
		b.OriginalCurrency = *origCurrency
	}
	b.OriginalTotalAmount = origTotal
	b.ExchangeRate = exchangeRate
	if convWarn != nil {
		b.ConversionWarning = *convWarn
	}
	b.Items = []entity.LineItem{}
	return &b, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
