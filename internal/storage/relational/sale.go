package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"stockroom/internal/domain"
	"stockroom/internal/storage"
)

const saleColumns = "id, invoice_number, sale_date, total_amount, payment_method, customer_name, created_at, updated_at"

func scanSale(row rowScanner) (*domain.Sale, error) {
	sale := &domain.Sale{}
	err := row.Scan(
		&sale.ID,
		&sale.InvoiceNumber,
		scanTime{t: &sale.SaleDate},
		&sale.TotalAmount,
		&sale.PaymentMethod,
		&sale.CustomerName,
		scanTime{t: &sale.CreatedAt},
		scanTime{t: &sale.UpdatedAt},
	)
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// CreateSale commits the whole sale as one transaction: stock is checked
// and decremented with a conditional update per item, then the sale row and
// its lines are inserted. Any failure rolls everything back, so no sale
// row, line row or stock change survives a partial failure. The conditional
// update serializes concurrent sales against the same item.
func (s *Store) CreateSale(ctx context.Context, draft storage.SaleDraft) (*domain.Sale, error) {
	if err := storage.ValidateSaleDraft(draft); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, s.dialect.Rebind(`SELECT COUNT(*) FROM sales WHERE invoice_number = ?`), draft.InvoiceNumber).Scan(&exists)
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to check invoice number: %w", err))
	}
	if exists > 0 {
		return nil, storage.NewConflict("invoice number already exists")
	}

	// Quantities are merged per item and items are processed in id order so
	// two concurrent multi-line sales cannot deadlock on row locks.
	requested := make(map[int64]int, len(draft.Lines))
	for _, l := range draft.Lines {
		requested[l.ItemID] += l.Quantity
	}
	itemIDs := make([]int64, 0, len(requested))
	for id := range requested {
		itemIDs = append(itemIDs, id)
	}
	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })

	names := make(map[int64]string, len(itemIDs))
	for _, itemID := range itemIDs {
		var name string
		err := tx.QueryRowContext(ctx, s.dialect.Rebind(`SELECT name FROM items WHERE id = ?`), itemID).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.NewNotFound("item", itemID)
		}
		if err != nil {
			return nil, storage.NewInternal(fmt.Errorf("failed to load item: %w", err))
		}
		names[itemID] = name

		adj := storage.StockAdjustment{ItemID: itemID, Op: storage.StockSubtract, Quantity: requested[itemID]}
		if err := s.applyAdjustment(ctx, tx, adj); err != nil {
			return nil, err
		}
	}

	now := s.now()
	saleDate := draft.SaleDate
	if saleDate.IsZero() {
		saleDate = now
	}

	saleID, err := s.insertID(ctx, tx, `
		INSERT INTO sales (invoice_number, sale_date, total_amount, payment_method, customer_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		draft.InvoiceNumber,
		s.dialect.EncodeTime(saleDate),
		draft.TotalAmount(),
		string(draft.PaymentMethod),
		draft.CustomerName,
		s.dialect.EncodeTime(now),
		s.dialect.EncodeTime(now),
	)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return nil, storage.NewConflict("invoice number already exists")
		}
		return nil, storage.NewInternal(fmt.Errorf("failed to create sale: %w", err))
	}

	for _, l := range draft.Lines {
		_, err := tx.ExecContext(ctx, s.dialect.Rebind(`
			INSERT INTO sale_items (sale_id, item_id, item_name, quantity, unit_price, total_price)
			VALUES (?, ?, ?, ?, ?, ?)`),
			saleID, l.ItemID, names[l.ItemID], l.Quantity, l.UnitPrice, l.Total(),
		)
		if err != nil {
			return nil, storage.NewInternal(fmt.Errorf("failed to create sale line: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to commit sale: %w", err))
	}

	return s.GetSaleByID(ctx, saleID)
}

func (s *Store) GetSaleByID(ctx context.Context, id int64) (*domain.Sale, error) {
	query := s.dialect.Rebind(`SELECT ` + saleColumns + ` FROM sales WHERE id = ?`)

	sale, err := scanSale(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.NewNotFound("sale", id)
		}
		return nil, storage.NewInternal(fmt.Errorf("failed to find sale by id: %w", err))
	}

	lines, err := s.saleLines(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	sale.Items = lines[id]
	return sale, nil
}

func (s *Store) saleLines(ctx context.Context, saleIDs []int64) (map[int64][]domain.SaleItem, error) {
	out := make(map[int64][]domain.SaleItem, len(saleIDs))
	if len(saleIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(saleIDs)), ", ")
	args := make([]any, len(saleIDs))
	for i, id := range saleIDs {
		args[i] = id
	}

	query := s.dialect.Rebind(`
		SELECT id, sale_id, item_id, item_name, quantity, unit_price, total_price
		FROM sale_items
		WHERE sale_id IN (` + placeholders + `)
		ORDER BY sale_id ASC, id ASC`)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to list sale lines: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		line := domain.SaleItem{}
		err := rows.Scan(&line.ID, &line.SaleID, &line.ItemID, &line.ItemName, &line.Quantity, &line.UnitPrice, &line.TotalPrice)
		if err != nil {
			return nil, storage.NewInternal(fmt.Errorf("failed to scan sale line: %w", err))
		}
		out[line.SaleID] = append(out[line.SaleID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("error iterating sale lines: %w", err))
	}
	return out, nil
}

var saleSortColumns = map[string]string{
	"sale_date":    "sale_date",
	"total_amount": "total_amount",
	"created_at":   "created_at",
}

func (s *Store) GetSales(ctx context.Context, q storage.SaleQuery) (*storage.SalePage, error) {
	where := []string{}
	args := []any{}

	if !q.Range.From.IsZero() {
		where = append(where, "sale_date >= ?")
		args = append(args, s.dialect.EncodeTime(q.Range.From))
	}
	if !q.Range.To.IsZero() {
		where = append(where, "sale_date <= ?")
		args = append(args, s.dialect.EncodeTime(q.Range.To))
	}
	if q.PaymentMethod != "" {
		where = append(where, "payment_method = ?")
		args = append(args, string(q.PaymentMethod))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQuery := s.dialect.Rebind("SELECT COUNT(*) FROM sales " + whereClause)
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to count sales: %w", err))
	}

	sortCol, ok := saleSortColumns[q.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	order := q.SortOrder
	if order != storage.SortAsc && order != storage.SortDesc {
		order = storage.SortDesc
	}
	idOrder := "ASC"
	if order == storage.SortDesc {
		idOrder = "DESC"
	}

	page := q.Page.Normalized()
	dataQuery := s.dialect.Rebind(fmt.Sprintf(`
		SELECT %s FROM sales
		%s
		ORDER BY %s %s, id %s
		LIMIT ? OFFSET ?`, saleColumns, whereClause, sortCol, order, idOrder))
	dataArgs := append(args, page.Limit, q.Page.Offset())

	rows, err := s.db.QueryContext(ctx, dataQuery, dataArgs...)
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to list sales: %w", err))
	}
	defer rows.Close()

	sales := []domain.Sale{}
	saleIDs := []int64{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, storage.NewInternal(fmt.Errorf("failed to scan sale: %w", err))
		}
		sales = append(sales, *sale)
		saleIDs = append(saleIDs, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("error iterating sales: %w", err))
	}

	lines, err := s.saleLines(ctx, saleIDs)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].Items = lines[sales[i].ID]
	}

	return &storage.SalePage{
		Sales:      sales,
		Pagination: storage.NewPagination(q.Page, total),
	}, nil
}

// UpdateSale touches metadata only; committed lines are immutable.
func (s *Store) UpdateSale(ctx context.Context, id int64, upd storage.SaleUpdate) (*domain.Sale, error) {
	if upd.PaymentMethod != nil && !upd.PaymentMethod.Valid() {
		return nil, storage.NewValidation(storage.FieldError{Field: "payment_method", Message: "unknown payment method"})
	}

	set := []string{}
	args := []any{}
	if upd.CustomerName != nil {
		set = append(set, "customer_name = ?")
		args = append(args, *upd.CustomerName)
	}
	if upd.PaymentMethod != nil {
		set = append(set, "payment_method = ?")
		args = append(args, string(*upd.PaymentMethod))
	}
	if upd.SaleDate != nil {
		set = append(set, "sale_date = ?")
		args = append(args, s.dialect.EncodeTime(*upd.SaleDate))
	}
	if len(set) == 0 {
		return s.GetSaleByID(ctx, id)
	}

	set = append(set, "updated_at = ?")
	args = append(args, s.dialect.EncodeTime(s.now()), id)

	query := s.dialect.Rebind("UPDATE sales SET " + strings.Join(set, ", ") + " WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to update sale: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if affected == 0 {
		return nil, storage.NewNotFound("sale", id)
	}
	return s.GetSaleByID(ctx, id)
}

// DeleteSale removes the sale; its lines go with it via the cascading
// foreign key. Stock is not restored.
func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM sales WHERE id = ?`), id)
	if err != nil {
		return storage.NewInternal(fmt.Errorf("failed to delete sale: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.NewInternal(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if affected == 0 {
		return storage.NewNotFound("sale", id)
	}
	return nil
}
