package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"stockroom/internal/domain"
	"stockroom/internal/storage"
)

const itemColumns = "id, name, item_code, price, stock_quantity, low_stock_threshold, category, expiry_date, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	item := &domain.Item{}
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.ItemCode,
		&item.Price,
		&item.StockQuantity,
		&item.LowStockThreshold,
		&item.Category,
		scanNullTime{t: &item.ExpiryDate},
		scanTime{t: &item.CreatedAt},
		scanTime{t: &item.UpdatedAt},
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) CreateItem(ctx context.Context, in storage.ItemInput) (*domain.Item, error) {
	if err := storage.ValidateItemInput(in); err != nil {
		return nil, err
	}

	threshold := domain.DefaultLowStockThreshold
	if in.LowStockThreshold != nil {
		threshold = *in.LowStockThreshold
	}
	now := s.now()

	query := `
		INSERT INTO items (name, item_code, price, stock_quantity, low_stock_threshold, category, expiry_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := s.insertID(ctx, s.db, query,
		in.Name,
		in.ItemCode,
		in.Price,
		in.StockQuantity,
		threshold,
		in.Category,
		s.dialect.EncodeNullTime(in.ExpiryDate),
		s.dialect.EncodeTime(now),
		s.dialect.EncodeTime(now),
	)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return nil, storage.NewConflict("item code already exists")
		}
		return nil, storage.NewInternal(fmt.Errorf("failed to create item: %w", err))
	}

	return s.GetItemByID(ctx, id)
}

func (s *Store) GetItemByID(ctx context.Context, id int64) (*domain.Item, error) {
	query := s.dialect.Rebind(`SELECT ` + itemColumns + ` FROM items WHERE id = ?`)

	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.NewNotFound("item", id)
		}
		return nil, storage.NewInternal(fmt.Errorf("failed to find item by id: %w", err))
	}
	return item, nil
}

// likeEscaper neutralizes LIKE metacharacters so search text matches
// literally, the same way the in-memory store's substring match does.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// itemSortColumns whitelists sortable columns so sort input can never reach
// the query as raw SQL.
var itemSortColumns = map[string]string{
	"name":           "LOWER(name)",
	"price":          "price",
	"stock_quantity": "stock_quantity",
	"created_at":     "created_at",
}

func (s *Store) GetItems(ctx context.Context, q storage.ItemQuery) (*storage.ItemPage, error) {
	where := []string{}
	args := []any{}

	if q.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		where = append(where, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(item_code) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if q.Category != "" {
		where = append(where, "LOWER(category) = LOWER(?)")
		args = append(args, q.Category)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	// The COUNT predicate is identical to the data predicate so TotalPages
	// always agrees with the returned page.
	countQuery := s.dialect.Rebind("SELECT COUNT(*) FROM items " + whereClause)
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to count items: %w", err))
	}

	sortCol, ok := itemSortColumns[q.SortBy]
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
		SELECT %s FROM items
		%s
		ORDER BY %s %s, id %s
		LIMIT ? OFFSET ?`, itemColumns, whereClause, sortCol, order, idOrder))
	dataArgs := append(args, page.Limit, q.Page.Offset())

	rows, err := s.db.QueryContext(ctx, dataQuery, dataArgs...)
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to list items: %w", err))
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storage.NewInternal(fmt.Errorf("failed to scan item: %w", err))
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("error iterating items: %w", err))
	}

	return &storage.ItemPage{
		Items:      items,
		Pagination: storage.NewPagination(q.Page, total),
	}, nil
}

func (s *Store) SearchItems(ctx context.Context, text string, page storage.PageRequest) (*storage.ItemPage, error) {
	return s.GetItems(ctx, storage.ItemQuery{
		Search:    text,
		SortBy:    "name",
		SortOrder: storage.SortAsc,
		Page:      page,
	})
}

func (s *Store) UpdateItem(ctx context.Context, id int64, upd storage.ItemUpdate) (*domain.Item, error) {
	if err := storage.ValidateItemUpdate(upd); err != nil {
		return nil, err
	}

	set := []string{}
	args := []any{}
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.ItemCode != nil {
		add("item_code", *upd.ItemCode)
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.StockQuantity != nil {
		add("stock_quantity", *upd.StockQuantity)
	}
	if upd.LowStockThreshold != nil {
		add("low_stock_threshold", *upd.LowStockThreshold)
	}
	if upd.Category != nil {
		add("category", *upd.Category)
	}
	if upd.ClearExpiry {
		add("expiry_date", nil)
	} else if upd.ExpiryDate != nil {
		add("expiry_date", s.dialect.EncodeNullTime(upd.ExpiryDate))
	}

	if len(set) == 0 {
		return s.GetItemByID(ctx, id)
	}
	add("updated_at", s.dialect.EncodeTime(s.now()))
	args = append(args, id)

	query := s.dialect.Rebind("UPDATE items SET " + strings.Join(set, ", ") + " WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return nil, storage.NewConflict("item code already exists")
		}
		return nil, storage.NewInternal(fmt.Errorf("failed to update item: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if affected == 0 {
		return nil, storage.NewNotFound("item", id)
	}

	return s.GetItemByID(ctx, id)
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM items WHERE id = ?`), id)
	if err != nil {
		return storage.NewInternal(fmt.Errorf("failed to delete item: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.NewInternal(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if affected == 0 {
		return storage.NewNotFound("item", id)
	}
	return nil
}

func (s *Store) UpdateStock(ctx context.Context, id int64, op storage.StockOp, quantity int) (*domain.Item, error) {
	adj := storage.StockAdjustment{ItemID: id, Op: op, Quantity: quantity}
	if err := storage.ValidateStockAdjustment(adj); err != nil {
		return nil, err
	}

	if err := s.applyAdjustment(ctx, s.db, adj); err != nil {
		return nil, err
	}
	return s.GetItemByID(ctx, id)
}

// applyAdjustment mutates stock atomically. Subtract uses a conditional
// update so a concurrent writer can never drive stock below zero.
func (s *Store) applyAdjustment(ctx context.Context, q querier, adj storage.StockAdjustment) error {
	now := s.dialect.EncodeTime(s.now())

	var query string
	var args []any
	switch adj.Op {
	case storage.StockSet:
		query = `UPDATE items SET stock_quantity = ?, updated_at = ? WHERE id = ?`
		args = []any{adj.Quantity, now, adj.ItemID}
	case storage.StockAdd:
		query = `UPDATE items SET stock_quantity = stock_quantity + ?, updated_at = ? WHERE id = ?`
		args = []any{adj.Quantity, now, adj.ItemID}
	case storage.StockSubtract:
		query = `UPDATE items SET stock_quantity = stock_quantity - ?, updated_at = ? WHERE id = ? AND stock_quantity >= ?`
		args = []any{adj.Quantity, now, adj.ItemID, adj.Quantity}
	}

	res, err := q.ExecContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return storage.NewInternal(fmt.Errorf("failed to update stock: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.NewInternal(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if affected > 0 {
		return nil
	}

	// Zero rows: either the item is missing or the conditional subtract
	// found too little stock. Re-read to tell the two apart.
	var available int
	err = q.QueryRowContext(ctx, s.dialect.Rebind(`SELECT stock_quantity FROM items WHERE id = ?`), adj.ItemID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.NewNotFound("item", adj.ItemID)
	}
	if err != nil {
		return storage.NewInternal(fmt.Errorf("failed to read stock: %w", err))
	}
	return storage.NewInsufficientStock(adj.ItemID, available, adj.Quantity)
}

// BulkUpdateStock applies all adjustments in one transaction; any failure
// rolls the whole batch back.
func (s *Store) BulkUpdateStock(ctx context.Context, adjustments []storage.StockAdjustment) error {
	for _, adj := range adjustments {
		if err := storage.ValidateStockAdjustment(adj); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.NewInternal(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	for _, adj := range adjustments {
		if err := s.applyAdjustment(ctx, tx, adj); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.NewInternal(fmt.Errorf("failed to commit stock update: %w", err))
	}
	return nil
}

// The low/out-of-stock filters run in the engine so the whole items table
// never has to be loaded into memory.

func (s *Store) GetLowStockItems(ctx context.Context) ([]domain.Item, error) {
	query := s.dialect.Rebind(`
		SELECT ` + itemColumns + ` FROM items
		WHERE stock_quantity > 0 AND stock_quantity <= low_stock_threshold
		ORDER BY LOWER(name) ASC, id ASC`)
	return s.listItems(ctx, query)
}

func (s *Store) GetOutOfStockItems(ctx context.Context) ([]domain.Item, error) {
	query := s.dialect.Rebind(`
		SELECT ` + itemColumns + ` FROM items
		WHERE stock_quantity = 0
		ORDER BY LOWER(name) ASC, id ASC`)
	return s.listItems(ctx, query)
}

func (s *Store) listItems(ctx context.Context, query string, args ...any) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to list items: %w", err))
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storage.NewInternal(fmt.Errorf("failed to scan item: %w", err))
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("error iterating items: %w", err))
	}
	return items, nil
}
