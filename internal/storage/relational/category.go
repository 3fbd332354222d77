package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stockroom/internal/domain"
	"stockroom/internal/storage"
)

func scanCategory(row rowScanner) (*domain.Category, error) {
	cat := &domain.Category{}
	if err := row.Scan(&cat.ID, &cat.Name, scanTime{t: &cat.CreatedAt}); err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	if err := storage.ValidateCategoryName(name); err != nil {
		return nil, err
	}

	query := `INSERT INTO categories (name, created_at) VALUES (?, ?)`
	id, err := s.insertID(ctx, s.db, query, name, s.dialect.EncodeTime(s.now()))
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return nil, storage.NewConflict("category name already exists")
		}
		return nil, storage.NewInternal(fmt.Errorf("failed to create category: %w", err))
	}
	return s.GetCategoryByID(ctx, id)
}

func (s *Store) GetCategories(ctx context.Context) ([]domain.Category, error) {
	query := s.dialect.Rebind(`
		SELECT id, name, created_at FROM categories
		ORDER BY LOWER(name) ASC, id ASC`)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to list categories: %w", err))
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, storage.NewInternal(fmt.Errorf("failed to scan category: %w", err))
		}
		categories = append(categories, *cat)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("error iterating categories: %w", err))
	}
	return categories, nil
}

func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := s.dialect.Rebind(`SELECT id, name, created_at FROM categories WHERE id = ?`)

	cat, err := scanCategory(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.NewNotFound("category", id)
		}
		return nil, storage.NewInternal(fmt.Errorf("failed to find category by id: %w", err))
	}
	return cat, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	if err := storage.ValidateCategoryName(name); err != nil {
		return nil, err
	}

	query := s.dialect.Rebind(`UPDATE categories SET name = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, name, id)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return nil, storage.NewConflict("category name already exists")
		}
		return nil, storage.NewInternal(fmt.Errorf("failed to update category: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if affected == 0 {
		return nil, storage.NewNotFound("category", id)
	}
	return s.GetCategoryByID(ctx, id)
}

// DeleteCategory refuses to remove a category that items still reference,
// counting references with the same case-insensitive match used for
// filtering.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	cat, err := s.GetCategoryByID(ctx, id)
	if err != nil {
		return err
	}

	var referencing int
	countQuery := s.dialect.Rebind(`SELECT COUNT(*) FROM items WHERE LOWER(category) = LOWER(?)`)
	if err := s.db.QueryRowContext(ctx, countQuery, cat.Name).Scan(&referencing); err != nil {
		return storage.NewInternal(fmt.Errorf("failed to count referencing items: %w", err))
	}
	if referencing > 0 {
		return storage.NewConflict("category is referenced by existing items")
	}

	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM categories WHERE id = ?`), id)
	if err != nil {
		return storage.NewInternal(fmt.Errorf("failed to delete category: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storage.NewInternal(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if affected == 0 {
		return storage.NewNotFound("category", id)
	}
	return nil
}
