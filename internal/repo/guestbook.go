package repo

import (
	"context"
	"fmt"
	"time"

	"wedsite/internal/model"
)

const wishColumns = `id, name, relationship, message, featured, created_at`

func scanWish(s interface{ Scan(...any) error }, w *model.GuestbookWish) error {
	return s.Scan(&w.ID, &w.Name, &w.Relationship, &w.Message, &w.Featured, &w.CreatedAt)
}

func (r *repository) CreateWish(ctx context.Context, in *model.GuestbookWish) (*model.GuestbookWish, error) {
	defer r.observe("create_wish", time.Now())

	query := `
		INSERT INTO guestbook_wishes (name, relationship, message)
		VALUES ($1, $2, $3)
		RETURNING ` + wishColumns

	var out model.GuestbookWish
	if err := scanWish(r.master.QueryRowContext(ctx, query, in.Name, in.Relationship, in.Message), &out); err != nil {
		return nil, fmt.Errorf("failed to insert wish: %w", err)
	}
	return &out, nil
}

func (r *repository) GetAllWishes(ctx context.Context) ([]model.GuestbookWish, error) {
	return r.listWishes(ctx, "get_wishes",
		`SELECT `+wishColumns+` FROM guestbook_wishes ORDER BY created_at DESC, id DESC`)
}

func (r *repository) GetFeaturedWishes(ctx context.Context) ([]model.GuestbookWish, error) {
	return r.listWishes(ctx, "get_featured_wishes",
		`SELECT `+wishColumns+` FROM guestbook_wishes WHERE featured = TRUE ORDER BY created_at DESC, id DESC`)
}

func (r *repository) listWishes(ctx context.Context, op, query string) ([]model.GuestbookWish, error) {
	defer r.observe(op, time.Now())

	rows, err := r.reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishes: %w", err)
	}
	defer rows.Close()

	wishes := make([]model.GuestbookWish, 0)
	for rows.Next() {
		var w model.GuestbookWish
		if err := scanWish(rows, &w); err != nil {
			return nil, fmt.Errorf("failed to scan wish: %w", err)
		}
		wishes = append(wishes, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wishes: %w", err)
	}
	return wishes, nil
}

func (r *repository) ToggleWishFeatured(ctx context.Context, id int64) (*model.GuestbookWish, error) {
	defer r.observe("toggle_wish_featured", time.Now())

	query := `UPDATE guestbook_wishes SET featured = NOT featured WHERE id = $1 RETURNING ` + wishColumns

	var w model.GuestbookWish
	if err := scanWish(r.master.QueryRowContext(ctx, query, id), &w); err != nil {
		if err = notFound(err); err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to toggle wish %d: %w", id, err)
	}
	return &w, nil
}

func (r *repository) DeleteWish(ctx context.Context, id int64) error {
	defer r.observe("delete_wish", time.Now())

	res, err := r.master.ExecContext(ctx, `DELETE FROM guestbook_wishes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete wish %d: %w", id, err)
	}
	return checkAffected(res)
}
