package repo

import (
	"context"
	"fmt"
	"time"

	"wedsite/internal/model"
)

const photoColumns = `id, uploader_name, caption, image_url, file_size, file_type,
	approved, likes, uploaded_at`

func scanPhoto(s interface{ Scan(...any) error }, p *model.Photo) error {
	return s.Scan(
		&p.ID,
		&p.UploaderName,
		&p.Caption,
		&p.ImageURL,
		&p.FileSize,
		&p.FileType,
		&p.Approved,
		&p.Likes,
		&p.UploadedAt,
	)
}

func (r *repository) CreatePhoto(ctx context.Context, in *model.Photo) (*model.Photo, error) {
	defer r.observe("create_photo", time.Now())

	query := `
		INSERT INTO photos (uploader_name, caption, image_url, file_size, file_type, approved)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING ` + photoColumns

	row := r.master.QueryRowContext(ctx, query,
		in.UploaderName, in.Caption, in.ImageURL, in.FileSize, in.FileType,
	)

	var out model.Photo
	if err := scanPhoto(row, &out); err != nil {
		return nil, fmt.Errorf("failed to insert photo: %w", err)
	}
	return &out, nil
}

func (r *repository) GetPhotos(ctx context.Context, approvedOnly bool) ([]model.Photo, error) {
	defer r.observe("get_photos", time.Now())

	query := `SELECT ` + photoColumns + ` FROM photos`
	if approvedOnly {
		query += ` WHERE approved = TRUE`
	}
	query += ` ORDER BY uploaded_at DESC, id DESC`

	rows, err := r.reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get photos: %w", err)
	}
	defer rows.Close()

	photos := make([]model.Photo, 0)
	for rows.Next() {
		var p model.Photo
		if err := scanPhoto(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate photos: %w", err)
	}
	return photos, nil
}

// LikePhoto increments in a single statement so concurrent likes never lose
// an update.
func (r *repository) LikePhoto(ctx context.Context, id int64) (*model.Photo, error) {
	defer r.observe("like_photo", time.Now())

	query := `UPDATE photos SET likes = likes + 1 WHERE id = $1 RETURNING ` + photoColumns

	var p model.Photo
	if err := scanPhoto(r.master.QueryRowContext(ctx, query, id), &p); err != nil {
		if err = notFound(err); err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to like photo %d: %w", id, err)
	}
	return &p, nil
}

func (r *repository) SetPhotoApproval(ctx context.Context, id int64, approved bool) (*model.Photo, error) {
	defer r.observe("set_photo_approval", time.Now())

	query := `UPDATE photos SET approved = $2 WHERE id = $1 RETURNING ` + photoColumns

	var p model.Photo
	if err := scanPhoto(r.master.QueryRowContext(ctx, query, id, approved), &p); err != nil {
		if err = notFound(err); err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update photo %d: %w", id, err)
	}
	return &p, nil
}

func (r *repository) DeletePhoto(ctx context.Context, id int64) error {
	defer r.observe("delete_photo", time.Now())

	res, err := r.master.ExecContext(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo %d: %w", id, err)
	}
	return checkAffected(res)
}
