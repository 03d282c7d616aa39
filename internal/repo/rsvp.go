package repo

import (
	"context"
	"fmt"
	"time"

	"wedsite/internal/model"
)

const rsvpColumns = `id, full_name, email, attending, number_of_guests,
	meal_preference, dietary_restrictions, message, submitted_at`

func scanRSVP(s interface{ Scan(...any) error }, rsvp *model.RSVP) error {
	return s.Scan(
		&rsvp.ID,
		&rsvp.FullName,
		&rsvp.Email,
		&rsvp.Attending,
		&rsvp.NumberOfGuests,
		&rsvp.MealPreference,
		&rsvp.DietaryRestrictions,
		&rsvp.Message,
		&rsvp.SubmittedAt,
	)
}

func (r *repository) CreateRSVP(ctx context.Context, in *model.RSVP) (*model.RSVP, error) {
	defer r.observe("create_rsvp", time.Now())

	query := `
		INSERT INTO rsvps (full_name, email, attending, number_of_guests,
		                   meal_preference, dietary_restrictions, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + rsvpColumns

	row := r.master.QueryRowContext(ctx, query,
		in.FullName, in.Email, in.Attending, in.NumberOfGuests,
		in.MealPreference, in.DietaryRestrictions, in.Message,
	)

	var out model.RSVP
	if err := scanRSVP(row, &out); err != nil {
		return nil, fmt.Errorf("failed to insert rsvp: %w", err)
	}
	return &out, nil
}

func (r *repository) GetAllRSVPs(ctx context.Context) ([]model.RSVP, error) {
	defer r.observe("get_rsvps", time.Now())

	query := `SELECT ` + rsvpColumns + ` FROM rsvps ORDER BY submitted_at DESC, id DESC`

	rows, err := r.reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get rsvps: %w", err)
	}
	defer rows.Close()

	rsvps := make([]model.RSVP, 0)
	for rows.Next() {
		var rsvp model.RSVP
		if err := scanRSVP(rows, &rsvp); err != nil {
			return nil, fmt.Errorf("failed to scan rsvp: %w", err)
		}
		rsvps = append(rsvps, rsvp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rsvps: %w", err)
	}
	return rsvps, nil
}

func (r *repository) GetRSVPStats(ctx context.Context) ([]model.RSVPStat, error) {
	defer r.observe("get_rsvp_stats", time.Now())

	query := `
		SELECT attending, COUNT(*) AS count, COALESCE(SUM(number_of_guests), 0) AS total_guests
		FROM rsvps
		GROUP BY attending
		ORDER BY attending
	`

	rows, err := r.reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get rsvp stats: %w", err)
	}
	defer rows.Close()

	stats := make([]model.RSVPStat, 0, 2)
	for rows.Next() {
		var s model.RSVPStat
		if err := rows.Scan(&s.Attending, &s.Count, &s.TotalGuests); err != nil {
			return nil, fmt.Errorf("failed to scan rsvp stat: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rsvp stats: %w", err)
	}
	return stats, nil
}
