package model

import "time"

const (
	AttendingYes = "yes"
	AttendingNo  = "no"
)

type RSVP struct {
	ID                  int64     `db:"id" json:"id"`
	FullName            string    `db:"full_name" json:"full_name"`
	Email               *string   `db:"email" json:"email"`
	Attending           string    `db:"attending" json:"attending"`
	NumberOfGuests      int       `db:"number_of_guests" json:"number_of_guests"`
	MealPreference      *string   `db:"meal_preference" json:"meal_preference"`
	DietaryRestrictions *string   `db:"dietary_restrictions" json:"dietary_restrictions"`
	Message             *string   `db:"message" json:"message"`
	SubmittedAt         time.Time `db:"submitted_at" json:"submitted_at"`
}

// RSVPStat is one attending group of the rsvps table. Groups with no rows are
// simply not reported.
type RSVPStat struct {
	Attending   string `db:"attending" json:"attending"`
	Count       int64  `db:"count" json:"count"`
	TotalGuests int64  `db:"total_guests" json:"total_guests"`
}

type Photo struct {
	ID           int64     `db:"id" json:"id"`
	UploaderName string    `db:"uploader_name" json:"uploader_name"`
	Caption      *string   `db:"caption" json:"caption"`
	ImageURL     string    `db:"image_url" json:"image_url"`
	FileSize     *int64    `db:"file_size" json:"file_size"`
	FileType     *string   `db:"file_type" json:"file_type"`
	Approved     bool      `db:"approved" json:"approved"`
	Likes        int       `db:"likes" json:"likes"`
	UploadedAt   time.Time `db:"uploaded_at" json:"uploaded_at"`
}

type GuestbookWish struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Relationship *string   `db:"relationship" json:"relationship"`
	Message      string    `db:"message" json:"message"`
	Featured     bool      `db:"featured" json:"featured"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
