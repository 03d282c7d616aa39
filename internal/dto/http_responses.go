package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wb-go/wbf/ginext"

	"wedsite/internal/model"
)

const (
	InternalError     = "Service is currently unavailable. Please try again later."
	MalformedBody     = "Request body must be valid JSON"
	PayloadTooLarge   = "Request body is too large"
	Unauthorized      = "Admin authorization required"
	RouteNotFound     = "Route not found"
	DefaultCaption    = "Beautiful moment!"
	GalleryTimeLayout = "1/2/2006, 3:04:05 PM"
)

// GuestCount accepts both a JSON number and a numeric string, since the RSVP
// form posts the value of a select element.
type GuestCount int

func (g *GuestCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*g = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*g = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("numberOfGuests: %q is not a number", s)
		}
		*g = GuestCount(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("numberOfGuests: %w", err)
	}
	*g = GuestCount(n)
	return nil
}

type RSVPRequest struct {
	FullName            string     `json:"fullName" validate:"notblank,max=255"`
	Email               string     `json:"email" validate:"omitempty,email,max=255"`
	Attending           string     `json:"attending" validate:"required,oneof=yes no"`
	NumberOfGuests      GuestCount `json:"numberOfGuests" validate:"gte=0,lte=50"`
	MealPreference      string     `json:"mealPreference" validate:"max=100"`
	DietaryRestrictions string     `json:"dietaryRestrictions" validate:"max=1000"`
	Message             string     `json:"message" validate:"max=5000"`
}

type PhotoRequest struct {
	UploaderName string `json:"uploaderName" validate:"notblank,max=255"`
	Caption      string `json:"caption" validate:"max=1000"`
	ImageData    string `json:"imageData" validate:"notblank"`
}

type WishRequest struct {
	Name         string `json:"name" validate:"notblank,max=255"`
	Relationship string `json:"relationship" validate:"max=255"`
	Message      string `json:"message" validate:"notblank,max=5000"`
}

type ContactRequest struct {
	Name    string `json:"name" validate:"notblank,max=255"`
	Email   string `json:"email" validate:"notblank,email"`
	Message string `json:"message" validate:"notblank,max=5000"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type RSVPSummary struct {
	FullName    string    `json:"fullName"`
	Attending   string    `json:"attending"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type RSVPCreatedResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	RSVP    RSVPSummary `json:"rsvp"`
}

type RSVPListResponse struct {
	Success bool         `json:"success"`
	RSVPs   []model.RSVP `json:"rsvps"`
}

type StatsResponse struct {
	Success bool             `json:"success"`
	Stats   []model.RSVPStat `json:"stats"`
}

type PhotoSummary struct {
	ID           int64     `json:"id"`
	UploaderName string    `json:"uploaderName"`
	Caption      *string   `json:"caption"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

type PhotoCreatedResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Photo   PhotoSummary `json:"photo"`
}

// GalleryPhoto is the public shape of a photo.
type GalleryPhoto struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	Uploader  string `json:"uploader"`
	Caption   string `json:"caption"`
	Timestamp string `json:"timestamp"`
	Likes     int    `json:"likes"`
}

type GalleryResponse struct {
	Success bool           `json:"success"`
	Photos  []GalleryPhoto `json:"photos"`
}

type LikeResponse struct {
	Success bool `json:"success"`
	Likes   int  `json:"likes"`
}

type Wish struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship"`
	Message      string    `json:"message"`
	Featured     bool      `json:"featured"`
	Date         time.Time `json:"date"`
}

type WishCreatedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Wish    Wish   `json:"wish"`
}

type WishListResponse struct {
	Success bool   `json:"success"`
	Wishes  []Wish `json:"wishes"`
}

type AdminSnapshotResponse struct {
	Success bool             `json:"success"`
	RSVPs   []model.RSVP     `json:"rsvps"`
	Photos  []model.Photo    `json:"photos"`
	Stats   []model.RSVPStat `json:"stats"`
}

type PhotoModeratedResponse struct {
	Success bool        `json:"success"`
	Photo   model.Photo `json:"photo"`
}

type WishModeratedResponse struct {
	Success bool `json:"success"`
	Wish    Wish `json:"wish"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ToGalleryPhoto(p model.Photo, loc *time.Location) GalleryPhoto {
	caption := DefaultCaption
	if p.Caption != nil && *p.Caption != "" {
		caption = *p.Caption
	}
	if loc == nil {
		loc = time.Local
	}
	return GalleryPhoto{
		ID:        p.ID,
		URL:       p.ImageURL,
		Uploader:  p.UploaderName,
		Caption:   caption,
		Timestamp: p.UploadedAt.In(loc).Format(GalleryTimeLayout),
		Likes:     p.Likes,
	}
}

func ToWish(w model.GuestbookWish) Wish {
	var relationship string
	if w.Relationship != nil {
		relationship = *w.Relationship
	}
	return Wish{
		ID:           w.ID,
		Name:         w.Name,
		Relationship: relationship,
		Message:      w.Message,
		Featured:     w.Featured,
		Date:         w.CreatedAt,
	}
}

func errorResponse(c *ginext.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Message: message})
}

func ValidationError(c *ginext.Context, message string) {
	errorResponse(c, http.StatusBadRequest, message)
}

func NotFoundError(c *ginext.Context, message string) {
	errorResponse(c, http.StatusNotFound, message)
}

func UnauthorizedError(c *ginext.Context) {
	errorResponse(c, http.StatusUnauthorized, Unauthorized)
}

func PayloadTooLargeError(c *ginext.Context) {
	errorResponse(c, http.StatusRequestEntityTooLarge, PayloadTooLarge)
}

// InternalServerError hides the cause; callers log it before responding.
func InternalServerError(c *ginext.Context, message string) {
	if message == "" {
		message = InternalError
	}
	errorResponse(c, http.StatusInternalServerError, message)
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, data)
}
