package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedsite/internal/model"
)

func TestGuestCountUnmarshal(t *testing.T) {
	for in, want := range map[string]GuestCount{
		`3`:     3,
		`"4"`:   4,
		`" 2 "`: 2,
		`""`:    0,
		`null`:  0,
	} {
		var req RSVPRequest
		require.NoError(t, json.Unmarshal([]byte(`{"numberOfGuests":`+in+`}`), &req), in)
		assert.Equal(t, want, req.NumberOfGuests, in)
	}

	for _, in := range []string{`"two"`, `2.5`, `true`} {
		var req RSVPRequest
		assert.Error(t, json.Unmarshal([]byte(`{"numberOfGuests":`+in+`}`), &req), in)
	}
}

func TestToGalleryPhoto(t *testing.T) {
	uploaded := time.Date(2026, 2, 25, 7, 5, 9, 0, time.UTC)
	p := model.Photo{ID: 9, UploaderName: "Lola", ImageURL: "https://img/9.jpg", Likes: 4, UploadedAt: uploaded}

	got := ToGalleryPhoto(p, time.UTC)
	assert.Equal(t, GalleryPhoto{
		ID:        9,
		URL:       "https://img/9.jpg",
		Uploader:  "Lola",
		Caption:   DefaultCaption,
		Timestamp: "2/25/2026, 7:05:09 AM",
		Likes:     4,
	}, got)

	empty := ""
	p.Caption = &empty
	assert.Equal(t, DefaultCaption, ToGalleryPhoto(p, time.UTC).Caption)

	caption := "cake!"
	p.Caption = &caption
	assert.Equal(t, "cake!", ToGalleryPhoto(p, time.UTC).Caption)

	east := time.FixedZone("UTC+8", 8*60*60)
	assert.Equal(t, "2/25/2026, 3:05:09 PM", ToGalleryPhoto(p, east).Timestamp)
}

func TestToWish(t *testing.T) {
	w := ToWish(model.GuestbookWish{ID: 1, Name: "Bea", Message: "Congrats"})
	assert.Equal(t, "", w.Relationship)

	rel := "cousin"
	w = ToWish(model.GuestbookWish{ID: 1, Name: "Bea", Relationship: &rel, Message: "Congrats", Featured: true})
	assert.Equal(t, "cousin", w.Relationship)
	assert.True(t, w.Featured)
}
