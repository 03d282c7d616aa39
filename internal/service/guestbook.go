package service

import (
	"strings"

	"github.com/wb-go/wbf/ginext"

	"wedsite/internal/dto"
	"wedsite/internal/metrics"
	"wedsite/internal/model"
)

const msgWishRequired = "Name and message are required"

func (s *service) SubmitWish(c *ginext.Context) {
	var req dto.WishRequest
	if !s.bind(c, "guestbook", &req, msgWishRequired) {
		return
	}

	created, err := s.repo.CreateWish(c.Request.Context(), &model.GuestbookWish{
		Name:         strings.TrimSpace(req.Name),
		Relationship: nilIfBlank(req.Relationship),
		Message:      strings.TrimSpace(req.Message),
	})
	if err != nil {
		metrics.Submission("guestbook", metrics.OutcomeError)
		s.internalError(c, err, "create_wish", "Error submitting wish. Please try again.")
		return
	}
	metrics.Submission("guestbook", metrics.OutcomeOK)

	dto.SuccessResponse(c, dto.WishCreatedResponse{
		Success: true,
		Message: "Wish submitted successfully!",
		Wish:    dto.ToWish(*created),
	})
}

// ListWishes returns every wish newest first. With ?layout=wall featured
// wishes are moved to the end, which is how the guestbook wall renders them.
func (s *service) ListWishes(c *ginext.Context) {
	wishes, err := s.repo.GetAllWishes(c.Request.Context())
	if err != nil {
		s.internalError(c, err, "get_wishes", "Error fetching guestbook wishes")
		return
	}
	if c.Query("layout") == "wall" {
		wishes = wallOrder(wishes)
	}
	dto.SuccessResponse(c, dto.WishListResponse{Success: true, Wishes: toWishes(wishes)})
}

func (s *service) FeaturedWishes(c *ginext.Context) {
	wishes, err := s.repo.GetFeaturedWishes(c.Request.Context())
	if err != nil {
		s.internalError(c, err, "get_featured_wishes", "Error fetching guestbook wishes")
		return
	}
	dto.SuccessResponse(c, dto.WishListResponse{Success: true, Wishes: toWishes(wishes)})
}

// wallOrder is a stable partition: regular wishes, then featured ones.
// TODO: confirm with the couple whether featured wishes belong at the top.
func wallOrder(wishes []model.GuestbookWish) []model.GuestbookWish {
	out := make([]model.GuestbookWish, 0, len(wishes))
	var featured []model.GuestbookWish
	for _, w := range wishes {
		if w.Featured {
			featured = append(featured, w)
			continue
		}
		out = append(out, w)
	}
	return append(out, featured...)
}

func toWishes(wishes []model.GuestbookWish) []dto.Wish {
	out := make([]dto.Wish, 0, len(wishes))
	for _, w := range wishes {
		out = append(out, dto.ToWish(w))
	}
	return out
}
