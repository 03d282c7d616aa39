package service

import (
	"errors"

	"github.com/wb-go/wbf/ginext"
	"golang.org/x/sync/errgroup"

	"wedsite/internal/dto"
	"wedsite/internal/model"
	"wedsite/internal/repo"
)

const msgWishNotFound = "Wish not found"

// AdminSnapshot runs its three reads concurrently. They are not taken from a
// single transaction, so counts may disagree with the lists under writes.
func (s *service) AdminSnapshot(c *ginext.Context) {
	g, ctx := errgroup.WithContext(c.Request.Context())

	var (
		rsvps  []model.RSVP
		photos []model.Photo
		stats  []model.RSVPStat
	)
	g.Go(func() (err error) {
		rsvps, err = s.repo.GetAllRSVPs(ctx)
		return err
	})
	g.Go(func() (err error) {
		photos, err = s.repo.GetPhotos(ctx, false)
		return err
	})
	g.Go(func() (err error) {
		stats, err = s.repo.GetRSVPStats(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.internalError(c, err, "admin_snapshot", "Error fetching admin data")
		return
	}

	dto.SuccessResponse(c, dto.AdminSnapshotResponse{
		Success: true,
		RSVPs:   rsvps,
		Photos:  photos,
		Stats:   stats,
	})
}

func (s *service) ApprovePhoto(c *ginext.Context) {
	s.setApproval(c, true)
}

func (s *service) UnapprovePhoto(c *ginext.Context) {
	s.setApproval(c, false)
}

func (s *service) setApproval(c *ginext.Context, approved bool) {
	id, ok := pathID(c)
	if !ok {
		dto.NotFoundError(c, msgPhotoNotFound)
		return
	}

	photo, err := s.repo.SetPhotoApproval(c.Request.Context(), id, approved)
	if errors.Is(err, repo.ErrNotFound) {
		dto.NotFoundError(c, msgPhotoNotFound)
		return
	}
	if err != nil {
		s.internalError(c, err, "set_photo_approval", "Error updating photo")
		return
	}

	s.log.Info().Int64("photo_id", id).Bool("approved", approved).Msg("photo moderated")
	dto.SuccessResponse(c, dto.PhotoModeratedResponse{Success: true, Photo: *photo})
}

func (s *service) DeletePhoto(c *ginext.Context) {
	id, ok := pathID(c)
	if !ok {
		dto.NotFoundError(c, msgPhotoNotFound)
		return
	}

	err := s.repo.DeletePhoto(c.Request.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		dto.NotFoundError(c, msgPhotoNotFound)
		return
	}
	if err != nil {
		s.internalError(c, err, "delete_photo", "Error deleting photo")
		return
	}

	s.log.Info().Int64("photo_id", id).Msg("photo deleted")
	dto.SuccessResponse(c, dto.MessageResponse{Success: true})
}

func (s *service) ToggleWishFeatured(c *ginext.Context) {
	id, ok := pathID(c)
	if !ok {
		dto.NotFoundError(c, msgWishNotFound)
		return
	}

	wish, err := s.repo.ToggleWishFeatured(c.Request.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		dto.NotFoundError(c, msgWishNotFound)
		return
	}
	if err != nil {
		s.internalError(c, err, "toggle_wish_featured", "Error updating wish")
		return
	}

	s.log.Info().Int64("wish_id", id).Bool("featured", wish.Featured).Msg("wish moderated")
	dto.SuccessResponse(c, dto.WishModeratedResponse{Success: true, Wish: dto.ToWish(*wish)})
}

func (s *service) DeleteWish(c *ginext.Context) {
	id, ok := pathID(c)
	if !ok {
		dto.NotFoundError(c, msgWishNotFound)
		return
	}

	err := s.repo.DeleteWish(c.Request.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		dto.NotFoundError(c, msgWishNotFound)
		return
	}
	if err != nil {
		s.internalError(c, err, "delete_wish", "Error deleting wish")
		return
	}

	s.log.Info().Int64("wish_id", id).Msg("wish deleted")
	dto.SuccessResponse(c, dto.MessageResponse{Success: true})
}
