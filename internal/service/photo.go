package service

import (
	"errors"
	"strings"
	"time"

	"github.com/wb-go/wbf/ginext"

	"wedsite/internal/dto"
	"wedsite/internal/media"
	"wedsite/internal/metrics"
	"wedsite/internal/model"
	"wedsite/internal/repo"
)

const (
	msgPhotoRequired = "Uploader name and image are required"
	msgPhotoInvalid  = "Image must be a base64-encoded image"
	msgPhotoNotFound = "Photo not found"
)

func (s *service) SubmitPhoto(c *ginext.Context) {
	var req dto.PhotoRequest
	if !s.bind(c, "photo", &req, msgPhotoRequired) {
		return
	}
	ctx := c.Request.Context()

	start := time.Now()
	uploaded, err := s.uploader.Upload(ctx, req.ImageData, s.opts.Upload)
	if err != nil {
		if errors.Is(err, media.ErrInvalidImage) {
			metrics.Submission("photo", metrics.OutcomeInvalid)
			dto.ValidationError(c, msgPhotoInvalid)
			return
		}
		metrics.ObserveUpload(s.uploader.Name(), metrics.OutcomeError, start)
		metrics.Submission("photo", metrics.OutcomeError)
		s.internalError(c, err, "upload_photo", "Error uploading photo. Please try again.")
		return
	}
	metrics.ObserveUpload(s.uploader.Name(), metrics.OutcomeOK, start)

	photo := &model.Photo{
		UploaderName: strings.TrimSpace(req.UploaderName),
		Caption:      nilIfBlank(req.Caption),
		ImageURL:     uploaded.SecureURL,
		FileType:     nilIfBlank(uploaded.Format),
	}
	if uploaded.Bytes > 0 {
		size := uploaded.Bytes
		photo.FileSize = &size
	}

	created, err := s.repo.CreatePhoto(ctx, photo)
	if err != nil {
		metrics.Submission("photo", metrics.OutcomeError)
		s.log.Error().Str("image_url", uploaded.SecureURL).Msg("image stored but photo row was not written")
		s.internalError(c, err, "create_photo", "Error uploading photo. Please try again.")
		return
	}
	metrics.Submission("photo", metrics.OutcomeOK)
	s.log.Info().Int64("photo_id", created.ID).Str("provider", s.uploader.Name()).Msg("photo stored")

	dto.SuccessResponse(c, dto.PhotoCreatedResponse{
		Success: true,
		Message: "Photo uploaded successfully!",
		Photo: dto.PhotoSummary{
			ID:           created.ID,
			UploaderName: created.UploaderName,
			Caption:      created.Caption,
			UploadedAt:   created.UploadedAt,
		},
	})
}

// ListPhotos serves the public gallery; ?approved=false also returns pending
// photos and counts as an organizer read.
func (s *service) ListPhotos(c *ginext.Context) {
	approvedOnly := c.Query("approved") != "false"
	if !approvedOnly && !s.guard.Authorize(c) {
		dto.UnauthorizedError(c)
		return
	}

	photos, err := s.repo.GetPhotos(c.Request.Context(), approvedOnly)
	if err != nil {
		s.internalError(c, err, "get_photos", "Error fetching photos")
		return
	}

	gallery := make([]dto.GalleryPhoto, 0, len(photos))
	for _, p := range photos {
		gallery = append(gallery, dto.ToGalleryPhoto(p, s.opts.Location))
	}
	dto.SuccessResponse(c, dto.GalleryResponse{Success: true, Photos: gallery})
}

func (s *service) LikePhoto(c *ginext.Context) {
	id, ok := pathID(c)
	if !ok {
		dto.NotFoundError(c, msgPhotoNotFound)
		return
	}

	photo, err := s.repo.LikePhoto(c.Request.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		dto.NotFoundError(c, msgPhotoNotFound)
		return
	}
	if err != nil {
		s.internalError(c, err, "like_photo", "Error liking photo")
		return
	}
	metrics.PhotoLikes.Inc()

	dto.SuccessResponse(c, dto.LikeResponse{Success: true, Likes: photo.Likes})
}
