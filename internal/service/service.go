package service

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"wedsite/internal/auth"
	"wedsite/internal/dto"
	"wedsite/internal/mailer"
	"wedsite/internal/media"
	"wedsite/internal/metrics"
	"wedsite/internal/notify"
	"wedsite/internal/repo"
	"wedsite/pkg/validator"
)

type Service interface {
	Health(c *ginext.Context)

	SubmitRSVP(c *ginext.Context)
	ListRSVPs(c *ginext.Context)
	RSVPStats(c *ginext.Context)

	SubmitPhoto(c *ginext.Context)
	ListPhotos(c *ginext.Context)
	LikePhoto(c *ginext.Context)

	SubmitWish(c *ginext.Context)
	ListWishes(c *ginext.Context)
	FeaturedWishes(c *ginext.Context)

	AdminSnapshot(c *ginext.Context)
	ApprovePhoto(c *ginext.Context)
	UnapprovePhoto(c *ginext.Context)
	DeletePhoto(c *ginext.Context)
	ToggleWishFeatured(c *ginext.Context)
	DeleteWish(c *ginext.Context)

	SendContact(c *ginext.Context)
}

type Options struct {
	Event     mailer.EventInfo
	Organizer string
	Upload    media.UploadOptions
	Location  *time.Location
}

type Dependencies struct {
	Uploader   media.Uploader
	Dispatcher notify.Dispatcher
	Mailer     mailer.Mailer
	Guard      *auth.AdminGuard
	Options    Options
}

type service struct {
	repo       repo.Repository
	log        *zerolog.Logger
	uploader   media.Uploader
	dispatcher notify.Dispatcher
	mailer     mailer.Mailer
	guard      *auth.AdminGuard
	opts       Options
	now        func() time.Time
}

func NewService(r repo.Repository, log *zerolog.Logger, deps Dependencies) Service {
	if deps.Options.Location == nil {
		deps.Options.Location = time.Local
	}
	deps.Options.Event.Loc = deps.Options.Location
	return &service{
		repo:       r,
		log:        log,
		uploader:   deps.Uploader,
		dispatcher: deps.Dispatcher,
		mailer:     deps.Mailer,
		guard:      deps.Guard,
		opts:       deps.Options,
		now:        time.Now,
	}
}

func (s *service) Health(c *ginext.Context) {
	dto.SuccessResponse(c, dto.HealthResponse{
		Success:   true,
		Message:   "Wedding API is running",
		Timestamp: s.now().UTC(),
	})
}

// bind decodes and validates a JSON body. It writes the error response itself
// and reports whether the handler should continue. Missing fields all map to
// requiredMsg, other violations keep the validator's wording.
func (s *service) bind(c *ginext.Context, kind string, dst any, requiredMsg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		metrics.Submission(kind, metrics.OutcomeInvalid)

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.log.Warn().Int64("limit", tooLarge.Limit).Str("kind", kind).Msg("request body too large")
			dto.PayloadTooLargeError(c)
			return false
		}
		s.log.Debug().Err(err).Str("kind", kind).Msg("malformed request body")
		dto.ValidationError(c, dto.MalformedBody)
		return false
	}

	if err := validator.Validate(c.Request.Context(), dst); err != nil {
		metrics.Submission(kind, metrics.OutcomeInvalid)

		var fe *validator.FieldError
		if errors.As(err, &fe) && fe.Missing() {
			dto.ValidationError(c, requiredMsg)
			return false
		}
		dto.ValidationError(c, err.Error())
		return false
	}
	return true
}

// pathID parses a positive numeric :id. Anything else cannot name a row.
func pathID(c *ginext.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func nilIfBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *service) internalError(c *ginext.Context, err error, op, message string) {
	s.log.Error().
		Err(err).
		Str("op", op).
		Str("request_id", c.GetString("request_id")).
		Msg("request failed")
	dto.InternalServerError(c, message)
}
