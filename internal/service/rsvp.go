package service

import (
	"context"
	"errors"
	"strings"

	"github.com/wb-go/wbf/ginext"

	"wedsite/internal/dto"
	"wedsite/internal/mailer"
	"wedsite/internal/metrics"
	"wedsite/internal/model"
	"wedsite/internal/notify"
)

const (
	msgRSVPRequired  = "Full name and attendance status are required"
	msgPartyRequired = "Number of guests and meal preference are required for attending guests"
)

var errPartyRequired = errors.New(msgPartyRequired)

// buildRSVP applies the attendance rules. A declined RSVP never carries a
// party size or meal, whatever the visitor sent.
func buildRSVP(req dto.RSVPRequest) (*model.RSVP, error) {
	rsvp := &model.RSVP{
		FullName:            strings.TrimSpace(req.FullName),
		Email:               nilIfBlank(req.Email),
		Attending:           req.Attending,
		DietaryRestrictions: nilIfBlank(req.DietaryRestrictions),
		Message:             nilIfBlank(req.Message),
	}

	if req.Attending == model.AttendingYes {
		meal := nilIfBlank(req.MealPreference)
		if req.NumberOfGuests <= 0 || meal == nil {
			return nil, errPartyRequired
		}
		rsvp.NumberOfGuests = int(req.NumberOfGuests)
		rsvp.MealPreference = meal
	}
	return rsvp, nil
}

func (s *service) SubmitRSVP(c *ginext.Context) {
	var req dto.RSVPRequest
	if !s.bind(c, "rsvp", &req, msgRSVPRequired) {
		return
	}

	rsvp, err := buildRSVP(req)
	if err != nil {
		metrics.Submission("rsvp", metrics.OutcomeInvalid)
		dto.ValidationError(c, err.Error())
		return
	}

	created, err := s.repo.CreateRSVP(c.Request.Context(), rsvp)
	if err != nil {
		metrics.Submission("rsvp", metrics.OutcomeError)
		s.internalError(c, err, "create_rsvp", "Error submitting RSVP. Please try again.")
		return
	}
	metrics.Submission("rsvp", metrics.OutcomeOK)

	s.log.Info().
		Int64("rsvp_id", created.ID).
		Str("attending", created.Attending).
		Int("guests", created.NumberOfGuests).
		Msg("rsvp stored")

	dto.SuccessResponse(c, dto.RSVPCreatedResponse{
		Success: true,
		Message: "RSVP submitted successfully!",
		RSVP: dto.RSVPSummary{
			FullName:    created.FullName,
			Attending:   created.Attending,
			SubmittedAt: created.SubmittedAt,
		},
	})

	s.notifyRSVP(c.Request.Context(), created)
}

// notifyRSVP queues the organizer copy and, when an address was given, the
// guest confirmation. Neither outcome reaches the visitor.
func (s *service) notifyRSVP(ctx context.Context, rsvp *model.RSVP) {
	if s.dispatcher == nil {
		return
	}

	if subject, html, err := mailer.RSVPNotification(rsvp, s.opts.Event); err != nil {
		s.log.Error().Err(err).Int64("rsvp_id", rsvp.ID).Msg("failed to render organizer notification")
	} else {
		s.dispatcher.Dispatch(ctx, notify.Task{
			Kind:    notify.KindRSVPOrganizer,
			To:      s.opts.Organizer,
			Subject: subject,
			HTML:    html,
			Attempt: 1,
		})
	}

	if rsvp.Email == nil {
		return
	}
	subject, html, err := mailer.GuestConfirmation(rsvp, s.opts.Event)
	if err != nil {
		s.log.Error().Err(err).Int64("rsvp_id", rsvp.ID).Msg("failed to render guest confirmation")
		return
	}
	s.dispatcher.Dispatch(ctx, notify.Task{
		Kind:    notify.KindRSVPGuest,
		To:      *rsvp.Email,
		Subject: subject,
		HTML:    html,
		Attempt: 1,
	})
}

func (s *service) ListRSVPs(c *ginext.Context) {
	rsvps, err := s.repo.GetAllRSVPs(c.Request.Context())
	if err != nil {
		s.internalError(c, err, "get_rsvps", "Error fetching RSVPs")
		return
	}
	dto.SuccessResponse(c, dto.RSVPListResponse{Success: true, RSVPs: rsvps})
}

func (s *service) RSVPStats(c *ginext.Context) {
	stats, err := s.repo.GetRSVPStats(c.Request.Context())
	if err != nil {
		s.internalError(c, err, "get_rsvp_stats", "Error fetching RSVP statistics")
		return
	}
	dto.SuccessResponse(c, dto.StatsResponse{Success: true, Stats: stats})
}
