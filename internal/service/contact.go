package service

import (
	"strings"

	"github.com/wb-go/wbf/ginext"

	"wedsite/internal/dto"
	"wedsite/internal/mailer"
	"wedsite/internal/metrics"
)

const msgContactRequired = "All fields are required"

// SendContact mails the organizer while the visitor waits; nothing is stored.
func (s *service) SendContact(c *ginext.Context) {
	var req dto.ContactRequest
	if !s.bind(c, "contact", &req, msgContactRequired) {
		return
	}

	subject, html, err := mailer.ContactNotification(
		strings.TrimSpace(req.Name),
		strings.TrimSpace(req.Email),
		strings.TrimSpace(req.Message),
		s.now(),
		s.opts.Event,
	)
	if err == nil {
		err = s.mailer.Send(c.Request.Context(), s.opts.Organizer, subject, html)
	}
	if err != nil {
		metrics.Submission("contact", metrics.OutcomeError)
		s.internalError(c, err, "send_contact", "Error sending message. Please try again.")
		return
	}
	metrics.Submission("contact", metrics.OutcomeOK)

	dto.SuccessResponse(c, dto.MessageResponse{Success: true, Message: "Message sent successfully!"})
}
