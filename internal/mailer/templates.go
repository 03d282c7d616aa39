package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"wedsite/internal/model"
)

const TimeLayout = "1/2/2006, 3:04:05 PM"

// EventInfo fills the fixed parts of guest-facing mail.
type EventInfo struct {
	Couple string
	Name   string
	Date   string
	Place  string
	Loc    *time.Location
}

var templates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}).Parse(`
{{define "rsvp_notification"}}
<h2>New RSVP Submission</h2>
<p><strong>Name:</strong> {{.RSVP.FullName}}</p>
{{with .RSVP.Email}}<p><strong>Email:</strong> {{deref .}}</p>{{end}}
<p><strong>Status:</strong> {{if .Attending}}Attending{{else}}Not Attending{{end}}</p>
{{if .Attending}}
<p><strong>Number of Guests:</strong> {{.RSVP.NumberOfGuests}}</p>
<p><strong>Meal Preference:</strong> {{deref .RSVP.MealPreference}}</p>
<p><strong>Dietary Restrictions:</strong> {{with .RSVP.DietaryRestrictions}}{{deref .}}{{else}}None{{end}}</p>
{{end}}
{{with .RSVP.Message}}<p><strong>Message:</strong> {{deref .}}</p>{{end}}
<p><strong>Submitted:</strong> {{.Submitted}}</p>
{{end}}

{{define "guest_attending"}}
<h2>RSVP Confirmation - We Can't Wait to See You!</h2>
<p>Dear {{.RSVP.FullName}},</p>
<p>Thank you for RSVPing to {{.Event.Name}}! We're so excited to celebrate with you on {{.Event.Date}} in {{.Event.Place}}.</p>
<p><strong>Your RSVP Details:</strong></p>
<ul>
  <li>Attending: Yes</li>
  <li>Number of Guests: {{.RSVP.NumberOfGuests}}</li>
  <li>Meal Preference: {{deref .RSVP.MealPreference}}</li>
  {{with .RSVP.DietaryRestrictions}}<li>Dietary Restrictions: {{deref .}}</li>{{end}}
</ul>
<p>If you need to make any changes to your RSVP, please contact us directly.</p>
<p>With love and excitement,</p>
<p>{{.Event.Couple}}</p>
{{end}}

{{define "guest_declined"}}
<h2>RSVP Confirmation - Thank You</h2>
<p>Dear {{.RSVP.FullName}},</p>
<p>Thank you for letting us know you won't be able to join us for {{.Event.Name}}. We understand and will miss you, but appreciate you taking the time to respond.</p>
{{with .RSVP.Message}}<p>We received your message: "{{deref .}}"</p>{{end}}
<p>We hope to celebrate with you soon!</p>
<p>With love,</p>
<p>{{.Event.Couple}}</p>
{{end}}

{{define "contact_notification"}}
<h2>New Contact Message</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Message:</strong></p>
<p>{{.Message}}</p>
<p><strong>Sent:</strong> {{.Sent}}</p>
{{end}}
`))

type rsvpView struct {
	RSVP      *model.RSVP
	Event     EventInfo
	Attending bool
	Submitted string
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (e EventInfo) format(t time.Time) string {
	loc := e.Loc
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(TimeLayout)
}

// RSVPNotification builds the organizer's copy of a submission.
func RSVPNotification(rsvp *model.RSVP, event EventInfo) (subject, html string, err error) {
	attending := rsvp.Attending == model.AttendingYes
	status := "Not Attending"
	if attending {
		status = "Attending"
	}
	subject = fmt.Sprintf("New RSVP: %s - %s", rsvp.FullName, status)
	html, err = render("rsvp_notification", rsvpView{
		RSVP:      rsvp,
		Event:     event,
		Attending: attending,
		Submitted: event.format(rsvp.SubmittedAt),
	})
	return subject, html, err
}

// GuestConfirmation builds the message sent back to the guest.
func GuestConfirmation(rsvp *model.RSVP, event EventInfo) (subject, html string, err error) {
	view := rsvpView{RSVP: rsvp, Event: event, Attending: rsvp.Attending == model.AttendingYes}
	if view.Attending {
		html, err = render("guest_attending", view)
		return "We're excited to celebrate with you!", html, err
	}
	html, err = render("guest_declined", view)
	return "Thank you for your response", html, err
}

func ContactNotification(name, email, message string, sent time.Time, event EventInfo) (subject, html string, err error) {
	subject = "New Contact Message from " + name
	html, err = render("contact_notification", struct {
		Name, Email, Message, Sent string
	}{name, email, message, event.format(sent)})
	return subject, html, err
}
