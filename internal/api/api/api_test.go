package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"

	"wedsite/internal/auth"
	"wedsite/internal/dto"
	"wedsite/internal/mailer"
	"wedsite/internal/media"
	"wedsite/internal/notify"
	"wedsite/internal/service"
)

const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

type harness struct {
	repo     *memRepo
	uploader *fakeUploader
	disp     *fakeDispatcher
	mail     *fakeMailer
	handler  http.Handler
}

func newHarness(t *testing.T, tweak ...func(*Routers)) *harness {
	t.Helper()
	log := zerolog.Nop()
	h := &harness{
		repo:     newMemRepo(),
		uploader: &fakeUploader{},
		disp:     &fakeDispatcher{},
		mail:     &fakeMailer{},
	}

	routers := &Routers{BodyLimit: 20 << 20}
	for _, fn := range tweak {
		fn(routers)
	}
	routers.Service = service.NewService(h.repo, &log, service.Dependencies{
		Uploader:   h.uploader,
		Dispatcher: h.disp,
		Mailer:     h.mail,
		Guard:      routers.Guard,
		Options: service.Options{
			Event:     mailer.EventInfo{Couple: "Shayne & DR", Name: "our wedding", Date: "February 25, 2026", Place: "Cagayan de Oro City"},
			Organizer: "couple@example.com",
			Upload:    media.UploadOptions{Folder: "wedding-photos", MaxEdge: 1200},
			Location:  time.UTC,
		},
	})
	h.handler = NewRouters(routers)
	return h
}

func (h *harness) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireFailure(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	if message != "" {
		assert.Equal(t, message, body["message"])
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

type panickyService struct {
	service.Service
}

func (panickyService) Health(*ginext.Context) {
	panic("boom")
}

func TestPanicKeepsEnvelope(t *testing.T) {
	log := zerolog.Nop()
	svc := service.NewService(newMemRepo(), &log, service.Dependencies{})
	handler := NewRouters(&Routers{Service: panickyService{svc}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	requireFailure(t, w, http.StatusInternalServerError, dto.InternalError)
}

func TestBasePath(t *testing.T) {
	h := newHarness(t, func(r *Routers) { r.BasePath = "/api/" })

	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/health", "").Code)
	requireFailure(t, h.do(t, http.MethodGet, "/health", ""), http.StatusNotFound, "Route not found")
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/metrics", "").Code)
}

func TestSubmitRSVP(t *testing.T) {
	t.Run("declined rsvp drops party details", func(t *testing.T) {
		h := newHarness(t)
		w := h.do(t, http.MethodPost, "/rsvp",
			`{"fullName":"Jo Reyes","attending":"no","numberOfGuests":4,"mealPreference":"beef","message":"Sorry!"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decode(t, w)
		assert.Equal(t, "RSVP submitted successfully!", body["message"])
		rsvp := body["rsvp"].(map[string]any)
		assert.Equal(t, "Jo Reyes", rsvp["fullName"])
		assert.Equal(t, "no", rsvp["attending"])
		assert.NotEmpty(t, rsvp["submittedAt"])

		require.Len(t, h.repo.rsvps, 1)
		stored := h.repo.rsvps[0]
		assert.Equal(t, 0, stored.NumberOfGuests)
		assert.Nil(t, stored.MealPreference)
		assert.Nil(t, stored.Email)
		assert.Equal(t, "Sorry!", *stored.Message)

		tasks := h.disp.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, notify.KindRSVPOrganizer, tasks[0].Kind)
		assert.Equal(t, "couple@example.com", tasks[0].To)
		assert.Equal(t, "New RSVP: Jo Reyes - Not Attending", tasks[0].Subject)
	})

	t.Run("attending guest with email gets a confirmation", func(t *testing.T) {
		h := newHarness(t)
		w := h.do(t, http.MethodPost, "/rsvp",
			`{"fullName":"Ana","email":"ana@example.com","attending":"yes","numberOfGuests":"2","mealPreference":"fish","dietaryRestrictions":""}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		stored := h.repo.rsvps[0]
		assert.Equal(t, 2, stored.NumberOfGuests)
		assert.Equal(t, "fish", *stored.MealPreference)
		assert.Nil(t, stored.DietaryRestrictions)

		tasks := h.disp.Tasks()
		require.Len(t, tasks, 2)
		assert.Equal(t, notify.KindRSVPGuest, tasks[1].Kind)
		assert.Equal(t, "ana@example.com", tasks[1].To)
		assert.Equal(t, 1, tasks[1].Attempt)
	})

	for name, tc := range map[string]struct {
		body    string
		message string
	}{
		"missing guests":      {`{"fullName":"A","attending":"yes","mealPreference":"fish"}`, "Number of guests and meal preference are required for attending guests"},
		"zero guests":         {`{"fullName":"A","attending":"yes","numberOfGuests":"0","mealPreference":"fish"}`, "Number of guests and meal preference are required for attending guests"},
		"missing meal":        {`{"fullName":"A","attending":"yes","numberOfGuests":2}`, "Number of guests and meal preference are required for attending guests"},
		"blank meal":          {`{"fullName":"A","attending":"yes","numberOfGuests":2,"mealPreference":"  "}`, "Number of guests and meal preference are required for attending guests"},
		"empty name":          {`{"fullName":"","attending":"no"}`, "Full name and attendance status are required"},
		"blank name":          {`{"fullName":"   ","attending":"no"}`, "Full name and attendance status are required"},
		"missing attending":   {`{"fullName":"A"}`, "Full name and attendance status are required"},
		"empty body":          {``, "Full name and attendance status are required"},
		"unknown attending":   {`{"fullName":"A","attending":"maybe"}`, "attending must be one of: yes, no"},
		"negative guests":     {`{"fullName":"A","attending":"yes","numberOfGuests":-1,"mealPreference":"x"}`, "numberOfGuests is below minimum value"},
		"invalid email":       {`{"fullName":"A","attending":"no","email":"not-an-email"}`, "email must be a valid email address"},
		"non numeric guests":  {`{"fullName":"A","attending":"yes","numberOfGuests":"two","mealPreference":"x"}`, "Request body must be valid JSON"},
		"malformed json":      {`{"fullName":`, "Request body must be valid JSON"},
		"wrong type for name": {`{"fullName":42,"attending":"no"}`, "Request body must be valid JSON"},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			w := h.do(t, http.MethodPost, "/rsvp", tc.body)
			requireFailure(t, w, http.StatusBadRequest, tc.message)
			assert.Empty(t, h.repo.rsvps)
			assert.Empty(t, h.disp.Tasks())
		})
	}

	t.Run("storage failure", func(t *testing.T) {
		h := newHarness(t)
		h.repo.failOn = "CreateRSVP"
		w := h.do(t, http.MethodPost, "/rsvp", `{"fullName":"A","attending":"no"}`)
		requireFailure(t, w, http.StatusInternalServerError, "Error submitting RSVP. Please try again.")
		assert.NotContains(t, w.Body.String(), errStorage.Error())
		assert.Empty(t, h.disp.Tasks())
	})
}

func TestRSVPStats(t *testing.T) {
	h := newHarness(t)
	for _, body := range []string{
		`{"fullName":"A","attending":"yes","numberOfGuests":2,"mealPreference":"fish"}`,
		`{"fullName":"B","attending":"yes","numberOfGuests":3,"mealPreference":"beef"}`,
		`{"fullName":"C","attending":"no","numberOfGuests":5}`,
	} {
		require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/rsvp", body).Code)
	}

	w := h.do(t, http.MethodGet, "/rsvp-stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"stats":[
		{"attending":"no","count":1,"total_guests":0},
		{"attending":"yes","count":2,"total_guests":5}
	]}`, w.Body.String())

	w = h.do(t, http.MethodGet, "/rsvps", "")
	require.Equal(t, http.StatusOK, w.Code)
	rsvps := decode(t, w)["rsvps"].([]any)
	require.Len(t, rsvps, 3)
	assert.Equal(t, "C", rsvps[0].(map[string]any)["full_name"])
}

func TestRSVPStatsEmpty(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, http.MethodGet, "/rsvp-stats", "")
	assert.JSONEq(t, `{"success":true,"stats":[]}`, w.Body.String())
}

func TestPhotos(t *testing.T) {
	t.Run("upload then list", func(t *testing.T) {
		h := newHarness(t)

		w := h.do(t, http.MethodPost, "/photos", `{"uploaderName":"Lola","imageData":"data:image/png;base64,`+tinyPNG+`"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		photo := decode(t, w)["photo"].(map[string]any)
		assert.Equal(t, "Lola", photo["uploaderName"])
		assert.Nil(t, photo["caption"])
		assert.Equal(t, "wedding-photos", h.uploader.opts.Folder)
		assert.Equal(t, 1200, h.uploader.opts.MaxEdge)

		stored := h.repo.photos[0]
		assert.Equal(t, int64(2048), *stored.FileSize)
		assert.Equal(t, "jpg", *stored.FileType)

		first := h.do(t, http.MethodGet, "/photos", "")
		require.Equal(t, http.StatusOK, first.Code)
		second := h.do(t, http.MethodGet, "/photos", "")
		assert.Equal(t, first.Body.String(), second.Body.String())

		photos := decode(t, first)["photos"].([]any)
		require.Len(t, photos, 1)
		got := photos[0].(map[string]any)
		assert.Equal(t, "https://media.example.com/wedding-photos/1.jpg", got["url"])
		assert.Equal(t, "Lola", got["uploader"])
		assert.Equal(t, "Beautiful moment!", got["caption"])
		assert.Equal(t, "2/1/2026, 12:01:00 PM", got["timestamp"])
		assert.Equal(t, float64(0), got["likes"])
	})

	t.Run("required fields", func(t *testing.T) {
		h := newHarness(t)
		requireFailure(t, h.do(t, http.MethodPost, "/photos", `{"uploaderName":"","imageData":"`+tinyPNG+`"}`),
			http.StatusBadRequest, "Uploader name and image are required")
		requireFailure(t, h.do(t, http.MethodPost, "/photos", `{"uploaderName":"Lola"}`),
			http.StatusBadRequest, "Uploader name and image are required")
		assert.Zero(t, h.uploader.calls)
	})

	t.Run("payload that is not an image", func(t *testing.T) {
		h := newHarness(t)
		w := h.do(t, http.MethodPost, "/photos", `{"uploaderName":"Lola","imageData":"aGVsbG8gd29ybGQ="}`)
		requireFailure(t, w, http.StatusBadRequest, "Image must be a base64-encoded image")
		assert.Empty(t, h.repo.photos)
	})

	t.Run("upload failure writes nothing", func(t *testing.T) {
		h := newHarness(t)
		h.uploader.err = &media.UploadError{Provider: "fake", Err: errors.New("quota exceeded")}
		w := h.do(t, http.MethodPost, "/photos", `{"uploaderName":"Lola","imageData":"`+tinyPNG+`"}`)
		requireFailure(t, w, http.StatusInternalServerError, "Error uploading photo. Please try again.")
		assert.NotContains(t, w.Body.String(), "quota")
		assert.Empty(t, h.repo.photos)
	})

	t.Run("pending photos stay out of the gallery", func(t *testing.T) {
		h := newHarness(t)
		require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/photos", `{"uploaderName":"A","caption":"first dance","imageData":"`+tinyPNG+`"}`).Code)
		require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/admin/photos/1/unapprove", "").Code)

		assert.Empty(t, decode(t, h.do(t, http.MethodGet, "/photos", ""))["photos"])
		all := decode(t, h.do(t, http.MethodGet, "/photos?approved=false", ""))["photos"].([]any)
		require.Len(t, all, 1)
		assert.Equal(t, "first dance", all[0].(map[string]any)["caption"])

		require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/admin/photos/1/approve", "").Code)
		assert.Len(t, decode(t, h.do(t, http.MethodGet, "/photos", ""))["photos"], 1)
	})

	t.Run("body over the limit", func(t *testing.T) {
		h := newHarness(t, func(r *Routers) { r.BodyLimit = 64 })
		w := h.do(t, http.MethodPost, "/photos", `{"uploaderName":"Lola","imageData":"`+tinyPNG+`"}`)
		requireFailure(t, w, http.StatusRequestEntityTooLarge, "Request body is too large")
	})
}

func TestLikePhoto(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/photos", `{"uploaderName":"A","imageData":"`+tinyPNG+`"}`).Code)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/photos/1/like", nil)
			w := httptest.NewRecorder()
			h.handler.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()

	w := h.do(t, http.MethodPost, "/photos/1/like", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"success":true,"likes":%d}`, n+1), w.Body.String())

	requireFailure(t, h.do(t, http.MethodPost, "/photos/999/like", ""), http.StatusNotFound, "Photo not found")
	requireFailure(t, h.do(t, http.MethodPost, "/photos/abc/like", ""), http.StatusNotFound, "Photo not found")
}

func TestGuestbook(t *testing.T) {
	t.Run("relationship defaults to empty string", func(t *testing.T) {
		h := newHarness(t)
		w := h.do(t, http.MethodPost, "/guestbook", `{"name":"Tita Bing","message":"Best wishes!"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decode(t, w)
		assert.Equal(t, "Wish submitted successfully!", body["message"])
		wish := body["wish"].(map[string]any)
		assert.Equal(t, "", wish["relationship"])
		assert.Equal(t, false, wish["featured"])
		assert.NotEmpty(t, wish["date"])

		wishes := decode(t, h.do(t, http.MethodGet, "/guestbook", ""))["wishes"].([]any)
		require.Len(t, wishes, 1)
		assert.Equal(t, "", wishes[0].(map[string]any)["relationship"])
	})

	for name, body := range map[string]string{
		"empty name":    `{"name":"","message":"hi"}`,
		"empty message": `{"name":"A","message":""}`,
		"blank message": `{"name":"A","message":"   "}`,
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			requireFailure(t, h.do(t, http.MethodPost, "/guestbook", body), http.StatusBadRequest, "Name and message are required")
			assert.Empty(t, h.repo.wishes)
		})
	}

	t.Run("featured and wall order", func(t *testing.T) {
		h := newHarness(t)
		for _, name := range []string{"first", "second", "third"} {
			require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/guestbook", `{"name":"`+name+`","relationship":"friend","message":"yay"}`).Code)
		}
		w := h.do(t, http.MethodPost, "/admin/guestbook/3/feature", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode(t, w)["wish"].(map[string]any)["featured"])

		names := func(w *httptest.ResponseRecorder) []string {
			var out []string
			for _, item := range decode(t, w)["wishes"].([]any) {
				out = append(out, item.(map[string]any)["name"].(string))
			}
			return out
		}

		assert.Equal(t, []string{"third", "second", "first"}, names(h.do(t, http.MethodGet, "/guestbook", "")))
		assert.Equal(t, []string{"second", "first", "third"}, names(h.do(t, http.MethodGet, "/guestbook?layout=wall", "")))
		assert.Equal(t, []string{"third"}, names(h.do(t, http.MethodGet, "/guestbook/featured", "")))

		require.Equal(t, http.StatusOK, h.do(t, http.MethodDelete, "/admin/guestbook/2", "").Code)
		requireFailure(t, h.do(t, http.MethodDelete, "/admin/guestbook/2", ""), http.StatusNotFound, "Wish not found")
		requireFailure(t, h.do(t, http.MethodPost, "/admin/guestbook/42/feature", ""), http.StatusNotFound, "Wish not found")
	})
}

func TestAdminSnapshot(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/rsvp", `{"fullName":"A","attending":"yes","numberOfGuests":2,"mealPreference":"fish"}`).Code)
	created := h.do(t, http.MethodPost, "/photos", `{"uploaderName":"B","imageData":"`+tinyPNG+`"}`)
	require.Equal(t, http.StatusOK, created.Code)
	// each table keeps its own id sequence
	assert.Equal(t, float64(1), decode(t, created)["photo"].(map[string]any)["id"])
	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/admin/photos/1/unapprove", "").Code)

	w := h.do(t, http.MethodGet, "/admin/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["rsvps"], 1)
	photos := body["photos"].([]any)
	require.Len(t, photos, 1)
	assert.Equal(t, false, photos[0].(map[string]any)["approved"])
	assert.Len(t, body["stats"], 1)

	t.Run("any failing read fails the snapshot", func(t *testing.T) {
		h.repo.failOn = "GetRSVPStats"
		defer func() { h.repo.failOn = "" }()
		requireFailure(t, h.do(t, http.MethodGet, "/admin/stats", ""), http.StatusInternalServerError, "Error fetching admin data")
	})

	t.Run("delete photo", func(t *testing.T) {
		require.Equal(t, http.StatusOK, h.do(t, http.MethodDelete, "/admin/photos/1", "").Code)
		requireFailure(t, h.do(t, http.MethodDelete, "/admin/photos/1", ""), http.StatusNotFound, "Photo not found")
		requireFailure(t, h.do(t, http.MethodPost, "/admin/photos/1/approve", ""), http.StatusNotFound, "Photo not found")
	})
}

func TestAdminGuard(t *testing.T) {
	guard := auth.NewAdminGuard("topsecret", time.Hour)
	h := newHarness(t, func(r *Routers) { r.Guard = guard })
	token, err := guard.IssueToken("organizer")
	require.NoError(t, err)

	for _, path := range []string{"/rsvps", "/admin/stats", "/photos?approved=false"} {
		requireFailure(t, h.do(t, http.MethodGet, path, ""), http.StatusUnauthorized, "Admin authorization required")
		assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, path, "", "Authorization", "Bearer "+token).Code)
	}
	requireFailure(t, h.do(t, http.MethodPost, "/admin/photos/1/approve", ""), http.StatusUnauthorized, "")

	// public routes stay open
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/photos", "").Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/rsvp-stats", "").Code)
}

func TestContact(t *testing.T) {
	t.Run("sends to organizer", func(t *testing.T) {
		h := newHarness(t)
		w := h.do(t, http.MethodPost, "/contact", `{"name":"Lee","email":"lee@example.com","message":"Where do we park?"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"success":true,"message":"Message sent successfully!"}`, w.Body.String())
		assert.Equal(t, []string{"couple@example.com|New Contact Message from Lee"}, h.mail.sent)
	})

	t.Run("missing fields", func(t *testing.T) {
		h := newHarness(t)
		requireFailure(t, h.do(t, http.MethodPost, "/contact", `{"name":"Lee","message":"hi"}`), http.StatusBadRequest, "All fields are required")
		requireFailure(t, h.do(t, http.MethodPost, "/contact", `{"name":"Lee","email":"nope","message":"hi"}`), http.StatusBadRequest, "email must be a valid email address")
		assert.Empty(t, h.mail.sent)
	})

	t.Run("delivery failure surfaces", func(t *testing.T) {
		h := newHarness(t)
		h.mail.err = errors.New("smtp: 421")
		w := h.do(t, http.MethodPost, "/contact", `{"name":"Lee","email":"lee@example.com","message":"hi"}`)
		requireFailure(t, w, http.StatusInternalServerError, "Error sending message. Please try again.")
	})
}
