package api

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"wedsite/internal/media"
	"wedsite/internal/model"
	"wedsite/internal/notify"
	"wedsite/internal/repo"
)

// memRepo mirrors the SQL semantics closely enough for handler tests.
type memRepo struct {
	mu     sync.Mutex
	clock  time.Time
	seq    map[string]int64
	rsvps  []model.RSVP
	photos []model.Photo
	wishes []model.GuestbookWish
	failOn string
}

var errStorage = errors.New("storage unavailable")

func newMemRepo() *memRepo {
	return &memRepo{
		clock: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		seq:   map[string]int64{},
	}
}

// tick hands out the next id of table and advances the shared clock; each
// table owns its sequence like a SERIAL column.
func (r *memRepo) tick(table string) (int64, time.Time) {
	r.seq[table]++
	r.clock = r.clock.Add(time.Minute)
	return r.seq[table], r.clock
}

func (r *memRepo) fail(op string) error {
	if r.failOn == op || r.failOn == "*" {
		return errStorage
	}
	return nil
}

func (r *memRepo) CreateRSVP(_ context.Context, in *model.RSVP) (*model.RSVP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("CreateRSVP"); err != nil {
		return nil, err
	}
	out := *in
	out.ID, out.SubmittedAt = r.tick("rsvps")
	r.rsvps = append(r.rsvps, out)
	return &out, nil
}

func (r *memRepo) GetAllRSVPs(context.Context) ([]model.RSVP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("GetAllRSVPs"); err != nil {
		return nil, err
	}
	out := make([]model.RSVP, 0, len(r.rsvps))
	for i := len(r.rsvps) - 1; i >= 0; i-- {
		out = append(out, r.rsvps[i])
	}
	return out, nil
}

func (r *memRepo) GetRSVPStats(context.Context) ([]model.RSVPStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("GetRSVPStats"); err != nil {
		return nil, err
	}
	groups := map[string]*model.RSVPStat{}
	for _, rs := range r.rsvps {
		g, ok := groups[rs.Attending]
		if !ok {
			g = &model.RSVPStat{Attending: rs.Attending}
			groups[rs.Attending] = g
		}
		g.Count++
		g.TotalGuests += int64(rs.NumberOfGuests)
	}
	out := make([]model.RSVPStat, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Attending < out[j].Attending })
	return out, nil
}

func (r *memRepo) CreatePhoto(_ context.Context, in *model.Photo) (*model.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("CreatePhoto"); err != nil {
		return nil, err
	}
	out := *in
	out.ID, out.UploadedAt = r.tick("photos")
	out.Approved = true
	out.Likes = 0
	r.photos = append(r.photos, out)
	return &out, nil
}

func (r *memRepo) GetPhotos(_ context.Context, approvedOnly bool) ([]model.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("GetPhotos"); err != nil {
		return nil, err
	}
	out := make([]model.Photo, 0, len(r.photos))
	for i := len(r.photos) - 1; i >= 0; i-- {
		if approvedOnly && !r.photos[i].Approved {
			continue
		}
		out = append(out, r.photos[i])
	}
	return out, nil
}

func (r *memRepo) photo(id int64) *model.Photo {
	for i := range r.photos {
		if r.photos[i].ID == id {
			return &r.photos[i]
		}
	}
	return nil
}

func (r *memRepo) LikePhoto(_ context.Context, id int64) (*model.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.photo(id)
	if p == nil {
		return nil, repo.ErrNotFound
	}
	p.Likes++
	out := *p
	return &out, nil
}

func (r *memRepo) SetPhotoApproval(_ context.Context, id int64, approved bool) (*model.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.photo(id)
	if p == nil {
		return nil, repo.ErrNotFound
	}
	p.Approved = approved
	out := *p
	return &out, nil
}

func (r *memRepo) DeletePhoto(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.photos {
		if r.photos[i].ID == id {
			r.photos = append(r.photos[:i], r.photos[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r *memRepo) CreateWish(_ context.Context, in *model.GuestbookWish) (*model.GuestbookWish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("CreateWish"); err != nil {
		return nil, err
	}
	out := *in
	out.ID, out.CreatedAt = r.tick("guestbook_wishes")
	out.Featured = false
	r.wishes = append(r.wishes, out)
	return &out, nil
}

func (r *memRepo) listWishes(featuredOnly bool) []model.GuestbookWish {
	out := make([]model.GuestbookWish, 0, len(r.wishes))
	for i := len(r.wishes) - 1; i >= 0; i-- {
		if featuredOnly && !r.wishes[i].Featured {
			continue
		}
		out = append(out, r.wishes[i])
	}
	return out
}

func (r *memRepo) GetAllWishes(context.Context) ([]model.GuestbookWish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listWishes(false), nil
}

func (r *memRepo) GetFeaturedWishes(context.Context) ([]model.GuestbookWish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listWishes(true), nil
}

func (r *memRepo) ToggleWishFeatured(_ context.Context, id int64) (*model.GuestbookWish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.wishes {
		if r.wishes[i].ID == id {
			r.wishes[i].Featured = !r.wishes[i].Featured
			out := r.wishes[i]
			return &out, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *memRepo) DeleteWish(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.wishes {
		if r.wishes[i].ID == id {
			r.wishes = append(r.wishes[:i], r.wishes[i+1:]...)
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r *memRepo) MigrateUp(string) error   { return nil }
func (r *memRepo) MigrateDown(string) error { return nil }

type fakeUploader struct {
	mu    sync.Mutex
	calls int
	opts  media.UploadOptions
	err   error
}

func (u *fakeUploader) Name() string { return "fake" }

func (u *fakeUploader) Upload(_ context.Context, imageData string, opts media.UploadOptions) (*media.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	u.opts = opts
	if u.err != nil {
		return nil, u.err
	}
	if _, err := media.DecodeDataURI(imageData); err != nil {
		return nil, err
	}
	return &media.UploadResult{
		SecureURL: "https://media.example.com/wedding-photos/1.jpg",
		Bytes:     2048,
		Format:    "jpg",
	}, nil
}

type fakeDispatcher struct {
	mu    sync.Mutex
	tasks []notify.Task
}

func (d *fakeDispatcher) Dispatch(_ context.Context, task notify.Task) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
}

func (d *fakeDispatcher) Tasks() []notify.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Task(nil), d.tasks...)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+"|"+subject)
	return nil
}
