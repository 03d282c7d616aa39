package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"wedsite/internal/model"
)

var ErrNotFound = errors.New("record not found")

type Repository interface {
	CreateRSVP(ctx context.Context, r *model.RSVP) (*model.RSVP, error)
	GetAllRSVPs(ctx context.Context) ([]model.RSVP, error)
	GetRSVPStats(ctx context.Context) ([]model.RSVPStat, error)

	CreatePhoto(ctx context.Context, p *model.Photo) (*model.Photo, error)
	GetPhotos(ctx context.Context, approvedOnly bool) ([]model.Photo, error)
	LikePhoto(ctx context.Context, id int64) (*model.Photo, error)
	SetPhotoApproval(ctx context.Context, id int64, approved bool) (*model.Photo, error)
	DeletePhoto(ctx context.Context, id int64) error

	CreateWish(ctx context.Context, w *model.GuestbookWish) (*model.GuestbookWish, error)
	GetAllWishes(ctx context.Context) ([]model.GuestbookWish, error)
	GetFeaturedWishes(ctx context.Context) ([]model.GuestbookWish, error)
	ToggleWishFeatured(ctx context.Context, id int64) (*model.GuestbookWish, error)
	DeleteWish(ctx context.Context, id int64) error

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

// Executor is the query surface shared by *dbpg.DB and *sql.DB.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repository struct {
	master Executor
	reader Executor
	log    *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return newRepository(db.Master, db, log), nil
}

// newRepository sends RETURNING writes to master and lets reads use replicas.
func newRepository(master, reader Executor, log *zerolog.Logger) *repository {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &repository{master: master, reader: reader, log: log}
}

func (r *repository) observe(op string, start time.Time) {
	r.log.Debug().
		Str("op", op).
		Dur("duration", time.Since(start)).
		Msg("query executed")
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		if err := r.applyFile(file); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Int("files", len(files)).Msgf("Migrations applied from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	for _, file := range files {
		if err := r.applyFile(file); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Int("files", len(files)).Msgf("Migrations rolled back from %s", migrationsDir)
	return nil
}

func (r *repository) applyFile(file string) error {
	sqlBytes, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	_, err = r.master.ExecContext(context.Background(), string(sqlBytes))
	return err
}

// notFound maps an empty RETURNING result onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
