package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appLog "groovecal/internal/log"
	"groovecal/internal/model"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// habitColumns are the columns a habit update may change.
var habitColumns = []string{"name", "description", "category", "frequency", "duration", "priority", "tags", "active", "updated_at"}

// Gorm is a Store backed by gorm.
type Gorm struct {
	db *gorm.DB
}

var _ Store = (*Gorm)(nil)

// Open connects to the configured backend and migrates the schema.
func Open(driver, dsn string) (*Gorm, error) {
	var dialector gorm.Dialector

	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == DriverPostgres {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		// A single connection keeps ":memory:" databases shared and avoids
		// SQLITE_BUSY on writes.
		sqlDB.SetMaxOpenConns(1)
	}

	s, err := New(db)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	appLog.Info("database opened", "driver", driver)
	return s, nil
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&model.User{}, &model.Habit{}, &model.Completion{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Gorm{db: db}, nil
}

// DB exposes the underlying connection.
func (s *Gorm) DB() *gorm.DB {
	return s.db
}

func (s *Gorm) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Gorm) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return translate(err, "create user")
	}
	return nil
}

func (s *Gorm) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get user "+id)
	}
	return &u, nil
}

func (s *Gorm) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&users).Error; err != nil {
		return nil, translate(err, "list users")
	}
	return users, nil
}

func (s *Gorm) UpdateWorkHours(ctx context.Context, userID string, wh *model.WorkHours) error {
	res := s.db.WithContext(ctx).
		Model(&model.User{ID: userID}).
		Select("work_hours", "updated_at").
		Updates(&model.User{WorkHours: wh, UpdatedAt: time.Now().UTC()})
	if res.Error != nil {
		return translate(res.Error, "update work hours")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update work hours %s: %w", userID, ErrNotFound)
	}
	return nil
}

func (s *Gorm) CreateHabit(ctx context.Context, h *model.Habit) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Tags == nil {
		h.Tags = []string{}
	}
	if err := s.db.WithContext(ctx).Create(h).Error; err != nil {
		return translate(err, "create habit")
	}
	return nil
}

func (s *Gorm) GetHabit(ctx context.Context, id string) (*model.Habit, error) {
	var h model.Habit
	if err := s.db.WithContext(ctx).First(&h, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get habit "+id)
	}
	return &h, nil
}

func (s *Gorm) ListHabits(ctx context.Context, userID string) ([]model.Habit, error) {
	var habits []model.Habit
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Order("id asc").
		Find(&habits).Error
	if err != nil {
		return nil, translate(err, "list habits")
	}
	return habits, nil
}

// UpdateHabit overwrites the mutable fields of an existing habit. The owner
// and creation time never change.
func (s *Gorm) UpdateHabit(ctx context.Context, h *model.Habit) error {
	if h.Tags == nil {
		h.Tags = []string{}
	}
	h.UpdatedAt = time.Now().UTC()

	res := s.db.WithContext(ctx).
		Model(&model.Habit{ID: h.ID}).
		Select(habitColumns).
		Updates(h)
	if res.Error != nil {
		return translate(res.Error, "update habit")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update habit %s: %w", h.ID, ErrNotFound)
	}
	return nil
}

// DeleteHabit removes a habit together with its completions.
func (s *Gorm) DeleteHabit(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Habit{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error, "delete habit")
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete habit %s: %w", id, ErrNotFound)
		}
		if err := tx.Delete(&model.Completion{}, "habit_id = ?", id).Error; err != nil {
			return translate(err, "delete completions")
		}
		return nil
	})
}

func (s *Gorm) CreateCompletion(ctx context.Context, c *model.Completion) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return translate(err, "create completion")
	}
	return nil
}

func (s *Gorm) ListCompletions(ctx context.Context, userID string) ([]model.Completion, error) {
	var out []model.Completion
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at desc").
		Find(&out).Error
	if err != nil {
		return nil, translate(err, "list completions")
	}
	return out, nil
}

// translate maps driver errors onto the package sentinels.
func translate(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint failed"),
		strings.Contains(err.Error(), "duplicate key value"):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
