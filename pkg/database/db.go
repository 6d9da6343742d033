package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"anoa.com/foodrescue/internal/entity"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options describe how to reach postgres. DSN wins when set.
type Options struct {
	DSN      string
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	Debug    bool
}

func (o Options) dsn() string {
	if o.DSN != "" {
		return o.DSN
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		o.Host, o.User, o.Password, o.Name, o.Port,
	)
}

func Connect(opts Options, log *zap.Logger) (*gorm.DB, error) {
	level := logger.Warn
	if opts.Debug {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(opts.dsn()), &gorm.Config{
		Logger:  logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("database connected", zap.String("host", opts.Host), zap.String("name", opts.Name))
	return db, nil
}

var extensions = []string{"pgcrypto"}

// EnsureExtensions installs the postgres extensions the schema relies on
// (gen_random_uuid for notification ids).
func EnsureExtensions(ctx context.Context, db *sql.DB) error {
	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE EXTENSION IF NOT EXISTS "%s"`, ext)); err != nil {
			return fmt.Errorf("create extension %s: %w", ext, err)
		}
	}
	return nil
}

// Migrate creates extensions and brings every table up to date.
func Migrate(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := EnsureExtensions(ctx, sqlDB); err != nil {
		return err
	}

	return db.WithContext(ctx).AutoMigrate(
		&entity.User{},
		&entity.Donation{},
		&entity.PickupAssignment{},
		&entity.PointsLedgerEntry{},
		&entity.LeaderboardEntry{},
		&entity.Achievement{},
		&entity.Badge{},
		&entity.Notification{},
	)
}
