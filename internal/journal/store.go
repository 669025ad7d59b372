package journal

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// PostgresConfig locates the journal database.
// DSN wins over the individual fields when set.
type PostgresConfig struct {
	DSN      string            `json:"dsn"`
	Host     string            `json:"host"`
	Port     int               `json:"port"`
	User     string            `json:"user"`
	Password string            `json:"password"`
	Database string            `json:"database"`
	SSLMode  string            `json:"sslmode"`
	Params   map[string]string `json:"params"`
}

// Enabled reports whether any database location is configured.
func (c PostgresConfig) Enabled() bool {
	return c.DSN != "" || c.Host != "" || c.Database != ""
}

// ConnString builds a postgres:// URL from the config.
func (c PostgresConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}

	host := c.Host
	if host == "" {
		host = defaultPostgresHost
	}
	port := c.Port
	if port == 0 {
		port = defaultPostgresPort
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	if c.Database != "" {
		u.Path = "/" + c.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	for key, value := range c.Params {
		if key == "" {
			continue
		}
		query.Set(key, value)
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// eventRecord is the socket_events row.
type eventRecord struct {
	ID        string    `gorm:"primaryKey;type:uuid"`
	ClientID  string    `gorm:"index;type:uuid;not null"`
	URL       string    `gorm:"not null"`
	Kind      string    `gorm:"size:16;not null"`
	Mode      string    `gorm:"size:16;not null"`
	Stats     string    `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"index;not null"`
}

func (eventRecord) TableName() string {
	return "socket_events"
}

func toRecord(ev Event) (eventRecord, error) {
	stats, err := sonic.ConfigFastest.MarshalToString(ev.Stats)
	if err != nil {
		return eventRecord{}, errors.Wrap(err, "marshal stats").With("event", ev.ID)
	}
	return eventRecord{
		ID:        ev.ID,
		ClientID:  ev.ClientID,
		URL:       ev.URL,
		Kind:      string(ev.Kind),
		Mode:      ev.Mode.String(),
		Stats:     stats,
		CreatedAt: ev.At.UTC(),
	}, nil
}

// PostgresStore writes events into postgres through gorm.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects to the database and migrates the events table.
func OpenPostgres(cfg PostgresConfig) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.ConnString()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	store, err := NewPostgresStore(db)
	if err != nil {
		_ = closeDB(db)
		return nil, err
	}
	return store, nil
}

// NewPostgresStore uses an existing gorm handle and migrates the events table.
func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&eventRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate socket_events")
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Append(ctx context.Context, events []Event) error {
	records := make([]eventRecord, 0, len(events))
	for _, ev := range events {
		rec, err := toRecord(ev)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(records, len(records)).Error; err != nil {
		return errors.Wrap(err, "insert socket_events").With("count", len(records))
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return closeDB(s.db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
