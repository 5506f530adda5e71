package audit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mymonad/aura/pkg/aura"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// EventRecord is the persisted form of an aura.Event.
type EventRecord struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	EventID     string    `gorm:"uniqueIndex;size:36"`
	Seq         uint64    `gorm:"index"`
	Kind        string    `gorm:"index;size:32"`
	Principal   string    `gorm:"index;size:64"`
	Counterpart string    `gorm:"index;size:64"`
	MatchID     string    `gorm:"size:66"`
	Commitment  string    `gorm:"size:66"`
	Points      uint64
	Requested   uint64
	Score       int
	Active      bool
	Reason      string
	At          time.Time `gorm:"index"`
}

// TableName pins the table name.
func (EventRecord) TableName() string { return "aura_events" }

// Store persists events with gorm.
type Store struct {
	db *gorm.DB
}

// OpenStore connects to the configured database and migrates the schema.
func OpenStore(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("audit: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", driver, err)
	}
	return NewStore(db)
}

// NewStore wraps an open database and migrates the schema.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Name implements Handler.
func (s *Store) Name() string { return "store" }

// Handle implements Handler.
func (s *Store) Handle(ctx context.Context, e aura.Event) error {
	rec := toRecord(e)
	return s.db.WithContext(ctx).Create(&rec).Error
}

// List implements Lister.
func (s *Store) List(ctx context.Context, principal aura.Principal, limit int) ([]aura.Event, error) {
	q := s.db.WithContext(ctx).Model(&EventRecord{}).Order("seq desc")
	if !principal.IsZero() {
		p := principal.String()
		q = q.Where("principal = ? OR counterpart = ?", p, p)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var records []EventRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}

	out := make([]aura.Event, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		e, err := records[i].toEvent()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// LastSeq returns the highest persisted sequence number.
func (s *Store) LastSeq(ctx context.Context) (uint64, error) {
	var seq uint64
	err := s.db.WithContext(ctx).Model(&EventRecord{}).
		Select("COALESCE(MAX(seq), 0)").Scan(&seq).Error
	return seq, err
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(e aura.Event) EventRecord {
	rec := EventRecord{
		EventID:   e.ID,
		Seq:       e.Seq,
		Kind:      string(e.Kind),
		Points:    e.Points,
		Requested: e.Requested,
		Score:     e.Score,
		Active:    e.Active,
		Reason:    e.Reason,
		At:        e.At,
	}
	if !e.Principal.IsZero() {
		rec.Principal = e.Principal.String()
	}
	if !e.Counterpart.IsZero() {
		rec.Counterpart = e.Counterpart.String()
	}
	if !e.MatchID.IsZero() {
		rec.MatchID = e.MatchID.String()
	}
	if !e.Commitment.IsZero() {
		rec.Commitment = e.Commitment.String()
	}
	return rec
}

func (r EventRecord) toEvent() (aura.Event, error) {
	e := aura.Event{
		ID:        r.EventID,
		Seq:       r.Seq,
		Kind:      aura.EventKind(r.Kind),
		Points:    r.Points,
		Requested: r.Requested,
		Score:     r.Score,
		Active:    r.Active,
		Reason:    r.Reason,
		At:        r.At,
	}

	var err error
	if r.Principal != "" {
		if e.Principal, err = aura.ParsePrincipal(r.Principal); err != nil {
			return e, err
		}
	}
	if r.Counterpart != "" {
		if e.Counterpart, err = aura.ParsePrincipal(r.Counterpart); err != nil {
			return e, err
		}
	}
	if r.MatchID != "" {
		if e.MatchID, err = aura.ParseDigest(r.MatchID); err != nil {
			return e, err
		}
	}
	if r.Commitment != "" {
		if e.Commitment, err = aura.ParseDigest(r.Commitment); err != nil {
			return e, err
		}
	}
	return e, nil
}
