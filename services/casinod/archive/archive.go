package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wagerchain/core/events"
	"wagerchain/native/house"
)

// Archive persists committed events into a SQL database. It implements
// events.Emitter so it can sit behind the node's post-commit fan-out.
type Archive struct {
	db     *gorm.DB
	log    *slog.Logger
	now    func() time.Time
	timeout time.Duration
}

// Open connects to driver ("sqlite" or "postgres") and migrates the schema.
func Open(driver, dsn string, log *slog.Logger) (*Archive, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("archive: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return New(db, log), nil
}

// New wraps an already migrated database handle.
func New(db *gorm.DB, log *slog.Logger) *Archive {
	if log == nil {
		log = slog.Default()
	}
	return &Archive{db: db, log: log, now: time.Now, timeout: 5 * time.Second}
}

// Close releases the underlying connection pool.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Emit implements events.Emitter. Failures are logged; the ledger has already
// committed.
func (a *Archive) Emit(evt events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.Record(ctx, evt); err != nil {
		a.log.Error("archive event", "type", evt.EventType(), "error", err)
	}
}

// Record stores evt and, for ledger movements, its normalised settlement row.
func (a *Archive) Record(ctx context.Context, evt events.Event) error {
	payload := events.Unwrap(evt)
	if payload == nil {
		return errors.New("archive: event has no payload")
	}
	attrs, err := json.Marshal(payload.Attributes)
	if err != nil {
		return fmt.Errorf("archive: encode attributes: %w", err)
	}
	now := a.now().UTC()
	rec := EventRecord{
		ID:         uuid.New(),
		Type:       payload.Type,
		Game:       payload.Attributes["game"],
		Attributes: string(attrs),
		CreatedAt:  now,
	}
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("archive: insert event: %w", err)
		}
		if payload.Type != house.EventTypeWagerSettled {
			return nil
		}
		row := settlementFrom(rec.ID, payload.Attributes, now)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("archive: insert settlement: %w", err)
		}
		return nil
	})
}

func settlementFrom(eventID uuid.UUID, attrs map[string]string, at time.Time) Settlement {
	return Settlement{
		ID:              uuid.New(),
		EventID:         eventID,
		Game:            attrs["game"],
		Player:          attrs["player"],
		Result:          attrs["result"],
		Outcome:         attrs["outcome"],
		Stake:           amount(attrs["stake"]),
		Payout:          amount(attrs["payout"]),
		ProfitDelta:     signed(attrs["profitDelta"]),
		JackpotPaid:     amount(attrs["jackpotPaid"]),
		ReferralAccrual: amount(attrs["referralAccrual"]),
		CreatedAt:       at,
	}
}

// amount parses a base unit attribute, clamping to the signed column range.
func amount(raw string) int64 {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

func signed(raw string) int64 {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Filter narrows archive queries. Zero fields match everything.
type Filter struct {
	Game   string
	Player string
	Since  time.Time
	Until  time.Time
	Limit  int
}

func (f Filter) apply(q *gorm.DB) *gorm.DB {
	if f.Game != "" {
		q = q.Where("game = ?", strings.ToLower(strings.TrimSpace(f.Game)))
	}
	if f.Player != "" {
		q = q.Where("player = ?", f.Player)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}
	if !f.Until.IsZero() {
		q = q.Where("created_at < ?", f.Until.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	return q
}

// Settlements lists settlement rows oldest first.
func (a *Archive) Settlements(ctx context.Context, f Filter) ([]Settlement, error) {
	var rows []Settlement
	q := f.apply(a.db.WithContext(ctx).Model(&Settlement{})).Order("created_at asc").Order("id asc")
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("archive: query settlements: %w", err)
	}
	return rows, nil
}

// Events lists raw events of one type, oldest first. An empty type matches
// every event.
func (a *Archive) Events(ctx context.Context, eventType string, limit int) ([]EventRecord, error) {
	var rows []EventRecord
	q := a.db.WithContext(ctx).Model(&EventRecord{})
	if eventType != "" {
		q = q.Where("type = ?", eventType)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("archive: query events: %w", err)
	}
	return rows, nil
}
