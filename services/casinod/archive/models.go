package archive

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRecord keeps every committed engine event verbatim.
type EventRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type       string    `gorm:"index"`
	Game       string    `gorm:"index"`
	Attributes string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"index"`
}

// Settlement is the normalised row of one ledger movement.
type Settlement struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID         uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Game            string    `gorm:"index"`
	Player          string    `gorm:"index"`
	Result          string
	Outcome         string
	Stake           int64
	Payout          int64
	ProfitDelta     int64
	JackpotPaid     int64
	ReferralAccrual int64
	CreatedAt       time.Time `gorm:"index"`
}

// AutoMigrate performs all schema migrations for the archive.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EventRecord{}, &Settlement{})
}
