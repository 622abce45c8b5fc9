package db

import (
	"eventadmission/src/config"
	"eventadmission/src/models"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func GetDb() *gorm.DB {
	if db != nil {
		return db
	}
	_db, err := gorm.Open(postgres.Open(config.GetDSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Printf("Error connecting to database: %s\n", err.Error())
		panic(err)
	}
	sqlDB, err := _db.DB()
	if err != nil {
		log.Fatalf("Error establishing connection to database: %s\n", err.Error())
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	db = _db
	return _db
}

func NewDB(newdb *gorm.DB) {
	db = newdb
}

var migrations = []any{
	&models.Event{},
	&models.TicketType{},
	&models.PriceTier{},
	&models.Reservation{},
	&models.Order{},
	&models.OrderInvite{},
	&models.Registration{},
	&models.EventVolunteerRole{},
	&models.VolunteerRegistration{},
	&models.RewardLedgerEntry{},
	&models.Transaction{},
	&models.Notification{},
}

// Partial unique indexes back the one-active-row invariants. Both Postgres and SQLite accept them.
var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_registrations_active_user
		ON registrations (event_id, user_id) WHERE status <> 'CANCELLED' AND deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_volunteer_registrations_active_user
		ON volunteer_registrations (role_id, user_id) WHERE status <> 'CANCELLED' AND deleted_at IS NULL`,
}

func Migrate(d *gorm.DB) error {
	if err := d.AutoMigrate(migrations...); err != nil {
		return err
	}
	return createIndexes(d)
}

func createIndexes(d *gorm.DB) error {
	for _, stmt := range indexes {
		if err := d.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
