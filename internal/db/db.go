package db

import (
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/orangecountyai/clem/internal/store"
)

// Connect opens the MySQL database and runs migrations for the bot's tables.
func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := gdb.AutoMigrate(
		&store.Message{},
		&store.KarmaEntry{},
		&store.ChannelConfig{},
		&store.SummaryJob{},
	); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	return gdb
}
