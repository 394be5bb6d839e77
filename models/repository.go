package models

import (
	"context"
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Repository persists whole snapshots. ReplaceAll must be atomic: a
// crashing or concurrent writer must never leave the backing store
// holding part of a snapshot.
type Repository interface {
	ReplaceAll(ctx context.Context, snap *Snapshot) error
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
	Close() error
}

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgresRepository() (*PostgresRepository, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&ConsultationRecord{}, &PhoneLeadRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// ReplaceAll clears both tables and re-inserts every record of the
// snapshot inside a single transaction.
func (r *PostgresRepository) ReplaceAll(ctx context.Context, snap *Snapshot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM consultations").Error; err != nil {
			return fmt.Errorf("failed to clear consultations: %w", err)
		}
		if err := tx.Exec("DELETE FROM phone_leads").Error; err != nil {
			return fmt.Errorf("failed to clear phone leads: %w", err)
		}
		if len(snap.Consultations) > 0 {
			if err := tx.CreateInBatches(snap.Consultations, 200).Error; err != nil {
				return fmt.Errorf("failed to insert consultations: %w", err)
			}
		}
		if len(snap.PhoneLeads) > 0 {
			if err := tx.CreateInBatches(snap.PhoneLeads, 200).Error; err != nil {
				return fmt.Errorf("failed to insert phone leads: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresRepository) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := r.db.WithContext(ctx).Find(&snap.Consultations).Error; err != nil {
		return nil, fmt.Errorf("failed to load consultations: %w", err)
	}
	if err := r.db.WithContext(ctx).Find(&snap.PhoneLeads).Error; err != nil {
		return nil, fmt.Errorf("failed to load phone leads: %w", err)
	}
	return snap, nil
}

func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
