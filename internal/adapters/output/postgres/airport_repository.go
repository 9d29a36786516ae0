package postgres

import (
	"context"

	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/output"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Compile-time check to ensure AirportRepository implements AirportDirectory interface
var _ output.AirportDirectory = (*AirportRepository)(nil)

// AirportRepository struct - Secondary/Driven adapter for PostgreSQL
type AirportRepository struct {
	dbGorm *gorm.DB
}

// NewAirportRepository func - Migrates the airports table and seeds the default directory
func NewAirportRepository(dbGorm *gorm.DB) *AirportRepository {
	logrus.Info("Migrate database ...")
	domain.MigrateDatabase(dbGorm)

	seed := make([]domain.Airport, len(domain.DefaultAirports))
	copy(seed, domain.DefaultAirports)
	result := dbGorm.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed)
	if result.Error != nil {
		logrus.Errorln(result.Error)
	} else {
		logrus.Infof("Seeded %d airports", result.RowsAffected)
	}

	return &AirportRepository{
		dbGorm: dbGorm,
	}
}

// KnownAirportCodes func - Lists every stored IATA code
func (p *AirportRepository) KnownAirportCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := p.dbGorm.WithContext(ctx).Model(&domain.Airport{}).Order("code").Pluck("code", &codes).Error; err != nil {
		logrus.Errorln(err)
		return nil, err
	}
	return codes, nil
}

// Ping func - Checks the database connection
func (p *AirportRepository) Ping(ctx context.Context) error {
	sqlDB, err := p.dbGorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
