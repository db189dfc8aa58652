package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/types"
	"github.com/lukyamuziB/lenken-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "lenken", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.MentorshipRequest{},
		&types.Session{},
		&types.Rating{},
		&types.SessionFile{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []string{
		`ALTER TABLE "session"
		 DROP CONSTRAINT IF EXISTS "fk_session_request_id",
		 ADD CONSTRAINT "fk_session_request_id"
		 FOREIGN KEY ("request_id") REFERENCES "mentorship_request"("id")
		 ON DELETE CASCADE`,
		`ALTER TABLE "rating"
		 DROP CONSTRAINT IF EXISTS "fk_rating_session_id",
		 ADD CONSTRAINT "fk_rating_session_id"
		 FOREIGN KEY ("session_id") REFERENCES "session"("id")
		 ON DELETE CASCADE`,
		`ALTER TABLE "session_file"
		 DROP CONSTRAINT IF EXISTS "fk_session_file_session_id",
		 ADD CONSTRAINT "fk_session_file_session_id"
		 FOREIGN KEY ("session_id") REFERENCES "session"("id")
		 ON DELETE CASCADE`,
	}
	for _, stmt := range constraints {
		if err := s.db.Exec(stmt).Error; err != nil {
			s.log.Error("Failed to configure foreign key", "error", err)
			return err
		}
	}
	return nil
}
