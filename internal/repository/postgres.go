package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresStore implements Store on top of database/sql with lib/pq.
type PostgresStore struct {
	querier
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(cred *Credentials, logger *zap.Logger) (*PostgresStore, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	logger.Info("connected to postgres", zap.String("host", cred.Host), zap.String("db", cred.DBName))
	return &PostgresStore{querier: querier{q: db}, db: db, logger: logger}, nil
}

func (s *PostgresStore) RunMigrations(cred *Credentials) error {
	driver, err := migratepg.WithInstance(s.db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// WithinTx opens one database transaction and hands it to fn. Any error
// from fn rolls the whole thing back; only begin/commit failures are
// reported as Unavailable, business errors pass through untouched.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %v: %w", err, domain.ErrUnavailable)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&postgresTx{querier: querier{q: sqlTx}}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %v: %w", err, domain.ErrUnavailable)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// postgresTx runs the same queries as the store, bound to one *sql.Tx.
type postgresTx struct {
	querier
}
