// Package repository содержит хранилище истории AI-генераций в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrMissingUser возвращается при попытке сохранить запись без пользователя.
var ErrMissingUser = errors.New("history record has no user")

// rowQuerier — часть pgxpool.Pool, нужная для вставки записи.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// insertHistory идемпотентна по request_key: повтор после обрыва соединения
// возвращает уже сохранённую строку вместо создания дубликата.
const insertHistory = `INSERT INTO generation_history (request_key, user_id, image, prompt, room_analysis, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (request_key) DO UPDATE SET request_key = EXCLUDED.request_key
	RETURNING id`

// PostgresRepository хранит историю генераций в PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	rows   rowQuerier
	delays []time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool:   pool,
		rows:   pool,
		delays: []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second},
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при временных ошибках: конфликт сериализации, взаимоблокировка, обрыв соединения.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(r.delays); i++ {
		err = fn()
		if err == nil || !isRetryable(err) || i == len(r.delays) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delays[i]):
		}
	}
	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected ||
			pgerrcode.IsConnectionException(pgErr.Code)
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Append сохраняет завершённую генерацию и возвращает запись с присвоенным идентификатором.
func (r *PostgresRepository) Append(ctx context.Context, rec model.HistoryRecord) (model.HistoryRecord, error) {
	if rec.UserID == "" {
		return model.HistoryRecord{}, ErrMissingUser
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	key := uuid.New()
	err := r.withRetry(ctx, func() error {
		return r.rows.QueryRow(ctx, insertHistory,
			key, rec.UserID, rec.Image, rec.Prompt, rec.RoomAnalysis, rec.CreatedAt,
		).Scan(&rec.ID)
	})
	if err != nil {
		return model.HistoryRecord{}, fmt.Errorf("insert history record: %w", err)
	}

	return rec, nil
}

// List возвращает историю пользователя в порядке добавления.
func (r *PostgresRepository) List(ctx context.Context, userID string) ([]model.HistoryRecord, error) {
	var res []model.HistoryRecord

	err := r.withRetry(ctx, func() error {
		res = res[:0]

		rows, err := r.pool.Query(ctx,
			`SELECT id, image, prompt, room_analysis, created_at
			 FROM generation_history
			 WHERE user_id = $1
			 ORDER BY id`,
			userID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rec := model.HistoryRecord{UserID: userID}
			if err := rows.Scan(&rec.ID, &rec.Image, &rec.Prompt, &rec.RoomAnalysis, &rec.CreatedAt); err != nil {
				return fmt.Errorf("scan history record: %w", err)
			}
			res = append(res, rec)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}

	if res == nil {
		res = []model.HistoryRecord{}
	}
	return res, nil
}
