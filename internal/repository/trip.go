package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/langchou/tripbook/internal/models"
)

// 错误定义
var (
	ErrTripNotFound     = errors.New("trip not found")
	ErrActiveTripExists = errors.New("another active trip exists")
)

const uniqueViolation = "23505"

const tripColumns = `id, start_time, end_time, start_battery_percent, end_battery_percent,
	start_odometer_km, end_odometer_km, created_at, updated_at`

// TripRepository 行程数据仓库
type TripRepository struct {
	db *DB
}

// NewTripRepository 创建行程仓库
func NewTripRepository(db *DB) *TripRepository {
	return &TripRepository{db: db}
}

// Insert 创建行程
func (r *TripRepository) Insert(ctx context.Context, trip *models.Trip) error {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	query := `
		INSERT INTO trips (id, start_time, end_time, start_battery_percent, end_battery_percent, start_odometer_km, end_odometer_km)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		trip.ID,
		trip.StartTime,
		trip.EndTime,
		trip.StartBatteryPercent,
		trip.EndBatteryPercent,
		trip.StartOdometerKm,
		trip.EndOdometerKm,
	).Scan(&trip.CreatedAt, &trip.UpdatedAt)

	if err != nil {
		return fmt.Errorf("insert trip: %w", translateError(err))
	}
	return nil
}

// Update 整体覆盖行程的六个字段
func (r *TripRepository) Update(ctx context.Context, trip *models.Trip) error {
	query := `
		UPDATE trips SET
			start_time = $1,
			end_time = $2,
			start_battery_percent = $3,
			end_battery_percent = $4,
			start_odometer_km = $5,
			end_odometer_km = $6,
			updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		trip.StartTime,
		trip.EndTime,
		trip.StartBatteryPercent,
		trip.EndBatteryPercent,
		trip.StartOdometerKm,
		trip.EndOdometerKm,
		trip.ID,
	).Scan(&trip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update trip: %w", translateError(err))
	}
	return nil
}

// Delete 删除行程
func (r *TripRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete trip %s: %w", id, ErrTripNotFound)
	}
	return nil
}

// GetByID 获取行程
func (r *TripRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	trip, err := scanTrip(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get trip by id: %w", translateError(err))
	}
	return trip, nil
}

// FindActive 获取进行中的行程，没有时返回 nil, nil
func (r *TripRepository) FindActive(ctx context.Context) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE end_time IS NULL ORDER BY start_time DESC LIMIT 1`
	trip, err := scanTrip(r.db.Pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active trip: %w", err)
	}
	return trip, nil
}

// FindCompleted 获取已完成的行程，按开始时间倒序
func (r *TripRepository) FindCompleted(ctx context.Context) ([]*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE end_time IS NOT NULL ORDER BY start_time DESC`
	return r.list(ctx, query)
}

// FindLastCompleted 获取最近一次已完成的行程，没有时返回 nil, nil
func (r *TripRepository) FindLastCompleted(ctx context.Context) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE end_time IS NOT NULL ORDER BY start_time DESC LIMIT 1`
	trip, err := scanTrip(r.db.Pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find last completed trip: %w", err)
	}
	return trip, nil
}

// FindInMonth 获取某月开始的行程，按开始时间正序
func (r *TripRepository) FindInMonth(ctx context.Context, year int, month time.Month) ([]*models.Trip, error) {
	from, to := MonthRange(year, month, time.Local)
	query := `SELECT ` + tripColumns + ` FROM trips WHERE start_time >= $1 AND start_time < $2 ORDER BY start_time`
	return r.list(ctx, query, from, to)
}

func (r *TripRepository) list(ctx context.Context, query string, args ...any) ([]*models.Trip, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}

	return trips, nil
}

func scanTrip(row pgx.Row) (*models.Trip, error) {
	trip := &models.Trip{}
	err := row.Scan(
		&trip.ID,
		&trip.StartTime,
		&trip.EndTime,
		&trip.StartBatteryPercent,
		&trip.EndBatteryPercent,
		&trip.StartOdometerKm,
		&trip.EndOdometerKm,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// translateError 将驱动错误映射为仓库错误
func translateError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTripNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrActiveTripExists
	}
	return err
}

// MonthRange 返回某月的 [起始, 下月起始) 时间范围
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}
