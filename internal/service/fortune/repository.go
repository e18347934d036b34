package fortune

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

var ErrDuplicateReading = errors.New("fortune reading already recorded")

// ReadingDraw is one revealed card of a completed reading.
type ReadingDraw struct {
	Slot     int    `json:"slot"`
	SymbolID int    `json:"symbol_id"`
	Symbol   string `json:"symbol"`
	Number   int    `json:"number"`
	Element  string `json:"element"`
}

// Reading is an append-only log entry written when results are shown.
type Reading struct {
	ID              int64
	ReadingUUID     string
	PlayerHash      string
	RoomHash        string
	PlayerName      string
	Locale          string
	Assignment      string
	Draws           []ReadingDraw
	TotalScore      int
	DominantElement string
	StartedAt       time.Time
	CompletedAt     time.Time
}

type Repository interface {
	InsertReading(ctx context.Context, r *Reading) (int64, error)
	RecentReadings(ctx context.Context, playerHash string, limit int) ([]*Reading, error)
}

const readingsSchema = `
CREATE TABLE IF NOT EXISTS fortune_readings (
	id               BIGSERIAL PRIMARY KEY,
	reading_uuid     UUID NOT NULL UNIQUE,
	player_hash      TEXT NOT NULL,
	room_hash        TEXT NOT NULL,
	player_name      TEXT NOT NULL DEFAULT '',
	locale           TEXT NOT NULL,
	assignment       TEXT NOT NULL,
	draws            JSONB NOT NULL,
	total_score      INTEGER NOT NULL,
	dominant_element TEXT NOT NULL,
	started_at       TIMESTAMPTZ NOT NULL,
	completed_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS fortune_readings_player_idx ON fortune_readings (player_hash, completed_at DESC);`

type repository struct {
	db *sql.DB
}

// OpenPostgres opens and pings databaseURL with the pool settings used across the bot.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// EnsureSchema creates the readings table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, readingsSchema); err != nil {
		return fmt.Errorf("ensure fortune schema: %w", err)
	}
	return nil
}

func (r *repository) InsertReading(ctx context.Context, rd *Reading) (int64, error) {
	if rd == nil {
		return 0, fmt.Errorf("nil fortune reading")
	}
	draws, err := json.Marshal(rd.Draws)
	if err != nil {
		return 0, fmt.Errorf("marshal draws: %w", err)
	}

	const query = `
		INSERT INTO fortune_readings (
			reading_uuid,
			player_hash,
			room_hash,
			player_name,
			locale,
			assignment,
			draws,
			total_score,
			dominant_element,
			started_at,
			completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11)
		ON CONFLICT (reading_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(ctx, query,
		rd.ReadingUUID,
		rd.PlayerHash,
		rd.RoomHash,
		rd.PlayerName,
		rd.Locale,
		rd.Assignment,
		draws,
		rd.TotalScore,
		rd.DominantElement,
		rd.StartedAt,
		rd.CompletedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateReading
	}
	if err != nil {
		return 0, fmt.Errorf("insert fortune reading: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) RecentReadings(ctx context.Context, playerHash string, limit int) ([]*Reading, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT
			id,
			reading_uuid,
			player_hash,
			room_hash,
			player_name,
			locale,
			assignment,
			draws,
			total_score,
			dominant_element,
			started_at,
			completed_at
		FROM fortune_readings
		WHERE player_hash = $1
		ORDER BY completed_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, playerHash, limit)
	if err != nil {
		return nil, fmt.Errorf("select fortune readings: %w", err)
	}
	defer rows.Close()

	out := make([]*Reading, 0, limit)
	for rows.Next() {
		var (
			rd    Reading
			draws []byte
		)
		if err := rows.Scan(
			&rd.ID,
			&rd.ReadingUUID,
			&rd.PlayerHash,
			&rd.RoomHash,
			&rd.PlayerName,
			&rd.Locale,
			&rd.Assignment,
			&draws,
			&rd.TotalScore,
			&rd.DominantElement,
			&rd.StartedAt,
			&rd.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan fortune reading: %w", err)
		}
		if len(draws) > 0 {
			if err := json.Unmarshal(draws, &rd.Draws); err != nil {
				return nil, fmt.Errorf("decode draws: %w", err)
			}
		}
		out = append(out, &rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fortune readings: %w", err)
	}
	return out, nil
}
