package players

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const playerColumns = `id, full_name, country, age, status, current_team, league, market_value, scouting_report`

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id              BIGSERIAL PRIMARY KEY,
	full_name       VARCHAR(100) NOT NULL,
	country         VARCHAR(50)  NOT NULL,
	age             INTEGER      NOT NULL CHECK (age BETWEEN 0 AND 120),
	status          VARCHAR(20)  NOT NULL,
	current_team    VARCHAR(100),
	league          VARCHAR(100),
	market_value    BIGINT CHECK (market_value >= 0),
	scouting_report TEXT
)`

// Postgres is the players table accessed through sqlx
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres creates a store on db
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

var _ Store = (*Postgres)(nil)

// EnsureSchema creates the players table when missing
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create players table: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id int64) (*Player, error) {
	var p Player
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	if err := s.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	return &p, nil
}

// Update writes the set fields in one statement and returns the updated row
func (s *Postgres) Update(ctx context.Context, id int64, u Update) (*Player, error) {
	if u.Empty() {
		return s.Get(ctx, id)
	}

	sets := []string{}
	args := []interface{}{}
	argIdx := 1

	if u.MarketValue != nil {
		sets = append(sets, fmt.Sprintf("market_value = $%d", argIdx))
		args = append(args, *u.MarketValue)
		argIdx++
	}
	if u.ScoutingReport != nil {
		sets = append(sets, fmt.Sprintf("scouting_report = $%d", argIdx))
		args = append(args, *u.ScoutingReport)
		argIdx++
	}

	query := fmt.Sprintf(`UPDATE players SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), argIdx, playerColumns)
	args = append(args, id)

	var p Player
	if err := s.db.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to update player %d: %w", id, err)
	}
	return &p, nil
}

// ListIDs returns every player id in ascending order
func (s *Postgres) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM players ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list player ids: %w", err)
	}
	return ids, nil
}

// Insert adds p and sets its generated id
func (s *Postgres) Insert(ctx context.Context, p *Player) error {
	query := `
		INSERT INTO players (
			full_name, country, age, status,
			current_team, league, market_value, scouting_report
		) VALUES (
			:full_name, :country, :age, :status,
			:current_team, :league, :market_value, :scouting_report
		) RETURNING id
	`

	rows, err := s.db.NamedQueryContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("failed to insert player: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("failed to insert player: no id returned")
	}
	if err := rows.Scan(&p.ID); err != nil {
		return fmt.Errorf("failed to scan player id: %w", err)
	}
	return rows.Err()
}
