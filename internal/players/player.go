package players

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
)

// ErrNotFound is returned for unknown player ids. It wraps jobs.ErrNotFound so work
// failing on a missing player is terminal.
var ErrNotFound = fmt.Errorf("player %w", jobs.ErrNotFound)

// PlayingStatus is a player's career status
type PlayingStatus string

const (
	StatusActive    PlayingStatus = "active"
	StatusRetired   PlayingStatus = "retired"
	StatusFreeAgent PlayingStatus = "free_agent"
)

// Player is a row of the players table
type Player struct {
	ID             int64          `db:"id"`
	FullName       string         `db:"full_name"`
	Country        string         `db:"country"`
	Age            int            `db:"age"`
	Status         PlayingStatus  `db:"status"`
	CurrentTeam    sql.NullString `db:"current_team"`
	League         sql.NullString `db:"league"`
	MarketValue    sql.NullInt64  `db:"market_value"`
	ScoutingReport sql.NullString `db:"scouting_report"`
}

// Update lists the fields to change. Nil fields are left untouched.
type Update struct {
	MarketValue    *int64
	ScoutingReport *string
}

// Empty reports whether u changes nothing
func (u Update) Empty() bool {
	return u.MarketValue == nil && u.ScoutingReport == nil
}

// Store is the entity store the units of work read and write
type Store interface {
	Get(ctx context.Context, id int64) (*Player, error)
	Update(ctx context.Context, id int64, u Update) (*Player, error)
	ListIDs(ctx context.Context) ([]int64, error)
}
