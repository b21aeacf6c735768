package postgresql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{
			name: "explicit sslmode",
			config: Config{
				Host: "db", Port: 5432, User: "app", Password: "secret", Database: "players_db", SSLMode: "require",
			},
			want: "host=db port=5432 user=app password=secret dbname=players_db sslmode=require",
		},
		{
			name:   "sslmode defaults to disable",
			config: Config{Host: "localhost", Port: 5433, User: "postgres", Database: "test"},
			want:   "host=localhost port=5433 user=postgres password= dbname=test sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.DSN())
		})
	}
}
