package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPlayers(t *testing.T) {
	tests := []struct {
		name    string
		all     bool
		raw     string
		want    []int64
		wantErr string
	}{
		{name: "all", all: true, want: nil},
		{name: "ids", raw: "1,2,3", want: []int64{1, 2, 3}},
		{name: "ids with spaces", raw: " 4 , 5,,6 ", want: []int64{4, 5, 6}},
		{name: "nothing", wantErr: "either --all or --player-ids is required"},
		{name: "only commas", raw: ",,", wantErr: "either --all or --player-ids is required"},
		{name: "both", all: true, raw: "1", wantErr: "mutually exclusive"},
		{name: "not a number", raw: "1,x", wantErr: `invalid player id "x"`},
		{name: "negative", raw: "-2", wantErr: `invalid player id "-2"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectPlayers(tt.all, tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRefreshCommand_RequiresSelector(t *testing.T) {
	err := newCommand().Run(context.Background(), []string{"refresh", "--config", "does-not-matter.yaml"})
	assert.ErrorIs(t, err, errNoSelector)
}

func TestRefreshCommand_MissingConfig(t *testing.T) {
	err := newCommand().Run(context.Background(), []string{"refresh", "--all", "--config", "testdata/missing.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestWaitCommand(t *testing.T) {
	err := newCommand().Run(context.Background(), []string{"refresh", "wait"})
	assert.ErrorIs(t, err, errNoJobID)

	err = newCommand().Run(context.Background(), []string{"refresh", "wait", "--config", "testdata/missing.yaml", "4f1c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
