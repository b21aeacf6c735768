package scout

import (
	"fmt"
	"strings"

	"github.com/cuongbtq/scout-jobs/internal/players"
)

// Profile is what a report generator knows about a player
type Profile struct {
	PlayerID    int64
	Name        string
	Country     string
	Age         int
	Status      string
	Team        string
	League      string
	MarketValue *int64
}

// ProfileOf builds the generator input from a player row
func ProfileOf(p *players.Player) Profile {
	profile := Profile{
		PlayerID: p.ID,
		Name:     p.FullName,
		Country:  p.Country,
		Age:      p.Age,
		Status:   string(p.Status),
		Team:     p.CurrentTeam.String,
		League:   p.League.String,
	}
	if p.MarketValue.Valid {
		v := p.MarketValue.Int64
		profile.MarketValue = &v
	}
	return profile
}

// Prompt renders the instruction sent to a language model
func Prompt(p Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short, professional football scouting report for a player named %s. ", p.Name)
	fmt.Fprintf(&b, "Age: %d. Country: %s. Status: %s. ", p.Age, p.Country, p.Status)
	if p.Team != "" {
		fmt.Fprintf(&b, "Team: %s. ", p.Team)
	}
	if p.League != "" {
		fmt.Fprintf(&b, "League: %s. ", p.League)
	}
	if p.MarketValue != nil {
		fmt.Fprintf(&b, "Market value: $%d. ", *p.MarketValue)
	}
	b.WriteString("Focus on strengths and potential. Keep it under 100 words.")
	return b.String()
}
