package game

import (
	"math"
	"strings"
)

type Rank struct {
	Title string `json:"title"`
	Color string `json:"color"`
	Stars int    `json:"stars"`
}

// Label is the title followed by one star per extra tier.
func (r Rank) Label() string {
	if r.Stars <= 0 {
		return r.Title
	}
	return r.Title + " " + strings.Repeat("*", r.Stars)
}

var rankLadder = []struct {
	below float64
	title string
	color string
}{
	{2_000, "Beginner Investor", "#A0A0A0"},
	{10_000, "Aspiring Trader", "#5DADE2"},
	{25_000, "Emerging Investor", "#48C9B0"},
	{75_000, "Market Analyst", "#28B463"},
	{150_000, "Portfolio Builder", "#239B56"},
	{300_000, "Capital Strategist", "#F7DC6F"},
	{600_000, "Financial Tycoon", "#F5B041"},
	{1_200_000, "Investment Master I", "#EC7063"},
	{1_800_000, "Investment Master II", "#E74C3C"},
	{3_000_000, "Investment Master III", "#C0392B"},
	{5_000_000, "Investment Legend I", "#9B59B6"},
	{10_000_000, "Investment Legend II", "#8E44AD"},
	{20_000_000, "Investment Legend III", "#7D3C98"},
}

const (
	radiantFloor = 20_000_000.0
	starStep     = 10_000_000.0
)

// RankFor maps net worth onto the player ladder. Past the top tier a star is
// added for every further 10M.
func RankFor(netWorth float64) Rank {
	for _, tier := range rankLadder {
		if netWorth < tier.below {
			return Rank{Title: tier.title, Color: tier.color}
		}
	}
	return Rank{
		Title: "Global Market Radiant",
		Color: "#F1C40F",
		Stars: int(math.Floor((netWorth - radiantFloor) / starStep)),
	}
}
