// Package levels maps cumulative XP to a level number and title.
package levels

import "fmt"

// Threshold is the XP at which a level starts.
type Threshold struct {
	Level      int
	XPRequired int
	Title      string
}

// Table is the static level table, ascending by XPRequired.
var Table = []Threshold{
	{Level: 1, XPRequired: 0, Title: "Newcomer"},
	{Level: 2, XPRequired: 100, Title: "Apprentice"},
	{Level: 3, XPRequired: 250, Title: "Trader"},
	{Level: 4, XPRequired: 500, Title: "Analyst"},
	{Level: 5, XPRequired: 1000, Title: "Specialist"},
	{Level: 6, XPRequired: 2000, Title: "Strategist"},
	{Level: 7, XPRequired: 3500, Title: "Expert"},
	{Level: 8, XPRequired: 5500, Title: "Master"},
	{Level: 9, XPRequired: 8000, Title: "Grandmaster"},
	{Level: 10, XPRequired: 12000, Title: "Legend"},
}

// Info describes where a total XP value sits in the table.
type Info struct {
	Level           int     `json:"level"`
	Title           string  `json:"title"`
	TotalXP         int     `json:"totalXp"`
	XPToNextLevel   int     `json:"xpToNextLevel"`
	ProgressPercent float64 `json:"progressPercent"`
	IsMaxLevel      bool    `json:"isMaxLevel"`
}

// GetLevelInfo returns the level for totalXP. Values below the first
// threshold clamp to level 1.
func GetLevelInfo(totalXP int) Info {
	return lookup(Table, totalXP)
}

func lookup(table []Threshold, totalXP int) Info {
	idx := 0
	for i, t := range table {
		if t.XPRequired <= totalXP {
			idx = i
		}
	}
	cur := table[idx]
	info := Info{
		Level:   cur.Level,
		Title:   cur.Title,
		TotalXP: totalXP,
	}

	if idx == len(table)-1 {
		info.IsMaxLevel = true
		info.ProgressPercent = 100
		return info
	}

	next := table[idx+1]
	earned := totalXP - cur.XPRequired
	if earned < 0 {
		earned = 0
	}
	span := next.XPRequired - cur.XPRequired
	info.XPToNextLevel = next.XPRequired - max(totalXP, cur.XPRequired)
	info.ProgressPercent = min(100, 100*float64(earned)/float64(span))
	return info
}

// Validate checks that a table starts at level 1 with 0 XP and that XP
// thresholds strictly increase.
func Validate(table []Threshold) error {
	if len(table) == 0 {
		return fmt.Errorf("level table is empty")
	}
	if table[0].Level != 1 || table[0].XPRequired != 0 {
		return fmt.Errorf("level table must start at level 1 with 0 XP, got level %d at %d XP",
			table[0].Level, table[0].XPRequired)
	}
	for i := 1; i < len(table); i++ {
		if table[i].XPRequired <= table[i-1].XPRequired {
			return fmt.Errorf("level %d: XP %d does not exceed level %d's %d",
				table[i].Level, table[i].XPRequired, table[i-1].Level, table[i-1].XPRequired)
		}
		if table[i].Level != table[i-1].Level+1 {
			return fmt.Errorf("level numbers must be consecutive at index %d", i)
		}
	}
	return nil
}
