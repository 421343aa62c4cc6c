package models

// LevelThreshold maps a minimum XP to a level. Levels are recomputed on
// read from the user's XP, never stored.
type LevelThreshold struct {
	Level int    `json:"level"`
	Name  string `json:"name"`
	MinXP int64  `json:"min_xp"`
}

// RankThreshold maps a minimum XP to a named rank.
type RankThreshold struct {
	Rank        int    `json:"rank"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MinXP       int64  `json:"min_xp"`
}

// Both tables are ascending and start at MinXP 0 so every XP value,
// including 0, resolves to an entry.
var LevelThresholds = []LevelThreshold{
	{Level: 1, Name: "Newcomer", MinXP: 0},
	{Level: 2, Name: "Apprentice", MinXP: 100},
	{Level: 3, Name: "Regular", MinXP: 300},
	{Level: 4, Name: "Adept", MinXP: 700},
	{Level: 5, Name: "Veteran", MinXP: 1500},
	{Level: 6, Name: "Expert", MinXP: 3000},
	{Level: 7, Name: "Master", MinXP: 6000},
	{Level: 8, Name: "Grandmaster", MinXP: 12000},
}

var RankThresholds = []RankThreshold{
	{Rank: 1, Name: "Bronze", Description: "Everyone starts here", MinXP: 0},
	{Rank: 2, Name: "Silver", Description: "Getting involved", MinXP: 500},
	{Rank: 3, Name: "Gold", Description: "A familiar face", MinXP: 2000},
	{Rank: 4, Name: "Platinum", Description: "Pillar of the community", MinXP: 5000},
	{Rank: 5, Name: "Diamond", Description: "Top of the ladder", MinXP: 10000},
}
