package models

import "time"

// DefaultRating is the rating assigned to a player's first skill record.
const DefaultRating = 1000

// LevelForRating derives the display level from a rating: one level per
// 100 rating points, starting at level 1 for rating 0.
func LevelForRating(rating int) int {
	return rating/100 + 1
}

// PlayerSkill tracks a user's rating and record for one game.
// (user_id, game_id) is unique. Created lazily, never deleted.
type PlayerSkill struct {
	ID          int       `json:"id" db:"id"`
	UserID      int       `json:"user_id" db:"user_id"`
	GameID      int       `json:"game_id" db:"game_id"`
	Rating      int       `json:"rating" db:"rating"`
	GamesPlayed int       `json:"games_played" db:"games_played"`
	Wins        int       `json:"wins" db:"wins"`
	Losses      int       `json:"losses" db:"losses"`
	Draws       int       `json:"draws" db:"draws"`
	Level       int       `json:"level" db:"level"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// NewPlayerSkill returns the skill record a player starts with. The initial
// level is 1 regardless of the default rating; the derived level only takes
// over once the first rated outcome is applied.
func NewPlayerSkill(userID, gameID int) *PlayerSkill {
	return &PlayerSkill{
		UserID: userID,
		GameID: gameID,
		Rating: DefaultRating,
		Level:  1,
	}
}
