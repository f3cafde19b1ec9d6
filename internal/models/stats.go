package models

// GlobalStats is an aggregate view over all rooms in the ledger.
type GlobalStats struct {
	TotalRooms        int64
	CompletedRooms    int64
	TotalPool         int64
	TotalParticipants int64
	TotalHouseFees    int64
}

// UserStats is one user's lifetime play record.
type UserStats struct {
	TotalGames    int64
	TotalWins     int64
	WinRate       float64
	TotalWinnings int64
	TotalSpent    int64
	NetProfit     int64
}
