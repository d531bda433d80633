package types

// ExportRecord is one tracked profile in a leaderboard export.
type ExportRecord struct {
	Hash         string
	Level        int
	XP           int
	TotalEarned  int
	GlobalEarned int
}
