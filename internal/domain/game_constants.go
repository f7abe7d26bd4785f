package domain

const (
	// TeamCount is the fixed number of team slots on every table.
	TeamCount = 2
)
