package domain

import "time"

// RowGroup names a block of rows for display ("ABC" -> "Platea").
type RowGroup struct {
	Letters string `json:"lettere"`
	Name    string `json:"nome"`
}

// ShowSettings is the singleton configuration of the active show: public
// presentation fields plus the grid dimensions used by catalog
// regeneration. Nil grid fields mean "not configured yet".
type ShowSettings struct {
	TheaterName    string
	TheaterAddress string
	ShowName       string
	EventAt        *time.Time
	RowCount       *int
	SeatsPerRow    *int
	RowGroups      []RowGroup
}
