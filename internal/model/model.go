// Package model defines the data types shared across the edmap pipeline:
// the record-source and station inputs, the persisted index schema, and the
// marker output.
package model

import (
	"time"

	"gorm.io/datatypes"
)

// DatabaseModels is a list of all the structs exported here which represent
// tables in the index store schema.
var DatabaseModels = []interface{}{
	&System{},
	&BuildMeta{},
}

// Coords is a position in the galactic coordinate frame, in light years.
type Coords struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SystemRecord is one line of the record source. Coords is a pointer so a
// line without a coords object is distinguishable from one at the origin.
type SystemRecord struct {
	Name   string  `json:"name"`
	Coords *Coords `json:"coords"`
}

// System is a row of the persisted name->coordinate index. NameKey is the
// case-normalized system name; Name preserves the original casing for
// diagnostics.
type System struct {
	NameKey string  `json:"nameKey" gorm:"primaryKey;size:127"`
	Name    string  `json:"name" gorm:"size:127"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
}

// BuildMeta is a single-row table recording the last completed index build.
// SourceModTime drives the freshness decision on backends that have no store
// file to stat.
type BuildMeta struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	SourcePath    string         `json:"sourcePath" gorm:"size:511"`
	SourceModTime time.Time      `json:"sourceModTime"`
	BuiltAt       time.Time      `json:"builtAt"`
	Systems       int64          `json:"systems"`
	Skipped       int64          `json:"skipped"`
	Diagnostics   datatypes.JSON `json:"diagnostics"`
}

// TableName pins the metadata table name.
func (BuildMeta) TableName() string { return "build_meta" }

// StationRecord is one row of the station table.
type StationRecord struct {
	Name        string
	SystemName  string
	StationType string
}

// Marker is one entry of the output artifact. Field order matters to the
// downstream viewer, so keep the JSON tags in this order.
type Marker struct {
	Pin  string  `json:"pin"`
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
}

// UnmatchedEntry records a station whose system was not found in the index.
// Values are the original, non-normalized inputs.
type UnmatchedEntry struct {
	Name   string `json:"name"`
	System string `json:"system"`
	Type   string `json:"type"`
}

// Summary holds the scalar outcome of one pipeline run.
type Summary struct {
	Systems       int64
	Skipped       int64
	Total         int64
	Matched       int64
	Unmatched     int64
	Rebuilt       bool
	BuildDuration time.Duration
	JoinDuration  time.Duration
}
