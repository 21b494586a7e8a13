package models

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Status is the risk band derived from a sample's HMPI value
type Status string

const (
	StatusSafe     Status = "safe"
	StatusMarginal Status = "marginal"
	StatusHigh     Status = "high"
)

// Valid reports whether s is one of the known risk bands
func (s Status) Valid() bool {
	switch s {
	case StatusSafe, StatusMarginal, StatusHigh:
		return true
	}
	return false
}

// MetalConcentrations holds the four heavy metal readings in mg/L
type MetalConcentrations struct {
	Cu float64 `json:"cu_concentration"`
	Pb float64 `json:"pb_concentration"`
	Cd float64 `json:"cd_concentration"`
	Zn float64 `json:"zn_concentration"`
}

// Collector names the user who collected a sample. It is resolved from the
// user store on reads and never persisted with the sample.
type Collector struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name,omitempty"`
}

// WaterSample represents a single collected water sample with its derived score
type WaterSample struct {
	ID          uuid.UUID  `json:"id"`
	Location    string     `json:"location"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	SampleDate  time.Time  `json:"sample_date"`
	CollectedBy uuid.UUID  `json:"collected_by"`
	Collector   *Collector `json:"collector,omitempty"`
	MetalConcentrations
	IndexValue         float64            `json:"hmpi_value"`
	Status             Status             `json:"status"`
	Notes              string             `json:"notes,omitempty"`
	ExtendedParameters map[string]float64 `json:"additional_data,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Clone returns a deep copy of the sample
func (s WaterSample) Clone() WaterSample {
	out := s
	if s.Collector != nil {
		c := *s.Collector
		out.Collector = &c
	}
	if s.ExtendedParameters != nil {
		out.ExtendedParameters = maps.Clone(s.ExtendedParameters)
	}
	return out
}

// SampleInput is the payload for creating a sample.
// Pointer fields distinguish "missing" from zero.
type SampleInput struct {
	Location           string             `json:"location" validate:"required"`
	Latitude           *float64           `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude          *float64           `json:"longitude" validate:"required,gte=-180,lte=180"`
	SampleDate         *time.Time         `json:"sample_date" validate:"required"`
	Cu                 *float64           `json:"cu_concentration" validate:"required,gte=0"`
	Pb                 *float64           `json:"pb_concentration" validate:"required,gte=0"`
	Cd                 *float64           `json:"cd_concentration" validate:"required,gte=0"`
	Zn                 *float64           `json:"zn_concentration" validate:"required,gte=0"`
	Notes              string             `json:"notes,omitempty"`
	ExtendedParameters map[string]float64 `json:"additional_data,omitempty"`
}

// SampleUpdate is a partial update payload. Nil fields are left untouched.
type SampleUpdate struct {
	Location           *string            `json:"location,omitempty" validate:"omitempty,min=1"`
	Latitude           *float64           `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude          *float64           `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	SampleDate         *time.Time         `json:"sample_date,omitempty"`
	Cu                 *float64           `json:"cu_concentration,omitempty" validate:"omitempty,gte=0"`
	Pb                 *float64           `json:"pb_concentration,omitempty" validate:"omitempty,gte=0"`
	Cd                 *float64           `json:"cd_concentration,omitempty" validate:"omitempty,gte=0"`
	Zn                 *float64           `json:"zn_concentration,omitempty" validate:"omitempty,gte=0"`
	Notes              *string            `json:"notes,omitempty"`
	ExtendedParameters map[string]float64 `json:"additional_data,omitempty"`
}

// TouchesConcentrations reports whether any of the four metal fields is set
func (u SampleUpdate) TouchesConcentrations() bool {
	return u.Cu != nil || u.Pb != nil || u.Cd != nil || u.Zn != nil
}

// MergeConcentrations overlays the provided metal values on top of existing ones
func (u SampleUpdate) MergeConcentrations(existing MetalConcentrations) MetalConcentrations {
	merged := existing
	if u.Cu != nil {
		merged.Cu = *u.Cu
	}
	if u.Pb != nil {
		merged.Pb = *u.Pb
	}
	if u.Cd != nil {
		merged.Cd = *u.Cd
	}
	if u.Zn != nil {
		merged.Zn = *u.Zn
	}
	return merged
}

// SampleDay normalizes a timestamp to the calendar day it falls on (UTC)
func SampleDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
