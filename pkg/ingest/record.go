// Package ingest loads groundwater survey CSV files into the sample
// repository. Each row becomes a SampleInput; scoring happens in the
// repository like any other create.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/aquasafe/aquasafe/pkg/models"
)

// DefaultYear is used when a row has no usable Year column
const DefaultYear = 2023

// Proxy factors mapping survey metals onto the four scored metals
const (
	CuFromFe = 0.1
	PbFromAs = 0.1
	CdFromU  = 0.1
	ZnFromMg = 0.1
)

// Record is one row of a groundwater quality survey
type Record struct {
	Line          int
	SerialNo      int
	State         string
	District      string
	Location      string
	Longitude     float64
	Latitude      float64
	Year          int
	PH            float64
	EC            float64 // µS/cm
	CO3           float64 // mg/L
	HCO3          float64
	Cl            float64
	F             float64
	SO4           float64
	NO3           float64
	PO4           float64
	TotalHardness float64
	Ca            float64
	Mg            float64
	Na            float64
	K             float64
	Fe            float64 // ppm
	As            float64 // ppb
	U             float64 // ppb
}

// FullLocation joins location, district and state, skipping blanks
func (r Record) FullLocation() string {
	var parts []string
	for _, p := range []string{r.Location, r.District, r.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Input converts the record into a create payload
func (r Record) Input() models.SampleInput {
	lat, lng := r.Latitude, r.Longitude
	date := time.Date(r.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	cu, pb, cd, zn := r.Fe*CuFromFe, r.As*PbFromAs, r.U*CdFromU, r.Mg*ZnFromMg

	return models.SampleInput{
		Location:   r.FullLocation(),
		Latitude:   &lat,
		Longitude:  &lng,
		SampleDate: &date,
		Cu:         &cu,
		Pb:         &pb,
		Cd:         &cd,
		Zn:         &zn,
		Notes:      fmt.Sprintf("pH: %g, EC: %gµS/cm, Hardness: %gmg/L", r.PH, r.EC, r.TotalHardness),
		ExtendedParameters: map[string]float64{
			"pH":            r.PH,
			"ec":            r.EC,
			"co3":           r.CO3,
			"hco3":          r.HCO3,
			"cl":            r.Cl,
			"f":             r.F,
			"so4":           r.SO4,
			"no3":           r.NO3,
			"po4":           r.PO4,
			"totalHardness": r.TotalHardness,
			"ca":            r.Ca,
			"mg":            r.Mg,
			"na":            r.Na,
			"k":             r.K,
			"fe":            r.Fe,
			"as":            r.As,
			"u":             r.U,
		},
	}
}
