package ingest

import (
	"encoding/json"

	"github.com/mokala/veldscan/internal/models"
)

const (
	FlagNonPositiveHeight = "height_non_positive"
	FlagHeightUnlikely    = "height_unlikely"
	FlagLatOutOfRange     = "lat_out_of_range"
	FlagLonOutOfRange     = "lon_out_of_range"
	FlagDuplicateID       = "duplicate_id"
	FlagEmptyID           = "empty_id"
)

// Validate applies row-level QC and returns the flags raised. A disc reading
// above 600 cm is beyond any standing sward and treated as an instrument
// error.
func Validate(obs *models.FieldObservation) []string {
	var flags []string

	if obs.ID == "" {
		flags = append(flags, FlagEmptyID)
	}
	if obs.HeightCM <= 0 {
		flags = append(flags, FlagNonPositiveHeight)
	} else if obs.HeightCM > 600 {
		flags = append(flags, FlagHeightUnlikely)
	}
	if obs.Lat < -90 || obs.Lat > 90 {
		flags = append(flags, FlagLatOutOfRange)
	}
	if obs.Lon < -180 || obs.Lon > 180 {
		flags = append(flags, FlagLonOutOfRange)
	}
	return flags
}

// FlagsToJSON serializes QC flags for persistence; empty means clean.
func FlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}
