// Package cities defines the tracked-city records every scheduled job
// iterates over, and the directory they are read from.
package cities

import "context"

// City is a tracked location. Code is the short stable identifier used as
// the object-store prefix for the city's satellite frames.
type City struct {
	Code string  `json:"code"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Directory supplies the city list. Callers read it fresh on every run;
// implementations must not require callers to cache results.
type Directory interface {
	Cities(ctx context.Context) ([]City, error)
}

// StaticDirectory serves a fixed city list, typically loaded from
// configuration at startup.
type StaticDirectory struct {
	list []City
}

// NewStaticDirectory creates a directory over a fixed list.
func NewStaticDirectory(list []City) *StaticDirectory {
	return &StaticDirectory{list: list}
}

// Cities returns a copy of the configured list.
func (d *StaticDirectory) Cities(_ context.Context) ([]City, error) {
	out := make([]City, len(d.list))
	copy(out, d.list)
	return out, nil
}
