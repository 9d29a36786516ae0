package memory

import (
	"context"

	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/output"
)

var _ output.AirportDirectory = (*StaticAirportDirectory)(nil)

// StaticAirportDirectory struct - Built-in airport list used when no database is configured
type StaticAirportDirectory struct {
	codes []string
}

// NewStaticAirportDirectory creates a directory over the given codes, or the default list when none are given
func NewStaticAirportDirectory(codes ...string) *StaticAirportDirectory {
	if len(codes) == 0 {
		codes = domain.DefaultAirportCodes()
	}
	return &StaticAirportDirectory{codes: codes}
}

// KnownAirportCodes returns a copy of the configured codes
func (d *StaticAirportDirectory) KnownAirportCodes(_ context.Context) ([]string, error) {
	return append([]string(nil), d.codes...), nil
}
