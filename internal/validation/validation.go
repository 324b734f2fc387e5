package validation

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrCoordMissing is returned when lat or lon is absent or blank.
var ErrCoordMissing = errors.New("lat and lon are required")

// ErrCoordNotNumeric is returned when lat or lon is not a finite number.
var ErrCoordNotNumeric = errors.New("lat and lon must be numeric")

// ErrLatOutOfRange is returned when latitude falls outside [-90, 90].
var ErrLatOutOfRange = errors.New("lat must be between -90 and 90")

// ErrLonOutOfRange is returned when longitude falls outside [-180, 180].
var ErrLonOutOfRange = errors.New("lon must be between -180 and 180")

// ParseCoordinates parses and range-checks the lat/lon query parameters.
// Returns errors suitable for 422 INVALID_COORDINATES responses; the core
// service is never invoked with coordinates that fail here.
func ParseCoordinates(latStr, lonStr string) (lat, lon float64, err error) {
	latStr = strings.TrimSpace(latStr)
	lonStr = strings.TrimSpace(lonStr)
	if latStr == "" || lonStr == "" {
		return 0, 0, ErrCoordMissing
	}

	lat, err = strconv.ParseFloat(latStr, 64)
	if err != nil || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return 0, 0, ErrCoordNotNumeric
	}
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return 0, 0, ErrCoordNotNumeric
	}

	if lat < -90 || lat > 90 {
		return 0, 0, ErrLatOutOfRange
	}
	if lon < -180 || lon > 180 {
		return 0, 0, ErrLonOutOfRange
	}
	return lat, lon, nil
}
