package geo

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Coordinate column aliases accepted in CSV headers. Matching mirrors the
// upstream data files this service has to ingest: exact names in common
// casings rather than fuzzy matching.
var (
	longitudeAliases = []string{"longitude", "lon", "lng", "long", "x", "X", "Longitude", "LON", "LNG", "LONG"}
	latitudeAliases  = []string{"latitude", "lat", "y", "Y", "Latitude", "LAT"}
)

// findCoordinateColumns locates the longitude and latitude columns in a
// CSV header. Returns the indexes and the matched column names.
func findCoordinateColumns(header []string) (lonIdx, latIdx int, lonName, latName string, ok bool) {
	lonIdx, latIdx = -1, -1

	for idx, col := range header {
		if lonIdx == -1 {
			for _, alias := range longitudeAliases {
				if col == alias {
					lonIdx, lonName = idx, col
					break
				}
			}
		}
		if latIdx == -1 {
			for _, alias := range latitudeAliases {
				if col == alias {
					latIdx, latName = idx, col
					break
				}
			}
		}
	}

	ok = lonIdx != -1 && latIdx != -1
	return lonIdx, latIdx, lonName, latName, ok
}

func coordinateColumnError(header []string) string {
	return fmt.Sprintf(
		"could not identify coordinate columns. Available columns: [%s]. Supported longitude names: longitude, lon, lng, long, x. Supported latitude names: latitude, lat, y.",
		strings.Join(header, ", "))
}

// point is one coordinate pair in lon/lat order.
type point struct {
	Lon float64
	Lat float64
}

// readCoordinateCSV loads a CSV with a header row and extracts the
// coordinate pairs. Rows with unparseable coordinates are skipped.
func readCoordinateCSV(path string) (header []string, points []point, lonName, latName string, errMsg string) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, "", "", fmt.Sprintf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, "", "", fmt.Sprintf("failed to parse CSV %s: %v", path, err)
	}
	if len(records) == 0 {
		return nil, nil, "", "", fmt.Sprintf("CSV %s is empty", path)
	}

	header = records[0]
	lonIdx, latIdx, lonName, latName, ok := findCoordinateColumns(header)
	if !ok {
		return header, nil, "", "", coordinateColumnError(header)
	}

	for _, record := range records[1:] {
		if lonIdx >= len(record) || latIdx >= len(record) {
			continue
		}
		lon, errLon := strconv.ParseFloat(record[lonIdx], 64)
		lat, errLat := strconv.ParseFloat(record[latIdx], 64)
		if errLon != nil || errLat != nil {
			continue
		}
		points = append(points, point{Lon: lon, Lat: lat})
	}

	if len(points) == 0 {
		return header, nil, "", "", fmt.Sprintf("no valid coordinate rows in %s", path)
	}

	return header, points, lonName, latName, ""
}
