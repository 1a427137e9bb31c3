package geo

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/xuri/excelize/v2"

	"geoagent/internal/agent/tools"
	"geoagent/internal/logger"
)

// PreprocessArgs are the arguments for the preprocess_vehicle_data tool.
type PreprocessArgs struct {
	Filepath  string    `json:"filepath"`
	PointType string    `json:"point_type,omitempty"`
	StartTime string    `json:"start_time,omitempty"`
	EndTime   string    `json:"end_time,omitempty"`
	Bbox      []float64 `json:"bbox,omitempty"`
}

// trajectoryRow is one record of the headerless XLSX trajectory format:
// timestamp, longitude, latitude, type (0=start, 1=end), label.
type trajectoryRow struct {
	Timestamp int
	Longitude float64
	Latitude  float64
	Type      int
	Label     string
}

// PreprocessTool filters XLSX vehicle trajectory points by point type,
// time-of-day range and bounding box, writing the result as CSV.
type PreprocessTool struct {
	tools.BaseTool
	outputsDir string
}

func NewPreprocessTool(outputsDir string) *PreprocessTool {
	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"filepath": {
				Type:        jsonschema.String,
				Description: "Path of the source XLSX trajectory file, e.g. 'my_vehicle_data.xlsx'",
			},
			"point_type": {
				Type:        jsonschema.String,
				Description: "Type of points to keep: 'start' for trip origins (type=0), 'end' for trip destinations (type=1)",
				Enum:        []string{"start", "end"},
			},
			"start_time": {
				Type:        jsonschema.String,
				Description: "Start of the time-of-day filter: seconds since midnight as an integer string (e.g. '3600') or 'HH:MM:SS' (e.g. '08:00:00')",
			},
			"end_time": {
				Type:        jsonschema.String,
				Description: "End of the time-of-day filter, same formats as start_time",
			},
			"bbox": {
				Type:        jsonschema.Array,
				Description: "Geographic bounding box as [min_lon, min_lat, max_lon, max_lat]",
				Items:       &jsonschema.Definition{Type: jsonschema.Number},
			},
		},
		Required: []string{"filepath"},
	}

	return &PreprocessTool{
		BaseTool: tools.BaseTool{
			ToolName:        "preprocess_vehicle_data",
			ToolDescription: "Preprocess and filter vehicle trajectory XLSX data by point type (start/end), timestamp range, or geographic bounding box.",
			ToolParameters:  params,
		},
		outputsDir: outputsDir,
	}
}

func (t *PreprocessTool) Execute(args string) (string, error) {
	var params PreprocessArgs
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return errorJSON("failed to parse arguments: %v", err), nil
	}

	path, err := resolveInput(t.outputsDir, params.Filepath)
	if err != nil {
		return errorJSON("File not found: %s", params.Filepath), nil
	}

	startSeconds, err := convertTimeToSeconds(params.StartTime)
	if err != nil {
		return errorJSON("invalid start_time %q: %v", params.StartTime, err), nil
	}
	endSeconds, err := convertTimeToSeconds(params.EndTime)
	if err != nil {
		return errorJSON("invalid end_time %q: %v", params.EndTime, err), nil
	}

	rows, err := readTrajectoryXLSX(path)
	if err != nil {
		return errorJSON("failed to read %s: %v", params.Filepath, err), nil
	}
	originalRows := len(rows)

	filtered := make([]trajectoryRow, 0, len(rows))
	for _, row := range rows {
		if params.PointType == "start" && row.Type != 0 {
			continue
		}
		if params.PointType == "end" && row.Type != 1 {
			continue
		}
		if startSeconds != nil && row.Timestamp < *startSeconds {
			continue
		}
		if endSeconds != nil && row.Timestamp > *endSeconds {
			continue
		}
		if len(params.Bbox) == 4 {
			minLon, minLat, maxLon, maxLat := params.Bbox[0], params.Bbox[1], params.Bbox[2], params.Bbox[3]
			if row.Longitude < minLon || row.Longitude > maxLon ||
				row.Latitude < minLat || row.Latitude > maxLat {
				continue
			}
		}
		filtered = append(filtered, row)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outputPath := filepath.Join(t.outputsDir, "filtered_"+base+".csv")
	if err := writeTrajectoryCSV(outputPath, filtered); err != nil {
		return errorJSON("failed to write %s: %v", outputPath, err), nil
	}

	logger.Infof("Preprocessed %s: %d of %d rows kept", params.Filepath, len(filtered), originalRows)

	return successJSON(map[string]interface{}{
		"original_rows":   originalRows,
		"filtered_rows":   len(filtered),
		"output_filepath": filepath.Base(outputPath),
		"filters_applied": map[string]interface{}{
			"point_type": params.PointType,
			"time_range": []string{params.StartTime, params.EndTime},
			"bbox":       params.Bbox,
		},
	})
}

// convertTimeToSeconds accepts seconds-of-day as an integer string, or
// "HH", "HH:MM", "HH:MM:SS". Empty input means no bound (nil).
func convertTimeToSeconds(value string) (*int, error) {
	if value == "" {
		return nil, nil
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return &seconds, nil
	}

	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return nil, fmt.Errorf("expected seconds or HH:MM:SS")
	}

	seconds := 0
	multipliers := []int{3600, 60, 1}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("expected seconds or HH:MM:SS")
		}
		seconds += n * multipliers[i]
	}

	return &seconds, nil
}

func readTrajectoryXLSX(path string) ([]trajectoryRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	rows := make([]trajectoryRow, 0, len(records))
	for _, record := range records {
		if len(record) < 4 {
			continue
		}

		timestamp, err1 := strconv.ParseFloat(record[0], 64)
		lon, err2 := strconv.ParseFloat(record[1], 64)
		lat, err3 := strconv.ParseFloat(record[2], 64)
		pointType, err4 := strconv.ParseFloat(record[3], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}

		label := ""
		if len(record) > 4 {
			label = record[4]
		}

		rows = append(rows, trajectoryRow{
			Timestamp: int(timestamp),
			Longitude: lon,
			Latitude:  lat,
			Type:      int(pointType),
			Label:     label,
		})
	}

	return rows, nil
}

func writeTrajectoryCSV(path string, rows []trajectoryRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"timestamp", "longitude", "latitude", "type", "label"}); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Timestamp),
			strconv.FormatFloat(row.Longitude, 'f', -1, 64),
			strconv.FormatFloat(row.Latitude, 'f', -1, 64),
			strconv.Itoa(row.Type),
			row.Label,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
