package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestConvertTimeToSeconds(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantNil bool
		wantErr bool
	}{
		{in: "", wantNil: true},
		{in: "3600", want: 3600},
		{in: "0", want: 0},
		{in: "08:00:00", want: 28800},
		{in: "08:30", want: 30600},
		{in: "23:59:59", want: 86399},
		{in: "12", want: 12},
		{in: "1:2:3:4", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1:xx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			got, err := convertTimeToSeconds(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected nil, got %d", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Fatalf("got %v, want %d", got, tt.want)
			}
		})
	}
}

// writeTestXLSX builds a headerless trajectory workbook:
// timestamp, longitude, latitude, type, label.
func writeTestXLSX(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestPreprocessExecute(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "vehicle.xlsx")
	writeTestXLSX(t, src, [][]interface{}{
		// morning start point inside the bbox
		{28800, 120.10, 30.20, 0, "veh-1"},
		// end point, filtered out by point_type
		{29000, 120.11, 30.21, 1, "veh-1"},
		// start point but too early
		{100, 120.12, 30.22, 0, "veh-2"},
		// start point outside the bbox
		{30000, 125.00, 35.00, 0, "veh-3"},
		// second keeper
		{32400, 120.15, 30.25, 0, "veh-4"},
	})

	tool := NewPreprocessTool(dir)
	args, _ := json.Marshal(PreprocessArgs{
		Filepath:  src,
		PointType: "start",
		StartTime: "08:00:00",
		EndTime:   "36000",
		Bbox:      []float64{120.0, 30.0, 121.0, 31.0},
	})

	out, err := tool.Execute(string(args))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["status"] != "success" {
		t.Fatalf("status = %v, payload: %s", payload["status"], out)
	}
	if payload["original_rows"] != float64(5) {
		t.Fatalf("original_rows = %v, want 5", payload["original_rows"])
	}
	if payload["filtered_rows"] != float64(2) {
		t.Fatalf("filtered_rows = %v, want 2", payload["filtered_rows"])
	}
	if payload["output_filepath"] != "filtered_vehicle.csv" {
		t.Fatalf("output_filepath = %v", payload["output_filepath"])
	}

	outPath := filepath.Join(dir, "filtered_vehicle.csv")
	header, points, _, _, errMsg := readCoordinateCSV(outPath)
	if errMsg != "" {
		t.Fatalf("reading output: %s", errMsg)
	}
	if len(header) != 5 {
		t.Fatalf("header = %v", header)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 output points, got %d", len(points))
	}
}

func TestPreprocessMissingFile(t *testing.T) {
	tool := NewPreprocessTool(t.TempDir())

	out, err := tool.Execute(`{"filepath": "nope.xlsx"}`)
	if err != nil {
		t.Fatalf("domain errors must be returned in the payload, got: %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["status"] != "error" {
		t.Fatalf("status = %v", payload["status"])
	}
}

func TestPreprocessInvalidTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "v.xlsx")
	writeTestXLSX(t, src, [][]interface{}{{100, 120.0, 30.0, 0, "a"}})

	tool := NewPreprocessTool(dir)
	out, err := tool.Execute(`{"filepath": "` + src + `", "start_time": "not-a-time"}`)
	if err != nil {
		t.Fatal(err)
	}

	var payload map[string]interface{}
	json.Unmarshal([]byte(out), &payload)
	if payload["status"] != "error" {
		t.Fatalf("status = %v", payload["status"])
	}

	if _, statErr := os.Stat(filepath.Join(dir, "filtered_v.csv")); !os.IsNotExist(statErr) {
		t.Fatal("no output should be written on invalid arguments")
	}
}
