package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTwoBlobCSV produces two well-separated point groups so a k=2 run
// has a deterministic partition regardless of seed.
func writeTwoBlobCSV(t *testing.T, path string) {
	t.Helper()

	var b strings.Builder
	b.WriteString("longitude,latitude\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%.4f,%.4f\n", 120.0+float64(i)*0.001, 30.0+float64(i)*0.001)
	}
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%.4f,%.4f\n", 125.0+float64(i)*0.001, 35.0+float64(i)*0.001)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestKMeansExecute(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "points.csv")
	writeTwoBlobCSV(t, src)

	tool := NewKMeansTool(dir)
	args, _ := json.Marshal(KMeansArgs{
		InputFilepath:   src,
		NClusters:       2,
		OutputShapefile: "blobs.shp",
	})

	out, err := tool.Execute(string(args))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["status"] != "success" {
		t.Fatalf("status = %v, payload: %s", payload["status"], out)
	}
	if payload["output_filepath"] != "blobs.shp" {
		t.Fatalf("output_filepath = %v", payload["output_filepath"])
	}

	generated, ok := payload["generated_files"].([]interface{})
	if !ok || len(generated) == 0 {
		t.Fatalf("generated_files = %v", payload["generated_files"])
	}
	for _, name := range generated {
		if _, err := os.Stat(filepath.Join(dir, name.(string))); err != nil {
			t.Fatalf("reported file %v does not exist: %v", name, err)
		}
	}

	// the sidecar files readers expect must be among the outputs
	names := make(map[string]bool)
	for _, name := range generated {
		names[name.(string)] = true
	}
	for _, want := range []string{"blobs.shp", "blobs.prj", "blobs.cpg"} {
		if !names[want] {
			t.Fatalf("missing %s in generated_files %v", want, generated)
		}
	}

	counts, ok := payload["cluster_point_counts"].(map[string]interface{})
	if !ok || len(counts) != 2 {
		t.Fatalf("cluster_point_counts = %v", payload["cluster_point_counts"])
	}
	total := 0.0
	for _, n := range counts {
		total += n.(float64)
	}
	if total != 20 {
		t.Fatalf("cluster counts sum to %v, want 20", total)
	}

	cols, ok := payload["coordinate_columns_used"].(map[string]interface{})
	if !ok || cols["longitude"] != "longitude" || cols["latitude"] != "latitude" {
		t.Fatalf("coordinate_columns_used = %v", payload["coordinate_columns_used"])
	}
}

func TestKMeansTooManyClusters(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "points.csv")
	writeTwoBlobCSV(t, src)

	tool := NewKMeansTool(dir)
	out, err := tool.Execute(`{"input_filepath": "` + src + `", "n_clusters": 1000}`)
	if err != nil {
		t.Fatal(err)
	}

	var payload map[string]interface{}
	json.Unmarshal([]byte(out), &payload)
	if payload["status"] != "error" {
		t.Fatalf("status = %v", payload["status"])
	}
}

func TestKMeansMissingInput(t *testing.T) {
	tool := NewKMeansTool(t.TempDir())

	out, err := tool.Execute(`{"input_filepath": "ghost.csv"}`)
	if err != nil {
		t.Fatal(err)
	}

	var payload map[string]interface{}
	json.Unmarshal([]byte(out), &payload)
	if payload["status"] != "error" {
		t.Fatalf("status = %v", payload["status"])
	}
	if !strings.Contains(payload["message"].(string), "ghost.csv") {
		t.Fatalf("message should name the file: %v", payload["message"])
	}
}
