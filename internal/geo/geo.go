// Package geo implements the geospatial data-processing tools the model
// can call: trajectory filtering, k-means clustering, heatmap rendering,
// GIF assembly and cluster visualization.
//
// Every tool returns a JSON payload with a "status" field. Domain errors
// (missing files, unrecognized columns) are reported inside the payload so
// the model can recover; a Go error escaping Execute means something truly
// unexpected happened.
package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"geoagent/internal/agent/tools"
)

// RegisterAll registers the full tool set against the given outputs
// directory. The directory is created if absent.
func RegisterAll(registry *tools.Registry, outputsDir string) error {
	if err := os.MkdirAll(outputsDir, 0755); err != nil {
		return fmt.Errorf("failed to create outputs directory %s: %w", outputsDir, err)
	}

	set := []tools.Tool{
		NewPreprocessTool(outputsDir),
		NewKMeansTool(outputsDir),
		NewHeatmapTool(outputsDir),
		NewGifTool(outputsDir),
		NewVisualizeClustersTool(outputsDir),
	}

	for _, tool := range set {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	return nil
}

// resolveOutput places bare filenames in the outputs directory; paths that
// already carry a directory component are kept as-is.
func resolveOutput(outputsDir, path string) string {
	if filepath.Dir(path) == "." {
		return filepath.Join(outputsDir, path)
	}
	return path
}

// resolveInput finds an input file. Tool payloads reference generated
// files by bare name, so when the path as given does not exist a bare
// filename is also looked up in the outputs directory. This keeps chained
// calls (preprocess -> cluster -> visualize) working.
func resolveInput(outputsDir, path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if filepath.Dir(path) == "." {
		candidate := filepath.Join(outputsDir, path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("file not found: %s", path)
}

func errorJSON(format string, args ...interface{}) string {
	payload, err := json.Marshal(map[string]string{
		"status":  "error",
		"message": fmt.Sprintf(format, args...),
	})
	if err != nil {
		return `{"status":"error","message":"internal error"}`
	}
	return string(payload)
}

func successJSON(fields map[string]interface{}) (string, error) {
	fields["status"] = "success"
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(payload), nil
}
