package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"github.com/sashabaranov/go-openai/jsonschema"

	"geoagent/internal/agent/tools"
	"geoagent/internal/logger"
)

const defaultClusterCount = 8

// wgs84WKT is the .prj sidecar content marking shapefile coordinates as
// WGS84 longitude/latitude.
const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

var shapefileExtensions = []string{".shp", ".shx", ".dbf", ".prj", ".cpg"}

// KMeansArgs are the arguments for the kmeans_cluster tool.
type KMeansArgs struct {
	InputFilepath   string `json:"input_filepath"`
	NClusters       int    `json:"n_clusters,omitempty"`
	OutputShapefile string `json:"output_shapefile,omitempty"`
}

// KMeansTool clusters coordinate CSV data and writes the labeled points as
// an ESRI shapefile.
type KMeansTool struct {
	tools.BaseTool
	outputsDir string
}

func NewKMeansTool(outputsDir string) *KMeansTool {
	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"input_filepath": {
				Type:        jsonschema.String,
				Description: "Path of the input CSV containing coordinate columns. Common column names (longitude/lon/lng/long/x, latitude/lat/y) are detected automatically. Usually the output of the preprocessing step.",
			},
			"n_clusters": {
				Type:        jsonschema.Integer,
				Description: "Number of clusters to form (the K value)",
			},
			"output_shapefile": {
				Type:        jsonschema.String,
				Description: "Path of the output shapefile, e.g. 'clusters.shp'",
			},
		},
		Required: []string{"input_filepath"},
	}

	return &KMeansTool{
		BaseTool: tools.BaseTool{
			ToolName:        "kmeans_cluster",
			ToolDescription: "Run K-Means clustering on geographic coordinate data. Coordinate columns are detected automatically. If the user has not specified the cluster count (n_clusters), you must ask the user for it.",
			ToolParameters:  params,
		},
		outputsDir: outputsDir,
	}
}

func (t *KMeansTool) Execute(args string) (string, error) {
	var params KMeansArgs
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return errorJSON("failed to parse arguments: %v", err), nil
	}

	if params.NClusters == 0 {
		params.NClusters = defaultClusterCount
	}
	if params.OutputShapefile == "" {
		params.OutputShapefile = "cluster_results.shp"
	}

	inputPath, err := resolveInput(t.outputsDir, params.InputFilepath)
	if err != nil {
		return errorJSON("File not found: %s", params.InputFilepath), nil
	}

	_, points, lonName, latName, errMsg := readCoordinateCSV(inputPath)
	if errMsg != "" {
		return errorJSON("%s", errMsg), nil
	}

	if params.NClusters < 1 || params.NClusters > len(points) {
		return errorJSON("n_clusters must be between 1 and the number of points (%d), got %d",
			len(points), params.NClusters), nil
	}

	assignments, err := clusterPoints(points, params.NClusters)
	if err != nil {
		return errorJSON("clustering failed: %v", err), nil
	}

	outputPath := resolveOutput(t.outputsDir, params.OutputShapefile)
	if err := writeClusterShapefile(outputPath, points, assignments); err != nil {
		return errorJSON("failed to write shapefile %s: %v", params.OutputShapefile, err), nil
	}

	counts := make(map[string]int)
	for _, cluster := range assignments {
		counts[strconv.Itoa(cluster)]++
	}

	base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))
	var generated []string
	for _, ext := range shapefileExtensions {
		if _, err := os.Stat(base + ext); err == nil {
			generated = append(generated, filepath.Base(base+ext))
		}
	}

	logger.Infof("Clustered %d points into %d groups -> %s", len(points), params.NClusters, outputPath)

	return successJSON(map[string]interface{}{
		"output_filepath":      filepath.Base(outputPath),
		"generated_files":      generated,
		"n_clusters":           params.NClusters,
		"cluster_point_counts": counts,
		"coordinate_columns_used": map[string]string{
			"longitude": lonName,
			"latitude":  latName,
		},
	})
}

// clusterPoints runs k-means and returns the cluster index per input point.
func clusterPoints(points []point, k int) ([]int, error) {
	observations := make(clusters.Observations, len(points))
	for i, p := range points {
		observations[i] = clusters.Coordinates{p.Lon, p.Lat}
	}

	km := kmeans.New()
	result, err := km.Partition(observations, k)
	if err != nil {
		return nil, err
	}

	assignments := make([]int, len(points))
	for i, obs := range observations {
		assignments[i] = result.Nearest(obs)
	}
	return assignments, nil
}

// writeClusterShapefile writes the points with their cluster label, plus
// the .prj and .cpg sidecars readers expect.
func writeClusterShapefile(path string, points []point, assignments []int) error {
	writer, err := shp.Create(path, shp.POINT)
	if err != nil {
		return err
	}

	writer.SetFields([]shp.Field{shp.NumberField("cluster", 10)})

	for i, p := range points {
		writer.Write(&shp.Point{X: p.Lon, Y: p.Lat})
		if err := writer.WriteAttribute(i, 0, assignments[i]); err != nil {
			writer.Close()
			return err
		}
	}

	writer.Close()

	base := strings.TrimSuffix(path, filepath.Ext(path))
	if err := os.WriteFile(base+".prj", []byte(wgs84WKT), 0644); err != nil {
		return fmt.Errorf("failed to write .prj sidecar: %w", err)
	}
	if err := os.WriteFile(base+".cpg", []byte("UTF-8"), 0644); err != nil {
		return fmt.Errorf("failed to write .cpg sidecar: %w", err)
	}

	return nil
}
