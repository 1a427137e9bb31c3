package geo

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/jonas-p/go-shp"
	"github.com/sashabaranov/go-openai/jsonschema"

	"geoagent/internal/agent/tools"
	"geoagent/internal/logger"
)

// VisualizeClustersArgs are the arguments for the visualize_clusters tool.
type VisualizeClustersArgs struct {
	InputShapefile  string `json:"input_shapefile"`
	OutputImagePath string `json:"output_image_path,omitempty"`
	MapTitle        string `json:"map_title,omitempty"`
}

// VisualizeClustersTool renders a clustered point shapefile as a PNG with
// one color per cluster, a legend, title and north arrow.
type VisualizeClustersTool struct {
	tools.BaseTool
	outputsDir string
}

func NewVisualizeClustersTool(outputsDir string) *VisualizeClustersTool {
	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"input_shapefile": {
				Type:        jsonschema.String,
				Description: "Path of the input point shapefile; must contain a 'cluster' attribute. Usually the output of kmeans_cluster.",
			},
			"output_image_path": {
				Type:        jsonschema.String,
				Description: "Path of the output image (PNG), e.g. 'cluster_map.png'",
			},
			"map_title": {
				Type:        jsonschema.String,
				Description: "Title to render at the top of the image",
			},
		},
		Required: []string{"input_shapefile"},
	}

	return &VisualizeClustersTool{
		BaseTool: tools.BaseTool{
			ToolName:        "visualize_clusters",
			ToolDescription: "Render a K-Means cluster shapefile as an image with clusters in distinct colors, a legend, a north arrow and a title.",
			ToolParameters:  params,
		},
		outputsDir: outputsDir,
	}
}

func (t *VisualizeClustersTool) Execute(args string) (string, error) {
	var params VisualizeClustersArgs
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return errorJSON("failed to parse arguments: %v", err), nil
	}

	if params.OutputImagePath == "" {
		params.OutputImagePath = "cluster_visualization.png"
	}
	if params.MapTitle == "" {
		params.MapTitle = "Cluster Analysis Visualization"
	}

	inputPath, err := resolveInput(t.outputsDir, params.InputShapefile)
	if err != nil {
		return errorJSON("File not found: %s", params.InputShapefile), nil
	}

	points, assignments, err := readClusterShapefile(inputPath)
	if err != nil {
		return errorJSON("%v", err), nil
	}

	outputPath := resolveOutput(t.outputsDir, params.OutputImagePath)
	if err := renderClusters(outputPath, points, assignments, params.MapTitle); err != nil {
		return errorJSON("failed to render visualization: %v", err), nil
	}

	logger.Infof("Rendered cluster visualization of %d points -> %s", len(points), outputPath)

	return successJSON(map[string]interface{}{
		"output_image_path": filepath.Base(outputPath),
	})
}

// readClusterShapefile loads point geometries and their cluster labels.
func readClusterShapefile(path string) ([]point, []int, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open shapefile %s: %v", path, err)
	}
	defer reader.Close()

	clusterField := -1
	for idx, field := range reader.Fields() {
		if strings.EqualFold(field.String(), "cluster") {
			clusterField = idx
			break
		}
	}
	if clusterField == -1 {
		return nil, nil, fmt.Errorf("input shapefile must contain a 'cluster' column")
	}

	var points []point
	var assignments []int
	for reader.Next() {
		row, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			continue
		}

		value := strings.TrimSpace(reader.ReadAttribute(row, clusterField))
		cluster, err := strconv.Atoi(value)
		if err != nil {
			continue
		}

		points = append(points, point{Lon: pt.X, Lat: pt.Y})
		assignments = append(assignments, cluster)
	}

	if len(points) == 0 {
		return nil, nil, fmt.Errorf("no point records in shapefile %s", path)
	}

	return points, assignments, nil
}

func renderClusters(path string, points []point, assignments []int, title string) error {
	b := computeBounds(points)
	dc := newMapCanvas()

	for i, p := range points {
		x, y := b.project(p, float64(dc.Width()), float64(dc.Height()))
		c := clusterColor(assignments[i])
		dc.SetRGBA255(int(c.R), int(c.G), int(c.B), 255)
		dc.DrawCircle(x, y, 3.5)
		dc.Fill()
	}

	drawLegend(dc, assignments)
	drawFrame(dc)
	drawTitle(dc, title)
	drawNorthArrow(dc)

	return dc.SavePNG(path)
}

// drawLegend lists cluster ids with their colors along the left edge.
func drawLegend(dc *gg.Context, assignments []int) {
	present := make(map[int]bool)
	for _, cluster := range assignments {
		present[cluster] = true
	}

	ids := make([]int, 0, len(present))
	for id := range present {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	x := canvasMargin + 12.0
	y := canvasMargin + 16.0
	for _, id := range ids {
		c := clusterColor(id)
		dc.SetRGBA255(int(c.R), int(c.G), int(c.B), 255)
		dc.DrawRectangle(x, y-6, 12, 12)
		dc.Fill()

		dc.SetRGB(0.1, 0.1, 0.1)
		dc.DrawStringAnchored(fmt.Sprintf("cluster %d", id), x+20, y, 0, 0.5)
		y += 20
	}
}
