package geo

import (
	"encoding/json"
	"math"
	"path/filepath"

	"github.com/sashabaranov/go-openai/jsonschema"

	"geoagent/internal/agent/tools"
	"geoagent/internal/logger"
)

// HeatmapArgs are the arguments for the create_heatmap tool.
type HeatmapArgs struct {
	InputFilepath   string `json:"input_filepath"`
	OutputImagePath string `json:"output_image_path,omitempty"`
	MapTitle        string `json:"map_title,omitempty"`
}

// HeatmapTool renders a kernel-density heatmap of coordinate CSV data as a
// PNG image.
type HeatmapTool struct {
	tools.BaseTool
	outputsDir string
}

func NewHeatmapTool(outputsDir string) *HeatmapTool {
	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"input_filepath": {
				Type:        jsonschema.String,
				Description: "Path of the input point CSV. Common coordinate column names are detected automatically. Usually the output of the preprocessing step.",
			},
			"output_image_path": {
				Type:        jsonschema.String,
				Description: "Path of the output heatmap image (PNG), e.g. 'heatmap.png'",
			},
			"map_title": {
				Type:        jsonschema.String,
				Description: "Title to render at the top of the heatmap",
			},
		},
		Required: []string{"input_filepath"},
	}

	return &HeatmapTool{
		BaseTool: tools.BaseTool{
			ToolName:        "create_heatmap",
			ToolDescription: "Generate a density heatmap PNG from input CSV point data, for visual hotspot analysis of geospatial data.",
			ToolParameters:  params,
		},
		outputsDir: outputsDir,
	}
}

func (t *HeatmapTool) Execute(args string) (string, error) {
	var params HeatmapArgs
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return errorJSON("failed to parse arguments: %v", err), nil
	}

	if params.OutputImagePath == "" {
		params.OutputImagePath = "heatmap.png"
	}
	if params.MapTitle == "" {
		params.MapTitle = "Hotspot Analysis Heatmap"
	}

	inputPath, err := resolveInput(t.outputsDir, params.InputFilepath)
	if err != nil {
		return errorJSON("File not found: %s", params.InputFilepath), nil
	}

	_, points, _, _, errMsg := readCoordinateCSV(inputPath)
	if errMsg != "" {
		return errorJSON("%s", errMsg), nil
	}

	outputPath := resolveOutput(t.outputsDir, params.OutputImagePath)
	if err := renderHeatmap(outputPath, points, params.MapTitle); err != nil {
		return errorJSON("failed to render heatmap: %v", err), nil
	}

	logger.Infof("Rendered heatmap of %d points -> %s", len(points), outputPath)

	return successJSON(map[string]interface{}{
		"output_image_path": filepath.Base(outputPath),
	})
}

// renderHeatmap splats a Gaussian kernel per point onto a density grid,
// normalizes it, and paints it as a red ramp over the base canvas.
func renderHeatmap(path string, points []point, title string) error {
	b := computeBounds(points)
	dc := newMapCanvas()

	const (
		kernelRadius = 24
		kernelSigma  = 9.0
	)

	kernel := gaussianKernel(kernelRadius, kernelSigma)

	width, height := dc.Width(), dc.Height()
	density := make([]float64, width*height)
	peak := 0.0

	for _, p := range points {
		cx, cy := b.project(p, float64(width), float64(height))
		for dy := -kernelRadius; dy <= kernelRadius; dy++ {
			for dx := -kernelRadius; dx <= kernelRadius; dx++ {
				x := int(cx) + dx
				y := int(cy) + dy
				if x < 0 || x >= width || y < 0 || y >= height {
					continue
				}
				idx := y*width + x
				density[idx] += kernel[(dy+kernelRadius)*(2*kernelRadius+1)+(dx+kernelRadius)]
				if density[idx] > peak {
					peak = density[idx]
				}
			}
		}
	}

	if peak > 0 {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v := density[y*width+x] / peak
				if v <= 0.02 {
					continue
				}
				dc.SetRGBA(0.8, 0.08*(1-v), 0.08*(1-v), v*0.85)
				dc.SetPixel(x, y)
			}
		}
	}

	drawFrame(dc)
	drawTitle(dc, title)
	drawNorthArrow(dc)

	return dc.SavePNG(path)
}

func gaussianKernel(radius int, sigma float64) []float64 {
	size := 2*radius + 1
	kernel := make([]float64, size*size)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			kernel[(dy+radius)*size+(dx+radius)] = math.Exp(-d2 / (2 * sigma * sigma))
		}
	}
	return kernel
}
