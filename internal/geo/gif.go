package geo

import (
	"encoding/json"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/sashabaranov/go-openai/jsonschema"

	"geoagent/internal/agent/tools"
	"geoagent/internal/logger"
)

const defaultGifFPS = 2

// GifArgs are the arguments for the create_gif_from_images tool.
type GifArgs struct {
	ImageFiles    []string `json:"image_files"`
	OutputGifPath string   `json:"output_gif_path"`
	FPS           int      `json:"fps,omitempty"`
}

// GifTool assembles an ordered list of images into an animated GIF.
type GifTool struct {
	tools.BaseTool
	outputsDir string
}

func NewGifTool(outputsDir string) *GifTool {
	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"image_files": {
				Type:        jsonschema.Array,
				Description: "Ordered list of image file paths to merge into the GIF",
				Items:       &jsonschema.Definition{Type: jsonschema.String},
			},
			"output_gif_path": {
				Type:        jsonschema.String,
				Description: "Path of the output GIF, e.g. 'animation.gif'",
			},
			"fps": {
				Type:        jsonschema.Integer,
				Description: "Frame rate of the GIF (frames per second); controls animation speed",
			},
		},
		Required: []string{"image_files", "output_gif_path"},
	}

	return &GifTool{
		BaseTool: tools.BaseTool{
			ToolName:        "create_gif_from_images",
			ToolDescription: "Merge a list of image files into one animated GIF, for dynamic visualizations of data changing over time.",
			ToolParameters:  params,
		},
		outputsDir: outputsDir,
	}
}

func (t *GifTool) Execute(args string) (string, error) {
	var params GifArgs
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return errorJSON("failed to parse arguments: %v", err), nil
	}

	if len(params.ImageFiles) == 0 {
		return errorJSON("Image file list cannot be empty."), nil
	}
	if params.OutputGifPath == "" {
		params.OutputGifPath = "animated_result.gif"
	}
	if params.FPS <= 0 {
		params.FPS = defaultGifFPS
	}

	frames := make([]image.Image, 0, len(params.ImageFiles))
	for _, file := range params.ImageFiles {
		path, err := resolveInput(t.outputsDir, file)
		if err != nil {
			return errorJSON("File not found: %s", file), nil
		}
		frame, err := imaging.Open(path)
		if err != nil {
			return errorJSON("failed to open image %s: %v", file, err), nil
		}
		frames = append(frames, frame)
	}

	outputPath := resolveOutput(t.outputsDir, params.OutputGifPath)
	if err := writeAnimatedGIF(outputPath, frames, params.FPS); err != nil {
		return errorJSON("failed to write GIF: %v", err), nil
	}

	logger.Infof("Assembled %d frames into %s (%d fps)", len(frames), outputPath, params.FPS)

	return successJSON(map[string]interface{}{
		"output_gif_path": filepath.Base(outputPath),
		"image_count":     len(frames),
	})
}

// writeAnimatedGIF palettizes each frame and encodes the animation with a
// per-frame delay of 1000/fps milliseconds, looping forever.
func writeAnimatedGIF(path string, frames []image.Image, fps int) error {
	delay := 100 / fps // gif delays are in 1/100ths of a second
	if delay < 1 {
		delay = 1
	}

	anim := &gif.GIF{LoopCount: 0}
	for _, frame := range frames {
		bounds := frame.Bounds()
		paletted := image.NewPaletted(bounds, palette.Plan9)
		draw.FloydSteinberg.Draw(paletted, bounds, frame, bounds.Min)
		anim.Image = append(anim.Image, paletted)
		anim.Delay = append(anim.Delay, delay)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gif.EncodeAll(f, anim)
}
