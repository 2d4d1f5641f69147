package cmd

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/placerworks/pnpvision/internal/camera"
	"github.com/placerworks/pnpvision/internal/pipeline"
	"github.com/placerworks/pnpvision/internal/pipeline/stages"
	"github.com/placerworks/pnpvision/internal/units"
)

var runCmd = &cobra.Command{
	Use:   "run <pipeline.yaml>",
	Short: "Execute a vision pipeline",
	Long: `Execute the stages defined in a pipeline file. The working image comes
from --input, or from the configured (simulated) camera when the pipeline
starts with a capture stage.

Overrides retarget a stage parameter for this run only, without touching
the pipeline file:

  pnpvision run fiducial.yaml --set BlurGaussian.kernelSize=7
  pnpvision run fiducial.yaml --set BlurGaussian.kernelSize=0.4mm`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("input", "i", "", "input image file (omit to capture from the camera)")
	runCmd.Flags().StringP("output", "o", "", "write the final working image here")
	runCmd.Flags().StringArray("set", nil, "property override, repeatable: <property>.<param>=<value>")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	sets, _ := cmd.Flags().GetStringArray("set")

	defs, err := loadPipelineFile(args[0])
	if err != nil {
		return err
	}
	stageList, err := stages.DefaultRegistry().Build(defs)
	if err != nil {
		return err
	}
	overrides, err := parseOverrides(sets)
	if err != nil {
		return err
	}

	cam, err := buildCamera()
	if err != nil {
		return err
	}

	var initial image.Image
	if inputPath != "" {
		initial, err = imaging.Open(inputPath)
		if err != nil {
			return fmt.Errorf("open input image: %w", err)
		}
	}

	engine := pipeline.NewEngine(slog.Default())
	result, err := engine.Run(cmd.Context(), stageList, initial, overrides,
		pipeline.WithFrameSource(cam),
		pipeline.WithUnitsPerPixel(cam.UnitsPerPixelAtZ()),
	)
	printRun(cmd, result)
	if err != nil {
		return err
	}

	if outputPath != "" && result.Image != nil {
		if err := imaging.Save(imaging.Clone(result.Image), outputPath); err != nil {
			return fmt.Errorf("save output image: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote", outputPath)
	}
	return nil
}

func printRun(cmd *cobra.Command, result *pipeline.RunResult) {
	out := cmd.OutOrStdout()
	for _, t := range result.Timings {
		fmt.Fprintf(out, "%-24s %s\n", t.Stage, t.Elapsed.Round(time.Microsecond))
	}
	for _, r := range result.Results {
		switch r.Result.Kind {
		case pipeline.KindFeatures:
			fmt.Fprintf(out, "%s: %d feature(s)\n", r.Stage, len(r.Result.Features))
			for _, f := range r.Result.Features {
				fmt.Fprintf(out, "  center=%v area=%d bounds=%v\n", f.Center, f.Area, f.Bounds)
			}
		case pipeline.KindScalar:
			fmt.Fprintf(out, "%s: %.3f\n", r.Stage, r.Result.Scalar)
		}
	}
}

func loadPipelineFile(path string) ([]pipeline.StageDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pipeline file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return pipeline.LoadDefinitions(f)
}

// buildCamera assembles the configured camera over the simulated driver.
func buildCamera() (*camera.ReferenceCamera, error) {
	camCfg := globalConfig.Camera
	settings, err := camCfg.CameraSettings()
	if err != nil {
		return nil, err
	}
	fiducials := camCfg.FiducialPoints()
	if len(fiducials) == 0 {
		fiducials = []image.Point{
			{X: camCfg.Width / 4, Y: camCfg.Height / 4},
			{X: 3 * camCfg.Width / 4, Y: 3 * camCfg.Height / 4},
		}
	}
	driver := camera.NewSimulatedDriver(camCfg.Width, camCfg.Height, fiducials)
	return camera.New(settings, driver, slog.Default())
}

// parseOverrides turns repeated --set flags into an override map. Values
// parse as int, float, physical length, bool, then fall back to string.
func parseOverrides(sets []string) (map[string]interface{}, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	overrides := make(map[string]interface{}, len(sets))
	for _, s := range sets {
		key, value, found := strings.Cut(s, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected <property>.<param>=<value>", s)
		}
		overrides[key] = parseOverrideValue(value)
	}
	return overrides, nil
}

func parseOverrideValue(v string) interface{} {
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if l, err := units.ParseLength(v); err == nil {
		return l
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}
