package cmd

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/image/draw"

	"github.com/mj1618/a11y-chain/internal/config"
	"github.com/mj1618/a11y-chain/internal/filters"
	"github.com/mj1618/a11y-chain/internal/interceptor"
	"github.com/mj1618/a11y-chain/internal/magnify"
	"github.com/mj1618/a11y-chain/internal/platform"
	"github.com/mj1618/a11y-chain/internal/script"
)

var magnifyCmd = &cobra.Command{
	Use:   "magnify",
	Short: "Render what the screen magnifier shows",
	Long: `Render the magnified view of a screen image as PNG or JPEG.

The viewport comes from --scale/--x/--y, or from replaying --script with
magnification enabled, so the zoom gestures in the script decide what is
shown. Without --in a checkerboard of the configured screen size is used.

--region crops the input to one screen of a multi-monitor capture; viewport
coordinates are then relative to that screen.`,
	RunE: runMagnify,
}

func init() {
	rootCmd.AddCommand(magnifyCmd)
	magnifyCmd.Flags().String("in", "", "Screen image to magnify (PNG or JPEG)")
	magnifyCmd.Flags().String("region", "", "Crop the input to this screen region x,y,w,h")
	magnifyCmd.Flags().String("output", "", "Output file path, .png or .jpg (default: stdout as base64 PNG)")
	magnifyCmd.Flags().Float64("scale", 2, "Magnification scale")
	magnifyCmd.Flags().Float64("x", -1, "Viewport center X (default: screen center)")
	magnifyCmd.Flags().Float64("y", -1, "Viewport center Y (default: screen center)")
	magnifyCmd.Flags().String("script", "", "Replay this script and render the resulting viewport")
	magnifyCmd.Flags().Bool("label", false, "Draw the scale and center")
	magnifyCmd.Flags().Bool("focus", false, "Outline the viewport center")
	magnifyCmd.Flags().Bool("fast", false, "Use faster, lower quality scaling")
	magnifyCmd.Flags().Int("quality", 80, "JPEG quality 1-100")
}

func runMagnify(cmd *cobra.Command, args []string) error {
	in, _ := cmd.Flags().GetString("in")
	region, _ := cmd.Flags().GetString("region")
	out, _ := cmd.Flags().GetString("output")
	scale, _ := cmd.Flags().GetFloat64("scale")
	x, _ := cmd.Flags().GetFloat64("x")
	y, _ := cmd.Flags().GetFloat64("y")
	scriptPath, _ := cmd.Flags().GetString("script")
	label, _ := cmd.Flags().GetBool("label")
	focus, _ := cmd.Flags().GetBool("focus")
	fast, _ := cmd.Flags().GetBool("fast")
	quality, _ := cmd.Flags().GetInt("quality")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var src image.Image
	if in != "" {
		f, err := os.Open(in)
		if err != nil {
			return err
		}
		defer f.Close()
		if src, _, err = image.Decode(f); err != nil {
			return fmt.Errorf("decode %s: %w", in, err)
		}
	} else {
		screen := cfg.Screen()
		src = magnify.Checkerboard(screen.Width, screen.Height, 40)
	}
	if region != "" {
		b, err := platform.ParseBBox(region)
		if err != nil {
			return err
		}
		if src, err = crop(src, *b); err != nil {
			return err
		}
	}
	// The image defines the screen the viewport lives on.
	cfg.Zoom.ScreenWidth, cfg.Zoom.ScreenHeight = src.Bounds().Dx(), src.Bounds().Dy()

	var vp filters.Viewport
	if scriptPath != "" {
		if vp, err = viewportFromScript(cmd, scriptPath, cfg); err != nil {
			return err
		}
	} else {
		cx, cy := cfg.Screen().Center()
		if x >= 0 {
			cx = x
		}
		if y >= 0 {
			cy = y
		}
		vp = filters.Viewport{State: "zoom_in", Scale: scale, CenterX: cx, CenterY: cy}
	}

	img := magnify.Render(src, vp, magnify.Options{Label: label, Focus: focus, Fast: fast})

	var buf bytes.Buffer
	if strings.EqualFold(filepath.Ext(out), ".jpg") || strings.EqualFold(filepath.Ext(out), ".jpeg") {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return fmt.Errorf("encode image: %w", err)
	}

	if out != "" {
		return os.WriteFile(out, buf.Bytes(), 0644)
	}

	// Default: write to stdout as base64 for easy agent consumption
	w := cmd.OutOrStdout()
	encoder := base64.NewEncoder(base64.StdEncoding, w)
	if _, err := encoder.Write(buf.Bytes()); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

// crop copies the part of src inside b into an image whose origin is 0,0.
func crop(src image.Image, b platform.Bounds) (image.Image, error) {
	r := image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height).Intersect(src.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("region %d,%d,%d,%d is outside the %dx%d image",
			b.X, b.Y, b.Width, b.Height, src.Bounds().Dx(), src.Bounds().Dy())
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst, nil
}

// viewportFromScript replays path into recording chains with magnification
// on and returns where the magnifier ended up.
func viewportFromScript(cmd *cobra.Command, path string, cfg *config.Config) (filters.Viewport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return filters.Viewport{}, fmt.Errorf("failed to read script: %w", err)
	}
	steps, err := script.Parse(data)
	if err != nil {
		return filters.Viewport{}, err
	}
	cfg.SetFeatureMask(cfg.FeatureMask() | interceptor.ScreenMagnification)
	rt, err := newRuntime(cfg, runtimeOptions{})
	if err != nil {
		return filters.Viewport{}, err
	}
	defer rt.Close()
	if _, err := script.NewExecutor(rt.ic).Run(cmd.Context(), steps, true); err != nil {
		return filters.Viewport{}, err
	}
	vp, _ := rt.ic.Viewport()
	return vp, nil
}
