package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	flag "github.com/spf13/pflag"

	"github.com/pixeltext/img2txt/internal/codec"
	"github.com/pixeltext/img2txt/internal/pixel"
	"github.com/pixeltext/img2txt/internal/resample"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("img2txt - image to text manifest codec")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  img2txt encode [options] <image>     Encode an image into a text manifest")
	fmt.Println("  img2txt decode [options] <manifest>  Rebuild an image from a manifest")
	fmt.Println()
	fmt.Println("Run 'img2txt <command> --help' for command options.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("img2txt %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
	case "--help", "-h", "help":
		usage()
	case "encode":
		if err := runEncode(os.Args[2:]); err != nil {
			log.Fatalf("encode: %v", err)
		}
	case "decode":
		if err := runDecode(os.Args[2:]); err != nil {
			log.Fatalf("decode: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	mode := fs.String("mode", "lossless", "codec: lossless, lossy-algo or lossy-nlp")
	out := fs.String("out", "", "manifest output path (default stdout)")
	source := fs.String("source", "", "source tag recorded in the manifest (default input file name)")

	lockDims := fs.Bool("lock-dims", true, "lossy-algo: keep the source dimensions")
	maxSide := fs.Int("max-side", 128, "lossy-algo: longest side when dimensions are not locked")
	palette := fs.Int("palette", 32, "lossy-algo: palette size, 1-256")
	filterName := fs.String("filter", "bicubic", "lossy-algo: resample filter (nearest, bilinear, bicubic, lanczos)")
	dither := fs.Bool("dither", false, "lossy-algo: apply error-diffusion dithering")

	preserveDims := fs.Bool("preserve-dims", true, "lossy-nlp: describe at source dimensions")
	shortSide := fs.Int("short-side", 512, "lossy-nlp: short side when dimensions are not preserved")
	probe := fs.Int("probe", 8, "lossy-nlp: dominant tones to extract, 1-256")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one input image, got %d", fs.NArg())
	}
	path := fs.Arg(0)
	if *source == "" {
		*source = filepath.Base(path)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	layout := pixel.RGB
	if pixel.HasAlpha(img) {
		layout = pixel.RGBA
	}
	buf, err := pixel.FromImage(img, layout)
	if err != nil {
		return err
	}

	cfg := codec.DefaultConfig()
	var manifest, suggested string
	switch *mode {
	case "lossless":
		manifest, suggested, err = codec.EncodeLossless(cfg, buf, *source)
	case "lossy-algo":
		filter, ferr := resample.ParseFilter(*filterName)
		if ferr != nil {
			return ferr
		}
		manifest, suggested, err = codec.EncodeLossyAlgo(cfg, buf, *source, codec.AlgoOptions{
			LockDims:    *lockDims,
			MaxSide:     *maxSide,
			PaletteSize: *palette,
			Filter:      filter,
			Dither:      *dither,
		})
	case "lossy-nlp":
		manifest, suggested, err = codec.EncodeLossyNLP(cfg, buf, *source, codec.NLPOptions{
			PreserveDims:    *preserveDims,
			TargetShortSide: *shortSide,
			PaletteProbe:    *probe,
		})
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		return err
	}

	if *out == "" {
		fmt.Println(manifest)
	} else {
		if err := os.WriteFile(*out, []byte(manifest+"\n"), 0o644); err != nil {
			return err
		}
		log.Printf("wrote %s manifest to %s (decode suggests %s)", *mode, *out, suggested)
	}
	return nil
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	outDir := fs.String("out-dir", ".", "directory for the rebuilt image")
	outName := fs.String("out-name", "", "rebuilt file name (default per codec)")
	upscale := fs.Bool("upscale", false, "resize a downscaled reconstruction back to its original dimensions")
	filterName := fs.String("filter", "bicubic", "resample filter used with --upscale")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one manifest file, got %d", fs.NArg())
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	manifest := strings.TrimRight(string(raw), "\n")

	cfg := codec.DefaultConfig()
	var path string
	var diag codec.Diagnostics
	if *upscale {
		filter, ferr := resample.ParseFilter(*filterName)
		if ferr != nil {
			return ferr
		}
		path, diag, err = decodeUpscaled(cfg, manifest, *outDir, *outName, filter)
	} else {
		path, diag, err = codec.DecodeToFile(cfg, manifest, *outDir, *outName)
	}
	if err != nil {
		return err
	}

	info, err := json.Marshal(diag)
	if err != nil {
		return err
	}
	log.Printf("rebuilt %s", path)
	fmt.Println(string(info))
	return nil
}

// decodeUpscaled reconstructs at the encoded resolution, then resizes to the
// original dimensions when the manifest records larger ones.
func decodeUpscaled(cfg codec.Config, manifest, outDir, outName string, filter resample.Filter) (string, codec.Diagnostics, error) {
	buf, diag, err := codec.Decode(cfg, manifest)
	if err != nil {
		return "", diag, err
	}
	if diag.OriginalWidth > buf.Width || diag.OriginalHeight > buf.Height {
		buf, err = codec.UpscaleTo(buf, diag.OriginalWidth, diag.OriginalHeight, filter)
		if err != nil {
			return "", diag, err
		}
		diag.Width, diag.Height = buf.Width, buf.Height
	}

	if outName == "" {
		outName = "rebuilt_upscaled.png"
	}
	if filepath.Ext(outName) == "" {
		outName += ".png"
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", diag, err
	}
	path := filepath.Join(outDir, outName)
	if err := imaging.Save(buf.ToImage(), path); err != nil {
		return "", diag, err
	}
	return path, diag, nil
}
