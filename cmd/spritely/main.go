package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/sprite-tools/internal/config"
	"github.com/ironsheep/sprite-tools/internal/fixer"
	"github.com/ironsheep/sprite-tools/internal/fsutil"
	"github.com/ironsheep/sprite-tools/internal/logging"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// commands maps each subcommand to the corrections it applies.
var commands = map[string][]fixer.Method{
	"crop":                {fixer.MethodCrop},
	"bleed":               {fixer.MethodBleed},
	"fix":                 {fixer.MethodCrop, fixer.MethodBleed},
	"apply-gradient-maps": {fixer.MethodApplyGradientMaps},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("spritely %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		printUsage()
		return
	}

	methods, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}

	if err := run(os.Args[1], methods, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "spritely: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds the parsed command line.
type cliFlags struct {
	configFile       string
	folder           string
	recursive        bool
	watch            bool
	move             string
	allowMismatch    bool
	purgeTopLevel    bool
	rootImages       bool
	ifMatch          string
	padding          int
	debug            bool
	deleteSource     bool
	gradientMapsFile string
}

func newFlagSet(name string, withGradientMaps bool) (*flag.FlagSet, *cliFlags) {
	c := &cliFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&c.configFile, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	fs.StringVar(&c.folder, "folder", ".", "folder containing the sprites")
	fs.BoolVar(&c.recursive, "recursive", false, "treat every folder below -folder as a sprite")
	fs.BoolVar(&c.watch, "watch", false, "keep running and re-process on changes")
	fs.StringVar(&c.move, "move", "", "move corrected sprites under this folder")
	fs.BoolVar(&c.allowMismatch, "allow-subimage-size-mismatch", false, "allow frames of one sprite to differ in size")
	fs.BoolVar(&c.purgeTopLevel, "purge-top-level-folders", false, "empty stale top-level folders under -move first")
	fs.BoolVar(&c.rootImages, "root-images-are-sprites", false, "move loose PNGs in -folder into their own sprite folders")
	fs.StringVar(&c.ifMatch, "if-match", "", "only process top-level folders matching this regular expression")
	fs.IntVar(&c.padding, "padding", 1, "transparent pixels kept around the cropped content")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging")
	if withGradientMaps {
		fs.BoolVar(&c.deleteSource, "delete-source", false, "delete source frames after skins are written")
		fs.StringVar(&c.gradientMapsFile, "gradient-maps-file", "", "gradient maps file (default: looked up in each sprite folder)")
	}
	return fs, c
}

func run(name string, methods []fixer.Method, args []string) error {
	fs, flags := newFlagSet(name, name == "apply-gradient-maps")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return err
	}
	// Flags override configuration only when given explicitly.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "padding":
			cfg.Padding = flags.padding
		case "debug":
			cfg.Debug = flags.debug
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return errors.Wrap(err, "failed to create logger")
	}
	defer logging.Sync(logger)

	fsutil.SetPolicy(fsutil.Policy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay})

	f, err := fixer.New(methods, fixer.Options{
		Folder:               flags.folder,
		Recursive:            flags.recursive,
		Move:                 flags.move,
		AllowSizeMismatch:    flags.allowMismatch,
		PurgeTopLevelFolders: flags.purgeTopLevel,
		RootImagesAreSprites: flags.rootImages,
		IfMatch:              flags.ifMatch,
		Padding:              cfg.Padding,
		DeleteSource:         flags.deleteSource,
		GradientMapsFile:     flags.gradientMapsFile,
		Debounce:             cfg.Debounce,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("starting",
		zap.String("command", name),
		zap.String("version", Version),
		zap.String("folder", flags.folder))

	report, err := f.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("done",
		zap.Int("sprites", len(report.Results)),
		zap.Int("changed", len(report.Changed())),
		zap.Int("failed", len(report.Failed())))

	if !flags.watch {
		return nil
	}
	return f.Watch(ctx)
}

func printUsage() {
	fmt.Println("spritely - normalize sprite folders")
	fmt.Println()
	fmt.Println("Usage: spritely <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  crop                   Trim transparent borders, keeping frames aligned")
	fmt.Println("  bleed                  Add a faint color outline around each silhouette")
	fmt.Println("  fix                    crop, then bleed")
	fmt.Println("  apply-gradient-maps    Write recolored copies for each gradient map")
	fmt.Println("  version                Print version information")
	fmt.Println("  help                   Print this help message")
	fmt.Println()
	fmt.Println("Run 'spritely <command> -h' for the options of a command.")
	fmt.Println()
	fmt.Println("Sprite folder names may end in --c, --crop, --nc, --no-crop,")
	fmt.Println("--b, --bleed, --nb or --no-bleed to force a correction on or off.")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  SPRITELY_DEBUG=true           Enable debug logging")
	fmt.Println("  SPRITELY_PADDING=<n>          Default crop padding")
	fmt.Println("  SPRITELY_DEBOUNCE=<duration>  Watch mode quiet period")
}
