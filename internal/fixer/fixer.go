package fixer

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ironsheep/sprite-tools/internal/fsutil"
	"github.com/ironsheep/sprite-tools/internal/sprite"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Method is one correction the fixer can apply to a sprite.
type Method string

const (
	MethodCrop              Method = "crop"
	MethodBleed             Method = "bleed"
	MethodApplyGradientMaps Method = "apply-gradient-maps"
)

// methodRank orders corrections: crop must run before bleed, and skins are
// generated from the corrected frames.
var methodRank = map[Method]int{
	MethodCrop:              0,
	MethodBleed:             1,
	MethodApplyGradientMaps: 2,
}

func sortMethods(methods []Method) {
	sort.SliceStable(methods, func(i, j int) bool {
		return methodRank[methods[i]] < methodRank[methods[j]]
	})
}

// ParseMethod converts a method name into a Method.
func ParseMethod(name string) (Method, error) {
	m := Method(name)
	if _, ok := methodRank[m]; !ok {
		return "", errors.Errorf("unknown method %q", name)
	}
	return m, nil
}

// DefaultDebounce is the quiet period Watch waits for before re-running.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a batch run.
type Options struct {
	// Folder is the source root. Defaults to the working directory.
	Folder string

	// Recursive treats every directory below Folder as a sprite candidate.
	Recursive bool

	// Move relocates corrected sprites under this root, mirroring their path
	// relative to Folder.
	Move string

	// AllowSizeMismatch lets frames of one sprite differ in size.
	AllowSizeMismatch bool

	// PurgeTopLevelFolders empties destination top-level folders (under Move)
	// that hold only PNGs and folders before new results are written.
	PurgeTopLevelFolders bool

	// RootImagesAreSprites moves loose PNGs in Folder into same-named folders.
	RootImagesAreSprites bool

	// IfMatch restricts processing to sprites whose top-level folder matches
	// this regular expression.
	IfMatch string

	// Padding is the extra border Crop keeps.
	Padding int

	// DeleteSource removes source frames after gradient maps are applied.
	DeleteSource bool

	// GradientMapsFile overrides the per-sprite gradient map file search.
	GradientMapsFile string

	// Debounce is the quiet period Watch waits for. Zero means DefaultDebounce.
	Debounce time.Duration
}

// Result describes what happened to one sprite candidate.
type Result struct {
	Dir     string   `json:"dir"`
	Methods []Method `json:"methods,omitempty"`
	Changed bool     `json:"changed"`

	// Skipped is set for folders without frames of their own.
	Skipped bool  `json:"skipped,omitempty"`
	Err     error `json:"-"`
}

// Report collects the results of one batch run in processing order.
type Report struct {
	Results []Result
}

// Changed returns the results whose frames were modified.
func (r *Report) Changed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err == nil && !res.Skipped && res.Changed {
			out = append(out, res)
		}
	}
	return out
}

// Failed returns the results that ended in an error.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Fixer runs corrections over a tree of sprite directories.
type Fixer struct {
	methods []Method
	opts    Options
	ifMatch *regexp.Regexp
	log     *zap.Logger
	debug   bool
	running atomic.Bool
}

// New validates the options and returns a Fixer. A nil logger disables logging.
func New(methods []Method, opts Options, logger *zap.Logger) (*Fixer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Folder == "" {
		opts.Folder = "."
	}
	if opts.Padding < 0 {
		return nil, errors.Errorf("padding must be >= 0, got %d", opts.Padding)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	for _, m := range methods {
		if _, err := ParseMethod(string(m)); err != nil {
			return nil, err
		}
	}

	f := &Fixer{
		methods: append([]Method(nil), methods...),
		opts:    opts,
		log:     logger,
		debug:   logger.Core().Enabled(zap.DebugLevel),
	}
	sortMethods(f.methods)
	if opts.IfMatch != "" {
		re, err := regexp.Compile(opts.IfMatch)
		if err != nil {
			return nil, errors.Wrap(err, "invalid if-match pattern")
		}
		f.ifMatch = re
	}
	return f, nil
}

// Run performs one batch pass. Failures of individual sprites are logged and
// recorded in the report; the returned error is reserved for failures that
// stop the whole pass.
func (f *Fixer) Run(ctx context.Context) (*Report, error) {
	root := f.opts.Folder
	if !fsutil.IsDir(root) {
		return nil, &sprite.InvalidDirectoryError{Path: root, Reason: "is not a folder"}
	}

	if f.opts.RootImagesAreSprites {
		if err := f.rootImagesToSprites(); err != nil {
			return nil, err
		}
	}

	dirs, err := f.spriteDirs()
	if err != nil {
		return nil, err
	}

	if f.opts.PurgeTopLevelFolders && f.opts.Move != "" {
		if err := f.purgeTopLevelFolders(dirs); err != nil {
			return nil, err
		}
	}

	report := &Report{}
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := f.fixSpriteDir(ctx, dir)
		f.logResult(res)
		report.Results = append(report.Results, res)
	}

	if f.opts.Move != "" {
		if err := fsutil.RemoveEmptyDirs(root); err != nil {
			return report, err
		}
	}
	return report, nil
}

// rootImagesToSprites turns every loose PNG in the root into a one-frame
// sprite folder of the same name.
func (f *Fixer) rootImagesToSprites() error {
	images, err := fsutil.ListPNGs(f.opts.Folder)
	if err != nil {
		return err
	}
	for _, img := range images {
		base := filepath.Base(img)
		dir := filepath.Join(f.opts.Folder, strings.TrimSuffix(base, filepath.Ext(base)))
		if err := fsutil.MkdirAll(dir); err != nil {
			return err
		}
		if err := fsutil.MoveFile(img, filepath.Join(dir, base)); err != nil {
			return err
		}
		f.log.Debug("moved root image into its own sprite", zap.String("image", img), zap.String("sprite", dir))
	}
	return nil
}

// spriteDirs lists candidate directories, deepest first, and applies the
// top-level folder filters.
func (f *Fixer) spriteDirs() ([]string, error) {
	root := f.opts.Folder
	dirs := []string{root}
	if f.opts.Recursive {
		children, err := fsutil.ListDirs(root)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, children...)
	}
	// Pre-order reversed: every directory comes after its descendants.
	for i, j := 0, len(dirs)-1; i < j; i, j = i+1, j-1 {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	}

	if !f.opts.PurgeTopLevelFolders && f.ifMatch == nil {
		return dirs, nil
	}
	filtered := dirs[:0]
	for _, dir := range dirs {
		top := topLevelDir(root, dir)
		if top == "" {
			continue
		}
		if f.ifMatch != nil && !f.ifMatch.MatchString(top) {
			continue
		}
		filtered = append(filtered, dir)
	}
	return filtered, nil
}

// topLevelDir returns the first path segment of dir relative to root, or ""
// when dir is root itself.
func topLevelDir(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return ""
	}
	return strings.Split(filepath.ToSlash(rel), "/")[0]
}

// purgeTopLevelFolders removes stale destination folders that hold nothing
// but PNGs and folders. Folders with any other file type are left alone.
func (f *Fixer) purgeTopLevelFolders(dirs []string) error {
	seen := map[string]bool{}
	for _, dir := range dirs {
		top := topLevelDir(f.opts.Folder, dir)
		if top == "" || seen[top] {
			continue
		}
		seen[top] = true

		dest := filepath.Join(f.opts.Move, top)
		if !fsutil.IsDir(dest) {
			continue
		}
		only, err := fsutil.OnlyImagesOrDirs(dest)
		if err != nil {
			return err
		}
		if !only {
			f.log.Debug("not purging destination folder with foreign files", zap.String("folder", dest))
			continue
		}
		if err := fsutil.RemoveAll(dest); err != nil {
			return err
		}
		f.log.Debug("purged destination folder", zap.String("folder", dest))
	}
	return nil
}

// fixSpriteDir applies the resolved corrections to one directory. Every error
// is captured in the result so the batch can continue.
func (f *Fixer) fixSpriteDir(ctx context.Context, dir string) Result {
	res := Result{Dir: dir}

	s, err := sprite.New(dir, f.spriteOptions())
	if isNotASprite(err) {
		res.Skipped = true
		return res
	}
	if err != nil {
		res.Err = err
		return res
	}

	bare, overrides, err := ParseOverrides(filepath.Base(dir))
	if err != nil {
		res.Err = err
		return res
	}
	res.Methods = ResolveMethods(f.methods, overrides)

	// The source root keeps its name; its suffixes only select methods.
	isRoot := filepath.Clean(dir) == filepath.Clean(f.opts.Folder)
	if bare != filepath.Base(dir) && !isRoot {
		renamed, err := s.Copy(filepath.Join(filepath.Dir(dir), bare))
		if err != nil {
			res.Err = err
			return res
		}
		if err := s.Delete(); err != nil {
			res.Err = err
			return res
		}
		f.log.Debug("stripped override suffixes",
			zap.String("from", dir),
			zap.String("to", renamed.Root()),
			zap.Stringers("overrides", overrides))
		s = renamed
		res.Dir = renamed.Root()
	}

	before, err := s.Checksums(ctx)
	if err != nil {
		res.Err = err
		return res
	}

	for _, m := range res.Methods {
		switch m {
		case MethodCrop:
			_, err = s.Crop(ctx, f.opts.Padding)
		case MethodBleed:
			_, err = s.Bleed(ctx)
		case MethodApplyGradientMaps:
			_, err = s.ApplyGradientMaps(ctx, f.opts.DeleteSource)
		}
		if err != nil {
			res.Err = errors.WithMessagef(err, "%s", m)
			return res
		}
	}

	after, err := s.Checksums(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.Changed = len(after) != len(before) || !allContained(after, before)

	if f.opts.Move != "" {
		if err := f.relocate(s); err != nil {
			res.Err = err
			return res
		}
	}
	return res
}

func (f *Fixer) spriteOptions() sprite.Options {
	return sprite.Options{
		AllowSizeMismatch: f.opts.AllowSizeMismatch,
		GradientMapsFile:  f.opts.GradientMapsFile,
		Logger:            f.log,
	}
}

// relocate moves the sprite under the destination root, first deleting
// destination frames that no longer exist in the source.
func (f *Fixer) relocate(s *sprite.Sprite) error {
	rel, err := filepath.Rel(f.opts.Folder, s.Root())
	if err != nil {
		return errors.Wrapf(err, "locating %s under %s", s.Root(), f.opts.Folder)
	}
	dest := filepath.Join(f.opts.Move, rel)

	current := map[string]bool{}
	for _, p := range s.Paths() {
		current[filepath.Base(p)] = true
	}
	if fsutil.IsDir(dest) {
		existing, err := fsutil.ListPNGs(dest)
		if err != nil {
			return err
		}
		for _, p := range existing {
			if !current[filepath.Base(p)] {
				if err := fsutil.Remove(p); err != nil {
					return err
				}
			}
		}
	}
	return s.Move(dest)
}

func allContained(sums, set []string) bool {
	known := make(map[string]bool, len(set))
	for _, s := range set {
		known[s] = true
	}
	for _, s := range sums {
		if !known[s] {
			return false
		}
	}
	return true
}

func (f *Fixer) logResult(res Result) {
	switch {
	case res.Skipped:
		f.log.Debug("skipping folder without subimages", zap.String("folder", res.Dir))
	case res.Err == nil && res.Changed:
		f.log.Info("sprite changed", zap.String("sprite", res.Dir))
	case res.Err == nil:
		f.log.Debug("sprite unchanged", zap.String("sprite", res.Dir))
	case sprite.IsValidation(res.Err) || isOverrideError(res.Err):
		f.log.Warn("sprite skipped", zap.String("sprite", res.Dir), zap.String("reason", res.Err.Error()))
	case f.debug:
		f.log.Error("sprite failed", zap.String("sprite", res.Dir), zap.String("error", fmt.Sprintf("%+v", res.Err)))
	default:
		f.log.Error("sprite failed", zap.String("sprite", res.Dir), zap.Error(res.Err))
	}
}

// isNotASprite reports whether err only says that a candidate folder holds no
// frames. Intermediate folders of a recursive tree are expected to.
func isNotASprite(err error) bool {
	var target *sprite.NoSubimagesFoundError
	return errors.As(err, &target)
}

func isOverrideError(err error) bool {
	var target *InvalidOverrideError
	return errors.As(err, &target)
}
