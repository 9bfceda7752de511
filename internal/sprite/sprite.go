package sprite

import (
	"context"
	"image"
	"path/filepath"
	"strings"

	"github.com/ironsheep/sprite-tools/internal/fsutil"
	"github.com/ironsheep/sprite-tools/internal/imaging"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultPadding is the number of transparent pixels Crop keeps around the
// union foreground box unless told otherwise.
const DefaultPadding = 1

// Options configures how a sprite directory is loaded and corrected.
type Options struct {
	// AllowSizeMismatch lets frames differ in size. Width and Height are then
	// undefined and every correction treats each frame on its own.
	AllowSizeMismatch bool

	// GradientMapsFile overrides the per-sprite gradient map file search.
	GradientMapsFile string

	// Bleed tunes the edge correction.
	Bleed imaging.BleedOptions

	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger
}

// Sprite is a directory whose immediate PNG children are the frames of one
// multi-frame image.
type Sprite struct {
	root   string
	paths  []string
	width  int
	height int
	opts   Options
	log    *zap.Logger
	frames *imaging.FrameCache
}

// New scans dir and validates its frames. Frame sizes are read from the PNG
// headers only.
func New(dir string, opts Options) (*Sprite, error) {
	if !fsutil.Exists(dir) {
		return nil, &InvalidDirectoryError{Path: dir, Reason: "does not exist"}
	}
	if !fsutil.IsDir(dir) {
		return nil, &InvalidDirectoryError{Path: dir, Reason: "is not a folder"}
	}

	paths, err := fsutil.ListPNGs(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &NoSubimagesFoundError{Dir: dir}
	}

	s := &Sprite{
		root:  dir,
		paths: paths,
		opts:  opts,
		log:   opts.Logger,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.frames = imaging.NewFrameCache(s.readFrame)

	for i, path := range paths {
		size, err := fsutil.Get(func() (image.Point, error) {
			w, h, err := imaging.ReadSize(path)
			return image.Pt(w, h), err
		})
		if err != nil {
			return nil, err
		}
		switch {
		case opts.AllowSizeMismatch:
		case i == 0:
			s.width, s.height = size.X, size.Y
		case size.X != s.width || size.Y != s.height:
			return nil, &SizeMismatchError{
				Frame:     path,
				ExpectedW: s.width,
				ExpectedH: s.height,
				ActualW:   size.X,
				ActualH:   size.Y,
			}
		}
	}
	return s, nil
}

// Root returns the sprite directory.
func (s *Sprite) Root() string { return s.root }

// Name returns the sprite directory's base name.
func (s *Sprite) Name() string { return filepath.Base(s.root) }

// Paths returns the frame paths in lexical order.
func (s *Sprite) Paths() []string { return append([]string(nil), s.paths...) }

// Width returns the shared frame width, or 0 when size mismatch is allowed.
func (s *Sprite) Width() int { return s.width }

// Height returns the shared frame height, or 0 when size mismatch is allowed.
func (s *Sprite) Height() int { return s.height }

// Crop removes excess transparent padding from every frame, keeping padding
// extra pixels on each side.
//
// Frames are cropped to the union of their foreground boxes so that their
// relative positions survive. When size mismatch is allowed each frame is
// cropped to its own box instead. Cropping an already cropped sprite with the
// same padding changes nothing.
func (s *Sprite) Crop(ctx context.Context, padding int) (*Sprite, error) {
	if padding < 0 {
		return s, errors.Errorf("padding must be >= 0, got %d", padding)
	}
	if err := s.ensureFrames(); err != nil {
		return s, err
	}
	if s.opts.AllowSizeMismatch {
		return s, s.forEachFrame(ctx, func(path string) error {
			frame, err := s.frames.Load(path)
			if err != nil {
				return err
			}
			box := frame.ForegroundBox().Pad(padding, frame.Width(), frame.Height())
			return s.cropFrame(path, frame, box)
		})
	}

	boxes := make([]imaging.BoundingBox, len(s.paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range s.paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frame, err := s.frames.Load(path)
			if err != nil {
				return err
			}
			boxes[i] = frame.ForegroundBox()
			return nil
		})
	}
	// Every box must be known before any frame is cropped.
	if err := g.Wait(); err != nil {
		return s, err
	}

	box := imaging.UnionBoxes(boxes...).Pad(padding, s.width, s.height)
	s.log.Debug("cropping sprite",
		zap.String("sprite", s.root),
		zap.Stringer("box", box),
		zap.Int("padding", padding))
	if box.Covers(s.width, s.height) {
		return s, nil
	}

	err := s.forEachFrame(ctx, func(path string) error {
		frame, err := s.frames.Load(path)
		if err != nil {
			return err
		}
		return s.cropFrame(path, frame, box)
	})
	if err != nil {
		return s, err
	}
	s.width, s.height = box.Width(), box.Height()
	return s, nil
}

func (s *Sprite) cropFrame(path string, frame *imaging.Frame, box imaging.BoundingBox) error {
	if box.Covers(frame.Width(), frame.Height()) {
		return nil
	}
	cropped, err := frame.Crop(box)
	if err != nil {
		return errors.Wrapf(err, "cropping %s", path)
	}
	return s.writeFrame(path, cropped)
}

// Bleed adds a nearly invisible outline of foreground color around every
// frame's silhouette. See imaging.Frame.Bleed.
//
// Frames written by tools known to inject white borders are cleaned first.
func (s *Sprite) Bleed(ctx context.Context) (*Sprite, error) {
	if err := s.ensureFrames(); err != nil {
		return s, err
	}
	return s, s.forEachFrame(ctx, func(path string) error {
		cached, err := s.frames.Load(path)
		if err != nil {
			return err
		}

		opts := s.opts.Bleed
		if !opts.CleanVendorBorders {
			software, err := fsutil.Get(func() (string, error) { return imaging.ReadSoftware(path) })
			if err != nil {
				return err
			}
			opts.CleanVendorBorders = imaging.IsVendorSoftware(software)
		}

		frame := cached.Clone()
		changed, err := frame.Bleed(opts)
		if errors.Is(err, imaging.ErrNoAlphaChannel) {
			return &NoAlphaChannelError{Frame: path}
		}
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return s.writeFrame(path, frame)
	})
}

// Checksums returns the pixel checksum of every frame in Paths order.
func (s *Sprite) Checksums(ctx context.Context) ([]string, error) {
	sums := make([]string, len(s.paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range s.paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frame, err := s.frames.Load(path)
			if err != nil {
				return err
			}
			sums[i] = frame.Checksum()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sums, nil
}

// Copy copies the whole sprite directory to destDir, replacing anything
// already there, and returns the copy.
func (s *Sprite) Copy(destDir string) (*Sprite, error) {
	if err := fsutil.RemoveAll(destDir); err != nil {
		return nil, err
	}
	if err := fsutil.CopyDir(s.root, destDir); err != nil {
		return nil, err
	}
	return New(destDir, s.opts)
}

// Move merges the sprite directory's contents into destDir and points the
// sprite at its new location. Files in destDir that share a name with a moved
// file are replaced; others are kept. The emptied source directory is left in
// place.
func (s *Sprite) Move(destDir string) error {
	if err := fsutil.MoveDir(s.root, destDir); err != nil {
		return err
	}
	paths := make([]string, len(s.paths))
	for i, p := range s.paths {
		paths[i] = filepath.Join(destDir, filepath.Base(p))
	}
	s.root, s.paths = destDir, paths
	s.frames.Clear()
	return nil
}

// Delete removes the sprite directory and everything in it. The sprite has no
// frames afterwards.
func (s *Sprite) Delete() error {
	if err := fsutil.RemoveAll(s.root); err != nil {
		return err
	}
	s.paths = nil
	s.frames.Clear()
	return nil
}

// FrameNames returns the frame file names without directory or extension.
func (s *Sprite) FrameNames() []string {
	names := make([]string, len(s.paths))
	for i, p := range s.paths {
		names[i] = frameName(p)
	}
	return names
}

func frameName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *Sprite) ensureFrames() error {
	if len(s.paths) == 0 {
		return &NoSubimagesFoundError{Dir: s.root}
	}
	return nil
}

// forEachFrame runs fn for every frame concurrently and waits for all of them.
func (s *Sprite) forEachFrame(ctx context.Context, fn func(path string) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range s.paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(path)
		})
	}
	return g.Wait()
}

func (s *Sprite) readFrame(path string) (*imaging.Frame, error) {
	return fsutil.Get(func() (*imaging.Frame, error) { return imaging.LoadFrame(path) })
}

func (s *Sprite) writeFrame(path string, frame *imaging.Frame) error {
	if err := fsutil.Do(func() error { return frame.Save(path) }); err != nil {
		return err
	}
	s.frames.Put(path, frame)
	return nil
}
