package sprite

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ironsheep/sprite-tools/internal/fsutil"
	"github.com/ironsheep/sprite-tools/internal/imaging"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// NoneSkin names the output directory that receives unmodified frame copies.
const NoneSkin = "none"

// Gradient map file names searched for in a sprite directory, in order.
var (
	gradientMapsBaseNames  = []string{"gradmaps", "gradients", "gradmap", "skins", "skin"}
	gradientMapsExtensions = []string{".yml", ".yaml", ".txt"}
)

// gradientMapsFile mirrors the YAML layout:
//
//	skins:
//	  red:
//	    0: "000000"
//	    100: "ff0000"
//	groups:
//	  - pattern: ^hero
//	    skins: [red]
//	    match: sprite
type gradientMapsFile struct {
	Skins  map[string]map[string]string `yaml:"skins"`
	Groups []gradientGroup              `yaml:"groups"`
}

type gradientGroup struct {
	Pattern string     `yaml:"pattern"`
	Skins   stringList `yaml:"skins"`
	Match   string     `yaml:"match"`
}

// stringList accepts either a single string or a list of strings.
type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*l = stringList{value.Value}
		return nil
	}
	return value.Decode((*[]string)(l))
}

// FindGradientMapsFile returns the first gradient map file present in dir.
func FindGradientMapsFile(dir string) (string, error) {
	for _, base := range gradientMapsBaseNames {
		for _, ext := range gradientMapsExtensions {
			path := filepath.Join(dir, base+ext)
			if fsutil.Exists(path) && !fsutil.IsDir(path) {
				return path, nil
			}
		}
	}
	return "", &GradientMapsError{Reason: "no gradient maps file found in " + dir}
}

// LoadGradientMaps parses a gradient map definition file. The result is
// sorted by name.
func LoadGradientMaps(path string) ([]*imaging.GradientMap, error) {
	data, err := fsutil.Get(func() ([]byte, error) { return os.ReadFile(path) })
	if err != nil {
		return nil, errors.Wrap(err, "failed to read gradient maps file")
	}
	return ParseGradientMaps(path, data)
}

// ParseGradientMaps parses gradient map definitions; path is used in errors.
func ParseGradientMaps(path string, data []byte) ([]*imaging.GradientMap, error) {
	var def gradientMapsFile
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &GradientMapsError{Path: path, Reason: err.Error()}
	}
	if len(def.Skins) == 0 {
		return nil, &GradientMapsError{Path: path, Reason: "no skins defined"}
	}

	byName := make(map[string]*imaging.GradientMap, len(def.Skins))
	for name, stops := range def.Skins {
		if name == NoneSkin {
			return nil, &GradientMapsError{Path: path, Reason: "skin name \"none\" is reserved"}
		}
		gm := imaging.NewGradientMap(name)
		for position, hex := range stops {
			pos, err := strconv.Atoi(strings.TrimSpace(position))
			if err != nil {
				return nil, &GradientMapsError{
					Path:   path,
					Reason: "skin " + name + ": position " + strconv.Quote(position) + " is not an integer",
				}
			}
			if err := gm.AddStop(pos, hex); err != nil {
				return nil, errors.Wrapf(err, "gradient maps file %s: skin %s", path, name)
			}
		}
		byName[name] = gm
	}

	for i, group := range def.Groups {
		pattern, err := regexp.Compile(group.Pattern)
		if err != nil {
			return nil, &GradientMapsError{
				Path:   path,
				Reason: "group " + strconv.Itoa(i) + ": invalid pattern: " + err.Error(),
			}
		}
		var scope imaging.MatchScope
		switch group.Match {
		case "", "subimage":
			scope = imaging.MatchSubimage
		case "sprite":
			scope = imaging.MatchSprite
		default:
			return nil, &GradientMapsError{
				Path:   path,
				Reason: "group " + strconv.Itoa(i) + ": match must be \"sprite\" or \"subimage\", got " + strconv.Quote(group.Match),
			}
		}
		for _, name := range group.Skins {
			gm, ok := byName[name]
			if !ok {
				return nil, &GradientMapsError{
					Path:   path,
					Reason: "group " + strconv.Itoa(i) + ": unknown skin " + strconv.Quote(name),
				}
			}
			gm.Filters = append(gm.Filters, imaging.Filter{Pattern: pattern, Scope: scope})
		}
	}

	maps := make([]*imaging.GradientMap, 0, len(byName))
	for _, gm := range byName {
		maps = append(maps, gm)
	}
	sort.Slice(maps, func(i, j int) bool { return maps[i].Name < maps[j].Name })
	return maps, nil
}

// skinTarget is one output directory of ApplyGradientMaps. A nil gradient
// map copies frames unchanged.
type skinTarget struct {
	name string
	gm   *imaging.GradientMap
}

// ApplyGradientMaps writes one recolored copy of the sprite per applicable
// gradient map, each into a subdirectory named after the map, plus unmodified
// copies into a "none" subdirectory. Files in those subdirectories that this
// pass did not produce are removed.
//
// With deleteSourceImages the original frames are removed afterwards and the
// sprite is left without frames.
func (s *Sprite) ApplyGradientMaps(ctx context.Context, deleteSourceImages bool) (*Sprite, error) {
	if err := s.ensureFrames(); err != nil {
		return s, err
	}

	file := s.opts.GradientMapsFile
	if file == "" {
		found, err := FindGradientMapsFile(s.root)
		if err != nil {
			return s, err
		}
		file = found
	}
	maps, err := LoadGradientMaps(file)
	if err != nil {
		return s, err
	}

	targets := []skinTarget{{name: NoneSkin}}
	for _, gm := range maps {
		if gm.AppliesToSprite(s.Name()) {
			targets = append(targets, skinTarget{name: gm.Name, gm: gm})
		}
	}
	s.log.Debug("applying gradient maps",
		zap.String("sprite", s.root),
		zap.String("file", file),
		zap.Int("skins", len(targets)-1))

	for _, t := range targets {
		if err := fsutil.MkdirAll(filepath.Join(s.root, t.name)); err != nil {
			return s, err
		}
	}

	var mu sync.Mutex
	produced := make(map[string]bool)
	err = s.forEachFrame(ctx, func(path string) error {
		frame, err := s.frames.Load(path)
		if err != nil {
			return err
		}
		base := filepath.Base(path)
		for _, t := range targets {
			if t.gm != nil && !t.gm.AppliesTo(s.Name(), frameName(path)) {
				continue
			}
			dst := filepath.Join(s.root, t.name, base)
			if err := s.writeSkin(path, dst, frame, t.gm); err != nil {
				return err
			}
			mu.Lock()
			produced[dst] = true
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return s, err
	}

	for _, t := range targets {
		dir := filepath.Join(s.root, t.name)
		entries, err := fsutil.ReadDir(dir)
		if err != nil {
			return s, err
		}
		for _, e := range entries {
			if p := filepath.Join(dir, e.Name()); !produced[p] {
				if err := fsutil.RemoveAll(p); err != nil {
					return s, err
				}
			}
		}
	}

	if deleteSourceImages {
		for _, path := range s.paths {
			if err := fsutil.Remove(path); err != nil {
				return s, err
			}
		}
		s.paths = nil
		s.frames.Clear()
	}
	return s, nil
}

// writeSkin writes one output frame, skipping the write when dst already
// holds the same pixels.
func (s *Sprite) writeSkin(src, dst string, frame *imaging.Frame, gm *imaging.GradientMap) error {
	out := frame
	if gm != nil {
		out = frame.Clone()
		out.ApplyGradient(gm)
	}
	if fsutil.Exists(dst) {
		if existing, err := s.readFrame(dst); err == nil && existing.Equal(out) {
			return nil
		}
	}
	if gm == nil {
		return fsutil.CopyFile(src, dst)
	}
	return fsutil.Do(func() error { return out.Save(dst) })
}
