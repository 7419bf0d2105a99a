// Package pdk provides the rule model: process kits with per-layer fill rules.
//
// A process kit names the fillable layers of a process in a fixed order,
// their GDS layer numbers, the fill rule of each layer and the marker layers
// the exporter needs (seal ring, edge seal, standard cell rows). Kits are
// TOML files; the built-in kits are embedded in the binary.
//
// All lookups are pure. An unknown layer name or a request for the wrong
// algorithm yields a configuration error (see [errors.IsConfig]), which
// aborts a run before any tile work starts.
package pdk

import (
	"bytes"
	"embed"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/gdsfill/pkg/errors"
)

// DefaultProcess is the process kit used when none is given.
const DefaultProcess = "ihp-sg13g2"

//go:embed kits/*.toml
var kitFS embed.FS

// Kit is a loaded process kit.
type Kit struct {
	Name        string
	Description string
	Chip        Chip

	layers []Layer
	index  map[string]int
	kinds  map[LayerKind]KindConfig
	pinned []string
}

type kitFile struct {
	Name        string                `toml:"name"`
	Description string                `toml:"description"`
	Chip        Chip                  `toml:"chip"`
	Kinds       map[string]KindConfig `toml:"kinds"`
	Layers      []Layer               `toml:"layers"`
}

// Processes lists the names of the built-in process kits.
func Processes() []string {
	entries, _ := kitFS.ReadDir("kits")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
	}
	sort.Strings(names)
	return names
}

// Load returns the built-in kit for process with the optional override file
// applied.
func Load(process, overridePath string) (*Kit, error) {
	if process == "" {
		process = DefaultProcess
	}
	if err := errors.ValidateProcessName(process); err != nil {
		return nil, err
	}
	data, err := kitFS.ReadFile(path.Join("kits", process+".toml"))
	if err != nil {
		return nil, errors.New(errors.ErrCodeUnknownProcess,
			"unknown process %q (available: %s)", process, strings.Join(Processes(), ", "))
	}
	kit, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "process %s", process)
	}
	if overridePath == "" {
		return kit, nil
	}

	if err := errors.ValidatePath(overridePath); err != nil {
		return nil, err
	}
	override, err := os.ReadFile(overridePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", overridePath)
		}
		return nil, err
	}
	if err := kit.Apply(override); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "config file %s", overridePath)
	}
	return kit, nil
}

// Parse decodes and validates a kit from TOML.
func Parse(data []byte) (*Kit, error) {
	var f kitFile
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "decode kit")
	}
	if err := undecoded(md); err != nil {
		return nil, err
	}

	kit := &Kit{
		Name:        f.Name,
		Description: f.Description,
		Chip:        f.Chip,
		layers:      f.Layers,
		index:       make(map[string]int, len(f.Layers)),
		kinds:       make(map[LayerKind]KindConfig, len(f.Kinds)),
	}
	for name, kc := range f.Kinds {
		k, err := ParseLayerKind(name)
		if err != nil {
			return nil, err
		}
		kit.kinds[k] = kc
	}
	for i, l := range f.Layers {
		if _, dup := kit.index[l.Name]; dup {
			return nil, errors.New(errors.ErrCodeConfig, "duplicate layer %s", l.Name)
		}
		kit.index[l.Name] = i
	}
	if err := kit.validate(); err != nil {
		return nil, err
	}
	return kit, nil
}

func (k *Kit) validate() error {
	if len(k.layers) == 0 {
		return errors.New(errors.ErrCodeConfig, "kit defines no layers")
	}
	for _, l := range k.layers {
		if err := l.validate(); err != nil {
			return err
		}
		if _, ok := k.kinds[l.Kind]; !ok {
			return errors.New(errors.ErrCodeConfig, "layer %s: kind %s has no export settings", l.Name, l.Kind)
		}
	}
	if k.Chip.CoreRowHeight < 0 || k.Chip.CoreMargin < 0 {
		return errors.New(errors.ErrCodeConfig, "core row height and margin cannot be negative")
	}
	return nil
}

// layerOverride replaces individual fields of a layer.
type layerOverride struct {
	TileWidth      *int         `toml:"tile_width"`
	Algorithm      *Algorithm   `toml:"algorithm"`
	Density        *float64     `toml:"density"`
	Deviation      *float64     `toml:"deviation"`
	MinWidth       *float64     `toml:"min_width"`
	MaxWidth       *float64     `toml:"max_width"`
	MinSpace       *float64     `toml:"min_space"`
	MaxSpace       *float64     `toml:"max_space"`
	MaxDepth       *int         `toml:"max_depth"`
	Orientation    *Orientation `toml:"orientation"`
	CellHeight     *float64     `toml:"cell_height"`
	Gaps           *float64     `toml:"gaps"`
	AggressiveFill *bool        `toml:"aggressive_fill"`
}

type overrideFile struct {
	Layers map[string]layerOverride `toml:"layers"`
	Select []string                 `toml:"select"`
}

// Apply merges an override file into the kit and revalidates it.
//
//	select = ["Metal1", "Metal2"]
//
//	[layers.Metal1]
//	density = 50.0
//	aggressive_fill = false
func (k *Kit) Apply(data []byte) error {
	var f overrideFile
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "decode override")
	}
	if err := undecoded(md); err != nil {
		return err
	}

	for name, o := range f.Layers {
		i, ok := k.index[name]
		if !ok {
			return errors.New(errors.ErrCodeUnknownLayer, "override for unknown layer %q", name)
		}
		l := &k.layers[i]
		set(&l.TileWidth, o.TileWidth)
		set(&l.Rule.Algorithm, o.Algorithm)
		set(&l.Rule.Density, o.Density)
		set(&l.Rule.Deviation, o.Deviation)
		set(&l.Rule.MinWidth, o.MinWidth)
		set(&l.Rule.MaxWidth, o.MaxWidth)
		set(&l.Rule.MinSpace, o.MinSpace)
		set(&l.Rule.MaxSpace, o.MaxSpace)
		set(&l.Rule.MaxDepth, o.MaxDepth)
		set(&l.Rule.Orientation, o.Orientation)
		set(&l.Rule.CellHeight, o.CellHeight)
		set(&l.Rule.Gaps, o.Gaps)
		set(&l.Rule.AggressiveFill, o.AggressiveFill)
	}
	for _, name := range f.Select {
		if _, ok := k.index[name]; !ok {
			return errors.New(errors.ErrCodeUnknownLayer, "select names unknown layer %q", name)
		}
	}
	if len(f.Select) > 0 {
		k.pinned = f.Select
	}
	return k.validate()
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func undecoded(md toml.MetaData) error {
	if keys := md.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, key := range keys {
			names[i] = key.String()
		}
		return errors.New(errors.ErrCodeConfig, "unknown keys: %s", strings.Join(names, ", "))
	}
	return nil
}

// Layers returns every layer in configuration order.
func (k *Kit) Layers() []Layer {
	out := make([]Layer, len(k.layers))
	copy(out, k.layers)
	return out
}

// Layer returns the named layer.
func (k *Kit) Layer(name string) (Layer, error) {
	i, ok := k.index[name]
	if !ok {
		return Layer{}, errors.New(errors.ErrCodeUnknownLayer, "layer %q is not defined by process %s", name, k.Name)
	}
	return k.layers[i], nil
}

// Select returns the named layers in configuration order. With no names it
// returns the layers pinned by the override file, or every layer.
func (k *Kit) Select(names []string) ([]Layer, error) {
	if len(names) == 0 {
		names = k.pinned
	}
	if len(names) == 0 {
		return k.Layers(), nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, err := k.Layer(n); err != nil {
			return nil, err
		}
		want[n] = true
	}
	var out []Layer
	for _, l := range k.layers {
		if want[l.Name] {
			out = append(out, l)
		}
	}
	return out, nil
}

// Kind returns the export settings of a layer kind.
func (k *Kit) Kind(kind LayerKind) (KindConfig, error) {
	kc, ok := k.kinds[kind]
	if !ok {
		return KindConfig{}, errors.New(errors.ErrCodeConfig, "no export settings for kind %s", kind)
	}
	return kc, nil
}

// FillRules returns the fill rule of layer, which must use algorithm.
func (k *Kit) FillRules(layer string, algorithm Algorithm) (FillRule, error) {
	l, err := k.Layer(layer)
	if err != nil {
		return FillRule{}, err
	}
	if l.Rule.Algorithm != algorithm {
		return FillRule{}, errors.New(errors.ErrCodeUnknownAlgorithm,
			"layer %s uses the %s algorithm, not %s", layer, l.Rule.Algorithm, algorithm)
	}
	return l.Rule, nil
}

// LayerDensity returns the target density of layer in percent.
func (k *Kit) LayerDensity(layer string) (float64, error) {
	l, err := k.Layer(layer)
	if err != nil {
		return 0, err
	}
	return l.Rule.Density, nil
}

// LayerDeviation returns the accepted density deviation of layer in percent.
func (k *Kit) LayerDeviation(layer string) (float64, error) {
	l, err := k.Layer(layer)
	if err != nil {
		return 0, err
	}
	return l.Rule.Deviation, nil
}

// LayerMaxDepth returns the search depth limit of layer.
func (k *Kit) LayerMaxDepth(layer string) (int, error) {
	l, err := k.Layer(layer)
	if err != nil {
		return 0, err
	}
	return l.Rule.MaxDepth, nil
}
