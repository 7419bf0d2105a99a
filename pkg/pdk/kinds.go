package pdk

import (
	"fmt"
	"strings"

	"github.com/matzehuels/gdsfill/pkg/errors"
)

// Algorithm selects the filler implementation of a layer.
type Algorithm int

const (
	AlgorithmSquare Algorithm = iota + 1
	AlgorithmTrack
)

var algorithmNames = map[Algorithm]string{
	AlgorithmSquare: "square",
	AlgorithmTrack:  "track",
}

func (a Algorithm) String() string {
	if s, ok := algorithmNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// ParseAlgorithm resolves a case-insensitive algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	for a, name := range algorithmNames {
		if strings.EqualFold(s, name) {
			return a, nil
		}
	}
	return 0, errors.New(errors.ErrCodeUnknownAlgorithm, "unknown fill algorithm %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(b []byte) error {
	v, err := ParseAlgorithm(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// LayerKind groups layers that share a keep-out composition and tile border.
type LayerKind int

const (
	KindDiffusion LayerKind = iota + 1
	KindPoly
	KindMetal
	KindTopMetal
)

var kindNames = map[LayerKind]string{
	KindDiffusion: "diffusion",
	KindPoly:      "poly",
	KindMetal:     "metal",
	KindTopMetal:  "topmetal",
}

func (k LayerKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("LayerKind(%d)", int(k))
}

// ParseLayerKind resolves a case-insensitive layer kind name.
func ParseLayerKind(s string) (LayerKind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, errors.New(errors.ErrCodeConfig, "unknown layer kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k LayerKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *LayerKind) UnmarshalText(b []byte) error {
	v, err := ParseLayerKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Orientation is the direction of routing tracks on a layer.
type Orientation int

const (
	Horizontal Orientation = iota + 1
	Vertical
)

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	}
	return ""
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Orientation) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "horizontal":
		*o = Horizontal
	case "vertical":
		*o = Vertical
	default:
		return errors.New(errors.ErrCodeConfig, "unknown orientation %q", string(b))
	}
	return nil
}
