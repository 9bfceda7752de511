package fixer

import (
	"fmt"
	"regexp"
	"strings"
)

// Override forces a correction on or off for a single sprite.
type Override int

const (
	OverrideCrop Override = iota
	OverrideNoCrop
	OverrideBleed
	OverrideNoBleed
)

func (o Override) String() string {
	switch o {
	case OverrideCrop:
		return "crop"
	case OverrideNoCrop:
		return "no-crop"
	case OverrideBleed:
		return "bleed"
	case OverrideNoBleed:
		return "no-bleed"
	}
	return fmt.Sprintf("Override(%d)", int(o))
}

// overrideSeparator introduces a suffix token in a sprite folder name.
const overrideSeparator = "--"

var overrideTokens = map[string]Override{
	"c":        OverrideCrop,
	"crop":     OverrideCrop,
	"nc":       OverrideNoCrop,
	"no-crop":  OverrideNoCrop,
	"b":        OverrideBleed,
	"bleed":    OverrideBleed,
	"nb":       OverrideNoBleed,
	"no-bleed": OverrideNoBleed,
}

// suffixToken matches what a trailing token must look like to be treated as
// an override. Anything else after "--" is part of the sprite name.
var suffixToken = regexp.MustCompile(`^[a-z][a-z-]*$`)

// InvalidOverrideError reports an unknown suffix token in a sprite folder name.
type InvalidOverrideError struct {
	Name  string
	Token string
}

func (e *InvalidOverrideError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("sprite name %q is empty once overrides are removed", e.Name)
	}
	return fmt.Sprintf("sprite name %q has unknown override suffix %q (want one of c, crop, nc, no-crop, b, bleed, nb, no-bleed)", e.Name, overrideSeparator+e.Token)
}

// ParseOverrides strips trailing "--<token>" suffixes from a sprite folder
// name, last one first, and returns the bare name with the overrides in the
// order they were stripped.
//
//	ParseOverrides("hero--nc--b") // "hero", [OverrideBleed OverrideNoCrop]
func ParseOverrides(name string) (string, []Override, error) {
	bare := name
	var overrides []Override
	for {
		i := strings.LastIndex(bare, overrideSeparator)
		if i < 0 {
			break
		}
		token := bare[i+len(overrideSeparator):]
		if !suffixToken.MatchString(token) {
			break
		}
		o, ok := overrideTokens[token]
		if !ok {
			return "", nil, &InvalidOverrideError{Name: name, Token: token}
		}
		overrides = append(overrides, o)
		bare = bare[:i]
	}
	if bare == "" {
		return "", nil, &InvalidOverrideError{Name: name}
	}
	return bare, overrides, nil
}

// ResolveMethods applies overrides to the configured methods: forced
// corrections are added, disabled ones removed (removal wins), duplicates
// dropped, and the result ordered crop, bleed, then anything else.
func ResolveMethods(configured []Method, overrides []Override) []Method {
	add := map[Method]bool{}
	remove := map[Method]bool{}
	for _, o := range overrides {
		switch o {
		case OverrideCrop:
			add[MethodCrop] = true
		case OverrideNoCrop:
			remove[MethodCrop] = true
		case OverrideBleed:
			add[MethodBleed] = true
		case OverrideNoBleed:
			remove[MethodBleed] = true
		}
	}

	candidates := append([]Method(nil), configured...)
	for _, m := range []Method{MethodCrop, MethodBleed} {
		if add[m] {
			candidates = append(candidates, m)
		}
	}

	seen := map[Method]bool{}
	var methods []Method
	for _, m := range candidates {
		if remove[m] || seen[m] {
			continue
		}
		seen[m] = true
		methods = append(methods, m)
	}
	sortMethods(methods)
	return methods
}
