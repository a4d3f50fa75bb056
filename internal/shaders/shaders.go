// Package shaders holds the WGSL sources of the relief GPU passes and
// compiles them to SPIR-V with naga.
package shaders

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/gogpu/naga"
)

//go:embed relief.wgsl
var reliefWGSL string

//go:embed trail.wgsl
var trailWGSL string

// Shader names. Relief is a render pass; Trail is a compute pass with a
// "main" entry point.
const (
	Relief = "relief"
	Trail  = "trail"
)

var sources = map[string]string{
	Relief: reliefWGSL,
	Trail:  trailWGSL,
}

// Source returns the WGSL source of the named shader.
func Source(name string) (string, bool) {
	src, ok := sources[name]
	return src, ok
}

// Names lists the available shaders in sorted order.
func Names() []string {
	names := make([]string, 0, len(sources))
	for n := range sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Compile translates the named shader to SPIR-V words.
func Compile(name string) ([]uint32, error) {
	src, ok := sources[name]
	if !ok {
		return nil, fmt.Errorf("shaders: unknown shader %q", name)
	}
	return CompileWGSL(src)
}

// CompileWGSL compiles WGSL source to a SPIR-V word slice.
func CompileWGSL(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("shaders: compile: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("shaders: spir-v length %d is not word aligned", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
