//go:build !js

package webgpu

// Native builds always have the API (through wgpu-native) and no
// browser identity or GL context.

func hasWebGPU() bool { return true }

func userAgent() string { return "" }

func webglMaxTextureSize() int { return 0 }
