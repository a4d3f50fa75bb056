//go:build js

package webgpu

import "syscall/js"

// webglMaxTextureSizeParam is the WebGL MAX_TEXTURE_SIZE enum.
const webglMaxTextureSizeParam = 0x0D33

func navigator() js.Value {
	return js.Global().Get("navigator")
}

func hasWebGPU() bool {
	n := navigator()
	if n.IsUndefined() || n.IsNull() {
		return false
	}
	gpu := n.Get("gpu")
	return !gpu.IsUndefined() && !gpu.IsNull()
}

func userAgent() string {
	n := navigator()
	if n.IsUndefined() || n.IsNull() {
		return ""
	}
	return n.Get("userAgent").String()
}

// webglMaxTextureSize asks a throwaway WebGL context for its limit.
// Zero means unknown.
func webglMaxTextureSize() int {
	doc := js.Global().Get("document")
	if doc.IsUndefined() || doc.IsNull() {
		return 0
	}
	canvas := doc.Call("createElement", "canvas")
	gl := canvas.Call("getContext", "webgl2")
	if gl.IsNull() || gl.IsUndefined() {
		gl = canvas.Call("getContext", "webgl")
	}
	if gl.IsNull() || gl.IsUndefined() {
		return 0
	}
	v := gl.Call("getParameter", webglMaxTextureSizeParam)
	if v.Type() != js.TypeNumber {
		return 0
	}
	return v.Int()
}
