// Package relief renders the "baked relief" effect: six photographs of
// one object, each lit from a different side, blended per pixel as a
// simulated light spins and follows the pointer.
//
// # Overview
//
// A Session ties four pieces together and runs them once per display
// refresh:
//
//   - Negotiator picks the WebGPU or WebGL backend once and clamps the
//     device pixel ratio against the backend texture ceiling.
//   - StepLight advances the light direction (autonomous spin plus
//     pointer nudge, smoothed).
//   - Compositor blends the bakes for that direction and grades the
//     result with plaster detail, tint, fresnel rim, ambient floor and
//     edge fade.
//   - TrailAccumulator keeps a decaying paint buffer under the pointer
//     and adds it to the frame as glow.
//
// # Quick Start
//
//	images, _ := relief.LoadSixImageSet(os.DirFS("assets"), 4096)
//	s, err := relief.NewSession(ctx, host, images,
//		relief.WithViewport(1280, 720),
//		relief.WithPixelRatio(2),
//		relief.WithPresenter(presenter))
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	for frame := range ticks {
//		s.SetPointer(pointer)
//		if err := s.Frame(frame.Seconds()); err != nil {
//			return err
//		}
//	}
//
// # Hosts
//
// The capability boundary is the Host interface. StaticHost answers
// with fixed values; the gpu and webgpu subpackages probe real adapters.
//
// # Coordinate System
//
// Light directions and pointer positions use x right, y up, with the
// pointer normalized to [-1, 1] over the frame. Pixmaps use the usual
// image convention, origin top-left and y down.
//
// # Logging
//
// relief is silent by default. Call SetLogger to receive backend
// selection, fallback and asset diagnostics through log/slog.
package relief

// Version is the current version of the library.
const Version = "0.1.0"
