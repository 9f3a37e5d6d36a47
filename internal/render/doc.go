// Package render rasterizes scenes with github.com/gogpu/gg.
//
// Each object is drawn in its own transform: translated to left/top,
// rotated by angle, scaled by scaleX/scaleY and mirrored by flipX/flipY.
// Group children are positioned relative to the group center. Colors
// accept hex, rgb()/rgba() and common names; opacity multiplies the color
// alpha and carries down into groups.
//
// Usage:
//
//	r, err := render.New(render.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	err = r.ExportAll(ctx, sc, 4,
//	    render.Target{Path: "out.png"},
//	    render.Target{Path: "thumb.jpg", Scale: 0.25},
//	)
package render
