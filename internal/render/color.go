package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Paint is a parsed fill or stroke color.
type Paint struct {
	C colorful.Color
	A float64
	// None is set for "", "none" and "transparent".
	None bool
}

// NoPaint draws nothing.
var NoPaint = Paint{None: true}

// named covers the CSS keywords documents commonly use.
var named = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"lime":    "#00ff00",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"cyan":    "#00ffff",
	"aqua":    "#00ffff",
	"magenta": "#ff00ff",
	"fuchsia": "#ff00ff",
	"gray":    "#808080",
	"grey":    "#808080",
	"silver":  "#c0c0c0",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"navy":    "#000080",
	"teal":    "#008080",
	"maroon":  "#800000",
	"olive":   "#808000",
}

// ParseColor parses a CSS color value.
// Supports "#RGB", "#RRGGBB", "#RRGGBBAA", "rgb(r,g,b)", "rgba(r,g,b,a)"
// and common color names.
func ParseColor(s string) (Paint, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "", "none", "transparent":
		return NoPaint, nil
	}
	if hex, ok := named[s]; ok {
		s = hex
	}

	if strings.HasPrefix(s, "#") {
		alpha := 1.0
		if len(s) == 9 {
			a, err := strconv.ParseUint(s[7:9], 16, 8)
			if err != nil {
				return Paint{}, fmt.Errorf("invalid hex color: %s", s)
			}
			alpha = float64(a) / 255
			s = s[:7]
		}
		c, err := colorful.Hex(s)
		if err != nil {
			return Paint{}, fmt.Errorf("invalid hex color: %s", s)
		}
		return Paint{C: c, A: alpha}, nil
	}

	if strings.HasPrefix(s, "rgb") {
		return parseRGB(s)
	}
	return Paint{}, fmt.Errorf("unknown color: %s", s)
}

func parseRGB(s string) (Paint, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Paint{}, fmt.Errorf("invalid rgb color: %s", s)
	}
	parts := strings.Split(s[open+1:len(s)-1], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Paint{}, fmt.Errorf("invalid rgb color: %s", s)
	}

	var ch [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return Paint{}, fmt.Errorf("invalid rgb color: %s", s)
		}
		ch[i] = clamp(v/255, 0, 1)
	}

	alpha := 1.0
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return Paint{}, fmt.Errorf("invalid rgb color: %s", s)
		}
		alpha = clamp(a, 0, 1)
	}
	return Paint{C: colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, A: alpha}, nil
}

// Color returns the paint as a non-premultiplied color with its alpha
// multiplied by opacity.
func (p Paint) Color(opacity float64) color.Color {
	if p.None {
		return color.NRGBA{}
	}
	r, g, b := p.C.Clamped().RGB255()
	a := clamp(p.A*opacity, 0, 1)
	return color.NRGBA{R: r, G: g, B: b, A: uint8(a*255 + 0.5)}
}

// Visible reports whether drawing with p at opacity would change pixels.
func (p Paint) Visible(opacity float64) bool {
	return !p.None && p.A*opacity > 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
