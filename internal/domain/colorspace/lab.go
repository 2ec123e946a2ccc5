// Package colorspace converts sRGB colors to CIE L*a*b* and measures
// perceptual distance between them with CIEDE2000.
package colorspace

import "math"

// D65 reference white, scaled so Y = 100.
const (
	whiteX = 95.047
	whiteY = 100.0
	whiteZ = 108.883

	srgbLinearThreshold = 0.04045
	labDelta            = 6.0 / 29.0
)

// Lab is a color in CIE L*a*b* space.
type Lab struct {
	L float64
	A float64
	B float64
}

// linearize undoes the sRGB transfer curve for one 8-bit channel.
func linearize(c uint8) float64 {
	v := float64(c) / 255.0
	if v <= srgbLinearThreshold {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// RGBToXYZ converts an 8-bit sRGB color to D65 XYZ scaled to 0..100.
func RGBToXYZ(r, g, b uint8) (x, y, z float64) {
	rl, gl, bl := linearize(r), linearize(g), linearize(b)
	x = (rl*0.4124564 + gl*0.3575761 + bl*0.1804375) * 100
	y = (rl*0.2126729 + gl*0.7151522 + bl*0.0721750) * 100
	z = (rl*0.0193339 + gl*0.1191920 + bl*0.9503041) * 100
	return x, y, z
}

func labF(t float64) float64 {
	if t > labDelta*labDelta*labDelta {
		return math.Cbrt(t)
	}
	return t/(3*labDelta*labDelta) + 4.0/29.0
}

// RGBToLab converts an 8-bit sRGB color to L*a*b* under D65.
func RGBToLab(r, g, b uint8) Lab {
	x, y, z := RGBToXYZ(r, g, b)
	fx := labF(x / whiteX)
	fy := labF(y / whiteY)
	fz := labF(z / whiteZ)
	return Lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

// SquaredRGB returns the squared Euclidean distance between two colors.
func SquaredRGB(r1, g1, b1, r2, g2, b2 uint8) int {
	dr := int(r1) - int(r2)
	dg := int(g1) - int(g2)
	db := int(b1) - int(b2)
	return dr*dr + dg*dg + db*db
}

// EuclideanRGB returns the straight-line distance between two colors in RGB space.
func EuclideanRGB(r1, g1, b1, r2, g2, b2 uint8) float64 {
	return math.Sqrt(float64(SquaredRGB(r1, g1, b1, r2, g2, b2)))
}
