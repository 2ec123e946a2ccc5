package colorspace

import "math"

const pow25To7 = 6103515625.0 // 25^7

func deg2Rad(deg float64) float64 { return deg * (math.Pi / 180.0) }

// hueAngle returns atan2(b, a) mapped to [0, 2π).
func hueAngle(b, a float64) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	h := math.Atan2(b, a)
	if h < 0 {
		h += 2 * math.Pi
	}
	return h
}

// CIEDE2000 returns the CIE 2000 color difference between two Lab colors,
// with unit weighting factors (kL = kC = kH = 1).
func CIEDE2000(lab1, lab2 Lab) float64 {
	const kL, kC, kH = 1.0, 1.0, 1.0

	c1 := math.Hypot(lab1.A, lab1.B)
	c2 := math.Hypot(lab2.A, lab2.B)
	barC7 := math.Pow((c1+c2)/2, 7)
	g := 0.5 * (1 - math.Sqrt(barC7/(barC7+pow25To7)))

	a1 := (1 + g) * lab1.A
	a2 := (1 + g) * lab2.A
	cp1 := math.Hypot(a1, lab1.B)
	cp2 := math.Hypot(a2, lab2.B)
	hp1 := hueAngle(lab1.B, a1)
	hp2 := hueAngle(lab2.B, a2)

	dL := lab2.L - lab1.L
	dC := cp2 - cp1

	cProduct := cp1 * cp2
	var dh float64
	if cProduct != 0 {
		dh = hp2 - hp1
		if dh < -math.Pi {
			dh += 2 * math.Pi
		} else if dh > math.Pi {
			dh -= 2 * math.Pi
		}
	}
	dH := 2 * math.Sqrt(cProduct) * math.Sin(dh/2)

	barL := (lab1.L + lab2.L) / 2
	barCp := (cp1 + cp2) / 2
	hSum := hp1 + hp2
	var barH float64
	switch {
	case cProduct == 0:
		barH = hSum
	case math.Abs(hp1-hp2) <= math.Pi:
		barH = hSum / 2
	case hSum < 2*math.Pi:
		barH = (hSum + 2*math.Pi) / 2
	default:
		barH = (hSum - 2*math.Pi) / 2
	}

	t := 1 - 0.17*math.Cos(barH-deg2Rad(30)) +
		0.24*math.Cos(2*barH) +
		0.32*math.Cos(3*barH+deg2Rad(6)) -
		0.20*math.Cos(4*barH-deg2Rad(63))
	dTheta := deg2Rad(30) * math.Exp(-math.Pow((barH-deg2Rad(275))/deg2Rad(25), 2))
	barCp7 := math.Pow(barCp, 7)
	rC := 2 * math.Sqrt(barCp7/(barCp7+pow25To7))
	lm50 := (barL - 50) * (barL - 50)
	sL := 1 + (0.015*lm50)/math.Sqrt(20+lm50)
	sC := 1 + 0.045*barCp
	sH := 1 + 0.015*barCp*t
	rT := -math.Sin(2*dTheta) * rC

	fL := dL / (kL * sL)
	fC := dC / (kC * sC)
	fH := dH / (kH * sH)
	return math.Sqrt(fL*fL + fC*fC + fH*fH + rT*fC*fH)
}

// DeltaE is CIEDE2000 between two 8-bit sRGB colors.
func DeltaE(r1, g1, b1, r2, g2, b2 uint8) float64 {
	return CIEDE2000(RGBToLab(r1, g1, b1), RGBToLab(r2, g2, b2))
}
