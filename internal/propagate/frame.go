package propagate

import "math"

// omegaEarth is Earth's rotation rate in rad/s.
const omegaEarth = 7.292115146706979e-5

const j2000 = 2451545.0

// gmstFromJulian returns Greenwich Mean Sidereal Time in radians (IAU-82)
// for a split Julian date.
func gmstFromJulian(jdWhole, jdFrac float64) float64 {
	t := ((jdWhole - j2000) + jdFrac) / 36525.0

	sec := 67310.54841 +
		(3155760000.0+8640184.812866)*t +
		0.093104*t*t -
		6.2e-6*t*t*t

	sec = math.Mod(sec, 86400.0)
	if sec < 0 {
		sec += 86400.0
	}
	return sec / 86400.0 * 2.0 * math.Pi
}

// temeToECEF rotates a TEME state into the Earth-fixed frame about Z by
// gmst. Units are preserved (km and km/s in, km and km/s out).
//
//	r_ecef = R3(gmst) r_teme
//	v_ecef = R3(gmst) v_teme - w x r_ecef
func temeToECEF(pos, vel [3]float64, gmst float64) (r, v [3]float64) {
	c := math.Cos(gmst)
	s := math.Sin(gmst)

	r[0] = pos[0]*c + pos[1]*s
	r[1] = -pos[0]*s + pos[1]*c
	r[2] = pos[2]

	v[0] = vel[0]*c + vel[1]*s + omegaEarth*r[1]
	v[1] = -vel[0]*s + vel[1]*c - omegaEarth*r[0]
	v[2] = vel[2]
	return r, v
}

func finite3(v [3]float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
