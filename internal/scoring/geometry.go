package scoring

import (
	"math"
	"strings"
	"sync"

	"github.com/imadgeboyega/kiekky-matching/internal/logging"
)

// Sign is a zodiac sign.
type Sign string

const (
	Aries       Sign = "aries"
	Taurus      Sign = "taurus"
	Gemini      Sign = "gemini"
	Cancer      Sign = "cancer"
	Leo         Sign = "leo"
	Virgo       Sign = "virgo"
	Libra       Sign = "libra"
	Scorpio     Sign = "scorpio"
	Sagittarius Sign = "sagittarius"
	Capricorn   Sign = "capricorn"
	Aquarius    Sign = "aquarius"
	Pisces      Sign = "pisces"
)

// Signs in zodiac order; index*30 is the sign's offset on the ecliptic.
var Signs = []Sign{
	Aries, Taurus, Gemini, Cancer, Leo, Virgo,
	Libra, Scorpio, Sagittarius, Capricorn, Aquarius, Pisces,
}

var signOffsets = func() map[Sign]float64 {
	m := make(map[Sign]float64, len(Signs))
	for i, s := range Signs {
		m[s] = float64(i * 30)
	}
	return m
}()

// ParseSign normalizes case and whitespace. ok is false for unknown labels.
func ParseSign(s string) (Sign, bool) {
	sign := Sign(strings.ToLower(strings.TrimSpace(s)))
	_, ok := signOffsets[sign]
	return sign, ok
}

// Body is a chart point.
type Body string

const (
	Sun       Body = "sun"
	Moon      Body = "moon"
	Ascendant Body = "ascendant"
	Mercury   Body = "mercury"
	Venus     Body = "venus"
	Mars      Body = "mars"
)

// CoreBodies are the points used for compatibility, in pairing order.
var CoreBodies = []Body{Sun, Moon, Ascendant, Mercury, Venus, Mars}

// Placement is a body's position within a sign. Absolute, when set by the
// producer of the chart, takes precedence over Sign+Degree.
type Placement struct {
	Sign     Sign     `json:"sign"`
	Degree   float64  `json:"degree"`
	Absolute *float64 `json:"absolute_degree,omitempty"`
}

// NatalChart is read-only once built. Absolute positions are derived on first use
// and cached; Positions is safe for concurrent callers.
type NatalChart struct {
	UserID     int64              `json:"user_id"`
	Placements map[Body]Placement `json:"placements"`

	once      sync.Once
	positions map[Body]float64
}

// Positions returns the absolute degree of every core body whose placement is
// valid. Invalid precomputed degrees are logged and left out.
func (c *NatalChart) Positions() map[Body]float64 {
	if c == nil {
		return nil
	}
	c.once.Do(func() {
		c.positions = make(map[Body]float64, len(CoreBodies))
		for _, body := range CoreBodies {
			p, ok := c.Placements[body]
			if !ok {
				continue
			}
			if p.Absolute != nil {
				if !ValidDegree(*p.Absolute) {
					logging.Warn().
						Int64("user_id", c.UserID).
						Str("body", string(body)).
						Float64("degree", *p.Absolute).
						Msg("precomputed degree out of range, skipping body")
					continue
				}
				c.positions[body] = *p.Absolute
				continue
			}
			c.positions[body] = AbsoluteDegree(p.Sign, p.Degree)
		}
	})
	return c.positions
}

// Usable reports whether the chart has at least one core position.
func (c *NatalChart) Usable() bool {
	return len(c.Positions()) > 0
}

// AbsoluteDegree maps sign+degree to [0,360). The in-sign degree is clamped to
// [0,30]; an unknown sign is logged and treated as offset 0.
func AbsoluteDegree(sign Sign, degree float64) float64 {
	offset, ok := signOffsets[sign]
	if !ok {
		logging.Warn().Str("sign", string(sign)).Msg("unknown sign, using offset 0")
	}
	if math.IsNaN(degree) {
		degree = 0
	}
	degree = clamp(degree, 0, 30)
	return math.Mod(offset+degree, 360)
}

// ValidDegree reports whether d lies in [0,360).
func ValidDegree(d float64) bool {
	return !math.IsNaN(d) && d >= 0 && d < 360
}

// AspectName names an angular relationship.
type AspectName string

const (
	Conjunction AspectName = "conjunction"
	Sextile     AspectName = "sextile"
	Square      AspectName = "square"
	Trine       AspectName = "trine"
	Opposition  AspectName = "opposition"
	Quincunx    AspectName = "quincunx"
)

// Aspect is an ideal angle with its orb tolerance.
type Aspect struct {
	Name  AspectName
	Angle float64
	Orb   float64
}

// aspects are ordered by increasing orb so the tightest tolerance wins.
var aspects = []Aspect{
	{Name: Quincunx, Angle: 150, Orb: 3},
	{Name: Sextile, Angle: 60, Orb: 6},
	{Name: Conjunction, Angle: 0, Orb: 8},
	{Name: Opposition, Angle: 180, Orb: 8},
	{Name: Trine, Angle: 120, Orb: 8},
	{Name: Square, Angle: 90, Orb: 8},
}

// AspectMatch is a classified relationship between two positions.
type AspectMatch struct {
	Aspect    Aspect
	Deviation float64
}

// AngularDistance is the shorter arc between two positions, in [0,180].
func AngularDistance(a, b float64) float64 {
	diff := math.Abs(a - b)
	return math.Min(diff, 360-diff)
}

// ClassifyAspect finds the aspect formed by two absolute positions. It returns
// false when no aspect is within orb or when either degree is outside [0,360).
func ClassifyAspect(a, b float64) (AspectMatch, bool) {
	if !ValidDegree(a) || !ValidDegree(b) {
		return AspectMatch{}, false
	}
	diff := AngularDistance(a, b)
	for _, asp := range aspects {
		dev := math.Abs(diff - asp.Angle)
		if dev <= asp.Orb {
			return AspectMatch{Aspect: asp, Deviation: dev}, true
		}
	}
	return AspectMatch{}, false
}
