package domain

// Sport identifies a supported league.
type Sport string

const (
	SportNHL    Sport = "nhl"
	SportNBA    Sport = "nba"
	SportNCAAM  Sport = "ncaam"
	SportMLB    Sport = "mlb"
	SportNFL    Sport = "nfl"
	SportSoccer Sport = "soccer"
	SportFPL    Sport = "fpl"
)

// AllSports lists every supported sport in dispatch order.
var AllSports = []Sport{
	SportNHL, SportNBA, SportNCAAM, SportMLB, SportNFL, SportSoccer, SportFPL,
}

// Valid reports whether s is a known sport key.
func (s Sport) Valid() bool {
	for _, k := range AllSports {
		if s == k {
			return true
		}
	}
	return false
}

func (s Sport) String() string { return string(s) }
