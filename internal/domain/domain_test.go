package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameIDStable(t *testing.T) {
	assert.Equal(t, "game-nhl-ev42", GameID(SportNHL, "ev42"))
	// Identical inputs always yield the identical key.
	assert.Equal(t, GameID(SportNBA, "abc"), GameID(SportNBA, "abc"))
}

func TestSportValid(t *testing.T) {
	for _, s := range AllSports {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, Sport("cricket").Valid())
	assert.False(t, Sport("").Valid())
}

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		confidence float64
		want       *Tier
	}{
		{0.75, tierPtr(TierSuper)},
		{0.749, tierPtr(TierBest)},
		{0.70, tierPtr(TierBest)},
		{0.699, tierPtr(TierWatch)},
		{0.60, tierPtr(TierWatch)},
		{0.599, nil},
	}
	for _, c := range cases {
		got := TierForConfidence(c.confidence)
		if c.want == nil {
			assert.Nil(t, got, "confidence %v", c.confidence)
		} else {
			assert.Equal(t, *c.want, *got, "confidence %v", c.confidence)
		}
	}
}

func tierPtr(t Tier) *Tier { return &t }
