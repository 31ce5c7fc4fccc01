package card

import (
	"encoding/json"
	"fmt"

	"github.com/cardline/platform/internal/domain"
)

// FieldKind is the declared type of a payload field.
type FieldKind string

const (
	KindString FieldKind = "string"
	KindNumber FieldKind = "number"
	KindBool   FieldKind = "bool"
	KindObject FieldKind = "object"
	KindArray  FieldKind = "array"
)

// FieldSpec declares one payload field contract.
type FieldSpec struct {
	Name     string
	Kind     FieldKind
	Required bool
	Min      *float64
	Max      *float64
}

func num(v float64) *float64 { return &v }

// baseFields is the envelope contract shared by every card type.
var baseFields = []FieldSpec{
	{Name: "game_id", Kind: KindString, Required: true},
	{Name: "sport", Kind: KindString, Required: true},
	{Name: "model_version", Kind: KindString, Required: true},
	{Name: "home_team", Kind: KindString, Required: true},
	{Name: "away_team", Kind: KindString, Required: true},
	{Name: "matchup", Kind: KindString, Required: true},
	{Name: "start_time_utc", Kind: KindString, Required: true},
	{Name: "start_time_local", Kind: KindString, Required: true},
	{Name: "timezone", Kind: KindString, Required: true},
	{Name: "countdown", Kind: KindString, Required: true},
	{Name: "recommendation", Kind: KindObject, Required: true},
	{Name: "market", Kind: KindObject, Required: true},
	{Name: "confidence_pct", Kind: KindNumber, Required: true, Min: num(0), Max: num(100)},
	{Name: "drivers_active", Kind: KindArray, Required: true},
	{Name: "prediction", Kind: KindString, Required: true},
	{Name: "confidence", Kind: KindNumber, Required: true, Min: num(0), Max: num(1)},
	{Name: "reasoning", Kind: KindString, Required: true},
	{Name: "odds_context", Kind: KindObject, Required: true},
	{Name: "disclaimer", Kind: KindString, Required: true},
	{Name: "generated_at", Kind: KindString, Required: true},
	{Name: "driver", Kind: KindObject, Required: true},
	{Name: "driver_summary", Kind: KindObject, Required: true},
	{Name: "meta", Kind: KindObject, Required: true},
}

// cardSchemas maps every known card type to its extra field contract on
// top of the base envelope. An unknown card type is a hard write error.
var cardSchemas = map[string][]FieldSpec{
	"nhl-composite":    {{Name: "tier", Kind: KindString}},
	"nba-composite":    {{Name: "tier", Kind: KindString}},
	"ncaam-composite":  {{Name: "tier", Kind: KindString}},
	"mlb-composite":    {{Name: "tier", Kind: KindString}},
	"nfl-composite":    {{Name: "tier", Kind: KindString}},
	"soccer-composite": {{Name: "tier", Kind: KindString}},
	"fpl-composite":    {{Name: "tier", Kind: KindString}},
	"nhl-goalie":       {{Name: "recommended_bet_type", Kind: KindString, Required: true}},
	"nhl-pace-1p":      {{Name: "projection", Kind: KindObject, Required: true}},
	"nba-pace-matchup": {{Name: "projection", Kind: KindObject, Required: true}},
	"nhl-rest":         {{Name: "recommended_bet_type", Kind: KindString, Required: true}},
	"nba-rest":         {{Name: "recommended_bet_type", Kind: KindString, Required: true}},
	"ncaam-rest":       {{Name: "recommended_bet_type", Kind: KindString, Required: true}},
	"mlb-rest":         {{Name: "recommended_bet_type", Kind: KindString, Required: true}},
	"nfl-rest":         {{Name: "recommended_bet_type", Kind: KindString, Required: true}},
	"soccer-rest":      {{Name: "recommended_bet_type", Kind: KindString, Required: true}},
	"fpl-rest":         {{Name: "recommended_bet_type", Kind: KindString, Required: true}},
}

// SchemaFor returns the full field contract for a card type.
func SchemaFor(cardType string) ([]FieldSpec, error) {
	extra, ok := cardSchemas[cardType]
	if !ok {
		return nil, domain.ErrSchemaViolation(cardType, "unknown card type")
	}
	return append(append([]FieldSpec{}, baseFields...), extra...), nil
}

// ValidateBody checks a serialized payload against the card type's
// declared contract. Violations block the write.
func ValidateBody(cardType string, payload []byte) error {
	fields, err := SchemaFor(cardType)
	if err != nil {
		return err
	}

	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return domain.ErrSchemaViolation(cardType, "payload is not a JSON object")
	}

	for _, f := range fields {
		v, present := body[f.Name]
		if !present || v == nil {
			if f.Required {
				return domain.ErrSchemaViolation(cardType, fmt.Sprintf("missing required field %q", f.Name))
			}
			continue
		}
		if err := checkKind(cardType, f, v); err != nil {
			return err
		}
	}
	return nil
}

func checkKind(cardType string, f FieldSpec, v any) error {
	violation := func(msg string) error {
		return domain.ErrSchemaViolation(cardType, fmt.Sprintf("field %q %s", f.Name, msg))
	}

	switch f.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return violation("must be a string")
		}
		if f.Required && s == "" {
			return violation("must be non-empty")
		}
	case KindNumber:
		n, ok := v.(float64)
		if !ok {
			return violation("must be a number")
		}
		if f.Min != nil && n < *f.Min {
			return violation(fmt.Sprintf("below minimum %g", *f.Min))
		}
		if f.Max != nil && n > *f.Max {
			return violation(fmt.Sprintf("above maximum %g", *f.Max))
		}
	case KindBool:
		if _, ok := v.(bool); !ok {
			return violation("must be a boolean")
		}
	case KindObject:
		if _, ok := v.(map[string]any); !ok {
			return violation("must be an object")
		}
	case KindArray:
		if _, ok := v.([]any); !ok {
			return violation("must be an array")
		}
	}
	return nil
}
