package trigger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
	"github.com/danielpatrickdp/affect-engine/internal/domain"
)

// #region kind
// Kind tags which variant an Input carries.
type Kind string

const (
	KindKey      Kind = "key"
	KindText     Kind = "text"
	KindOverride Kind = "override"
)

// #endregion kind

// #region input
// Input is a stimulus for the engine: a canonical lexicon key, free text, or
// an explicit override delta. Build it with Key, Text, or Override.
type Input struct {
	Kind  Kind         `json:"kind"`
	Key   string       `json:"key,omitempty"`
	Text  string       `json:"text,omitempty"`
	Delta *coord.Delta `json:"delta,omitempty"`
	Label string       `json:"label,omitempty"`
}

// Key builds a canonical-key input.
func Key(key string) Input {
	return Input{Kind: KindKey, Key: key}
}

// Text builds a free-text input.
func Text(text string) Input {
	return Input{Kind: KindText, Text: text}
}

// Override builds an explicit delta input. label is recorded as the cause.
func Override(delta coord.Delta, label string) Input {
	d := delta
	return Input{Kind: KindOverride, Delta: &d, Label: label}
}

// Validate checks the variant-specific payload rules.
func (in Input) Validate() error {
	switch in.Kind {
	case KindKey:
		if strings.TrimSpace(in.Key) == "" {
			return domain.NewValidationError("trigger.key", "empty key")
		}
	case KindText:
		if strings.TrimSpace(in.Text) == "" {
			return domain.NewValidationError("trigger.text", "empty text")
		}
	case KindOverride:
		if in.Delta == nil {
			return domain.NewValidationError("trigger.delta", "override without delta")
		}
		if err := in.Delta.Validate(); err != nil {
			return err
		}
	default:
		return domain.NewValidationError("trigger.kind", fmt.Sprintf("unknown kind %q", in.Kind))
	}
	return nil
}

// String renders the input as a log-friendly cause.
func (in Input) String() string {
	switch in.Kind {
	case KindKey:
		return "key:" + in.Key
	case KindText:
		return fmt.Sprintf("text:%q", in.Text)
	case KindOverride:
		label := in.Label
		if label == "" {
			label = "override"
		}
		if in.Delta != nil {
			return fmt.Sprintf("override:%s(%.3f,%.3f,%.3f)", label, in.Delta.Serotonin, in.Delta.Dopamine, in.Delta.Noradrenaline)
		}
		return "override:" + label
	}
	return string(in.Kind)
}

// Payload returns the key or text the resolver matches against.
func (in Input) Payload() string {
	switch in.Kind {
	case KindKey:
		return in.Key
	case KindText:
		return in.Text
	}
	return in.Label
}

// #endregion input

// #region parse
// Parse reads the line syntax used by the REPL and fixtures:
//
//	!praise          canonical key
//	=0.2,-0.1,0.4    override delta
//	anything else    free text
func Parse(line string) (Input, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return Input{}, domain.NewValidationError("trigger", "empty input")
	case strings.HasPrefix(line, "!"):
		in := Key(strings.TrimSpace(line[1:]))
		return in, in.Validate()
	case strings.HasPrefix(line, "="):
		d, err := parseDelta(line[1:])
		if err != nil {
			return Input{}, err
		}
		in := Override(d, "manual")
		return in, in.Validate()
	}
	return Text(line), nil
}

// parseDelta requires exactly three comma-separated numbers.
func parseDelta(payload string) (coord.Delta, error) {
	fields := strings.Split(payload, ",")
	if len(fields) != 3 {
		return coord.Delta{}, domain.NewValidationError("trigger.delta",
			fmt.Sprintf("expected 3 comma-separated values, got %d in %q", len(fields), payload))
	}
	var v [3]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return coord.Delta{}, domain.NewValidationError("trigger.delta", fmt.Sprintf("value %d: %q is not a number", i+1, f))
		}
		v[i] = x
	}
	return coord.Delta{Serotonin: v[0], Dopamine: v[1], Noradrenaline: v[2]}, nil
}

// #endregion parse
