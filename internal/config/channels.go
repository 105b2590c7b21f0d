package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is shared by Config and per-channel settings validation.
// validator.Validate caches struct metadata and is safe for concurrent use.
var validate = validator.New()

// ChannelSpec is one entry of the ALERT_CHANNELS document.
//
//	# ALERT_CHANNELS
//	- name: ops-slack
//	  type: slack
//	  routes:
//	    team_backend: ["#backend-alerts"]
//	  system_alerts_routes: ["#alert-system"]
//	  settings:
//	    bot_token: xoxb-...
type ChannelSpec struct {
	// Name identifies the channel instance in logs and outcomes. Defaults to Type.
	Name string `yaml:"name" validate:"required"`
	// Type is the registry discriminant (slack, email, echo, webhook, sns, sqs).
	Type string `yaml:"type" validate:"required"`

	Routes             map[string]Destinations `yaml:"routes" validate:"dive,keys,required,endkeys,min=1,dive,required"`
	SystemAlertsRoutes Destinations            `yaml:"system_alerts_routes" validate:"dive,required"`

	// Settings is decoded by the channel constructor via DecodeSettings.
	Settings map[string]any `yaml:"settings"`
}

// Destinations accepts either a scalar or a sequence in YAML/JSON.
type Destinations []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Destinations) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*d = Destinations{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*d = Destinations(list)
		return nil
	default:
		return fmt.Errorf("line %d: destinations must be a string or a list of strings", value.Line)
	}
}

// ParseChannels decodes a YAML or JSON channel document. JSON is accepted
// because it is a subset of YAML. Names default to the channel type and must
// be unique.
func ParseChannels(doc string) ([]ChannelSpec, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, &ConfigError{Type: ErrMissingEnv, Message: "channel document is empty"}
	}

	var specs []ChannelSpec
	if err := yaml.Unmarshal([]byte(doc), &specs); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to parse channel document",
			Err:     err,
		}
	}

	seen := make(map[string]int, len(specs))
	for i := range specs {
		specs[i].Type = strings.TrimSpace(specs[i].Type)
		if specs[i].Name == "" {
			specs[i].Name = specs[i].Type
		}
		if prev, dup := seen[specs[i].Name]; dup {
			return nil, &ConfigError{
				Type:    ErrValidation,
				Message: fmt.Sprintf("channel %q defined twice (entries %d and %d)", specs[i].Name, prev, i),
			}
		}
		seen[specs[i].Name] = i
	}
	return specs, nil
}

// DecodeSettings decodes the free-form settings block into out and runs
// struct validation on the result. Unknown keys are rejected so that typos in
// the channel document fail the cold start instead of being ignored.
func (s ChannelSpec) DecodeSettings(out any) error {
	raw, err := yaml.Marshal(s.Settings)
	if err != nil {
		return fmt.Errorf("channel %q: encoding settings: %w", s.Name, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("channel %q: decoding settings: %w", s.Name, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("channel %q: invalid settings: %w", s.Name, err)
	}
	return nil
}

// RouteMap returns the routes as plain string slices.
func (s ChannelSpec) RouteMap() map[string][]string {
	out := make(map[string][]string, len(s.Routes))
	for tag, dests := range s.Routes {
		out[tag] = append([]string(nil), dests...)
	}
	return out
}
