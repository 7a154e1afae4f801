package rules

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hirewire/notifykit/pkg/event"
)

// snapshotFile is the on-disk shape of a rule fixture file used to seed
// environments and to feed sample rule sets into the authoring sandbox.
type snapshotFile struct {
	Rules []ruleYAML `yaml:"rules"`
}

type ruleYAML struct {
	ID                string      `yaml:"id"`
	Name              string      `yaml:"name"`
	Scope             Scope       `yaml:"scope"`
	Order             int         `yaml:"order"`
	Conditions        []Condition `yaml:"conditions"`
	PriorityOverride  string      `yaml:"priority_override"`
	AllowDeescalation bool        `yaml:"allow_deescalation"`
	Boost             int         `yaml:"boost"`
	Active            *bool       `yaml:"active"`
}

// LoadSnapshotFile reads a YAML rule fixture and returns an evaluation
// snapshot. Rules omit the active flag default to active.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrSnapshotFile, err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot builds a snapshot from YAML bytes.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Join(ErrSnapshotFile, err)
	}

	rs := make([]Rule, 0, len(file.Rules))
	for _, ry := range file.Rules {
		rule := Rule{
			ID:                ry.ID,
			Name:              ry.Name,
			Scope:             ry.Scope,
			Order:             ry.Order,
			Conditions:        ry.Conditions,
			AllowDeescalation: ry.AllowDeescalation,
			Boost:             ry.Boost,
			Active:            true,
		}
		if rule.Scope.Type == "" {
			rule.Scope.Type = ScopeGlobal
		}
		if ry.Active != nil {
			rule.Active = *ry.Active
		}
		if ry.PriorityOverride != "" {
			p, err := event.ParsePriority(ry.PriorityOverride)
			if err != nil {
				return nil, errors.Join(ErrSnapshotFile, err)
			}
			rule.PriorityOverride = &p
		}
		if err := rule.Validate(); err != nil {
			return nil, errors.Join(ErrSnapshotFile, fmt.Errorf("rule %q: %w", ry.Name, err))
		}
		rs = append(rs, rule)
	}

	return NewSnapshot(rs), nil
}
