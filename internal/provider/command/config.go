// Package command provides the escape-hatch provider: raw runbook
// steps with explicit check, run, and verify command lines for actions
// no structured provider covers.
package command

import (
	"fmt"
)

// Spec describes one raw command step.
type Spec struct {
	Name   string
	Check  string
	Run    string
	Verify string
	Needs  []string
	Risk   string
}

// ParseSpecs parses the commands section: a list of step objects.
// Every spec must declare an observable postcondition, either a check
// or a verify command; the run command's exit status alone proves
// nothing.
func ParseSpecs(raw interface{}) ([]Spec, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("commands must be a list")
	}

	specs := make([]Spec, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("command %d must be an object", i+1)
		}

		spec, err := parseSpec(entry)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i+1, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseSpec(entry map[string]interface{}) (Spec, error) {
	spec := Spec{Risk: "safe"}

	name, ok := entry["name"].(string)
	if !ok || name == "" {
		return Spec{}, fmt.Errorf("missing name")
	}
	spec.Name = name

	if v, ok := entry["check"]; ok {
		s, ok := v.(string)
		if !ok {
			return Spec{}, fmt.Errorf("check must be a string")
		}
		spec.Check = s
	}

	run, ok := entry["run"].(string)
	if !ok || run == "" {
		return Spec{}, fmt.Errorf("missing run command")
	}
	spec.Run = run

	if v, ok := entry["verify"]; ok {
		s, ok := v.(string)
		if !ok {
			return Spec{}, fmt.Errorf("verify must be a string")
		}
		spec.Verify = s
	}

	if spec.Check == "" && spec.Verify == "" {
		return Spec{}, fmt.Errorf("declare a check or verify command; a run exit code is not an observable outcome")
	}

	if v, ok := entry["needs"]; ok {
		list, ok := v.([]interface{})
		if !ok {
			return Spec{}, fmt.Errorf("needs must be a list")
		}
		for _, n := range list {
			id, ok := n.(string)
			if !ok {
				return Spec{}, fmt.Errorf("needs entry must be a string")
			}
			spec.Needs = append(spec.Needs, id)
		}
	}

	if v, ok := entry["risk"]; ok {
		s, ok := v.(string)
		if !ok {
			return Spec{}, fmt.Errorf("risk must be a string")
		}
		switch s {
		case "safe", "connectivity-risk":
		default:
			return Spec{}, fmt.Errorf("invalid risk class %q", s)
		}
		spec.Risk = s
	}

	return spec, nil
}
