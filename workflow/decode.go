package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// StringList decodes a YAML scalar or sequence of scalars, so
// `branches: develop` and `branches: [develop]` are equivalent.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = StringList(items)
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", value.Line)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler. Triggers accept the three
// platform forms:
//
//	on: push
//	on: [push, pull_request]
//	on:
//	  push:
//	    branches: [develop]
func (t *Triggers) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var name string
		if err := value.Decode(&name); err != nil {
			return err
		}
		return t.enable(name, value.Line)
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return err
		}
		for _, name := range names {
			if err := t.enable(name, value.Line); err != nil {
				return err
			}
		}
		return nil
	case yaml.MappingNode:
		return t.decodeMapping(value)
	default:
		return fmt.Errorf("line %d: 'on' must be an event name, a list of event names, or a mapping", value.Line)
	}
}

func (t *Triggers) enable(name string, line int) error {
	switch name {
	case "push":
		t.Push = &PushTrigger{}
	case "pull_request":
		t.PullRequest = &PullRequestTrigger{}
	default:
		return fmt.Errorf("line %d: unknown event %q", line, name)
	}
	return nil
}

// decodeMapping decodes the mapping form key by key. Unknown keys are
// rejected here because a custom unmarshaller bypasses the decoder's
// KnownFields enforcement.
func (t *Triggers) decodeMapping(node *yaml.Node) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "push":
			trigger := &PushTrigger{}
			if !isNullNode(val) {
				if err := val.Decode(trigger); err != nil {
					return err
				}
			}
			t.Push = trigger
		case "pull_request":
			trigger := &PullRequestTrigger{}
			if !isNullNode(val) {
				if err := val.Decode(trigger); err != nil {
					return err
				}
			}
			t.PullRequest = trigger
		default:
			return fmt.Errorf("line %d: unknown event %q", key.Line, key.Value)
		}
	}
	return nil
}

func isNullNode(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && (n.Tag == "!!null" || n.Value == "")
}
