// Package schema defines node type manifests: the declared inputs and
// outputs of every node type a channel ships. Graph descriptors reference
// these types; the registry checks that referenced types and ports exist
// and supplies input defaults to the planner.
//
// Manifests live under a channel's nodes/ directory, one YAML file per
// package:
//
//	package: toybox
//	nodes:
//	  - type: RandomPlacement
//	    description: Drops generated objects into the scene.
//	    inputs:
//	      - name: Number of Objects
//	        default: 50
//	      - name: Object Generators
//	        required: true
//	    outputs:
//	      - name: Objects of Interest
package schema

import (
	"fmt"

	"github.com/channelkit/channelkit/pkg/errors"
)

// Port declares one input or output of a node type.
type Port struct {
	// Name is the port name as referenced from graph descriptors.
	Name string `yaml:"name" json:"name"`
	// Description is optional documentation shown by nodes describe.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Default is the value used when a graph leaves the input unset.
	// Only meaningful on inputs.
	Default any `yaml:"default,omitempty" json:"default,omitempty"`
	// Choices restricts the input to an enumerated set when non-empty.
	Choices []any `yaml:"choices,omitempty" json:"choices,omitempty"`
	// Required marks inputs that every graph must bind explicitly.
	Required bool `yaml:"required,omitempty" json:"required,omitempty"`
}

// NodeDef declares one node type: its qualified name, documentation, and
// port surface.
type NodeDef struct {
	// Type is the name within the package, e.g. "RandomPlacement".
	Type string `yaml:"type" json:"type"`
	// Package is the owning package, filled in from the manifest header.
	Package string `yaml:"-" json:"package"`
	// Description is optional documentation.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Inputs and Outputs declare the ports in manifest order.
	Inputs  []Port `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs []Port `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

// QualifiedType returns the fully qualified type name used in descriptors,
// e.g. "toybox.RandomPlacement".
func (d *NodeDef) QualifiedType() string {
	return fmt.Sprintf("%s.%s", d.Package, d.Type)
}

// Input returns the named input port and true, or nil and false.
func (d *NodeDef) Input(name string) (*Port, bool) {
	for i := range d.Inputs {
		if d.Inputs[i].Name == name {
			return &d.Inputs[i], true
		}
	}
	return nil, false
}

// Output returns the named output port and true, or nil and false.
func (d *NodeDef) Output(name string) (*Port, bool) {
	for i := range d.Outputs {
		if d.Outputs[i].Name == name {
			return &d.Outputs[i], true
		}
	}
	return nil, false
}

// validate checks the definition's internal consistency.
func (d *NodeDef) validate() error {
	if err := errors.ValidateNodeType(d.QualifiedType()); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, p := range d.Inputs {
		if p.Name == "" {
			return errors.New(errors.ErrCodeInvalidManifest, "node type %s: unnamed input", d.QualifiedType())
		}
		if seen[p.Name] {
			return errors.New(errors.ErrCodeInvalidManifest, "node type %s: duplicate input %q", d.QualifiedType(), p.Name)
		}
		seen[p.Name] = true
	}
	seen = map[string]bool{}
	for _, p := range d.Outputs {
		if p.Name == "" {
			return errors.New(errors.ErrCodeInvalidManifest, "node type %s: unnamed output", d.QualifiedType())
		}
		if seen[p.Name] {
			return errors.New(errors.ErrCodeInvalidManifest, "node type %s: duplicate output %q", d.QualifiedType(), p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}
