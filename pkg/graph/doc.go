// Package graph implements the graph descriptor model: YAML files that
// declare node instances and wire their inputs into a pipeline the platform
// interpreter executes.
//
// A descriptor looks like:
//
//	version: 2
//	nodes:
//	  - name: Skittles
//	    type: toybox.SkittleGenerator
//	  - name: Drop Objects
//	    type: toybox.RandomPlacement
//	    inputs:
//	      Number of Objects: 50
//	      Object Generators:
//	        - link: Skittles.Object Generator
//
// Input values are scalars, lists, links to another instance's output port,
// or randomization specs sampled per interpretation; see [Value]. Load and
// LoadDir parse descriptors, Validate checks structure and wiring, Build
// produces the dependency DAG, and ToDOT/Render export visualizations.
package graph
