// Package config loads node configuration from YAML.
//
// A configuration names the node, selects the cluster backend, and lists
// resources with their attributes. Attribute entries become immutable
// model.Descriptor values:
//
//	resources:
//	  - name: boiler
//	    distributed: true
//	    attributes:
//	      temperature:
//	        type: float64
//	        unit: C
//	        access: r
//	        timeout: 2s
//	      schedule:
//	        type:
//	          kind: table
//	          fields:
//	            - {name: at, type: date}
//	            - {name: target, type: float64}
//	          index: [at]
//
// Watcher reloads the file on change.
package config
