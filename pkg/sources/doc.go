// Package sources provides the static catalog of usage data sources.
//
// # Overview
//
// Each product line records usage events in its own DynamoDB table with its
// own field conventions. A Descriptor captures everything the rest of the
// system needs to read one product line: the table locations and the key
// layout (which attribute holds the owner identifier and which holds the
// usage dimension). Sources with a secondary language edition carry an
// alternate location and layout.
//
// The catalog is immutable after startup. New product lines are added by
// adding descriptors (builtin or via a YAML catalog file), never by branching
// normalization code per source name.
//
// # Usage Example
//
// Load the registry:
//
//	registry, err := sources.NewRegistry(sources.Builtin())
//	desc, err := registry.Get("chat")
//
// Load from a catalog file:
//
//	descs, err := sources.LoadCatalog("/etc/tally/sources.yaml")
//	registry, err := sources.NewRegistry(descs)
package sources
