// Package config provides configuration management for steward.
//
// Configuration is loaded from a single directory containing config.yaml.
// The default directory is ~/.config/steward; commands accept a
// --config-path flag to point elsewhere. A missing config.yaml is fine and
// yields the defaults: kubernetes mode at cluster scope.
//
// # Configuration Structure
//
//	mode: kubernetes            # kubernetes or filesystem
//	namespace: ""               # empty watches at cluster scope
//	idleInterval: 1m            # leader-only periodic idle callback
//	lease:
//	  name: steward             # Lease object replicas contend for
//	  namespace: kube-system
//	metrics:
//	  enabled: true
//	  address: ":9090"
//	logLevel: info
//
// Filesystem mode swaps the API-server watch for a directory of YAML
// manifests and needs manifestDir set:
//
//	mode: filesystem
//	manifestDir: ./manifests
package config
