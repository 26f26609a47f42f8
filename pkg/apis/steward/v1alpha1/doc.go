// Package v1alpha1 contains API Schema definitions for the steward v1alpha1 API group.
//
// This package defines the cluster-scoped Custom Resource Definitions that
// the steward reconciliation engine manages. The v1alpha1 API version
// represents the initial alpha release of the steward Kubernetes API and is
// subject to change.
//
// # API Group: steward.io/v1alpha1
//
// ## ClusterDefinition
//
// ClusterDefinition declares the desired shape of a managed cluster: its
// node pools and their sizing. The spec section is the desired state whose
// edits bump metadata.generation; the status section carries the observed
// state written back by the controller and never affects the generation.
//
// Example:
//
//	apiVersion: steward.io/v1alpha1
//	kind: ClusterDefinition
//	metadata:
//	  name: lab-east
//	spec:
//	  description: "lab cluster in the east rack"
//	  nodePools:
//	    - name: workers
//	      replicas: 3
//	      machineType: medium
//
// +kubebuilder:object:generate=true
// +groupName=steward.io
package v1alpha1
