package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ClusterDefinitionSpec defines the desired state of ClusterDefinition
type ClusterDefinitionSpec struct {
	// Description provides a human-readable description of this cluster.
	// +kubebuilder:validation:MaxLength=1000
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Paused suspends convergence for this cluster without deleting it.
	// While paused, the controller records the request but performs no
	// changes against the provisioning backend.
	// +kubebuilder:default=false
	Paused bool `json:"paused,omitempty" yaml:"paused,omitempty"`

	// NodePools declares the node pools that make up the cluster.
	// +kubebuilder:validation:MinItems=1
	NodePools []NodePool `json:"nodePools,omitempty" yaml:"nodePools,omitempty"`
}

// NodePool declares sizing for one homogeneous group of nodes.
type NodePool struct {
	// Name identifies the pool within the cluster.
	// +kubebuilder:validation:Required
	// +kubebuilder:validation:MinLength=1
	Name string `json:"name" yaml:"name"`

	// Replicas is the desired node count for this pool.
	// +kubebuilder:validation:Minimum=0
	Replicas int32 `json:"replicas" yaml:"replicas"`

	// MachineType selects the backend machine flavor for nodes in this pool.
	MachineType string `json:"machineType,omitempty" yaml:"machineType,omitempty"`
}

// ClusterDefinitionPhase describes the coarse lifecycle phase of a cluster.
type ClusterDefinitionPhase string

const (
	// PhasePending means the cluster has been declared but not yet converged.
	PhasePending ClusterDefinitionPhase = "Pending"

	// PhaseProvisioning means convergence is in progress.
	PhaseProvisioning ClusterDefinitionPhase = "Provisioning"

	// PhaseReady means the observed state matches the declaration.
	PhaseReady ClusterDefinitionPhase = "Ready"

	// PhasePaused means spec.paused is set and convergence is suspended.
	PhasePaused ClusterDefinitionPhase = "Paused"
)

// ClusterDefinitionStatus defines the observed state of ClusterDefinition
type ClusterDefinitionStatus struct {
	// Phase is the coarse lifecycle phase of the cluster.
	Phase ClusterDefinitionPhase `json:"phase,omitempty" yaml:"phase,omitempty"`

	// ObservedGeneration is the metadata.generation most recently acted on.
	ObservedGeneration int64 `json:"observedGeneration,omitempty" yaml:"observedGeneration,omitempty"`

	// ReadyNodes is the total node count currently reported ready.
	ReadyNodes int32 `json:"readyNodes,omitempty" yaml:"readyNodes,omitempty"`

	// Conditions represent the latest available observations.
	Conditions []metav1.Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Cluster,shortName=cdef
// +kubebuilder:printcolumn:name="Phase",type="string",JSONPath=".status.phase"
// +kubebuilder:printcolumn:name="ReadyNodes",type="integer",JSONPath=".status.readyNodes"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// ClusterDefinition is the Schema for the clusterdefinitions API
type ClusterDefinition struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ClusterDefinitionSpec   `json:"spec,omitempty"`
	Status ClusterDefinitionStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ClusterDefinitionList contains a list of ClusterDefinition
type ClusterDefinitionList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ClusterDefinition `json:"items"`
}

// DesiredNodes returns the total declared node count across all pools.
func (c *ClusterDefinition) DesiredNodes() int32 {
	var total int32
	for _, pool := range c.Spec.NodePools {
		total += pool.Replicas
	}
	return total
}

func init() {
	SchemeBuilder.Register(&ClusterDefinition{}, &ClusterDefinitionList{})
}
