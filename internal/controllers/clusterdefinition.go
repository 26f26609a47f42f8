// Package controllers holds the resource controllers the reconciliation
// engine drives. Controllers are constructed fresh for every event through
// the engine's factory, so they keep no state between callbacks.
package controllers

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"steward/pkg/apis/steward/v1alpha1"
	"steward/pkg/logging"
)

// ClusterDefinitionController converges ClusterDefinition resources.
//
// Client may be nil; that happens in filesystem mode where there is no API
// server to write status back to. The controller then computes the same
// outcome and only logs it.
type ClusterDefinitionController struct {
	Client client.Client
}

// decode converts the engine's unstructured payload into the typed resource.
func decode(obj *unstructured.Unstructured) (*v1alpha1.ClusterDefinition, error) {
	cluster := &v1alpha1.ClusterDefinition{}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, cluster); err != nil {
		return nil, fmt.Errorf("failed to decode ClusterDefinition %s: %w", obj.GetName(), err)
	}
	return cluster, nil
}

// Reconcile converges one cluster towards its declaration and writes the
// outcome to the status subresource.
func (c *ClusterDefinitionController) Reconcile(ctx context.Context, obj *unstructured.Unstructured) error {
	cluster, err := decode(obj)
	if err != nil {
		return err
	}

	phase := v1alpha1.PhaseProvisioning
	if cluster.Spec.Paused {
		phase = v1alpha1.PhasePaused
	} else if len(cluster.Spec.NodePools) == 0 {
		phase = v1alpha1.PhasePending
	}

	logging.Info("ClusterDefinitionController", "reconciling %s: phase=%s desiredNodes=%d generation=%d",
		cluster.Name, phase, cluster.DesiredNodes(), cluster.Generation)

	return c.patchStatus(ctx, cluster.Name, func(status *v1alpha1.ClusterDefinitionStatus) {
		status.Phase = phase
		status.ObservedGeneration = cluster.Generation
	})
}

// Delete releases backend capacity for a removed cluster.
func (c *ClusterDefinitionController) Delete(ctx context.Context, obj *unstructured.Unstructured) error {
	logging.Info("ClusterDefinitionController", "cluster %s deleted, releasing capacity", obj.GetName())
	return nil
}

// StatusModified reacts to status written by other actors, e.g. node
// readiness reported by the provisioning backend.
func (c *ClusterDefinitionController) StatusModified(ctx context.Context, obj *unstructured.Unstructured) error {
	cluster, err := decode(obj)
	if err != nil {
		return err
	}

	logging.Debug("ClusterDefinitionController", "status change on %s: phase=%s readyNodes=%d",
		cluster.Name, cluster.Status.Phase, cluster.Status.ReadyNodes)

	// Promote to Ready once the backend reports full node readiness.
	if cluster.Status.Phase == v1alpha1.PhaseProvisioning &&
		cluster.Status.ReadyNodes >= cluster.DesiredNodes() {
		return c.patchStatus(ctx, cluster.Name, func(status *v1alpha1.ClusterDefinitionStatus) {
			status.Phase = v1alpha1.PhaseReady
		})
	}
	return nil
}

// Idle runs periodic housekeeping across all clusters while this replica
// leads.
func (c *ClusterDefinitionController) Idle(ctx context.Context) error {
	if c.Client == nil {
		logging.Debug("ClusterDefinitionController", "idle pass, no cluster access")
		return nil
	}

	clusters := &v1alpha1.ClusterDefinitionList{}
	if err := c.Client.List(ctx, clusters); err != nil {
		return fmt.Errorf("failed to list clusters during idle pass: %w", err)
	}

	stale := 0
	for i := range clusters.Items {
		cluster := &clusters.Items[i]
		if cluster.Status.ObservedGeneration < cluster.Generation {
			stale++
		}
	}
	logging.Info("ClusterDefinitionController", "idle pass: %d clusters, %d awaiting convergence",
		len(clusters.Items), stale)
	return nil
}

// patchStatus re-reads the cluster and applies mutate to its status. A
// cluster that disappeared between the event and the write is not an error;
// the deletion event handles it.
func (c *ClusterDefinitionController) patchStatus(ctx context.Context, name string, mutate func(*v1alpha1.ClusterDefinitionStatus)) error {
	if c.Client == nil {
		return nil
	}

	cluster := &v1alpha1.ClusterDefinition{}
	if err := c.Client.Get(ctx, types.NamespacedName{Name: name}, cluster); err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to fetch %s for status update: %w", name, err)
	}

	mutate(&cluster.Status)
	if err := c.Client.Status().Update(ctx, cluster); err != nil {
		return fmt.Errorf("failed to update status of %s: %w", name, err)
	}
	return nil
}
