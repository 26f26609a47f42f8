package controllers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"steward/pkg/apis/steward/v1alpha1"
)

func newScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, v1alpha1.AddToScheme(scheme))
	return scheme
}

func newFakeClient(t *testing.T, objects ...client.Object) client.Client {
	t.Helper()
	return fake.NewClientBuilder().
		WithScheme(newScheme(t)).
		WithStatusSubresource(&v1alpha1.ClusterDefinition{}).
		WithObjects(objects...).
		Build()
}

func newCluster(name string, generation int64, spec v1alpha1.ClusterDefinitionSpec) *v1alpha1.ClusterDefinition {
	return &v1alpha1.ClusterDefinition{
		ObjectMeta: metav1.ObjectMeta{Name: name, Generation: generation},
		Spec:       spec,
	}
}

func asUnstructured(t *testing.T, cluster *v1alpha1.ClusterDefinition) *unstructured.Unstructured {
	t.Helper()
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(cluster)
	require.NoError(t, err)
	return &unstructured.Unstructured{Object: content}
}

func getCluster(t *testing.T, c client.Client, name string) *v1alpha1.ClusterDefinition {
	t.Helper()
	cluster := &v1alpha1.ClusterDefinition{}
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: name}, cluster))
	return cluster
}

func TestReconcileSetsProvisioningPhase(t *testing.T) {
	cluster := newCluster("prod", 3, v1alpha1.ClusterDefinitionSpec{
		NodePools: []v1alpha1.NodePool{{Name: "workers", Replicas: 3}},
	})
	c := newFakeClient(t, cluster)
	ctrl := &ClusterDefinitionController{Client: c}

	require.NoError(t, ctrl.Reconcile(context.Background(), asUnstructured(t, cluster)))

	got := getCluster(t, c, "prod")
	assert.Equal(t, v1alpha1.PhaseProvisioning, got.Status.Phase)
	assert.Equal(t, int64(3), got.Status.ObservedGeneration)
}

func TestReconcilePausedCluster(t *testing.T) {
	cluster := newCluster("prod", 4, v1alpha1.ClusterDefinitionSpec{
		Paused:    true,
		NodePools: []v1alpha1.NodePool{{Name: "workers", Replicas: 3}},
	})
	c := newFakeClient(t, cluster)
	ctrl := &ClusterDefinitionController{Client: c}

	require.NoError(t, ctrl.Reconcile(context.Background(), asUnstructured(t, cluster)))

	assert.Equal(t, v1alpha1.PhasePaused, getCluster(t, c, "prod").Status.Phase)
}

func TestReconcileEmptyClusterStaysPending(t *testing.T) {
	cluster := newCluster("empty", 1, v1alpha1.ClusterDefinitionSpec{})
	c := newFakeClient(t, cluster)
	ctrl := &ClusterDefinitionController{Client: c}

	require.NoError(t, ctrl.Reconcile(context.Background(), asUnstructured(t, cluster)))

	assert.Equal(t, v1alpha1.PhasePending, getCluster(t, c, "empty").Status.Phase)
}

func TestReconcileVanishedClusterIsNotAnError(t *testing.T) {
	cluster := newCluster("gone", 1, v1alpha1.ClusterDefinitionSpec{
		NodePools: []v1alpha1.NodePool{{Name: "workers", Replicas: 1}},
	})
	// The cluster is not seeded into the client, as if deleted after the
	// watch event was queued.
	ctrl := &ClusterDefinitionController{Client: newFakeClient(t)}

	assert.NoError(t, ctrl.Reconcile(context.Background(), asUnstructured(t, cluster)))
}

func TestStatusModifiedPromotesToReady(t *testing.T) {
	cluster := newCluster("prod", 2, v1alpha1.ClusterDefinitionSpec{
		NodePools: []v1alpha1.NodePool{
			{Name: "workers", Replicas: 3},
			{Name: "system", Replicas: 2},
		},
	})
	cluster.Status = v1alpha1.ClusterDefinitionStatus{
		Phase:      v1alpha1.PhaseProvisioning,
		ReadyNodes: 5,
	}
	c := newFakeClient(t, cluster)
	ctrl := &ClusterDefinitionController{Client: c}

	require.NoError(t, ctrl.StatusModified(context.Background(), asUnstructured(t, cluster)))

	assert.Equal(t, v1alpha1.PhaseReady, getCluster(t, c, "prod").Status.Phase)
}

func TestStatusModifiedWithPartialReadinessKeepsProvisioning(t *testing.T) {
	cluster := newCluster("prod", 2, v1alpha1.ClusterDefinitionSpec{
		NodePools: []v1alpha1.NodePool{{Name: "workers", Replicas: 3}},
	})
	cluster.Status = v1alpha1.ClusterDefinitionStatus{
		Phase:      v1alpha1.PhaseProvisioning,
		ReadyNodes: 1,
	}
	c := newFakeClient(t, cluster)
	ctrl := &ClusterDefinitionController{Client: c}

	require.NoError(t, ctrl.StatusModified(context.Background(), asUnstructured(t, cluster)))

	assert.Equal(t, v1alpha1.PhaseProvisioning, getCluster(t, c, "prod").Status.Phase)
}

func TestIdleCountsStaleClusters(t *testing.T) {
	converged := newCluster("converged", 1, v1alpha1.ClusterDefinitionSpec{
		NodePools: []v1alpha1.NodePool{{Name: "workers", Replicas: 1}},
	})
	converged.Status.ObservedGeneration = 1
	stale := newCluster("stale", 7, v1alpha1.ClusterDefinitionSpec{
		NodePools: []v1alpha1.NodePool{{Name: "workers", Replicas: 1}},
	})
	stale.Status.ObservedGeneration = 2

	ctrl := &ClusterDefinitionController{Client: newFakeClient(t, converged, stale)}
	assert.NoError(t, ctrl.Idle(context.Background()))
}

func TestControllerWithoutClient(t *testing.T) {
	// Filesystem mode: no API server, callbacks compute but do not write.
	ctrl := &ClusterDefinitionController{}
	cluster := newCluster("local", 1, v1alpha1.ClusterDefinitionSpec{
		NodePools: []v1alpha1.NodePool{{Name: "workers", Replicas: 2}},
	})

	ctx := context.Background()
	assert.NoError(t, ctrl.Reconcile(ctx, asUnstructured(t, cluster)))
	assert.NoError(t, ctrl.StatusModified(ctx, asUnstructured(t, cluster)))
	assert.NoError(t, ctrl.Delete(ctx, asUnstructured(t, cluster)))
	assert.NoError(t, ctrl.Idle(ctx))
}

func TestDecodeRejectsForeignObject(t *testing.T) {
	ctrl := &ClusterDefinitionController{}
	bogus := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "ConfigMap",
		"metadata":   map[string]interface{}{"name": "not-a-cluster"},
		"spec":       "wrong shape",
	}}

	assert.Error(t, ctrl.Reconcile(context.Background(), bogus))
}
