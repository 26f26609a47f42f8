package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/yaml"

	"steward/pkg/logging"
)

// FilesystemSource implements EventSource over a directory of YAML
// manifests, for development without a cluster.
//
// Files appearing in the directory produce Added events, content changes
// produce Modified events and removals produce Deleted events. Because plain
// files carry no API-server-maintained generation, the source maintains its
// own: the generation starts at 1 when a file appears and increments
// whenever the spec section changes, mirroring how the real generation only
// moves on spec edits.
type FilesystemSource struct {
	dir string
}

// fileState tracks one manifest between filesystem events.
type fileState struct {
	name       string
	generation int64
	specJSON   []byte
}

// NewFilesystemSource creates a source watching dir for *.yaml and *.yml
// manifests.
func NewFilesystemSource(dir string) (*FilesystemSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("manifest directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("manifest path %s is not a directory", dir)
	}

	return &FilesystemSource{dir: dir}, nil
}

// Watch opens the synthesized event stream. The namespace argument is
// ignored; local manifests are treated as cluster-scoped.
func (s *FilesystemSource) Watch(ctx context.Context, namespace string) (<-chan watch.Event, error) {
	if namespace != "" {
		logging.Warn("FilesystemSource", "namespace scope %q ignored; manifests are cluster-scoped", namespace)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	events := make(chan watch.Event, 64)
	go s.run(ctx, watcher, events)

	return events, nil
}

func (s *FilesystemSource) run(ctx context.Context, watcher *fsnotify.Watcher, events chan<- watch.Event) {
	defer watcher.Close()
	defer close(events)

	tracked := make(map[string]*fileState)

	// Existing manifests become the initial Added burst, the same shape a
	// fresh Kubernetes watch delivers.
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		logging.Error("FilesystemSource", err, "failed to list %s", s.dir)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isManifest(entry.Name()) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		s.emitAdded(ctx, path, tracked, events)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isManifest(event.Name) {
				continue
			}

			switch {
			case event.Op.Has(fsnotify.Create):
				s.emitAdded(ctx, event.Name, tracked, events)
			case event.Op.Has(fsnotify.Write):
				s.emitModified(ctx, event.Name, tracked, events)
			case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
				s.emitDeleted(ctx, event.Name, tracked, events)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("FilesystemSource", "watcher error: %v", err)
		}
	}
}

func (s *FilesystemSource) emitAdded(ctx context.Context, path string, tracked map[string]*fileState, events chan<- watch.Event) {
	obj, specJSON, err := loadManifest(path)
	if err != nil {
		logging.Warn("FilesystemSource", "skipping %s: %v", path, err)
		return
	}

	state := &fileState{name: obj.GetName(), generation: 1, specJSON: specJSON}
	tracked[path] = state
	obj.SetGeneration(state.generation)

	send(ctx, events, watch.Event{Type: watch.Added, Object: obj})
}

func (s *FilesystemSource) emitModified(ctx context.Context, path string, tracked map[string]*fileState, events chan<- watch.Event) {
	state, known := tracked[path]
	if !known {
		// A write for an untracked file, e.g. created before the watch or
		// skipped earlier because it failed to parse. Treat as new.
		s.emitAdded(ctx, path, tracked, events)
		return
	}

	obj, specJSON, err := loadManifest(path)
	if err != nil {
		logging.Warn("FilesystemSource", "skipping %s: %v", path, err)
		return
	}

	if string(specJSON) != string(state.specJSON) {
		state.generation++
		state.specJSON = specJSON
	}
	obj.SetGeneration(state.generation)

	send(ctx, events, watch.Event{Type: watch.Modified, Object: obj})
}

func (s *FilesystemSource) emitDeleted(ctx context.Context, path string, tracked map[string]*fileState, events chan<- watch.Event) {
	state, known := tracked[path]
	if !known {
		return
	}
	delete(tracked, path)

	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"metadata": map[string]interface{}{"name": state.name},
	}}
	obj.SetGeneration(state.generation)

	send(ctx, events, watch.Event{Type: watch.Deleted, Object: obj})
}

// loadManifest parses one YAML manifest into an unstructured object and
// returns the serialized spec section used for generation tracking.
func loadManifest(path string) (*unstructured.Unstructured, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var content map[string]interface{}
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, nil, fmt.Errorf("invalid manifest: %w", err)
	}

	obj := &unstructured.Unstructured{Object: content}
	if obj.GetName() == "" {
		// Fall back to the file name so hand-written manifests without
		// metadata still round-trip.
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		obj.SetName(stem)
	}

	specJSON, err := json.Marshal(content["spec"])
	if err != nil {
		return nil, nil, fmt.Errorf("invalid spec section: %w", err)
	}

	return obj, specJSON, nil
}

func send(ctx context.Context, events chan<- watch.Event, event watch.Event) {
	select {
	case events <- event:
	case <-ctx.Done():
	}
}

func isManifest(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
