package interceptor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/vk/prompttrace/internal/attribution"
	"github.com/vk/prompttrace/internal/ctxlog"
	"github.com/vk/prompttrace/internal/host"
	"github.com/vk/prompttrace/internal/store"
	"github.com/vk/prompttrace/internal/tracking"
	"github.com/vk/prompttrace/internal/workflow"
)

// ErrHostIncompatible means the expected save entry point is missing from
// the host. The engine degrades to registration-only mode; the caller
// logs this once and carries on.
var ErrHostIncompatible = errors.New("host save entry point unavailable")

// Keys the interceptor reads from the host's extra metadata bag.
const (
	MetaNodeID       = "node_id"
	MetaExecutionKey = "unique_id"
	MetaConfidence   = "confidence"
	MetaArtifactType = "artifact_type"
)

// Toggles are the runtime switches the interceptor polls on every save.
type Toggles interface {
	// HookDisabled suppresses attribution entirely while leaving the
	// real save untouched.
	HookDisabled() bool
	// FinalOnly skips artifacts whose type tag is not the canonical
	// output kind.
	FinalOnly() bool
}

// Config wires an Interceptor.
type Config struct {
	Registry *tracking.Registry
	Resolver *attribution.Resolver
	Graph    *workflow.Graph
	Store    store.Store
	Toggles  Toggles
	// OutputDir resolves the runtime's artifact directory; optional.
	OutputDir host.DirResolver
}

// Interceptor observes artifact saves and schedules durable linking.
type Interceptor struct {
	registry  *tracking.Registry
	resolver  *attribution.Resolver
	graph     *workflow.Graph
	store     store.Store
	toggles   Toggles
	outputDir host.DirResolver

	queue *linkQueue

	inflightMu sync.Mutex
	inflight   map[string]struct{}

	armed     atomic.Bool
	closeOnce sync.Once
	workerCtx context.Context
	done      chan struct{}
}

// New creates an armed interceptor and starts its background worker. The
// context carries the logger the worker uses for the rest of its life.
func New(ctx context.Context, cfg Config) *Interceptor {
	i := &Interceptor{
		registry:  cfg.Registry,
		resolver:  cfg.Resolver,
		graph:     cfg.Graph,
		store:     cfg.Store,
		toggles:   cfg.Toggles,
		outputDir: cfg.OutputDir,
		queue:     newLinkQueue(),
		inflight:  make(map[string]struct{}),
		workerCtx: ctx,
		done:      make(chan struct{}),
	}
	i.armed.Store(true)
	go i.worker()
	return i
}

// Wrap returns a save function that delegates to fn and attributes its
// artifacts afterwards. The wrapped function's return values are always
// exactly what fn produced. A nil fn is a host incompatibility.
func (i *Interceptor) Wrap(fn host.SaveFunc) (host.SaveFunc, error) {
	if fn == nil {
		return nil, ErrHostIncompatible
	}
	return func(ctx context.Context, images any, filenamePrefix string, promptGraph host.PromptGraph, extra map[string]any) (*host.SaveResult, error) {
		// The real save runs first, unconditionally.
		result, err := fn(ctx, images, filenamePrefix, promptGraph, extra)
		i.afterSave(ctx, result, promptGraph, extra)
		return result, err
	}, nil
}

// WrapSaver applies the same non-invasive wrap to any host component that
// exposes a compatible save method. Third-party nodes are allowed to
// reimplement saving, so this is not limited to the well-known entry
// point.
func (i *Interceptor) WrapSaver(s host.Saver) (host.Saver, error) {
	if s == nil {
		return nil, ErrHostIncompatible
	}
	wrapped, err := i.Wrap(s.SaveImages)
	if err != nil {
		return nil, err
	}
	return saverShim{fn: wrapped}, nil
}

// saverShim adapts a wrapped SaveFunc back into the Saver interface.
type saverShim struct {
	fn host.SaveFunc
}

func (s saverShim) SaveImages(ctx context.Context, images any, filenamePrefix string, promptGraph host.PromptGraph, extra map[string]any) (*host.SaveResult, error) {
	return s.fn(ctx, images, filenamePrefix, promptGraph, extra)
}

// Unpatch disarms the interceptor: wrapped functions become transparent
// pass-throughs. Idempotent, and safe to call even if nothing was ever
// wrapped.
func (i *Interceptor) Unpatch() {
	i.armed.Store(false)
}

// Close disarms the interceptor, stops the queue and waits for the
// worker to drain what was already enqueued.
func (i *Interceptor) Close() {
	i.closeOnce.Do(func() {
		i.armed.Store(false)
		i.queue.close()
		<-i.done
	})
}

// QueueDepth reports the number of links waiting for the worker.
func (i *Interceptor) QueueDepth() int {
	return i.queue.len()
}

// afterSave runs the attribution side of one save invocation. It must
// never panic or error into the caller.
func (i *Interceptor) afterSave(ctx context.Context, result *host.SaveResult, promptGraph host.PromptGraph, extra map[string]any) {
	logger := ctxlog.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("attribution hook panicked, save result unaffected", "panic", r)
		}
	}()

	if !i.armed.Load() || i.toggles.HookDisabled() {
		return
	}
	if result == nil || len(result.UI.Images) == 0 {
		return
	}

	if len(promptGraph) > 0 {
		// Best effort; a bad snapshot only degrades graph tracing.
		_ = i.graph.Load(ctx, promptGraph)
	}

	saveNodeID := stringFromMeta(extra, MetaNodeID)
	executionKey := stringFromMeta(extra, MetaExecutionKey)

	record, confidence := i.resolver.Resolve(ctx, saveNodeID, executionKey)
	if record == nil {
		i.registry.CountFailure()
		return
	}

	finalOnly := i.toggles.FinalOnly()
	for _, image := range result.UI.Images {
		if image.IsTemporary() {
			logger.Debug("skipping temporary artifact", "filename", image.Filename)
			continue
		}
		if finalOnly && !image.IsFinal() {
			logger.Debug("skipping non-final artifact", "filename", image.Filename, "type", image.Type)
			continue
		}

		path := i.artifactPath(image)
		if !i.markInFlight(path) {
			logger.Debug("artifact already queued, skipping duplicate", "path", path)
			continue
		}

		i.queue.push(linkItem{
			artifactPath: path,
			record:       record,
			metadata: map[string]any{
				MetaConfidence:   confidence,
				MetaArtifactType: image.Type,
			},
		})
		logger.Debug("artifact queued for linking",
			"path", path, "execution_key", record.ExecutionKey, "confidence", confidence)
	}
}

// worker drains the queue one link at a time, decoupling storage latency
// from the host's save path.
func (i *Interceptor) worker() {
	defer close(i.done)
	logger := ctxlog.FromContext(i.workerCtx)

	for {
		item, ok := i.queue.pop()
		if !ok {
			logger.Debug("link worker stopped")
			return
		}
		i.processLink(item)
	}
}

// processLink persists the prompt if needed and records the artifact.
func (i *Interceptor) processLink(item linkItem) {
	logger := ctxlog.FromContext(i.workerCtx)
	defer i.clearInFlight(item.artifactPath)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("link worker recovered", "panic", r, "path", item.artifactPath)
		}
	}()

	metadata := item.metadata
	if _, ok := item.record.Metadata[tracking.MetaPromptID]; !ok {
		promptID, err := i.store.SavePrompt(i.workerCtx, store.SavePromptParams{
			Text:         item.record.PositiveText,
			NegativeText: item.record.NegativeText,
			Hash:         store.PromptHash(item.record.PositiveText, item.record.NegativeText),
		})
		if err != nil {
			i.registry.CountFailure()
			logger.Error("durable prompt save failed, artifact stays unlinked",
				"path", item.artifactPath, "error", err)
			return
		}
		metadata[tracking.MetaPromptID] = promptID
	}

	// RecordArtifact merges the metadata (including the prompt id) into
	// the live record and performs the durable link. Failures are logged
	// and counted there; no retry in this version.
	_ = i.registry.RecordArtifact(i.workerCtx, item.record.ExecutionKey, item.artifactPath, metadata)
}

// artifactPath builds the stable identity of an artifact: the resolved
// output directory (when available) joined with subfolder and filename.
func (i *Interceptor) artifactPath(image host.ImageRef) string {
	base := ""
	if i.outputDir != nil {
		if dir, err := i.outputDir(); err == nil {
			base = dir
		}
	}
	return filepath.Join(base, image.Subfolder, image.Filename)
}

// markInFlight atomically checks and inserts the path into the in-flight
// set. False means a duplicate is already queued.
func (i *Interceptor) markInFlight(path string) bool {
	i.inflightMu.Lock()
	defer i.inflightMu.Unlock()
	if _, dup := i.inflight[path]; dup {
		return false
	}
	i.inflight[path] = struct{}{}
	return true
}

func (i *Interceptor) clearInFlight(path string) {
	i.inflightMu.Lock()
	defer i.inflightMu.Unlock()
	delete(i.inflight, path)
}

func stringFromMeta(extra map[string]any, key string) string {
	if extra == nil {
		return ""
	}
	s, _ := extra[key].(string)
	return s
}
