package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/prompttrace/internal/ctxlog"
)

// fileRoot mirrors the top-level blocks of a configuration file.
type fileRoot struct {
	Tracker    *trackerBlock    `hcl:"tracker,block"`
	Storage    *storageBlock    `hcl:"storage,block"`
	HostEvents *hostEventsBlock `hcl:"host_events,block"`
	Logging    *loggingBlock    `hcl:"logging,block"`
	Remain     hcl.Body         `hcl:",remain"`
}

type trackerBlock struct {
	StalenessSeconds   *int `hcl:"staleness_seconds,optional"`
	MaintenanceSeconds *int `hcl:"maintenance_seconds,optional"`
	MaxPathDepth       *int `hcl:"max_path_depth,optional"`
	RendezvousSeconds  *int `hcl:"rendezvous_seconds,optional"`
}

type storageBlock struct {
	RedisURL *string `hcl:"redis_url,optional"`
}

type hostEventsBlock struct {
	URL       string  `hcl:"url"`
	Namespace *string `hcl:"namespace,optional"`
}

type loggingBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

// Load parses the HCL file at path into a validated Model, filling in
// defaults for everything the file leaves out. An empty path returns the
// defaults untouched.
func Load(ctx context.Context, path string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := Default()

	if path == "" {
		logger.Debug("no config file given, using defaults")
		return model, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, evalContext(), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	applyFile(model, &root)
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	logger.Debug("configuration loaded", "path", path)
	return model, nil
}

// evalContext exposes the process environment to config expressions as
// the `env` object, e.g. `redis_url = env.REDIS_URL`.
func evalContext() *hcl.EvalContext {
	env := map[string]cty.Value{}
	for _, pair := range os.Environ() {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = cty.StringVal(value)
	}
	vars := map[string]cty.Value{}
	if len(env) > 0 {
		vars["env"] = cty.ObjectVal(env)
	} else {
		vars["env"] = cty.EmptyObjectVal
	}
	return &hcl.EvalContext{Variables: vars}
}

func applyFile(model *Model, root *fileRoot) {
	if b := root.Tracker; b != nil {
		if b.StalenessSeconds != nil {
			model.Tracker.Staleness = time.Duration(*b.StalenessSeconds) * time.Second
		}
		if b.MaintenanceSeconds != nil {
			model.Tracker.MaintenanceInterval = time.Duration(*b.MaintenanceSeconds) * time.Second
		}
		if b.MaxPathDepth != nil {
			model.Tracker.MaxPathDepth = *b.MaxPathDepth
		}
		if b.RendezvousSeconds != nil {
			model.Tracker.RendezvousTTL = time.Duration(*b.RendezvousSeconds) * time.Second
		}
	}
	if b := root.Storage; b != nil && b.RedisURL != nil {
		model.Storage.RedisURL = *b.RedisURL
	}
	if b := root.HostEvents; b != nil {
		he := &HostEvents{URL: b.URL, Namespace: "/"}
		if b.Namespace != nil {
			he.Namespace = *b.Namespace
		}
		model.HostEvents = he
	}
	if b := root.Logging; b != nil {
		if b.Level != nil {
			model.Logging.Level = *b.Level
		}
		if b.Format != nil {
			model.Logging.Format = *b.Format
		}
	}
}
