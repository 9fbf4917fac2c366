// Package settings exposes the engine's runtime toggles. Values come
// from the environment (prefix PROMPTTRACE_) and are polled on every
// read rather than subscribed to, so an operator can flip a kill switch
// on a live process.
package settings

import (
	"github.com/spf13/viper"
)

// Toggle keys. With the env prefix applied these become
// PROMPTTRACE_DISABLED, PROMPTTRACE_HOOK_DISABLED and so on.
const (
	keyDisabled     = "disabled"
	keyHookDisabled = "hook_disabled"
	keyFinalOnly    = "final_only"
	keyDebug        = "debug"
)

// Provider reads runtime toggles. It satisfies the interceptor's Toggles
// interface.
type Provider struct {
	v *viper.Viper
}

// New creates a provider bound to the process environment.
func New() *Provider {
	v := viper.New()
	v.SetEnvPrefix("prompttrace")
	v.AutomaticEnv()
	v.SetDefault(keyDisabled, false)
	v.SetDefault(keyHookDisabled, false)
	v.SetDefault(keyFinalOnly, false)
	v.SetDefault(keyDebug, false)
	return &Provider{v: v}
}

// Disabled is the master kill switch: the whole engine becomes a no-op.
func (p *Provider) Disabled() bool {
	return p.v.GetBool(keyDisabled)
}

// HookDisabled suppresses save-hook attribution while registration keeps
// working.
func (p *Provider) HookDisabled() bool {
	return p.v.GetBool(keyHookDisabled)
}

// FinalOnly restricts attribution to artifacts with the canonical output
// type tag.
func (p *Provider) FinalOnly() bool {
	return p.v.GetBool(keyFinalOnly)
}

// Debug enables verbose diagnostics.
func (p *Provider) Debug() bool {
	return p.v.GetBool(keyDebug)
}
