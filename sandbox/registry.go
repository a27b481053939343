package sandbox

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// LookPathFunc locates an executable on the host, with exec.LookPath semantics
type LookPathFunc func(file string) (string, error)

// Registry maps language identifiers to resolved profiles. It is built once
// at startup and never mutated afterwards, so lookups need no locking.
type Registry struct {
	available   map[string]LanguageProfile
	unavailable map[string]LanguageProfile
}

// NewRegistry probes the host for every profile's toolchain. Languages whose
// compiler or interpreter cannot be found are kept aside as unavailable.
func NewRegistry(logger *zap.Logger, profiles []LanguageProfile, lookPath LookPathFunc) *Registry {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	r := &Registry{
		available:   make(map[string]LanguageProfile, len(profiles)),
		unavailable: make(map[string]LanguageProfile),
	}

	for _, p := range profiles {
		p.ID = strings.ToLower(p.ID)

		resolved, missing := resolveProfile(p, lookPath)
		if missing != "" {
			r.unavailable[p.ID] = p
			logger.Warn("language unavailable",
				zap.String("language", p.ID),
				zap.String("missing", missing))
			continue
		}

		r.available[p.ID] = resolved
		fields := []zap.Field{
			zap.String("language", p.ID),
			zap.Stringer("strategy", resolved.Strategy()),
		}
		if resolved.Compile.Path != "" {
			fields = append(fields, zap.String("compiler", resolved.Compile.Path))
		}
		if resolved.Run.Path != "" {
			fields = append(fields, zap.String("runner", resolved.Run.Path))
		}
		logger.Info("language available", fields...)
	}

	return r
}

// resolveProfile fills in the toolchain paths or names the first missing tool
func resolveProfile(p LanguageProfile, lookPath LookPathFunc) (LanguageProfile, string) {
	if len(p.Compile.Candidates) > 0 {
		path, ok := probe(p.Compile.Candidates, lookPath)
		if !ok {
			return p, strings.Join(p.Compile.Candidates, "|")
		}
		p.Compile.Path = path
	}

	if len(p.Run.Candidates) > 0 {
		path, ok := probe(p.Run.Candidates, lookPath)
		if !ok {
			return p, strings.Join(p.Run.Candidates, "|")
		}
		p.Run.Path = path
	}

	return p, ""
}

func probe(candidates []string, lookPath LookPathFunc) (string, bool) {
	for _, c := range candidates {
		if path, err := lookPath(c); err == nil {
			return path, true
		}
	}
	return "", false
}

// Resolve returns the profile for a language. Unknown and unavailable
// languages both yield an error wrapping ErrUnsupportedLanguage.
func (r *Registry) Resolve(languageID string) (LanguageProfile, error) {
	id := strings.ToLower(strings.TrimSpace(languageID))
	if p, ok := r.available[id]; ok {
		return p, nil
	}

	if p, ok := r.unavailable[id]; ok {
		msg := fmt.Sprintf("%s execution environment is not set up on the server", strings.ToUpper(id))
		if p.InstallHint != "" {
			msg += ". " + p.InstallHint
		}
		return LanguageProfile{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, msg)
	}

	return LanguageProfile{}, fmt.Errorf("%w: %s. Supported languages: %s",
		ErrUnsupportedLanguage, languageID, strings.Join(r.IDs(), ", "))
}

// IDs lists the available language identifiers in sorted order
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.available))
	for id := range r.available {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Languages renders the catalog of available languages
func (r *Registry) Languages() []LanguageInfo {
	ids := r.IDs()
	out := make([]LanguageInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.available[id].Info())
	}
	return out
}

// Unavailable lists known languages whose toolchain was not found
func (r *Registry) Unavailable() []string {
	ids := make([]string, 0, len(r.unavailable))
	for id := range r.unavailable {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
