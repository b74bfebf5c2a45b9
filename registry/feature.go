package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/agentmap/agentmap-core/log"
)

// AvailabilityCache is the subset of availability.Cache that the feature
// registry depends on. Declaring it here (rather than importing the
// availability package) keeps registry free of a dependency on how C1 is
// backed, per spec §9's "pass dependencies by construction" guidance.
type AvailabilityCache interface {
	Get(category, key string) (any, bool)
	Set(category, key string, value any)
}

// Validator checks whether a specific provider in a category is usable
// (e.g. by attempting to import/initialize the modules it needs). It
// returns the validation result and the list of missing module names on
// failure.
type Validator func(provider string) (ok bool, missing []string)

type validationRecord struct {
	ok        bool
	missing   []string
	checkedAt time.Time
}

// FeatureRegistry tracks which optional capability families are enabled
// and, within each, which providers have been validated (spec C2).
type FeatureRegistry struct {
	mu sync.RWMutex

	cache      AvailabilityCache
	log        log.Logger
	enabled    map[string]bool
	validators map[string]Validator
	// in-memory mirror of validation results, so get_available_providers
	// works even when no cache was supplied.
	results map[string]map[string]validationRecord
}

// NewFeatureRegistry creates a feature registry. cache may be nil, in which
// case validation results are only kept in memory for the process lifetime.
func NewFeatureRegistry(cache AvailabilityCache, logger log.Logger) *FeatureRegistry {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &FeatureRegistry{
		cache:      cache,
		log:        logger,
		enabled:    make(map[string]bool),
		validators: make(map[string]Validator),
		results:    make(map[string]map[string]validationRecord),
	}
}

// EnableFeature marks a feature family (e.g. "llm", "storage") as enabled.
func (f *FeatureRegistry) EnableFeature(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled[name] = true
}

// IsFeatureEnabled reports whether a feature family was enabled.
func (f *FeatureRegistry) IsFeatureEnabled(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.enabled[name]
}

// RegisterValidator installs the validator callback used to check provider
// availability within a category on cache miss.
func (f *FeatureRegistry) RegisterValidator(category string, v Validator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validators[category] = v
}

// IsProviderAvailable consults the availability cache for
// "dependency.<category>:<provider>"; on miss it runs the registered
// validator and caches both success and failure results with a timestamp.
func (f *FeatureRegistry) IsProviderAvailable(category, provider string) bool {
	key := cacheKey(provider)

	if f.cache != nil {
		if v, ok := f.cache.Get(dependencyCategory(category), key); ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
	}

	f.mu.RLock()
	rec, ok := f.results[category][provider]
	f.mu.RUnlock()
	if ok {
		return rec.ok
	}

	f.mu.RLock()
	validator := f.validators[category]
	f.mu.RUnlock()

	ok = false
	var missing []string
	if validator != nil {
		ok, missing = validator(provider)
	} else {
		f.log.Warn("registry: no validator registered for category %s", category)
	}

	f.recordResult(category, provider, ok, missing)
	return ok
}

func (f *FeatureRegistry) recordResult(category, provider string, ok bool, missing []string) {
	f.mu.Lock()
	if f.results[category] == nil {
		f.results[category] = make(map[string]validationRecord)
	}
	f.results[category][provider] = validationRecord{ok: ok, missing: missing, checkedAt: time.Now()}
	f.mu.Unlock()

	if f.cache != nil {
		f.cache.Set(dependencyCategory(category), cacheKey(provider), ok)
	}
}

// SetProvidersValidated bulk-records validation outcomes without invoking
// any validator, for callers (e.g. application bootstrap) that already know
// the answer.
func (f *FeatureRegistry) SetProvidersValidated(category string, results map[string]bool) {
	for provider, ok := range results {
		f.recordResult(category, provider, ok, nil)
	}
}

// GetAvailableProviders returns the providers in a category known to be
// available.
func (f *FeatureRegistry) GetAvailableProviders(category string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []string
	for provider, rec := range f.results[category] {
		if rec.ok {
			out = append(out, provider)
		}
	}
	return out
}

// GetMissingDependencies returns, per category (or a single category when
// one is given), the module names reported missing by the last validation.
func (f *FeatureRegistry) GetMissingDependencies(category string) map[string][]string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string][]string)
	for cat, providers := range f.results {
		if category != "" && cat != category {
			continue
		}
		var missing []string
		for _, rec := range providers {
			if !rec.ok {
				missing = append(missing, rec.missing...)
			}
		}
		if len(missing) > 0 {
			out[cat] = missing
		}
	}
	return out
}

func dependencyCategory(category string) string { return fmt.Sprintf("dependency.%s", category) }
func cacheKey(provider string) string            { return provider }
