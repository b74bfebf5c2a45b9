package agent

import (
	"context"
	"fmt"
)

// Storer is the provider shape every storage-backed agent in this file
// assumes once C11 has resolved it (spec §4.11 provider source
// "storage_manager.get(kind)"). Kept local, not in inject, so this package
// never depends on a concrete storage SDK.
type Storer interface {
	Read(key string) (any, error)
	Write(key string, value any) error
}

// storageRun is the shared Run behavior for every *-capable storage agent
// below: read the node's first input field as a key, fetch it from the
// backend, and write the result to the output field. When none of the
// node's input fields is present in state, its prompt is used as the key.
func storageRun(ctx context.Context, b *Base, store Storer, state map[string]any, label string) (map[string]any, error) {
	if store == nil {
		return nil, fmt.Errorf("agent %s: no %s service configured", b.name, label)
	}
	field, key := b.firstInput(state)
	if field == "" {
		key = b.prompt
	}
	keyStr, ok := key.(string)
	if !ok {
		keyStr = fmt.Sprintf("%v", key)
	}
	value, err := store.Read(keyStr)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %s read failed: %w", b.name, label, err)
	}
	return b.withOutput(state, value, true), nil
}

// CSVAgent reads a row/record from the injected CSV storage backend.
// Implements inject.CSVCapable.
type CSVAgent struct {
	Base
	store Storer
}

func NewCSVAgent(name, prompt string, ctx map[string]any) (any, error) {
	return &CSVAgent{Base: NewBase(name, prompt, ctx)}, nil
}

func (a *CSVAgent) ConfigureCSVService(service any) { a.store = mustStorer(a.name, "csv", service) }

func (a *CSVAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	return storageRun(ctx, &a.Base, a.store, state, "csv")
}

// JSONAgent reads a document from the injected JSON storage backend.
// Implements inject.JSONCapable.
type JSONAgent struct {
	Base
	store Storer
}

func NewJSONAgent(name, prompt string, ctx map[string]any) (any, error) {
	return &JSONAgent{Base: NewBase(name, prompt, ctx)}, nil
}

func (a *JSONAgent) ConfigureJSONService(service any) { a.store = mustStorer(a.name, "json", service) }

func (a *JSONAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	return storageRun(ctx, &a.Base, a.store, state, "json")
}

// FileAgent reads a blob from the injected file storage backend.
// Implements inject.FileCapable.
type FileAgent struct {
	Base
	store Storer
}

func NewFileAgent(name, prompt string, ctx map[string]any) (any, error) {
	return &FileAgent{Base: NewBase(name, prompt, ctx)}, nil
}

func (a *FileAgent) ConfigureFileService(service any) { a.store = mustStorer(a.name, "file", service) }

func (a *FileAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	return storageRun(ctx, &a.Base, a.store, state, "file")
}

// VectorAgent reads a nearest-neighbor result from the injected vector
// storage backend. Implements inject.VectorCapable.
type VectorAgent struct {
	Base
	store Storer
}

func NewVectorAgent(name, prompt string, ctx map[string]any) (any, error) {
	return &VectorAgent{Base: NewBase(name, prompt, ctx)}, nil
}

func (a *VectorAgent) ConfigureVectorService(service any) {
	a.store = mustStorer(a.name, "vector", service)
}

func (a *VectorAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	return storageRun(ctx, &a.Base, a.store, state, "vector")
}

// MemoryAgent reads scratch state from the injected memory storage
// backend. Implements inject.MemoryCapable.
type MemoryAgent struct {
	Base
	store Storer
}

func NewMemoryAgent(name, prompt string, ctx map[string]any) (any, error) {
	return &MemoryAgent{Base: NewBase(name, prompt, ctx)}, nil
}

func (a *MemoryAgent) ConfigureMemoryService(service any) {
	a.store = mustStorer(a.name, "memory", service)
}

func (a *MemoryAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	return storageRun(ctx, &a.Base, a.store, state, "memory")
}

// BlobStorageAgent reads a blob from the injected blob-storage service.
// Implements inject.BlobStorageCapable.
type BlobStorageAgent struct {
	Base
	store Storer
}

func NewBlobStorageAgent(name, prompt string, ctx map[string]any) (any, error) {
	return &BlobStorageAgent{Base: NewBase(name, prompt, ctx)}, nil
}

func (a *BlobStorageAgent) ConfigureBlobStorageService(service any) {
	a.store = mustStorer(a.name, "blob storage", service)
}

func (a *BlobStorageAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	return storageRun(ctx, &a.Base, a.store, state, "blob storage")
}

// GenericStorageAgent falls back to the generic storage manager rather
// than a specific backend kind. Implements inject.StorageCapable.
type GenericStorageAgent struct {
	Base
	store Storer
}

func NewGenericStorageAgent(name, prompt string, ctx map[string]any) (any, error) {
	return &GenericStorageAgent{Base: NewBase(name, prompt, ctx)}, nil
}

func (a *GenericStorageAgent) ConfigureStorageService(service any) {
	a.store = mustStorer(a.name, "storage", service)
}

func (a *GenericStorageAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	return storageRun(ctx, &a.Base, a.store, state, "storage")
}

func mustStorer(agentName, label string, service any) Storer {
	store, ok := service.(Storer)
	if !ok {
		panic(fmt.Sprintf("agent %s: %s provider %T does not implement agent.Storer", agentName, label, service))
	}
	return store
}
