package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/backpack/internal/container"

	"github.com/tidwall/jsonc"
)

// MemoryOptions configures the memory workflows.
type MemoryOptions struct {
	Common
}

// MemoryResult contains the memory layer of a container.
type MemoryResult struct {
	Path   string
	Memory any
}

// MemoryShow decrypts and returns the memory layer.
func MemoryShow(ctx context.Context, opts MemoryOptions) (*MemoryResult, error) {
	_, lock, err := opts.load()
	if err != nil {
		return nil, err
	}
	defer lock.Close()

	view, err := lock.Read()
	if err != nil {
		return nil, err
	}
	return &MemoryResult{Path: lock.Path(), Memory: view.Memory}, nil
}

// MemorySetOptions configures the memory set workflow.
type MemorySetOptions struct {
	Common

	// Data is a JSON document. Comments and trailing commas are allowed.
	Data []byte
}

// MemorySet replaces the memory layer, leaving credentials and personality
// untouched. Returns ErrContainerNotFound if there is no container.
func MemorySet(ctx context.Context, opts MemorySetOptions) (*MemoryResult, error) {
	memory, err := container.DecodeMemory(jsonc.ToJSON(opts.Data))
	if err != nil {
		return nil, fmt.Errorf("parsing memory document: %w", err)
	}
	return updateMemory(opts.Common, memory)
}

// MemoryClear resets the memory layer to an empty object.
func MemoryClear(ctx context.Context, opts MemoryOptions) (*MemoryResult, error) {
	return updateMemory(opts.Common, map[string]any{})
}

func updateMemory(c Common, memory any) (*MemoryResult, error) {
	_, lock, err := c.load()
	if err != nil {
		return nil, err
	}
	defer lock.Close()

	if err := lock.UpdateMemory(memory); err != nil {
		return nil, err
	}
	return &MemoryResult{Path: lock.Path(), Memory: memory}, nil
}
