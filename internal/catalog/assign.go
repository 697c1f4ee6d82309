package catalog

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"clipmark/internal/services"
)

// Counter reports what has been annotated so far.
type Counter interface {
	// GlobalIndexesFor returns the global indexes annotatorID has submitted.
	GlobalIndexesFor(ctx context.Context, annotatorID string) ([]int, error)
	// CountAtGlobalIndex returns how many annotators submitted a global index.
	CountAtGlobalIndex(ctx context.Context, globalIndex int) (int, error)
}

// Assignment is the clip list handed to one annotator.
type Assignment struct {
	// StartIndex is the global index of the clip before the first clip in
	// Clips, so the n-th clip (one-based) has global index StartIndex+n.
	StartIndex int
	Clips      []Clip
	Block      int
	Resumed    bool
}

// AssignerOption customizes an Assigner.
type AssignerOption func(*Assigner)

// WithRand sets the random source used to pick blocks and validation clips.
func WithRand(r *rand.Rand) AssignerOption {
	return func(a *Assigner) {
		if r != nil {
			a.rng = r
		}
	}
}

// Assigner hands out blocks of clips.
type Assigner struct {
	catalog            *Catalog
	counter            Counter
	clipsPerBlock      int
	annotatorsPerBlock int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAssigner builds an Assigner over catalog.
func NewAssigner(catalog *Catalog, counter Counter, clipsPerBlock, annotatorsPerBlock int, opts ...AssignerOption) *Assigner {
	a := &Assigner{
		catalog:            catalog,
		counter:            counter,
		clipsPerBlock:      max(clipsPerBlock, 1),
		annotatorsPerBlock: max(annotatorsPerBlock, 1),
		rng:                rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Blocks returns the number of complete blocks in the catalog. Trailing clips
// that do not fill a block are never assigned.
func (a *Assigner) Blocks() int {
	return a.catalog.Len() / a.clipsPerBlock
}

// Assign picks the clips for annotatorID. A block the annotator started and
// did not finish is resumed at its first unannotated clip, up to the next
// clip it already annotated. Otherwise a random
// block is chosen among those the annotator has not completed whose final
// clip still has fewer than annotatorsPerBlock annotations.
func (a *Assigner) Assign(ctx context.Context, annotatorID string) (Assignment, error) {
	blocks := a.Blocks()
	if blocks == 0 {
		return Assignment{}, services.Wrap(services.ErrNotFound, "catalog", "assign",
			fmt.Sprintf("fewer than %d clips available", a.clipsPerBlock), nil)
	}

	done, err := a.counter.GlobalIndexesFor(ctx, annotatorID)
	if err != nil {
		return Assignment{}, fmt.Errorf("load annotator progress: %w", err)
	}
	progress := make(map[int]map[int]struct{})
	for _, globalIndex := range done {
		idx := globalIndex - 1
		if idx < 0 {
			continue
		}
		block := idx / a.clipsPerBlock
		if block >= blocks {
			continue
		}
		if progress[block] == nil {
			progress[block] = make(map[int]struct{})
		}
		progress[block][idx%a.clipsPerBlock] = struct{}{}
	}

	var partial []int
	for block := range blocks {
		if n := len(progress[block]); n > 0 && n < a.clipsPerBlock {
			partial = append(partial, block)
		}
	}
	if len(partial) > 0 {
		block := partial[a.intn(len(partial))]
		offset := 0
		for ; offset < a.clipsPerBlock; offset++ {
			if _, ok := progress[block][offset]; !ok {
				break
			}
		}
		// Clips carry consecutive global indexes, so stop at the next clip
		// already annotated. Later gaps are handed out on the next request.
		end := offset + 1
		for ; end < a.clipsPerBlock; end++ {
			if _, ok := progress[block][end]; ok {
				break
			}
		}
		return a.assignment(block, offset, end, true), nil
	}

	var open []int
	for block := range blocks {
		if len(progress[block]) == a.clipsPerBlock {
			continue
		}
		last := (block + 1) * a.clipsPerBlock
		count, err := a.counter.CountAtGlobalIndex(ctx, last)
		if err != nil {
			return Assignment{}, fmt.Errorf("count block %d: %w", block, err)
		}
		if count < a.annotatorsPerBlock {
			open = append(open, block)
		}
	}
	if len(open) == 0 {
		return Assignment{}, services.Wrap(services.ErrNotFound, "catalog", "assign",
			"every block has enough annotators", nil)
	}
	return a.assignment(open[a.intn(len(open))], 0, a.clipsPerBlock, false), nil
}

// assignment covers offsets [from, to) of block.
func (a *Assigner) assignment(block, from, to int, resumed bool) Assignment {
	first := block*a.clipsPerBlock + from
	return Assignment{
		StartIndex: first,
		Clips:      a.catalog.Range(first, block*a.clipsPerBlock+to),
		Block:      block,
		Resumed:    resumed,
	}
}

// PickOne returns one random clip from catalog, used for validation runs.
func (a *Assigner) PickOne(catalog *Catalog) (Assignment, error) {
	n := catalog.Len()
	if n == 0 {
		return Assignment{}, services.Wrap(services.ErrNotFound, "catalog", "pick validation clip",
			"no validation clips available", nil)
	}
	clip, err := catalog.Clip(a.intn(n))
	if err != nil {
		return Assignment{}, err
	}
	return Assignment{StartIndex: clip.Index, Clips: []Clip{clip}}, nil
}

func (a *Assigner) intn(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.IntN(n)
}
