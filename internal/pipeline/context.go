package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/placerworks/pnpvision/internal/units"
)

// FrameSource supplies the working image for capture stages. The camera
// package's ReferenceCamera satisfies it.
type FrameSource interface {
	SettleAndCapture(ctx context.Context) (image.Image, error)
}

// Context is the per-run working state shared by all stages of one run:
// the working image, the ordered result history, the override table, and
// the calibration context needed to coerce physical lengths to pixels.
// A Context belongs to exactly one run; runs never share one.
type Context struct {
	ctx           context.Context
	image         image.Image
	results       []NamedResult
	index         map[string]int
	executions    map[string]int
	resolver      *Resolver
	frameSource   FrameSource
	unitsPerPixel *units.Location
}

func newContext(ctx context.Context, initial image.Image, overrides map[string]interface{}, opts runOptions) *Context {
	c := &Context{
		ctx:           ctx,
		image:         initial,
		index:         make(map[string]int),
		executions:    make(map[string]int),
		frameSource:   opts.frameSource,
		unitsPerPixel: opts.unitsPerPixel,
	}
	c.resolver = &Resolver{overrides: overrides, unitsPerPixel: opts.unitsPerPixel}
	return c
}

// Ctx returns the run's context.Context, for stages that block.
func (c *Context) Ctx() context.Context { return c.ctx }

// WorkingImage returns the current working image. It may be nil before
// any image-producing stage has run.
func (c *Context) WorkingImage() image.Image { return c.image }

// SetWorkingImage replaces the working image in place.
func (c *Context) SetWorkingImage(img image.Image) { c.image = img }

// Resolver returns the run's property resolver.
func (c *Context) Resolver() *Resolver { return c.resolver }

// FrameSource returns the camera bound to this run, or nil.
func (c *Context) FrameSource() FrameSource { return c.frameSource }

// UnitsPerPixel returns the calibration scale bound to this run, or nil
// when no camera context is available.
func (c *Context) UnitsPerPixel() *units.Location { return c.unitsPerPixel }

// Result returns the result a prior stage recorded under name, or a
// ResultNotFoundError if no stage has produced it yet.
func (c *Context) Result(name string) (*Result, error) {
	i, ok := c.index[name]
	if !ok {
		return nil, &ResultNotFoundError{Name: name}
	}
	return &c.results[i].Result, nil
}

// Executions returns how many times the named stage has run so far in
// this run. Only control-flow loops make this exceed one.
func (c *Context) Executions(name string) int { return c.executions[name] }

// record stores a stage result, replacing an earlier entry when a
// control-flow loop re-executes the stage.
func (c *Context) record(stage string, r *Result) {
	if r == nil {
		r = &Result{Kind: KindEmpty}
	}
	if i, ok := c.index[stage]; ok {
		c.results[i] = NamedResult{Stage: stage, Result: *r, At: time.Now()}
		return
	}
	c.index[stage] = len(c.results)
	c.results = append(c.results, NamedResult{Stage: stage, Result: *r, At: time.Now()})
}
