// Package segmentation splits an ice mask into individual floes by
// repeated erosion, watershed and filtering over a sequence of scales.
package segmentation

import (
	"context"

	"github.com/pkg/errors"

	"floeseg/internal/logger"
	"floeseg/internal/models"
	"floeseg/pkg/morphology"
)

// State is carried from one pass to the next. A pass never modifies the
// state it receives.
type State struct {
	// Residual holds ice pixels not yet claimed by a floe
	Residual *models.Mask

	// Claimed is where a pass may keep watershed labels
	Claimed *models.Mask

	Labels *models.LabelImage

	// Offset is the highest label assigned so far
	Offset int32
}

// InitialState starts with every ice pixel unclaimed and no labels.
func InitialState(ice *models.Mask) State {
	return State{
		Residual: ice.Clone(),
		Claimed:  ice.Clone(),
		Labels:   models.NewLabelImage(ice.Width, ice.Height),
	}
}

// Advance folds the filtered watershed of a pass into prev. Floe labels are
// offset above prev.Offset and only written to unlabelled pixels.
func Advance(prev State, ice *models.Mask, ws *models.LabelImage) State {
	next := State{
		Claimed:  ice.Or(prev.Residual),
		Residual: models.NewMask(ice.Width, ice.Height),
		Labels:   prev.Labels.Clone(),
	}
	for i, v := range ws.Pix {
		next.Residual.Pix[i] = v == NotFloe && prev.Residual.Pix[i] && ice.Pix[i]
		if v > NotFloe && next.Labels.Pix[i] == 0 {
			next.Labels.Pix[i] = v + prev.Offset
		}
	}
	next.Offset = next.Labels.Max()
	return next
}

// PassResult describes one completed scale pass.
type PassResult struct {
	// Round is the zero-based pass index
	Round int

	Scale int

	// Watershed is the filtered watershed of the pass before it is merged
	Watershed *models.LabelImage

	// State is the state after the pass
	State State
}

// Engine runs the scale passes over a scene.
type Engine struct {
	Element morphology.Element
	Scales  []int

	// OnPass, when set, is called after every pass; an error stops the run
	OnPass func(PassResult) error

	Logger logger.Logger
}

// NewEngine returns an engine for the given element and scales.
func NewEngine(elem morphology.Element, scales []int) *Engine {
	return &Engine{Element: elem, Scales: scales, Logger: logger.Nop()}
}

// Run segments the scene and returns the final state. The context is
// checked between passes.
func (e *Engine) Run(ctx context.Context, scene Scene) (State, error) {
	if len(e.Scales) == 0 {
		return State{}, errors.Wrap(ErrInvalidScaleSequence, "no scales")
	}
	if err := scene.validate(); err != nil {
		return State{}, err
	}
	log := e.Logger
	if log == nil {
		log = logger.Nop()
	}

	state := InitialState(scene.Ice)
	for round, it := range e.Scales {
		if err := ctx.Err(); err != nil {
			return state, errors.Wrapf(err, "segmentation stopped before scale %d", it)
		}

		ws, err := Pass(scene, state.Residual, state.Claimed, e.Element, it)
		if err != nil {
			return state, err
		}
		next := Advance(state, scene.Ice, ws)

		log.Debug("segmentation", "scale pass complete", map[string]interface{}{
			"round":    round,
			"scale":    it,
			"labels":   next.Offset - state.Offset,
			"residual": next.Residual.Count(),
		})

		if e.OnPass != nil {
			if err := e.OnPass(PassResult{Round: round, Scale: it, Watershed: ws, State: next}); err != nil {
				return next, errors.Wrapf(err, "pass %d callback", round)
			}
		}
		state = next
	}
	return state, nil
}
