// internal/session/session.go
//
// Session controller: orchestrates one round at a time for one player.
//
// Phases:
//   main_menu → in_progress → terminal → main_menu
//
// Responsibilities:
//   - StartSession: reset the round state and draw the first options.
//   - Choose: validate the pick against the offered options, apply it through
//     the score engine, draw the next pair (sequential) or shrink the batch
//     (grocery), and on a terminal outcome fold the result into progress.
//   - ReturnToMenu: discard the finished round.
//
// The controller is not safe for concurrent use; callers serialize access.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"

	"github.com/robalobadob/gerdgame/internal/catalog"
	"github.com/robalobadob/gerdgame/internal/game"
	"github.com/robalobadob/gerdgame/internal/progress"
	"github.com/robalobadob/gerdgame/internal/sampler"
)

// Phase is the controller's position in the round lifecycle.
type Phase string

const (
	PhaseMainMenu   Phase = "main_menu"
	PhaseInProgress Phase = "in_progress"
	PhaseTerminal   Phase = "terminal"
)

var (
	// ErrInvalidChoice is returned when the chosen item is not currently offered.
	ErrInvalidChoice = errors.New("invalid choice")

	// ErrNoActiveRound is returned by Choose outside a round.
	ErrNoActiveRound = errors.New("no active round")

	// ErrRoundInProgress is returned when a round must finish first.
	ErrRoundInProgress = errors.New("round in progress")
)

const (
	menuPrompt       = "Choose a game mode"
	sequentialPrompt = "Choose the GERD-friendly option!"
)

// Summary describes a finished round.
type Summary struct {
	Outcome     game.Outcome   `json:"outcome"`
	Mode        game.Mode      `json:"mode"`
	FinalPoints int            `json:"finalPoints"`
	PicksMade   int            `json:"picksMade"`
	Progress    progress.State `json:"progress"`
	Average     float64        `json:"average"`
	Message     string         `json:"message"`
	Saved       bool           `json:"saved"`
	SaveError   string         `json:"saveError,omitempty"`
	Report      string         `json:"report"` // Text() at finish time
}

// Text renders the end-of-round summary lines in the wording of the mode.
func (s Summary) Text() string {
	if s.Mode == game.ModeGrocery {
		return fmt.Sprintf("Your total points: %d\nAverage points: %.2f", s.FinalPoints, s.Average)
	}
	return fmt.Sprintf("Your total points this session: %d\nAverage: %.2f", s.FinalPoints, s.Average)
}

// Result is what a single Choose call reports.
type Result struct {
	Item     catalog.FoodItem `json:"item"`
	Mood     game.Mood        `json:"mood"`
	Feedback string           `json:"feedback"`
	Outcome  game.Outcome     `json:"outcome"`
	State    game.State       `json:"state"`
	Summary  *Summary         `json:"summary,omitempty"`
}

// FinishFunc observes every terminal round after progress was folded.
type FinishFunc func(ctx context.Context, id string, s Summary)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithID tags the controller (and its log lines) with an identifier.
func WithID(id string) Option {
	return func(c *Controller) { c.id = id }
}

// WithFinishHook registers fn to run after each terminal round.
func WithFinishHook(fn FinishFunc) Option {
	return func(c *Controller) { c.onFinish = fn }
}

// Controller runs rounds for a single player.
type Controller struct {
	id       string
	cfg      game.Config
	cat      *catalog.Catalog
	items    []catalog.FoodItem
	src      sampler.Source
	store    progress.Store
	log      zerolog.Logger
	onFinish FinishFunc

	phase   Phase
	state   game.State
	options []catalog.FoodItem
	message string
	summary *Summary
}

// New builds a controller in the main menu phase.
func New(cfg game.Config, cat *catalog.Catalog, src sampler.Source, store progress.Store, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cat == nil || src == nil || store == nil {
		return nil, errors.New("session: catalog, source and store are required")
	}
	c := &Controller{
		cfg:     cfg,
		cat:     cat,
		items:   cat.Items(),
		src:     src,
		store:   store,
		log:     zerolog.Nop(),
		phase:   PhaseMainMenu,
		message: menuPrompt,
	}
	for _, o := range opts {
		o(c)
	}
	if c.id != "" {
		c.log = c.log.With().Str("session", c.id).Logger()
	}
	return c, nil
}

// ID returns the controller's identifier.
func (c *Controller) ID() string { return c.id }

// StartSession begins a new round in mode. A finished round is discarded first.
func (c *Controller) StartSession(ctx context.Context, mode game.Mode) error {
	if c.phase == PhaseInProgress {
		return ErrRoundInProgress
	}
	if mode != game.ModeSequential && mode != game.ModeGrocery {
		return fmt.Errorf("%w: %q", game.ErrUnknownMode, mode)
	}

	var (
		options []catalog.FoodItem
		prompt  string
	)
	switch mode {
	case game.ModeSequential:
		a, b, err := sampler.PickPair(c.src, c.items)
		if err != nil {
			return err
		}
		options = []catalog.FoodItem{a, b}
		prompt = sequentialPrompt
	case game.ModeGrocery:
		batch, err := sampler.PickGroceryBatch(c.src, c.items, c.cfg.GroceryBatchSize)
		if err != nil {
			return err
		}
		options = batch
		prompt = fmt.Sprintf("Select %d GERD-friendly items out of %d.", c.cfg.GroceryPickLimit, len(batch))
	}

	c.state = game.NewState(mode)
	c.options = options
	c.summary = nil
	c.message = prompt
	c.phase = PhaseInProgress
	c.log.Info().Str("mode", string(mode)).Int("options", len(options)).Msg("round started")
	return nil
}

// Choose applies the pick named name. The name must match one of the current
// options (case-insensitive).
func (c *Controller) Choose(ctx context.Context, name string) (Result, error) {
	if c.phase != PhaseInProgress {
		return Result{}, ErrNoActiveRound
	}
	idx := c.offered(name)
	if idx < 0 {
		err := c.invalidChoice(name)
		c.log.Warn().Err(err).Str("choice", name).Msg("choice not offered")
		return Result{}, err
	}

	item := c.options[idx]
	next, outcome := game.Apply(c.cfg, c.state, item.Score)
	c.state = next

	res := Result{
		Item:     item,
		Mood:     game.MoodFor(item.Score),
		Feedback: feedback(c.state.Mode, item),
		State:    next,
	}

	if c.state.Mode == game.ModeGrocery {
		c.options = append(c.options[:idx:idx], c.options[idx+1:]...)
		if outcome == game.OutcomeContinue && len(c.options) == 0 {
			outcome = game.OutcomeForcedEnd
		}
	}
	res.Outcome = outcome

	if outcome.Terminal() {
		sum := c.finish(ctx, outcome)
		res.Summary = &sum
		return res, nil
	}

	c.message = res.Feedback
	if c.state.Mode == game.ModeSequential {
		a, b, err := sampler.PickPair(c.src, c.items)
		if err != nil {
			return res, err
		}
		c.options = []catalog.FoodItem{a, b}
	}
	return res, nil
}

// ReturnToMenu discards a finished round.
func (c *Controller) ReturnToMenu() error {
	switch c.phase {
	case PhaseInProgress:
		return ErrRoundInProgress
	case PhaseTerminal:
		c.phase = PhaseMainMenu
		c.state = game.State{}
		c.options = nil
		c.summary = nil
		c.message = menuPrompt
	}
	return nil
}

// finish folds the round into persisted progress and moves to terminal.
// Persistence failures are reported in the summary, never returned.
func (c *Controller) finish(ctx context.Context, outcome game.Outcome) Summary {
	sum := Summary{
		Outcome:     outcome,
		Mode:        c.state.Mode,
		FinalPoints: c.state.Points,
		PicksMade:   c.state.PicksMade,
		Message:     game.OutcomeMessage(c.cfg, c.state, outcome),
	}

	if updated, err := c.store.Add(ctx, c.state.Points); err != nil {
		c.log.Error().Err(err).Msg("fold progress")
		sum.SaveError = err.Error()
	} else {
		sum.Progress = updated
		sum.Average = updated.Average()
		sum.Saved = true
	}
	sum.Report = sum.Text()

	c.phase = PhaseTerminal
	c.options = nil
	c.summary = &sum
	c.message = sum.Message
	c.log.Info().
		Str("mode", string(sum.Mode)).
		Str("outcome", string(outcome)).
		Int("points", sum.FinalPoints).
		Int("picks", sum.PicksMade).
		Bool("saved", sum.Saved).
		Msg("round finished")

	if c.onFinish != nil {
		c.onFinish(ctx, c.id, sum)
	}
	return sum
}

// feedback is the line shown after a pick.
func feedback(mode game.Mode, item catalog.FoodItem) string {
	if mode == game.ModeGrocery {
		return fmt.Sprintf("You chose %s. %s", item.Name, item.Explanation)
	}
	return fmt.Sprintf("You chose %s: %s", item.Name, item.Explanation)
}

// offered returns the index of name among the current options, or -1.
func (c *Controller) offered(name string) int {
	name = strings.TrimSpace(name)
	for i, it := range c.options {
		if strings.EqualFold(it.Name, name) {
			return i
		}
	}
	return -1
}

// invalidChoice builds an ErrInvalidChoice with the closest offered name.
func (c *Controller) invalidChoice(name string) error {
	if it, ok := c.cat.Lookup(name); ok {
		if c.state.Mode == game.ModeGrocery {
			return fmt.Errorf("%w: %q is not in this batch or was already picked", ErrInvalidChoice, it.Name)
		}
		return fmt.Errorf("%w: %q is not one of the two options", ErrInvalidChoice, it.Name)
	}
	best, bestDist := "", -1
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, it := range c.options {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(it.Name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = it.Name, d
		}
	}
	if best != "" && bestDist <= len(best)/2 {
		return fmt.Errorf("%w: %q is not offered (did you mean %q?)", ErrInvalidChoice, name, best)
	}
	return fmt.Errorf("%w: %q is not offered", ErrInvalidChoice, name)
}
