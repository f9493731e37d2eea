package session

import (
	"github.com/robalobadob/gerdgame/internal/catalog"
	"github.com/robalobadob/gerdgame/internal/game"
	"github.com/robalobadob/gerdgame/internal/sampler"
)

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase { return c.phase }

// Mode returns the mode of the current or last round.
func (c *Controller) Mode() game.Mode { return c.state.Mode }

// Config returns the rules the controller plays by.
func (c *Controller) Config() game.Config { return c.cfg }

// CurrentOptions returns a copy of the items currently on offer.
func (c *Controller) CurrentOptions() []catalog.FoodItem {
	return append([]catalog.FoodItem(nil), c.options...)
}

// CurrentGroups returns the offered items grouped by category for display.
func (c *Controller) CurrentGroups() []sampler.Group {
	return sampler.GroupByCategory(c.options)
}

// CurrentPoints returns the running points of the round.
func (c *Controller) CurrentPoints() int { return c.state.Points }

// PicksMade returns the picks made in the round.
func (c *Controller) PicksMade() int { return c.state.PicksMade }

// CurrentOutcomeMessage is the text to show: the menu prompt, the round
// prompt, feedback on the last pick or the end-of-round message.
func (c *Controller) CurrentOutcomeMessage() string { return c.message }

// Summary returns the finished round's summary, or nil before the round ends.
func (c *Controller) Summary() *Summary {
	if c.summary == nil {
		return nil
	}
	s := *c.summary
	return &s
}

// AcidLevel returns the acid bar fill for the current round. The menu shows
// an empty sequential round.
func (c *Controller) AcidLevel() int {
	if c.phase == PhaseMainMenu {
		return game.AcidLevel(c.cfg, game.NewState(game.ModeSequential))
	}
	return game.AcidLevel(c.cfg, c.state)
}

// AcidBar renders AcidLevel as a fixed-width text bar.
func (c *Controller) AcidBar() string { return game.Bar(c.AcidLevel()) }
