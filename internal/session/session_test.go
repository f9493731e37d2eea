package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/gerdgame/internal/catalog"
	"github.com/robalobadob/gerdgame/internal/game"
	"github.com/robalobadob/gerdgame/internal/progress"
	"github.com/robalobadob/gerdgame/internal/sampler"
)

// scripted replays fixed draws (modulo n), then returns 0.
type scripted struct {
	vals []int
	i    int
}

func (s *scripted) IntN(n int) int {
	if s.i >= len(s.vals) {
		return 0
	}
	v := s.vals[s.i] % n
	s.i++
	return v
}

func pairCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.FoodItem{
		{Name: "Oatmeal", Score: 15, Explanation: "soothing", Category: "Grains"},
		{Name: "Banana", Score: 45, Explanation: "low acid", Category: "Fruits"},
		{Name: "Coffee", Score: -10, Explanation: "caffeine", Category: "Beverages"},
		{Name: "Soda", Score: -5, Explanation: "fizzy", Category: "Beverages"},
	})
	require.NoError(t, err)
	return c
}

// groceryCatalog has 49 items worth +1 and one worth -1.
func groceryCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	items := make([]catalog.FoodItem, 0, 50)
	for i := 0; i < 49; i++ {
		items = append(items, catalog.FoodItem{
			Name:     fmt.Sprintf("Good %02d", i),
			Score:    1,
			Category: []string{"Fruits", "Grains", "Dairy"}[i%3],
		})
	}
	items = append(items, catalog.FoodItem{Name: "Hot Sauce", Score: -1, Category: "Condiments"})
	c, err := catalog.New(items)
	require.NoError(t, err)
	return c
}

func names(items []catalog.FoodItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func newController(t *testing.T, cfg game.Config, cat *catalog.Catalog, src sampler.Source, st progress.Store) *Controller {
	t.Helper()
	c, err := New(cfg, cat, src, st, WithID("test"))
	require.NoError(t, err)
	return c
}

func TestSequentialWinScenario(t *testing.T) {
	ctx := context.Background()
	st := progress.NewMemoryStore(progress.State{})
	src := &scripted{vals: []int{
		0, 0, 0, // Oatmeal, Coffee, good first
		0, 0, 0, // Oatmeal, Coffee, good first
		1, 0, 1, // Banana, Coffee, bad first
	}}
	c := newController(t, game.DefaultConfig(), pairCatalog(t), src, st)
	assert.Equal(t, PhaseMainMenu, c.Phase())
	assert.Equal(t, "Choose a game mode", c.CurrentOutcomeMessage())

	require.NoError(t, c.StartSession(ctx, game.ModeSequential))
	assert.Equal(t, PhaseInProgress, c.Phase())
	assert.Equal(t, []string{"Oatmeal", "Coffee"}, names(c.CurrentOptions()))
	assert.Equal(t, "Choose the GERD-friendly option!", c.CurrentOutcomeMessage())

	res, err := c.Choose(ctx, "Oatmeal")
	require.NoError(t, err)
	assert.Equal(t, game.OutcomeContinue, res.Outcome)
	assert.Equal(t, 15, c.CurrentPoints())
	assert.Equal(t, game.MoodHappy, res.Mood)
	assert.Equal(t, "You chose Oatmeal: soothing", c.CurrentOutcomeMessage())
	assert.Nil(t, res.Summary)

	res, err = c.Choose(ctx, "coffee")
	require.NoError(t, err)
	assert.Equal(t, game.OutcomeContinue, res.Outcome)
	assert.Equal(t, 5, c.CurrentPoints())
	assert.Equal(t, game.MoodSad, res.Mood)
	assert.Equal(t, []string{"Coffee", "Banana"}, names(c.CurrentOptions()))

	res, err = c.Choose(ctx, "Banana")
	require.NoError(t, err)
	assert.Equal(t, game.OutcomeWin, res.Outcome)
	assert.Equal(t, 50, res.State.Points)
	assert.Equal(t, 3, res.State.PicksMade)
	assert.Equal(t, PhaseTerminal, c.Phase())
	assert.Empty(t, c.CurrentOptions())

	require.NotNil(t, res.Summary)
	assert.Equal(t, "You reached 50 points! You win!", res.Summary.Message)
	assert.Equal(t, res.Summary.Message, c.CurrentOutcomeMessage())
	assert.True(t, res.Summary.Saved)
	assert.Equal(t, progress.State{TotalPoints: 50, GamesPlayed: 1}, res.Summary.Progress)

	saved, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, progress.State{TotalPoints: 50, GamesPlayed: 1}, saved)
}

func TestGroceryForcedEndScenario(t *testing.T) {
	ctx := context.Background()
	st := progress.NewMemoryStore(progress.State{})
	c := newController(t, game.DefaultConfig(), groceryCatalog(t), sampler.NewSource(5), st)

	require.NoError(t, c.StartSession(ctx, game.ModeGrocery))
	require.Len(t, c.CurrentOptions(), 50)
	assert.Equal(t, "Select 20 GERD-friendly items out of 50.", c.CurrentOutcomeMessage())

	var last Result
	for i := 1; i <= 20; i++ {
		var pick string
		for _, it := range c.CurrentOptions() {
			if it.Score == 1 {
				pick = it.Name
				break
			}
		}
		res, err := c.Choose(ctx, pick)
		require.NoError(t, err)
		assert.Equal(t, "You chose "+pick+". ", res.Feedback)
		if i == 1 {
			_, err = c.Choose(ctx, pick)
			require.ErrorIs(t, err, ErrInvalidChoice)
			assert.Contains(t, err.Error(), "already picked")
		}
		if i < 20 {
			require.Equal(t, game.OutcomeContinue, res.Outcome, "pick %d", i)
			require.Len(t, c.CurrentOptions(), 50-i, "picked items leave the batch")
		}
		last = res
	}

	assert.Equal(t, game.OutcomeForcedEnd, last.Outcome)
	assert.Equal(t, 20, last.State.Points)
	assert.Equal(t, 20, last.State.PicksMade)
	require.NotNil(t, last.Summary)
	assert.Equal(t, "You finished with 20 points.", last.Summary.Message)
	assert.Equal(t, "Your total points: 20\nAverage points: 20.00", last.Summary.Report)
	assert.Equal(t, PhaseTerminal, c.Phase())
}

func TestGroceryGroupsPreserveBatchOrder(t *testing.T) {
	c := newController(t, game.DefaultConfig(), groceryCatalog(t), sampler.NewSource(11), progress.NewMemoryStore(progress.State{}))
	require.NoError(t, c.StartSession(context.Background(), game.ModeGrocery))

	pos := map[string]int{}
	for i, it := range c.CurrentOptions() {
		pos[it.Name] = i
	}
	total := 0
	for _, g := range c.CurrentGroups() {
		for i := 1; i < len(g.Items); i++ {
			assert.Less(t, pos[g.Items[i-1].Name], pos[g.Items[i].Name])
		}
		total += len(g.Items)
	}
	assert.Equal(t, 50, total)
}

func TestGroceryBatchExhaustedEndsRound(t *testing.T) {
	cfg := game.DefaultConfig()
	cfg.GroceryBatchSize = 3
	c := newController(t, cfg, pairCatalog(t), sampler.NewSource(2), progress.NewMemoryStore(progress.State{}))
	require.NoError(t, c.StartSession(context.Background(), game.ModeGrocery))

	var res Result
	for len(c.CurrentOptions()) > 0 {
		var err error
		res, err = c.Choose(context.Background(), c.CurrentOptions()[0].Name)
		require.NoError(t, err)
		if res.Outcome.Terminal() {
			break
		}
	}
	assert.True(t, res.Outcome.Terminal())
	assert.Equal(t, PhaseTerminal, c.Phase())
}

func TestProgressFoldScenario(t *testing.T) {
	ctx := context.Background()
	cfg := game.DefaultConfig()
	cfg.WinThresholds[game.ModeSequential] = 30
	st := progress.NewMemoryStore(progress.State{})
	cat, err := catalog.New([]catalog.FoodItem{
		{Name: "Ginger Tea", Score: 30, Category: "Beverages"},
		{Name: "Soda", Score: -10, Category: "Beverages"},
	})
	require.NoError(t, err)

	c := newController(t, cfg, cat, &scripted{}, st)
	require.NoError(t, c.StartSession(ctx, game.ModeSequential))
	res, err := c.Choose(ctx, "Ginger Tea")
	require.NoError(t, err)

	require.NotNil(t, res.Summary)
	assert.Equal(t, progress.State{TotalPoints: 30, GamesPlayed: 1}, res.Summary.Progress)
	assert.InDelta(t, 30.0, res.Summary.Average, 1e-9)
	assert.Equal(t, "Your total points this session: 30\nAverage: 30.00", res.Summary.Text())
	assert.Equal(t, res.Summary.Text(), res.Summary.Report)
}

func TestSequentialLose(t *testing.T) {
	ctx := context.Background()
	st := progress.NewMemoryStore(progress.State{TotalPoints: 100, GamesPlayed: 2})
	c := newController(t, game.DefaultConfig(), pairCatalog(t), &scripted{}, st)
	require.NoError(t, c.StartSession(ctx, game.ModeSequential))

	var res Result
	var err error
	for i := 0; i < 2; i++ {
		res, err = c.Choose(ctx, "Coffee")
		require.NoError(t, err)
	}
	assert.Equal(t, game.OutcomeLose, res.Outcome)
	assert.Equal(t, -20, res.State.Points)
	require.NotNil(t, res.Summary)
	assert.Equal(t, progress.State{TotalPoints: 80, GamesPlayed: 3}, res.Summary.Progress)
	assert.Equal(t, "You reached -20 points or less. You lose!", res.Summary.Message)
}

func TestInvalidChoice(t *testing.T) {
	ctx := context.Background()
	c := newController(t, game.DefaultConfig(), pairCatalog(t), &scripted{}, progress.NewMemoryStore(progress.State{}))

	_, err := c.Choose(ctx, "Oatmeal")
	assert.ErrorIs(t, err, ErrNoActiveRound)

	require.NoError(t, c.StartSession(ctx, game.ModeSequential))

	_, err = c.Choose(ctx, "Oatmel")
	require.ErrorIs(t, err, ErrInvalidChoice)
	assert.Contains(t, err.Error(), `did you mean "Oatmeal"`)

	_, err = c.Choose(ctx, "Banana")
	require.ErrorIs(t, err, ErrInvalidChoice, "in the catalog but not offered")
	assert.Contains(t, err.Error(), "not one of the two options")

	_, err = c.Choose(ctx, "xyzzy-plugh")
	require.ErrorIs(t, err, ErrInvalidChoice)
	assert.NotContains(t, err.Error(), "did you mean")

	assert.Zero(t, c.CurrentPoints(), "invalid choices do not score")
	assert.Zero(t, c.PicksMade())
	assert.Equal(t, PhaseInProgress, c.Phase())
}

func TestPersistenceFailureIsReportedNotFatal(t *testing.T) {
	ctx := context.Background()

	t.Run("save", func(t *testing.T) {
		st := progress.NewMemoryStore(progress.State{})
		st.FailSave(errors.New("disk full"))
		c := newController(t, game.DefaultConfig(), pairCatalog(t), &scripted{vals: []int{1, 0, 0, 1}}, st)
		require.NoError(t, c.StartSession(ctx, game.ModeSequential))
		res, err := c.Choose(ctx, "Banana")
		require.NoError(t, err)
		res, err = c.Choose(ctx, "Banana")
		require.NoError(t, err)

		assert.Equal(t, game.OutcomeWin, res.Outcome)
		require.NotNil(t, res.Summary)
		assert.False(t, res.Summary.Saved)
		assert.Contains(t, res.Summary.SaveError, "disk full")
		assert.Equal(t, "You reached 50 points! You win!", res.Summary.Message)
		assert.Equal(t, PhaseTerminal, c.Phase())
	})

	t.Run("load", func(t *testing.T) {
		st := progress.NewMemoryStore(progress.State{TotalPoints: 7, GamesPlayed: 1})
		st.FailLoad(errors.New("corrupt"))
		c := newController(t, game.DefaultConfig(), pairCatalog(t), &scripted{}, st)
		require.NoError(t, c.StartSession(ctx, game.ModeSequential))
		_, err := c.Choose(ctx, "Coffee")
		require.NoError(t, err)
		res, err := c.Choose(ctx, "Coffee")
		require.NoError(t, err)

		require.NotNil(t, res.Summary)
		assert.False(t, res.Summary.Saved)
		assert.NotEmpty(t, res.Summary.SaveError)
		assert.Zero(t, st.Saves(), "unreadable record is not overwritten")
	})
}

func TestPhaseTransitions(t *testing.T) {
	ctx := context.Background()
	var finished []Summary
	c, err := New(game.DefaultConfig(), pairCatalog(t), &scripted{}, progress.NewMemoryStore(progress.State{}),
		WithID("abc"),
		WithFinishHook(func(ctx context.Context, id string, s Summary) {
			assert.Equal(t, "abc", id)
			finished = append(finished, s)
		}),
	)
	require.NoError(t, err)

	require.NoError(t, c.ReturnToMenu(), "no-op from the menu")
	assert.Equal(t, PhaseMainMenu, c.Phase())
	assert.Equal(t, 50, c.AcidLevel())

	require.NoError(t, c.StartSession(ctx, game.ModeSequential))
	assert.ErrorIs(t, c.StartSession(ctx, game.ModeGrocery), ErrRoundInProgress)
	assert.ErrorIs(t, c.ReturnToMenu(), ErrRoundInProgress)

	for c.Phase() == PhaseInProgress {
		_, err := c.Choose(ctx, "Coffee")
		require.NoError(t, err)
	}
	require.Len(t, finished, 1)
	require.NotNil(t, c.Summary())
	assert.Equal(t, game.OutcomeLose, c.Summary().Outcome)

	_, err = c.Choose(ctx, "Coffee")
	assert.ErrorIs(t, err, ErrNoActiveRound)

	require.NoError(t, c.ReturnToMenu())
	assert.Equal(t, PhaseMainMenu, c.Phase())
	assert.Nil(t, c.Summary())
	assert.Zero(t, c.CurrentPoints())
	assert.Empty(t, c.CurrentOptions())

	// starting straight from terminal is an implicit return to menu
	require.NoError(t, c.StartSession(ctx, game.ModeSequential))
	for c.Phase() == PhaseInProgress {
		_, err := c.Choose(ctx, "Coffee")
		require.NoError(t, err)
	}
	require.NoError(t, c.StartSession(ctx, game.ModeSequential))
	assert.Zero(t, c.CurrentPoints())
	assert.Len(t, finished, 2)
}

func TestStartSessionErrors(t *testing.T) {
	ctx := context.Background()
	c := newController(t, game.DefaultConfig(), pairCatalog(t), &scripted{}, progress.NewMemoryStore(progress.State{}))

	assert.ErrorIs(t, c.StartSession(ctx, game.Mode("arcade")), game.ErrUnknownMode)
	assert.ErrorIs(t, c.StartSession(ctx, game.ModeGrocery), sampler.ErrInsufficientCatalog)
	assert.Equal(t, PhaseMainMenu, c.Phase(), "failed starts leave the menu untouched")
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := game.DefaultConfig()
	cfg.GroceryPickLimit = 0
	_, err := New(cfg, pairCatalog(t), &scripted{}, progress.NewMemoryStore(progress.State{}))
	assert.ErrorIs(t, err, game.ErrInvalidConfig)

	_, err = New(game.DefaultConfig(), nil, &scripted{}, progress.NewMemoryStore(progress.State{}))
	assert.Error(t, err)
}

func TestConcurrentRoundsShareOneRecord(t *testing.T) {
	ctx := context.Background()
	st := progress.NewFileStore(filepath.Join(t.TempDir(), "progress.json"))
	cat := pairCatalog(t)

	const rounds = 40
	ctrls := make([]*Controller, rounds)
	for i := range ctrls {
		// every pair offers Banana (+45) first; two picks win
		ctrls[i] = newController(t, game.DefaultConfig(), cat, &scripted{vals: []int{1, 0, 0, 1, 0, 0}}, st)
		require.NoError(t, ctrls[i].StartSession(ctx, game.ModeSequential))
	}

	var wg sync.WaitGroup
	results := make([]Result, rounds)
	errs := make([]error, rounds)
	for i, c := range ctrls {
		wg.Add(1)
		go func(i int, c *Controller) {
			defer wg.Done()
			if _, errs[i] = c.Choose(ctx, "Banana"); errs[i] != nil {
				return
			}
			results[i], errs[i] = c.Choose(ctx, "Banana")
		}(i, c)
	}
	wg.Wait()

	saved := 0
	for i := range results {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i].Summary)
		if results[i].Summary.Saved {
			saved++
		}
	}
	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, rounds, saved)
	assert.Equal(t, progress.State{TotalPoints: rounds * 90, GamesPlayed: rounds}, got)
}
