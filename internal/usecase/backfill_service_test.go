package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/manogolf/nhl-splits/internal/domain/gamelog"
	"github.com/manogolf/nhl-splits/internal/domain/pbp"
	"github.com/manogolf/nhl-splits/internal/domain/progress"
	"github.com/manogolf/nhl-splits/internal/platform/logging"
)

type fakeFeedProvider struct {
	games map[int64]pbp.Game
	errs  map[int64]error
}

func (p *fakeFeedProvider) FetchGame(_ context.Context, gameID int64) (pbp.Game, error) {
	if err, ok := p.errs[gameID]; ok {
		return pbp.Game{}, err
	}
	game, ok := p.games[gameID]
	if !ok {
		return pbp.Game{}, errors.New("unknown game")
	}
	return game, nil
}

type fakeSkaterRepo struct {
	records  map[int64][]gamelog.SkaterRecord
	applied  []gamelog.SkaterUpdate
	applyErr error
}

func (r *fakeSkaterRepo) CountOffenders(context.Context) (int, error) {
	count := 0
	for _, rows := range r.records {
		for _, row := range rows {
			if row.SplitsBroken {
				count++
			}
		}
	}
	return count, nil
}

func (r *fakeSkaterRepo) ListOffenderGames(_ context.Context, afterGameID *int64, limit int) ([]int64, error) {
	var ids []int64
	for gameID, rows := range r.records {
		if afterGameID != nil && gameID <= *afterGameID {
			continue
		}
		for _, row := range rows {
			if row.SplitsBroken {
				ids = append(ids, gameID)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *fakeSkaterRepo) ListRecordsByGame(_ context.Context, gameID int64) ([]gamelog.SkaterRecord, error) {
	return r.records[gameID], nil
}

func (r *fakeSkaterRepo) ApplySplits(_ context.Context, updates []gamelog.SkaterUpdate) (int, error) {
	if r.applyErr != nil {
		return 0, r.applyErr
	}
	for _, update := range updates {
		rows := r.records[update.GameID]
		for i := range rows {
			if rows[i].PlayerID == update.PlayerID {
				rows[i].SplitsBroken = false
			}
		}
		r.applied = append(r.applied, update)
	}
	return len(updates), nil
}

type fakeProgressRepo struct {
	checkpoints map[string]*int64
	setCalls    int
}

func (r *fakeProgressRepo) Get(_ context.Context, task string) (progress.Checkpoint, error) {
	return progress.Checkpoint{Task: task, LastGameID: r.checkpoints[task]}, nil
}

func (r *fakeProgressRepo) Set(_ context.Context, task string, lastGameID *int64) error {
	if r.checkpoints == nil {
		r.checkpoints = map[string]*int64{}
	}
	r.checkpoints[task] = lastGameID
	r.setCalls++
	return nil
}

func evenStrengthShots(shooterID, goalieID int64, count int) []pbp.Event {
	events := make([]pbp.Event, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, pbp.Event{
			Type:          pbp.EventShot,
			ActingSide:    pbp.SideHome,
			ClockSeconds:  100 * (i + 1),
			SituationCode: "1551",
			ShooterID:     shooterID,
			GoalieID:      goalieID,
		})
	}
	return events
}

func testGame(gameID int64, events []pbp.Event) pbp.Game {
	return pbp.Game{
		GameID: gameID,
		Roster: pbp.Roster{
			HomeTeamID:  10,
			AwayTeamID:  20,
			HomeGoalies: []int64{901},
			AwayGoalies: []int64{902},
		},
		Events: events,
	}
}

func newTestBackfillService(
	provider GameFeedProvider,
	skaters gamelog.SkaterRepository,
	progressRepo progress.Repository,
) *BackfillService {
	return NewBackfillService(provider, skaters, nil, progressRepo, pbp.Options{}, logging.NewNop())
}

func TestBackfillRepairsMatchingRows(t *testing.T) {
	t.Parallel()

	skaters := &fakeSkaterRepo{records: map[int64][]gamelog.SkaterRecord{
		2023020001: {
			{GameID: 2023020001, PlayerID: 11, ShotsOnGoal: 3, SplitsBroken: true},
			{GameID: 2023020001, PlayerID: 12, ShotsOnGoal: 1, SplitsBroken: false},
		},
	}}
	provider := &fakeFeedProvider{games: map[int64]pbp.Game{
		2023020001: testGame(2023020001, evenStrengthShots(11, 902, 3)),
	}}
	progressRepo := &fakeProgressRepo{}

	service := newTestBackfillService(provider, skaters, progressRepo)
	result, err := service.Run(context.Background(), BackfillInput{
		Task:      TaskSkaterSplits,
		BatchSize: 200,
		Commit:    true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.GamesProcessed != 1 {
		t.Fatalf("expected 1 game processed, got %d", result.GamesProcessed)
	}
	if result.RowsUpdated != 1 {
		t.Fatalf("expected 1 row updated, got %d", result.RowsUpdated)
	}
	if len(skaters.applied) != 1 || skaters.applied[0].PlayerID != 11 {
		t.Fatalf("unexpected applied updates: %+v", skaters.applied)
	}
	line := skaters.applied[0].Line
	if line.EVSOG != 3 || line.SOG() != 3 {
		t.Fatalf("unexpected derived line: %+v", line)
	}
}

func TestBackfillGuardRejectsMismatchedSums(t *testing.T) {
	t.Parallel()

	skaters := &fakeSkaterRepo{records: map[int64][]gamelog.SkaterRecord{
		2023020002: {
			{GameID: 2023020002, PlayerID: 11, ShotsOnGoal: 5, SplitsBroken: true},
		},
	}}
	provider := &fakeFeedProvider{games: map[int64]pbp.Game{
		2023020002: testGame(2023020002, evenStrengthShots(11, 902, 4)),
	}}
	progressRepo := &fakeProgressRepo{}

	service := newTestBackfillService(provider, skaters, progressRepo)
	result, err := service.Run(context.Background(), BackfillInput{
		Task:      TaskSkaterSplits,
		BatchSize: 200,
		Commit:    true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.RowsRejected != 1 {
		t.Fatalf("expected 1 rejected row, got %d", result.RowsRejected)
	}
	if result.RowsUpdated != 0 || len(skaters.applied) != 0 {
		t.Fatalf("guard rejection must not write: %+v", skaters.applied)
	}
	if result.GamesProcessed != 1 {
		t.Fatalf("rejected games still count as processed, got %d", result.GamesProcessed)
	}
	cursor := progressRepo.checkpoints[TaskSkaterSplits]
	if cursor == nil || *cursor != 2023020002 {
		t.Fatalf("checkpoint must advance past a rejected game, got %v", cursor)
	}
}

func TestBackfillWrapsAroundCheckpoint(t *testing.T) {
	t.Parallel()

	skaters := &fakeSkaterRepo{records: map[int64][]gamelog.SkaterRecord{
		100: {{GameID: 100, PlayerID: 11, ShotsOnGoal: 2, SplitsBroken: true}},
		300: {{GameID: 300, PlayerID: 11, ShotsOnGoal: 1, SplitsBroken: true}},
	}}
	provider := &fakeFeedProvider{games: map[int64]pbp.Game{
		100: testGame(100, evenStrengthShots(11, 902, 2)),
		300: testGame(300, evenStrengthShots(11, 902, 1)),
	}}
	last := int64(200)
	progressRepo := &fakeProgressRepo{checkpoints: map[string]*int64{
		TaskSkaterSplits: &last,
	}}

	service := newTestBackfillService(provider, skaters, progressRepo)
	result, err := service.Run(context.Background(), BackfillInput{
		Task:      TaskSkaterSplits,
		BatchSize: 200,
		Commit:    true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.GamesProcessed != 2 {
		t.Fatalf("expected both sides of the checkpoint visited, got %d", result.GamesProcessed)
	}
	if result.RowsUpdated != 2 {
		t.Fatalf("expected 2 rows updated, got %d", result.RowsUpdated)
	}
	cursor := progressRepo.checkpoints[TaskSkaterSplits]
	if cursor == nil || *cursor != 100 {
		t.Fatalf("expected checkpoint at the wrapped game, got %v", cursor)
	}
}

func TestBackfillWrapTerminatesOnUnreconcilableOffenders(t *testing.T) {
	t.Parallel()

	// The stored total never matches the feed, so the offender survives
	// every pass. The run must still finish after one wrap.
	skaters := &fakeSkaterRepo{records: map[int64][]gamelog.SkaterRecord{
		100: {{GameID: 100, PlayerID: 11, ShotsOnGoal: 9, SplitsBroken: true}},
	}}
	provider := &fakeFeedProvider{games: map[int64]pbp.Game{
		100: testGame(100, evenStrengthShots(11, 902, 1)),
	}}
	last := int64(50)
	progressRepo := &fakeProgressRepo{checkpoints: map[string]*int64{
		TaskSkaterSplits: &last,
	}}

	service := newTestBackfillService(provider, skaters, progressRepo)
	result, err := service.Run(context.Background(), BackfillInput{
		Task:      TaskSkaterSplits,
		BatchSize: 200,
		Commit:    true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.RowsUpdated != 0 {
		t.Fatalf("expected no updates, got %d", result.RowsUpdated)
	}
	if result.RowsRejected == 0 {
		t.Fatalf("expected rejected rows, got none")
	}
}

func TestBackfillDryRunWritesNothing(t *testing.T) {
	t.Parallel()

	skaters := &fakeSkaterRepo{records: map[int64][]gamelog.SkaterRecord{
		2023020003: {
			{GameID: 2023020003, PlayerID: 11, ShotsOnGoal: 2, SplitsBroken: true},
		},
	}}
	provider := &fakeFeedProvider{games: map[int64]pbp.Game{
		2023020003: testGame(2023020003, evenStrengthShots(11, 902, 2)),
	}}
	progressRepo := &fakeProgressRepo{}

	service := newTestBackfillService(provider, skaters, progressRepo)
	result, err := service.Run(context.Background(), BackfillInput{
		Task:      TaskSkaterSplits,
		BatchSize: 200,
		Commit:    false,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.WouldUpdate != 1 {
		t.Fatalf("expected 1 would-update, got %d", result.WouldUpdate)
	}
	if result.RowsUpdated != 0 || len(skaters.applied) != 0 {
		t.Fatalf("dry run must not write rows: %+v", skaters.applied)
	}
	if progressRepo.setCalls != 0 {
		t.Fatalf("dry run must not persist checkpoints, got %d writes", progressRepo.setCalls)
	}
}

func TestBackfillSkipsUnavailableFeeds(t *testing.T) {
	t.Parallel()

	skaters := &fakeSkaterRepo{records: map[int64][]gamelog.SkaterRecord{
		100: {{GameID: 100, PlayerID: 11, ShotsOnGoal: 1, SplitsBroken: true}},
		200: {{GameID: 200, PlayerID: 11, ShotsOnGoal: 1, SplitsBroken: true}},
	}}
	provider := &fakeFeedProvider{
		games: map[int64]pbp.Game{
			200: testGame(200, evenStrengthShots(11, 902, 1)),
		},
		errs: map[int64]error{100: errors.New("feed unavailable")},
	}
	progressRepo := &fakeProgressRepo{}

	service := newTestBackfillService(provider, skaters, progressRepo)
	result, err := service.Run(context.Background(), BackfillInput{
		Task:      TaskSkaterSplits,
		BatchSize: 200,
		Commit:    true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.GamesSkipped != 1 {
		t.Fatalf("expected 1 skipped game, got %d", result.GamesSkipped)
	}
	if result.RowsUpdated != 1 {
		t.Fatalf("expected the healthy game repaired, got %d updates", result.RowsUpdated)
	}
	cursor := progressRepo.checkpoints[TaskSkaterSplits]
	if cursor == nil || *cursor != 200 {
		t.Fatalf("checkpoint must advance past skipped games, got %v", cursor)
	}
}

func TestBackfillAbortsOnWriteFailure(t *testing.T) {
	t.Parallel()

	skaters := &fakeSkaterRepo{
		records: map[int64][]gamelog.SkaterRecord{
			100: {{GameID: 100, PlayerID: 11, ShotsOnGoal: 1, SplitsBroken: true}},
		},
		applyErr: errors.New("connection reset"),
	}
	provider := &fakeFeedProvider{games: map[int64]pbp.Game{
		100: testGame(100, evenStrengthShots(11, 902, 1)),
	}}
	progressRepo := &fakeProgressRepo{}

	service := newTestBackfillService(provider, skaters, progressRepo)
	_, err := service.Run(context.Background(), BackfillInput{
		Task:      TaskSkaterSplits,
		BatchSize: 200,
		Commit:    true,
	})
	if err == nil {
		t.Fatal("expected an error on write failure")
	}
	if cursor := progressRepo.checkpoints[TaskSkaterSplits]; cursor != nil {
		t.Fatalf("checkpoint must not advance past a failed write, got %d", *cursor)
	}
}

func TestBackfillValidatesInput(t *testing.T) {
	t.Parallel()

	service := newTestBackfillService(&fakeFeedProvider{}, &fakeSkaterRepo{}, &fakeProgressRepo{})

	cases := []BackfillInput{
		{Task: "unknown_task", BatchSize: 200},
		{Task: TaskSkaterSplits, BatchSize: 0},
		{Task: TaskSkaterSplits, BatchSize: 5000},
	}
	for _, input := range cases {
		if _, err := service.Run(context.Background(), input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %+v: expected ErrInvalidInput, got %v", input, err)
		}
	}
}

func TestBackfillGoalieTask(t *testing.T) {
	t.Parallel()

	goalies := &fakeGoalieRepo{records: map[int64][]gamelog.GoalieRecord{
		100: {{GameID: 100, PlayerID: 902, ShotsFaced: 2, SplitsBroken: true}},
	}}
	provider := &fakeFeedProvider{games: map[int64]pbp.Game{
		100: testGame(100, evenStrengthShots(11, 902, 2)),
	}}
	progressRepo := &fakeProgressRepo{}

	service := NewBackfillService(provider, nil, goalies, progressRepo, pbp.Options{}, logging.NewNop())
	result, err := service.Run(context.Background(), BackfillInput{
		Task:      TaskGoalieSplits,
		BatchSize: 200,
		Commit:    true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.RowsUpdated != 1 {
		t.Fatalf("expected 1 goalie row updated, got %d", result.RowsUpdated)
	}
	line := goalies.applied[0].Line
	if line.EVShotsFaced != 2 || line.ShotsFaced() != 2 {
		t.Fatalf("unexpected goalie line: %+v", line)
	}
}

type fakeGoalieRepo struct {
	records map[int64][]gamelog.GoalieRecord
	applied []gamelog.GoalieUpdate
}

func (r *fakeGoalieRepo) CountOffenders(context.Context) (int, error) {
	count := 0
	for _, rows := range r.records {
		for _, row := range rows {
			if row.SplitsBroken {
				count++
			}
		}
	}
	return count, nil
}

func (r *fakeGoalieRepo) ListOffenderGames(_ context.Context, afterGameID *int64, limit int) ([]int64, error) {
	var ids []int64
	for gameID, rows := range r.records {
		if afterGameID != nil && gameID <= *afterGameID {
			continue
		}
		for _, row := range rows {
			if row.SplitsBroken {
				ids = append(ids, gameID)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *fakeGoalieRepo) ListRecordsByGame(_ context.Context, gameID int64) ([]gamelog.GoalieRecord, error) {
	return r.records[gameID], nil
}

func (r *fakeGoalieRepo) ApplySplits(_ context.Context, updates []gamelog.GoalieUpdate) (int, error) {
	for _, update := range updates {
		rows := r.records[update.GameID]
		for i := range rows {
			if rows[i].PlayerID == update.PlayerID {
				rows[i].SplitsBroken = false
			}
		}
		r.applied = append(r.applied, update)
	}
	return len(updates), nil
}
