package forecast

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/internal/features"
	"github.com/wonny/sectorcast/internal/ml"
)

// linearStub 첫 컬럼 단순 선형회귀
type linearStub struct {
	kind      ml.ModelKind
	slope     float64
	intercept float64
}

func (s *linearStub) Kind() ml.ModelKind { return s.kind }

func (s *linearStub) Fit(X [][]float64, y []float64) error {
	var mx, my float64
	for i := range X {
		mx += X[i][0]
		my += y[i]
	}
	n := float64(len(X))
	mx, my = mx/n, my/n
	var sxy, sxx float64
	for i := range X {
		sxy += (X[i][0] - mx) * (y[i] - my)
		sxx += (X[i][0] - mx) * (X[i][0] - mx)
	}
	if sxx != 0 {
		s.slope = sxy / sxx
	}
	s.intercept = my - s.slope*mx
	return nil
}

func (s *linearStub) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = s.intercept + s.slope*row[0]
	}
	return out
}

func (s *linearStub) Score(X [][]float64, y []float64) float64 {
	return ml.R2(y, s.Predict(X))
}

func (s *linearStub) FeatureImportances() []float64 { return nil }

// zeroStub 항상 0 예측
type zeroStub struct{ linearStub }

func (z *zeroStub) Fit(X [][]float64, y []float64) error { return nil }

// cloneStub 호출마다 새 인스턴스
func cloneStub(r ml.Regressor) func() ml.Regressor {
	return func() ml.Regressor {
		switch s := r.(type) {
		case *zeroStub:
			c := *s
			return &c
		case *linearStub:
			c := *s
			return &c
		default:
			panic("unsupported stub")
		}
	}
}

func stubCandidates(first, second ml.Regressor) []Candidate {
	return []Candidate{
		{Kind: first.Kind(), New: cloneStub(first)},
		{Kind: second.Kind(), New: cloneStub(second)},
	}
}

func linearMatrix(n int) (*features.Matrix, []float64) {
	m := &features.Matrix{Columns: []string{"a", "b"}}
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		m.IDs = append(m.IDs, "id")
		m.Rows = append(m.Rows, []float64{x, float64(i % 3)})
		y[i] = 2*x - 5
	}
	return m, y
}

func TestSelectBest(t *testing.T) {
	score := func(kind string, r2 float64) contracts.CandidateScore {
		return contracts.CandidateScore{Kind: kind, Scores: contracts.ModelScores{R2: r2}}
	}

	tests := []struct {
		name   string
		scores []contracts.CandidateScore
		want   int
	}{
		{"higher r2 wins", []contracts.CandidateScore{score("a", 0.4), score("b", 0.6)}, 1},
		{"tie keeps first declared", []contracts.CandidateScore{score("a", 0.5), score("b", 0.5)}, 0},
		{"nan ranks last", []contracts.CandidateScore{score("a", math.NaN()), score("b", -3)}, 1},
		{"negative r2 still selectable", []contracts.CandidateScore{score("a", -2), score("b", -1)}, 1},
		{"empty", nil, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectBest(tt.scores))
		})
	}
}

func TestTrainer_SelectsHighestR2(t *testing.T) {
	store := NewStore()
	cands := stubCandidates(
		&zeroStub{linearStub{kind: "zero"}},
		&linearStub{kind: "linear"},
	)
	trainer := NewTrainer(store, cands, DefaultTrainerConfig(), nil, zerolog.Nop())

	m, y := linearMatrix(20)
	res, err := trainer.Train(context.Background(), "Tech", m, y)
	require.NoError(t, err)

	assert.Equal(t, "linear", res.BestModel)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "zero", res.Candidates[0].Kind)
	assert.Equal(t, 16, res.TrainingSamples)
	assert.Equal(t, 4, res.TestSamples)
	best, ok := res.Best()
	require.True(t, ok)
	assert.InDelta(t, 1.0, best.R2, 1e-9)
	assert.Equal(t, 1.0, best.DirectionAccuracy)

	stored := store.Get("Tech")
	require.NotNil(t, stored)
	assert.Equal(t, ml.ModelKind("linear"), stored.Kind)
}

func TestTrainer_TieKeepsFirstDeclared(t *testing.T) {
	store := NewStore()
	cands := stubCandidates(&linearStub{kind: "first"}, &linearStub{kind: "second"})
	trainer := NewTrainer(store, cands, DefaultTrainerConfig(), nil, zerolog.Nop())

	m, y := linearMatrix(20)
	res, err := trainer.Train(context.Background(), "Tech", m, y)
	require.NoError(t, err)
	assert.Equal(t, "first", res.BestModel)
}

func TestTrainer_OtherSectorModelUnchanged(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	cands := stubCandidates(&linearStub{kind: "linear"}, &zeroStub{linearStub{kind: "zero"}})
	trainer := NewTrainer(store, cands, DefaultTrainerConfig(), nil, zerolog.Nop())

	m, y := linearMatrix(20)
	_, err := trainer.Train(ctx, "Tech", m, y)
	require.NoError(t, err)
	tech := store.Get("Tech")
	require.NotNil(t, tech)
	row := [][]float64{{1, 0}}
	before := tech.Model.Predict(row)

	neg := make([]float64, len(y))
	for i := range y {
		neg[i] = -y[i]
	}
	_, err = trainer.Train(ctx, "Finance", m, neg)
	require.NoError(t, err)

	assert.Same(t, tech, store.Get("Tech"))
	assert.Equal(t, before, tech.Model.Predict(row))
	assert.NotSame(t, tech.Model, store.Get("Finance").Model)
}

func TestTrainer_InsufficientData(t *testing.T) {
	store := NewStore()
	trainer := NewTrainer(store, DefaultCandidates(nil), DefaultTrainerConfig(), nil, zerolog.Nop())

	one := &features.Matrix{Columns: []string{"a"}, IDs: []string{"x"}, Rows: [][]float64{{1}}}
	_, err := trainer.Train(context.Background(), "Tech", one, []float64{1})
	assert.ErrorIs(t, err, contracts.ErrTrainingDataInsufficient)

	m, _ := linearMatrix(10)
	constant := make([]float64, 10)
	_, err = trainer.Train(context.Background(), "Tech", m, constant)
	assert.ErrorIs(t, err, contracts.ErrTrainingDataInsufficient)

	assert.Nil(t, store.Get("Tech"), "no model is fabricated")
}

func TestTrainer_TrainAll(t *testing.T) {
	store := NewStore()
	trainer := NewTrainer(store, DefaultCandidates(nil), DefaultTrainerConfig(), nil, zerolog.Nop())

	m, y := linearMatrix(30)
	sets := map[string]TrainingSet{
		"Tech":   {Matrix: m, Target: y},
		"Energy": {Matrix: &features.Matrix{Columns: []string{"a"}}, Target: nil},
	}

	batch, err := trainer.TrainAll(context.Background(), sets)
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, "Tech", batch.Results[0].Sector)
	assert.Len(t, batch.Results[0].Candidates, len(ml.Kinds()))
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "Energy", batch.Failures[0].Sector)
	assert.Equal(t, []string{"Tech"}, store.Sectors())
}

func TestTrainer_TrainAllCancelled(t *testing.T) {
	trainer := NewTrainer(NewStore(), DefaultCandidates(nil), DefaultTrainerConfig(), nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, y := linearMatrix(10)
	batch, err := trainer.TrainAll(ctx, map[string]TrainingSet{"Tech": {Matrix: m, Target: y}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, batch.Results)
	assert.Len(t, batch.Failures, 1)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	trainer := NewTrainer(store, DefaultCandidates(nil), DefaultTrainerConfig(), nil, zerolog.Nop())

	m, y := linearMatrix(40)
	_, err := trainer.Train(ctx, "Tech", m, y)
	require.NoError(t, err)

	files := NewFileArtifactStore(filepath.Join(t.TempDir(), "models"))
	require.NoError(t, store.Save(ctx, "Tech", files))

	restored := NewStore()
	require.NoError(t, restored.Load(ctx, "Tech", files))

	before := NewPredictor(store, 1, nil, zerolog.Nop())
	after := NewPredictor(restored, 1, nil, zerolog.Nop())
	for i := 0; i < m.Len(); i++ {
		row := &features.Matrix{Columns: m.Columns, IDs: m.IDs[i : i+1], Rows: m.Rows[i : i+1]}
		a, err := before.Predict(ctx, "Tech", row)
		require.NoError(t, err)
		b, err := after.Predict(ctx, "Tech", row)
		require.NoError(t, err)
		assert.Equal(t, a.PredictedChange, b.PredictedChange)
		assert.Equal(t, a.ModelKind, b.ModelKind)
	}

	assert.Equal(t, store.Get("Tech").Candidates, restored.Get("Tech").Candidates)

	err = restored.Load(ctx, "Energy", files)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestArtifact_RejectsUnknownFormat(t *testing.T) {
	_, err := (&Artifact{FormatVersion: 99}).SectorModel()
	assert.Error(t, err)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 1.0, Confidence(0))
	assert.InDelta(t, 0.2, Confidence(1), 1e-12)
	assert.InDelta(t, 0.6, Confidence(0.5), 1e-12)
	assert.Equal(t, 0.2, Confidence(1.5))
	assert.Equal(t, 1.0, Confidence(-0.1))
}

func TestPredictor_Predict(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	cands := stubCandidates(&linearStub{kind: "linear"}, &zeroStub{linearStub{kind: "zero"}})
	trainer := NewTrainer(store, cands, DefaultTrainerConfig(), nil, zerolog.Nop())
	m, y := linearMatrix(20)
	_, err := trainer.Train(ctx, "Tech", m, y)
	require.NoError(t, err)

	p := NewPredictor(store, 2, nil, zerolog.Nop())

	// 컬럼 순서가 달라도 이름으로 정렬
	input := &features.Matrix{Columns: []string{"b", "a"}, IDs: []string{"x"}, Rows: [][]float64{{1, 10}}}
	pred, err := p.Predict(ctx, "Tech", input)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, pred.PredictedChange, 1e-9)
	assert.Equal(t, 1.0, pred.Confidence)

	// 빈 행렬은 학습 평균에서 예측하고 신뢰도 하한
	empty, err := p.Predict(ctx, "Tech", &features.Matrix{Columns: m.Columns})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, empty.Confidence, 1e-12)
	assert.InDelta(t, 2*9.5-5, empty.PredictedChange, 1e-9)

	_, err = p.Predict(ctx, "Energy", input)
	assert.True(t, errors.Is(err, contracts.ErrModelNotTrained))
}

func TestPredictor_PredictAllIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	trainer := NewTrainer(store, stubCandidates(&linearStub{kind: "linear"}, &linearStub{kind: "other"}), DefaultTrainerConfig(), nil, zerolog.Nop())

	m, y := linearMatrix(20)
	_, err := trainer.Train(ctx, "Tech", m, y)
	require.NoError(t, err)
	neg, negY := linearMatrix(20)
	for i := range negY {
		negY[i] = -negY[i]
	}
	_, err = trainer.Train(ctx, "Finance", neg, negY)
	require.NoError(t, err)

	row := &features.Matrix{Columns: []string{"a", "b"}, IDs: []string{"x"}, Rows: [][]float64{{10, 0}}}
	p := NewPredictor(store, 4, nil, zerolog.Nop())
	batch, err := p.PredictAll(ctx, map[string]*features.Matrix{
		"Tech":    row,
		"Finance": row,
		"Energy":  row,
	})
	require.NoError(t, err)

	require.Len(t, batch.Predictions, 2)
	assert.Equal(t, "Tech", batch.Predictions[0].Sector, "ranked by predicted change")
	assert.Equal(t, "Finance", batch.Predictions[1].Sector)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "Energy", batch.Failures[0].Sector)
	assert.Contains(t, batch.Failures[0].Reason, contracts.ErrModelNotTrained.Error())

	assert.Len(t, batch.TopGainers(3), 1)
	assert.Len(t, batch.TopLosers(3), 1)
}
