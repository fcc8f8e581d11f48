package bench

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/aocrunner/internal/bench/mocks"
	"github.com/mattjoyce/aocrunner/internal/log"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR", "text") // Suppress logs in tests
	os.Exit(m.Run())
}

func ms(ns ...int) []time.Duration {
	out := make([]time.Duration, len(ns))
	for i, n := range ns {
		out[i] = time.Duration(n) * time.Millisecond
	}
	return out
}

func repeat(d time.Duration, n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = d
	}
	return out
}

func TestMeasureCounted(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBencher(ctrl)

	b.EXPECT().Bench(gomock.Any(), uint32(1), uint32(5)).Return(ms(5, 1, 4, 2, 3), "10", nil)

	res, err := Measure(context.Background(), b, 1, Options{Iterations: 5, Budget: time.Hour})
	require.NoError(t, err)

	assert.Equal(t, "10", res.Answer)
	assert.Equal(t, 5, res.Total)
	// n=5 trims 2*(2-1)+1 = 3 samples, keeping the two fastest.
	assert.Equal(t, ms(1, 2), res.Kept)
	assert.Equal(t, 1500*time.Microsecond, res.Average)
	assert.Equal(t, 2*time.Millisecond, res.Median)
}

func TestMeasureFirstSampleExceedsBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBencher(ctrl)

	b.EXPECT().Bench(gomock.Any(), uint32(2), uint32(1)).Return(ms(2000), "slow", nil)

	res, err := Measure(context.Background(), b, 2, Options{Budget: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 2*time.Second, res.Average)
	assert.Equal(t, 2*time.Second, res.Median)
}

func TestMeasureFirstSampleIsCalibration(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBencher(ctrl)

	gomock.InOrder(
		b.EXPECT().Bench(gomock.Any(), uint32(1), uint32(1)).Return(ms(200), "a", nil),
		b.EXPECT().Bench(gomock.Any(), uint32(1), uint32(5)).Return(ms(200, 210, 190, 205, 195), "a", nil),
	)

	res, err := Measure(context.Background(), b, 1, Options{Budget: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, "a", res.Answer)
}

func TestMeasureCalibrationBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBencher(ctrl)

	// The fastest 7 of 1..10ms average 4ms, so a 1s budget needs 250 trials.
	gomock.InOrder(
		b.EXPECT().Bench(gomock.Any(), uint32(1), uint32(1)).Return(ms(1), "a", nil),
		b.EXPECT().Bench(gomock.Any(), uint32(1), uint32(10)).Return(ms(10, 9, 8, 7, 6, 5, 4, 3, 2, 1), "a", nil),
		b.EXPECT().Bench(gomock.Any(), uint32(1), uint32(250)).Return(repeat(4*time.Millisecond, 250), "a", nil),
	)

	res, err := Measure(context.Background(), b, 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, 250, res.Total)
	assert.Len(t, res.Kept, 250-TrimCount(250))
	assert.Equal(t, 4*time.Millisecond, res.Average)
}

func TestMeasureCalibrationWrongAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBencher(ctrl)

	gomock.InOrder(
		b.EXPECT().Bench(gomock.Any(), uint32(1), uint32(1)).Return(ms(1), "a", nil),
		b.EXPECT().Bench(gomock.Any(), uint32(1), uint32(10)).Return(repeat(time.Millisecond, 10), "b", nil),
	)

	res, err := Measure(context.Background(), b, 1, Options{})
	assert.Nil(t, res)

	var wrong *WrongAnswerError
	require.True(t, errors.As(err, &wrong), "error = %v", err)
	assert.Equal(t, "a", wrong.Want)
	assert.Equal(t, "b", wrong.Got)
}

func TestMeasurePropagatesBenchError(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBencher(ctrl)

	boom := errors.New("broken pipe")
	b.EXPECT().Bench(gomock.Any(), uint32(1), uint32(3)).Return(nil, "", boom)

	_, err := Measure(context.Background(), b, 1, Options{Iterations: 3})
	assert.ErrorIs(t, err, boom)
}

func TestTrimCount(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{3, 1},
		{4, 3},
		{5, 3},
		{7, 3},
		{8, 5},
		{16, 7},
		{1000, 17},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TrimCount(tt.n), "TrimCount(%d)", tt.n)
	}
}

func TestTrimNeverEmpties(t *testing.T) {
	for n := 1; n <= 5000; n++ {
		removed := TrimCount(n)
		if removed > n-1 {
			t.Fatalf("TrimCount(%d) = %d removes too many", n, removed)
		}
	}
}

func TestIterations(t *testing.T) {
	assert.Equal(t, uint32(250), Iterations(time.Second, 4*time.Millisecond))
	assert.Equal(t, uint32(1), Iterations(time.Second, 3*time.Second))
	assert.Equal(t, uint32(MaxIterations), Iterations(time.Second, 0))
	assert.Equal(t, uint32(MaxIterations), Iterations(time.Hour, time.Nanosecond))
	assert.Equal(t, uint32(MaxIterations), Iterations(time.Second, 100*time.Nanosecond))
	assert.Equal(t, uint32(MaxIterations-1), Iterations(MaxIterations*time.Microsecond-time.Microsecond, time.Microsecond))
}

func TestAverage(t *testing.T) {
	assert.Equal(t, time.Duration(0), Average(nil))
	assert.Equal(t, 2*time.Millisecond, Average(ms(1, 2, 3)))
}
