// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/keyrescue/pkg/config"
	"github.com/AleutianAI/keyrescue/pkg/generator"
	"github.com/AleutianAI/keyrescue/pkg/oracle"
)

// fixtureConfig covers the documented recovery fixture: base "password",
// digits "123", symbol "!".
func fixtureConfig() *config.Config {
	return &config.Config{
		BaseWords: []string{"password"},
		Digits:    []string{"123"},
		Symbols:   []string{"!"},
	}
}

// matchOracle accepts exactly one candidate and counts invocations.
func matchOracle(target string) (oracle.Oracle, *atomic.Uint64) {
	var calls atomic.Uint64
	return oracle.Func(func(ctx context.Context, candidate string) (bool, error) {
		calls.Add(1)
		return candidate == target, nil
	}), &calls
}

func TestNew_Validation(t *testing.T) {
	ok := oracle.Func(func(ctx context.Context, candidate string) (bool, error) {
		return false, nil
	})

	tests := []struct {
		name    string
		oracle  oracle.Oracle
		workers int
		wantErr error
	}{
		{"nil oracle", nil, 4, ErrNilOracle},
		{"workers too low", ok, -3, ErrInvalidWorkerCount},
		{"workers too high", ok, 101, ErrInvalidWorkerCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.oracle, Options{Workers: tt.workers})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("zero workers uses default", func(t *testing.T) {
		c, err := New(ok, Options{})
		require.NoError(t, err)
		assert.Equal(t, DefaultWorkers, c.workers)
	})
}

func TestRecover_FindsPasswordAcrossWorkerCounts(t *testing.T) {
	for _, workers := range []int{1, 2, 4, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			o, _ := matchOracle("password123!")
			coord, err := New(o, Options{Workers: workers})
			require.NoError(t, err)

			result, err := coord.Recover(context.Background(), fixtureConfig())
			require.NoError(t, err)

			assert.True(t, result.Success())
			assert.Equal(t, OutcomeFound, result.Outcome)
			assert.Equal(t, "password123!", result.Password)
			assert.Greater(t, result.Attempts, uint64(0))
		})
	}
}

func TestRecover_ExhaustsFullSpace(t *testing.T) {
	cfg := &config.Config{
		BaseWords: []string{"cat", "sun", "winter"},
		Digits:    []string{"1", "22", "1"},
		Symbols:   []string{"!", "#"},
	}
	expected, err := generator.EstimateCount(cfg)
	require.NoError(t, err)
	require.Greater(t, expected, 0)

	o, calls := matchOracle("never-matches")
	coord, err := New(o, Options{Workers: 4})
	require.NoError(t, err)

	result, err := coord.Recover(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, OutcomeExhausted, result.Outcome)
	assert.False(t, result.Success())
	assert.Empty(t, result.Password)
	assert.Equal(t, uint64(expected), result.Attempts, "every candidate is attempted exactly once")
	assert.Equal(t, uint64(expected), calls.Load())
}

func TestRecover_EmptyCandidateSpace(t *testing.T) {
	// A single too-short word generates no base combinations.
	cfg := &config.Config{
		BaseWords: []string{"ab"},
		Digits:    []string{"1"},
		Symbols:   []string{"!"},
	}

	o, calls := matchOracle("anything")
	coord, err := New(o, Options{Workers: 4})
	require.NoError(t, err)

	result, err := coord.Recover(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, OutcomeExhausted, result.Outcome)
	assert.Equal(t, uint64(0), result.Attempts)
	assert.Equal(t, uint64(0), calls.Load(), "no worker may be dispatched")
}

func TestRecover_MoreWorkersThanBases(t *testing.T) {
	o, _ := matchOracle("password123!")
	coord, err := New(o, Options{Workers: 100})
	require.NoError(t, err)

	result, err := coord.Recover(context.Background(), fixtureConfig())
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, "password123!", result.Password)
}

func TestRecover_InvalidConfig(t *testing.T) {
	o, _ := matchOracle("x")
	coord, err := New(o, Options{Workers: 2})
	require.NoError(t, err)

	_, err = coord.Recover(context.Background(), nil)
	assert.Error(t, err)

	_, err = coord.Recover(context.Background(), &config.Config{BaseWords: []string{"password"}})
	assert.Error(t, err)
}

func TestRecover_OracleFaultsAreSkipped(t *testing.T) {
	// Every candidate except the target faults; the search must still
	// find the target and count the faulting attempts.
	cfg := fixtureConfig()
	expected, err := generator.EstimateCount(cfg)
	require.NoError(t, err)

	faulty := oracle.Func(func(ctx context.Context, candidate string) (bool, error) {
		if candidate == "PASSWORD123!" {
			return true, nil
		}
		return false, fmt.Errorf("backing store hiccup")
	})

	coord, err := New(faulty, Options{Workers: 1})
	require.NoError(t, err)

	result, err := coord.Recover(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, "PASSWORD123!", result.Password)
	assert.LessOrEqual(t, result.Attempts, uint64(expected))
}

func TestRecover_AllFaultsExhausts(t *testing.T) {
	cfg := fixtureConfig()
	expected, err := generator.EstimateCount(cfg)
	require.NoError(t, err)

	faulty := oracle.Func(func(ctx context.Context, candidate string) (bool, error) {
		return false, fmt.Errorf("permanently broken")
	})
	coord, err := New(faulty, Options{Workers: 2})
	require.NoError(t, err)

	result, err := coord.Recover(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, result.Outcome)
	assert.Equal(t, uint64(expected), result.Attempts)
}

func TestRecover_Interruption(t *testing.T) {
	// A big space with a slow oracle; cancel mid-flight and require a
	// prompt, clean stop.
	cfg := &config.Config{
		BaseWords: []string{"cat", "sun", "winter", "summer", "autumn"},
		Digits:    []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"},
		Symbols:   []string{"!", "#", "$"},
	}

	slow := oracle.Func(func(ctx context.Context, candidate string) (bool, error) {
		select {
		case <-time.After(10 * time.Millisecond):
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	})

	coord, err := New(slow, Options{Workers: 4})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	result, err := coord.Recover(ctx, cfg)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, OutcomeInterrupted, result.Outcome)
	assert.False(t, result.Success())
	assert.Less(t, elapsed, 2*time.Second, "interruption must propagate promptly")
}

func TestRecover_MultipleValidCandidates(t *testing.T) {
	// Degenerate space where two candidates are "correct": whichever
	// worker wins the race is acceptable, but exactly one must win.
	accepted := map[string]bool{
		"password123!": true,
		"PASSWORD123!": true,
	}
	o := oracle.Func(func(ctx context.Context, candidate string) (bool, error) {
		return accepted[candidate], nil
	})

	coord, err := New(o, Options{Workers: 4})
	require.NoError(t, err)

	result, err := coord.Recover(context.Background(), fixtureConfig())
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.True(t, accepted[result.Password], "winner must be one of the valid candidates, got %q", result.Password)
}

func TestRecover_FreshStatePerCall(t *testing.T) {
	o, _ := matchOracle("password123!")
	coord, err := New(o, Options{Workers: 2})
	require.NoError(t, err)

	first, err := coord.Recover(context.Background(), fixtureConfig())
	require.NoError(t, err)
	second, err := coord.Recover(context.Background(), fixtureConfig())
	require.NoError(t, err)

	assert.True(t, first.Success())
	assert.True(t, second.Success())
	// Attempts do not accumulate across calls.
	assert.LessOrEqual(t, second.Attempts, uint64(3))
}

func TestAttempts_LiveCounter(t *testing.T) {
	o, _ := matchOracle("no-match")
	coord, err := New(o, Options{Workers: 1})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), coord.Attempts(), "zero before first search")

	_, err = coord.Recover(context.Background(), fixtureConfig())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), coord.Attempts(), "counter readable after completion")
}
