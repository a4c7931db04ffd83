// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package oracle

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealTestVault(t *testing.T, passphrase string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.akv")
	require.NoError(t, Seal(path, passphrase, []byte("drill payload"), FastKDFParams()))
	return path
}

func TestVaultOracle_RoundTrip(t *testing.T) {
	path := sealTestVault(t, "Password123!")

	vault, err := NewVaultOracle(path)
	require.NoError(t, err)

	ok, err := vault.Validate(context.Background(), "Password123!")
	require.NoError(t, err)
	assert.True(t, ok, "correct passphrase must validate")

	ok, err = vault.Validate(context.Background(), "Password124!")
	require.NoError(t, err, "a wrong passphrase is not an error")
	assert.False(t, ok)
}

func TestVaultOracle_Open(t *testing.T) {
	path := sealTestVault(t, "winter2024#")

	vault, err := NewVaultOracle(path)
	require.NoError(t, err)

	plaintext, err := vault.Open("winter2024#")
	require.NoError(t, err)
	assert.Equal(t, "drill payload", string(plaintext))

	_, err = vault.Open("wrong")
	assert.Error(t, err)
}

func TestVaultOracle_ConcurrentValidate(t *testing.T) {
	path := sealTestVault(t, "Sun.Cat99!")
	vault, err := NewVaultOracle(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(hit bool) {
			defer wg.Done()
			candidate := "nope"
			if hit {
				candidate = "Sun.Cat99!"
			}
			ok, err := vault.Validate(context.Background(), candidate)
			assert.NoError(t, err)
			assert.Equal(t, hit, ok)
		}(i%2 == 0)
	}
	wg.Wait()
}

func TestVaultOracle_CancelledContext(t *testing.T) {
	path := sealTestVault(t, "Password123!")
	vault, err := NewVaultOracle(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := vault.Validate(ctx, "Password123!")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewVaultOracle_BadFiles(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, err := NewVaultOracle(filepath.Join(dir, "absent.akv"))
		assert.Error(t, err)
	})

	t.Run("wrong magic", func(t *testing.T) {
		path := filepath.Join(dir, "junk.akv")
		require.NoError(t, os.WriteFile(path, []byte("not a vault at all"), 0o600))
		_, err := NewVaultOracle(path)
		assert.Error(t, err)
	})

	t.Run("truncated", func(t *testing.T) {
		good := sealTestVault(t, "Password123!")
		raw, err := os.ReadFile(good)
		require.NoError(t, err)

		path := filepath.Join(dir, "short.akv")
		require.NoError(t, os.WriteFile(path, raw[:10], 0o600))
		_, err = NewVaultOracle(path)
		assert.Error(t, err)
	})

	t.Run("wrong version", func(t *testing.T) {
		good := sealTestVault(t, "Password123!")
		raw, err := os.ReadFile(good)
		require.NoError(t, err)
		raw[4] = 99

		path := filepath.Join(dir, "future.akv")
		require.NoError(t, os.WriteFile(path, raw, 0o600))
		_, err = NewVaultOracle(path)
		assert.Error(t, err)
	})
}

func TestFunc_Adapter(t *testing.T) {
	calls := 0
	f := Func(func(ctx context.Context, candidate string) (bool, error) {
		calls++
		return candidate == "yes", nil
	})

	ok, err := f.Validate(context.Background(), "yes")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.Validate(context.Background(), "no")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 2, calls)
	assert.NotEmpty(t, f.Description())
}
