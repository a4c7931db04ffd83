// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package oracle

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Vault file layout, all integers big-endian:
//
//	magic      4 bytes  "AKV1"
//	version    1 byte
//	time       4 bytes  Argon2id passes
//	memory     4 bytes  Argon2id memory in KiB
//	threads    1 byte   Argon2id parallelism
//	salt len   1 byte
//	salt       N bytes
//	nonce      12 bytes
//	ciphertext remainder (AEAD sealed, includes Poly1305 tag)
var vaultMagic = []byte("AKV1")

const (
	vaultVersion = 1

	// saltSize is the salt length written by Seal.
	saltSize = 16

	// keySize is the derived key length; fixed by ChaCha20-Poly1305.
	keySize = chacha20poly1305.KeySize
)

// KDFParams are the tunable Argon2id parameters for a vault.
type KDFParams struct {
	// Time is the number of passes over memory.
	// Default: 3
	Time uint32

	// MemoryKiB is the memory cost in KiB.
	// Default: 65536 (64 MiB)
	MemoryKiB uint32

	// Threads is the KDF parallelism degree.
	// Default: 2
	Threads uint8
}

// DefaultKDFParams returns the production parameters. These deliberately
// cost on the order of 100-200ms per derivation on current hardware.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Time:      3,
		MemoryKiB: 64 * 1024,
		Threads:   2,
	}
}

// FastKDFParams returns weak parameters for tests and drills. Never use
// these for a real vault.
func FastKDFParams() KDFParams {
	return KDFParams{
		Time:      1,
		MemoryKiB: 1024,
		Threads:   1,
	}
}

// VaultOracle validates candidates by attempting to open a sealed vault
// file: derive a key from the candidate with Argon2id, then try a
// ChaCha20-Poly1305 open of the payload. An AEAD authentication failure
// means the candidate is wrong, which is a normal (false, nil) result.
//
// Thread Safety: Safe for concurrent use. All fields are read-only after
// construction; each Validate call works on its own derived key.
type VaultOracle struct {
	path       string
	params     KDFParams
	salt       []byte
	nonce      []byte
	ciphertext []byte
}

// NewVaultOracle parses a vault file into an oracle.
//
// Inputs:
//   - path: Path to a vault created by Seal.
//
// Outputs:
//   - *VaultOracle: Ready for concurrent Validate calls.
//   - error: Non-nil when the file is missing or structurally invalid.
func NewVaultOracle(path string) (*VaultOracle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("oracle: reading vault %s: %w", path, err)
	}
	return parseVault(path, raw)
}

// Validate implements Oracle.
//
// The KDF dominates the cost of every call. ctx is checked before the
// derivation starts; a derivation already underway runs to completion.
func (v *VaultOracle) Validate(ctx context.Context, candidate string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(candidate), v.salt, v.params.Time, v.params.MemoryKiB, v.params.Threads, keySize)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return false, fmt.Errorf("oracle: constructing AEAD: %w", err)
	}

	if _, err := aead.Open(nil, v.nonce, v.ciphertext, nil); err != nil {
		// Authentication failure: wrong password, not a fault.
		return false, nil
	}
	return true, nil
}

// Description implements Oracle.
func (v *VaultOracle) Description() string {
	return fmt.Sprintf("argon2id/chacha20poly1305 vault %s (t=%d m=%dKiB p=%d)",
		v.path, v.params.Time, v.params.MemoryKiB, v.params.Threads)
}

// Open decrypts the vault payload with the given passphrase. Used after a
// successful recovery to hand the plaintext back to the caller.
func (v *VaultOracle) Open(passphrase string) ([]byte, error) {
	key := argon2.IDKey([]byte(passphrase), v.salt, v.params.Time, v.params.MemoryKiB, v.params.Threads, keySize)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("oracle: constructing AEAD: %w", err)
	}
	plaintext, err := aead.Open(nil, v.nonce, v.ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("oracle: vault did not open: %w", err)
	}
	return plaintext, nil
}

// Seal writes a new vault file encrypting plaintext under passphrase.
//
// Inputs:
//   - path: Destination file, created with 0600 permissions.
//   - passphrase: The password future Validate calls must match.
//   - plaintext: Payload to seal. May be empty.
//   - params: Argon2id cost parameters recorded in the header.
//
// Outputs:
//   - error: Non-nil on entropy, encryption, or write failure.
func Seal(path, passphrase string, plaintext []byte, params KDFParams) error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("oracle: generating salt: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("oracle: generating nonce: %w", err)
	}

	key := argon2.IDKey([]byte(passphrase), salt, params.Time, params.MemoryKiB, params.Threads, keySize)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return fmt.Errorf("oracle: constructing AEAD: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	var buf bytes.Buffer
	buf.Write(vaultMagic)
	buf.WriteByte(vaultVersion)
	if err := binary.Write(&buf, binary.BigEndian, params.Time); err != nil {
		return fmt.Errorf("oracle: encoding header: %w", err)
	}
	if err := binary.Write(&buf, binary.BigEndian, params.MemoryKiB); err != nil {
		return fmt.Errorf("oracle: encoding header: %w", err)
	}
	buf.WriteByte(params.Threads)
	buf.WriteByte(byte(len(salt)))
	buf.Write(salt)
	buf.Write(nonce)
	buf.Write(ciphertext)

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("oracle: writing vault %s: %w", path, err)
	}
	return nil
}

// parseVault decodes the vault header and payload.
func parseVault(path string, raw []byte) (*VaultOracle, error) {
	r := bytes.NewReader(raw)

	magic := make([]byte, len(vaultMagic))
	if _, err := r.Read(magic); err != nil || !bytes.Equal(magic, vaultMagic) {
		return nil, fmt.Errorf("oracle: %s is not a vault file", path)
	}

	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("oracle: truncated vault header in %s", path)
	}
	if version != vaultVersion {
		return nil, fmt.Errorf("oracle: unsupported vault version %d in %s", version, path)
	}

	var params KDFParams
	if err := binary.Read(r, binary.BigEndian, &params.Time); err != nil {
		return nil, fmt.Errorf("oracle: truncated vault header in %s", path)
	}
	if err := binary.Read(r, binary.BigEndian, &params.MemoryKiB); err != nil {
		return nil, fmt.Errorf("oracle: truncated vault header in %s", path)
	}
	if params.Threads, err = r.ReadByte(); err != nil {
		return nil, fmt.Errorf("oracle: truncated vault header in %s", path)
	}
	if params.Time == 0 || params.MemoryKiB == 0 || params.Threads == 0 {
		return nil, fmt.Errorf("oracle: invalid KDF parameters in %s", path)
	}

	saltLen, err := r.ReadByte()
	if err != nil || saltLen == 0 {
		return nil, fmt.Errorf("oracle: invalid salt length in %s", path)
	}
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, fmt.Errorf("oracle: truncated salt in %s", path)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, fmt.Errorf("oracle: truncated nonce in %s", path)
	}

	ciphertext := make([]byte, r.Len())
	if len(ciphertext) < chacha20poly1305.Overhead {
		return nil, fmt.Errorf("oracle: truncated payload in %s", path)
	}
	if _, err := io.ReadFull(r, ciphertext); err != nil {
		return nil, fmt.Errorf("oracle: truncated payload in %s", path)
	}

	return &VaultOracle{
		path:       path,
		params:     params,
		salt:       salt,
		nonce:      nonce,
		ciphertext: ciphertext,
	}, nil
}
