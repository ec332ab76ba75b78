// Copyright 2024 The kod Authors
// This file is part of the kod library.
//
// The kod library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The kod library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the kod library. If not, see <http://www.gnu.org/licenses/>.

// Package wallet generates and stores KOD Chain keypairs: a BIP-39
// mnemonic, an ed25519 keypair derived from its seed (substituting for the
// sr25519 curve spec.md names, see DESIGN.md), and an SS58-like base58check
// address. Mirrors cmd/toskey's mnemonic-to-key derivation pipeline,
// generalized into a reusable package instead of a CLI-only helper file.
package wallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/tyler-smith/go-bip39"

	"github.com/kod-network/kod/common"
)

const (
	// DefaultMnemonicBits is the default entropy size for a new mnemonic
	// (12 words), matching cmd/toskey's defaultMnemonicBits.
	DefaultMnemonicBits = 128
	// seedDomain is the HMAC key separating KOD Chain's ed25519 derivation
	// from any other domain that might derive from the same BIP-39 seed,
	// the way cmd/toskey's deriveEd25519PrivateFromSeed uses
	// "GTOS_ED25519_DERIVE".
	seedDomain = "KOD_ED25519_DERIVE"
)

// KeyPair is a derived signing keypair plus its SS58-style address.
type KeyPair struct {
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
	AccountId  common.AccountId
	Address    string
}

// GenerateMnemonic returns a new BIP-39 mnemonic phrase with the requested
// entropy (one of 128, 160, 192, 224, 256 bits).
func GenerateMnemonic(bits int) (string, error) {
	switch bits {
	case 128, 160, 192, 224, 256:
	default:
		return "", fmt.Errorf("wallet: invalid mnemonic bits %d (allowed: 128,160,192,224,256)", bits)
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// DeriveKeyPair derives an ed25519 keypair and KOD address from a mnemonic
// and optional passphrase, for the given network prefix.
func DeriveKeyPair(net Network, mnemonic, passphrase string) (*KeyPair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("wallet: invalid mnemonic")
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha512.New, []byte(seedDomain))
	mac.Write(seed)
	digest := mac.Sum(nil)
	seed32 := make([]byte, ed25519.SeedSize)
	copy(seed32, digest[:ed25519.SeedSize])

	priv := ed25519.NewKeyFromSeed(seed32)
	pub := priv.Public().(ed25519.PublicKey)
	id := common.BytesToAccountId(pub)

	return &KeyPair{
		PrivateKey: priv,
		PublicKey:  pub,
		AccountId:  id,
		Address:    EncodeAddress(net, id),
	}, nil
}

// GenerateKeyPair creates a fresh mnemonic and derives a keypair from it,
// returning both (the mnemonic must be saved by the caller; it is the only
// way to recover the key).
func GenerateKeyPair(net Network) (*KeyPair, string, error) {
	mnemonic, err := GenerateMnemonic(DefaultMnemonicBits)
	if err != nil {
		return nil, "", err
	}
	kp, err := DeriveKeyPair(net, mnemonic, "")
	if err != nil {
		return nil, "", err
	}
	return kp, mnemonic, nil
}

// DeriveChildAccount derives the index'th sub-account from a mnemonic,
// the way a hardware wallet exposes more than one address per seed phrase.
// The master scalar is split into a secp256k1 BIP-32-style hardened child
// scalar (mirroring cmd/toskey's deriveBIP32Master/deriveBIP32Child), then
// folded into an ed25519 seed the same way DeriveKeyPair folds the raw
// BIP-39 seed. Index 0 is NOT the same key as DeriveKeyPair's account;
// callers that want the single-account wallet should keep using
// DeriveKeyPair directly.
func DeriveChildAccount(net Network, mnemonic, passphrase string, index uint32) (*KeyPair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("wallet: invalid mnemonic")
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}

	masterKey, chainCode, err := deriveBIP32Master(seed)
	if err != nil {
		return nil, err
	}
	childKey, _, err := deriveBIP32Child(masterKey, chainCode, index|hdHardenedOffset)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha512.New, []byte(seedDomain))
	mac.Write(childKey)
	digest := mac.Sum(nil)
	seed32 := make([]byte, ed25519.SeedSize)
	copy(seed32, digest[:ed25519.SeedSize])

	priv := ed25519.NewKeyFromSeed(seed32)
	pub := priv.Public().(ed25519.PublicKey)
	id := common.BytesToAccountId(pub)

	return &KeyPair{
		PrivateKey: priv,
		PublicKey:  pub,
		AccountId:  id,
		Address:    EncodeAddress(net, id),
	}, nil
}

const hdHardenedOffset = uint32(0x80000000)

// deriveBIP32Master computes a BIP-32 master key and chain code from a
// BIP-39 seed, the same HMAC-SHA512-over-"Bitcoin seed" construction
// cmd/toskey's mnemonic.go used.
func deriveBIP32Master(seed []byte) ([]byte, []byte, error) {
	mac := hmac.New(sha512.New, []byte("Bitcoin seed"))
	if _, err := mac.Write(seed); err != nil {
		return nil, nil, err
	}
	sum := mac.Sum(nil)
	key := make([]byte, 32)
	chainCode := make([]byte, 32)
	copy(key, sum[:32])
	copy(chainCode, sum[32:])
	curveN := btcec.S256().Params().N
	if v := new(big.Int).SetBytes(key); v.Sign() == 0 || v.Cmp(curveN) >= 0 {
		return nil, nil, fmt.Errorf("wallet: invalid bip32 master key")
	}
	return key, chainCode, nil
}

// deriveBIP32Child derives a single hardened BIP-32 child scalar. Only the
// hardened path is supported, since DeriveChildAccount never exposes an
// extended public key an unhardened child could be derived against.
func deriveBIP32Child(parentKey []byte, parentChainCode []byte, index uint32) ([]byte, []byte, error) {
	if len(parentKey) != 32 || len(parentChainCode) != 32 {
		return nil, nil, fmt.Errorf("wallet: invalid bip32 parent key material")
	}
	if index < hdHardenedOffset {
		return nil, nil, fmt.Errorf("wallet: only hardened child derivation is supported")
	}

	data := make([]byte, 37)
	data[0] = 0x00
	copy(data[1:33], parentKey)
	binary.BigEndian.PutUint32(data[33:], index)

	mac := hmac.New(sha512.New, parentChainCode)
	if _, err := mac.Write(data); err != nil {
		return nil, nil, err
	}
	sum := mac.Sum(nil)
	il, ir := sum[:32], sum[32:]

	curveN := btcec.S256().Params().N
	ilInt := new(big.Int).SetBytes(il)
	if ilInt.Sign() == 0 || ilInt.Cmp(curveN) >= 0 {
		return nil, nil, fmt.Errorf("wallet: invalid bip32 child scalar")
	}
	parentInt := new(big.Int).SetBytes(parentKey)
	childInt := new(big.Int).Add(ilInt, parentInt)
	childInt.Mod(childInt, curveN)
	if childInt.Sign() == 0 {
		return nil, nil, fmt.Errorf("wallet: invalid bip32 child key: zero")
	}

	childKey := make([]byte, 32)
	childBytes := childInt.Bytes()
	copy(childKey[32-len(childBytes):], childBytes)
	childChainCode := make([]byte, 32)
	copy(childChainCode, ir)
	return childKey, childChainCode, nil
}

// File is the on-disk wallet record, written to ~/.kod/wallet.json with
// mode 0600.
type File struct {
	Address    string    `json:"address"`
	SeedPhrase string    `json:"seed_phrase"`
	CreatedAt  time.Time `json:"created_at"`
	Network    string    `json:"network"`
}

// DefaultPath returns ~/.kod/wallet.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".kod", "wallet.json"), nil
}

// Save writes a wallet file to path with mode 0600, creating parent
// directories as needed.
func Save(path string, f File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("wallet: create wallet dir: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Load reads a wallet file from path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("wallet: parse wallet file: %w", err)
	}
	return f, nil
}

// networkName renders a Network as the wallet file's human-readable tag.
func networkName(net Network) string {
	switch net {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	default:
		return "unknown"
	}
}

// NewFile builds the on-disk record for a freshly generated keypair.
func NewFile(net Network, kp *KeyPair, mnemonic string) File {
	return File{
		Address:    kp.Address,
		SeedPhrase: mnemonic,
		CreatedAt:  time.Now(),
		Network:    networkName(net),
	}
}
