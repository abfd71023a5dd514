package utils

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

func IsValidMnemonic(mnemonic string) error {
	words := strings.Fields(mnemonic)
	if len(words) != 12 && len(words) != 24 {
		return fmt.Errorf("mnemonic must have 12 words or 24 words, got %d", len(words))
	}
	if !bip39.IsMnemonicValid(strings.Join(words, " ")) {
		return fmt.Errorf("invalid mnemonic")
	}
	return nil
}

// SeedFromMnemonic returns the bip39 seed for mnemonic, with an empty passphrase.
func SeedFromMnemonic(mnemonic string) ([]byte, error) {
	if err := IsValidMnemonic(mnemonic); err != nil {
		return nil, err
	}
	return bip39.NewSeedWithErrorChecking(strings.Join(strings.Fields(mnemonic), " "), "")
}

func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}
