package memory

import (
	"fmt"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip32"
)

// networkParams returns the chain params and the spark address hrp.
func networkParams(network domain.Network) (*chaincfg.Params, string, error) {
	switch network {
	case domain.NetworkMainnet:
		return &chaincfg.MainNetParams, "sp", nil
	case domain.NetworkTestnet:
		return &chaincfg.TestNet3Params, "spt", nil
	case domain.NetworkSignet:
		return &chaincfg.SigNetParams, "sps", nil
	case domain.NetworkRegtest:
		return &chaincfg.RegressionNetParams, "sprt", nil
	default:
		return nil, "", fmt.Errorf("unsupported network %q", network)
	}
}

func deriveHardened(key *bip32.Key, path ...uint32) (*bip32.Key, error) {
	var err error
	for _, i := range path {
		key, err = key.NewChildKey(bip32.FirstHardenedChild + i)
		if err != nil {
			return nil, err
		}
	}
	return key, nil
}

func p2wpkhAddress(pubkey []byte, params *chaincfg.Params) (string, error) {
	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pubkey), params)
	if err != nil {
		return "", fmt.Errorf("unable to build address: %v", err)
	}
	return addr.EncodeAddress(), nil
}

func sparkAddress(hrp string, identityKey []byte) (string, error) {
	data, err := bech32.ConvertBits(identityKey, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.EncodeM(hrp, data)
}
