package model

import (
	"fmt"
	"time"
)

// AssetClass identifies the market segment a symbol trades in.
type AssetClass string

// AssetClassMeta holds routing defaults for an asset class.
type AssetClassMeta struct {
	Staleness   time.Duration // primary silence before failover is considered
	HasFallback bool          // CRYPTO is single-source and never fails over
}

const (
	AssetEquity AssetClass = "EQUITY"
	AssetCrypto AssetClass = "CRYPTO"
	AssetFX     AssetClass = "FX"
)

// validAssetClasses maps each AssetClass to its routing defaults.
var validAssetClasses = map[AssetClass]AssetClassMeta{
	AssetEquity: {Staleness: 10 * time.Second, HasFallback: true},
	AssetCrypto: {Staleness: 10 * time.Second, HasFallback: false},
	AssetFX:     {Staleness: 10 * time.Second, HasFallback: true},
}

// IsValid checks if the AssetClass is one of the predefined classes.
func (a AssetClass) IsValid() bool {
	_, ok := validAssetClasses[a]
	return ok
}

// Meta returns the routing defaults for the asset class.
func (a AssetClass) Meta() AssetClassMeta {
	return validAssetClasses[a]
}

// ParseAssetClass parses a string into a valid AssetClass.
func ParseAssetClass(s string) (AssetClass, error) {
	class := AssetClass(s)
	if !class.IsValid() {
		return "", fmt.Errorf("invalid asset class: %s", s)
	}
	return class, nil
}
