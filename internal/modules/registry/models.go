// Package registry provides the strategy implementation registry the
// manager consults during initialization: whether an implementation is
// active, which assets it supports, and how it is classified for
// liquidity.
package registry

import (
	"time"

	"github.com/ballastfund/ballast/internal/domain"
)

// Implementation is a governance-approved strategy template
type Implementation struct {
	ID        domain.ImplementationID `json:"id"`
	Active    bool                    `json:"active"`
	Liquid    bool                    `json:"liquid"`
	Assets    []domain.Asset          `json:"assets"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// SupportsAsset reports whether the implementation lists the asset
func (impl Implementation) SupportsAsset(asset domain.Asset) bool {
	for _, a := range impl.Assets {
		if a == asset {
			return true
		}
	}
	return false
}
