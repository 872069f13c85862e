// Package calc holds the pure tournament arithmetic: registration
// thresholds, pool qualification capacity and even pool-size distribution.
// Nothing in here touches storage.
package calc

import (
	"fmt"
	"math"

	"battleflow/internal/domain"
)

// eliminationRate is the share of registered performers cut by
// preselection, before the minimum pool-size clamp.
const eliminationRate = 0.25

// MinimumPerformers returns the smallest registration count a category
// needs before preselection can run: two performers per pool plus one, so
// preselection eliminates at least one performer and every pool keeps at
// least two.
func MinimumPerformers(groupsIdeal int) (int, error) {
	if groupsIdeal < 1 {
		return 0, fmt.Errorf("%w: groups_ideal must be >= 1, got %d", domain.ErrInvalidArgument, groupsIdeal)
	}
	return groupsIdeal*2 + 1, nil
}

// PoolCapacity splits a registration count into qualifying and eliminated
// performers. Roughly a quarter of the field is eliminated, at least one
// performer always is, and the qualifying count never drops below two per
// pool.
func PoolCapacity(registered, groupsIdeal int) (qualifying, eliminated int, err error) {
	minimum, err := MinimumPerformers(groupsIdeal)
	if err != nil {
		return 0, 0, err
	}
	if registered < minimum {
		return 0, 0, fmt.Errorf("%w: need at least %d registered performers for %d pools, got %d",
			domain.ErrInsufficientPerformers, minimum, groupsIdeal, registered)
	}

	eliminated = int(math.Round(float64(registered) * eliminationRate))
	if eliminated < 1 {
		eliminated = 1
	}
	qualifying = registered - eliminated

	if floor := groupsIdeal * 2; qualifying < floor {
		qualifying = floor
		eliminated = registered - qualifying
	}
	return qualifying, eliminated, nil
}

// DistributePoolSizes splits qualifying performers across groupsIdeal pools
// as evenly as possible, largest pools first. Sizes differ by at most one.
func DistributePoolSizes(qualifying, groupsIdeal int) ([]int, error) {
	if groupsIdeal < 1 {
		return nil, fmt.Errorf("%w: groups_ideal must be >= 1, got %d", domain.ErrInvalidArgument, groupsIdeal)
	}
	if qualifying < groupsIdeal*2 {
		return nil, fmt.Errorf("%w: %d qualifying performers cannot fill %d pools of at least 2",
			domain.ErrInsufficientPerformers, qualifying, groupsIdeal)
	}

	base := qualifying / groupsIdeal
	extra := qualifying % groupsIdeal

	sizes := make([]int, groupsIdeal)
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes, nil
}
