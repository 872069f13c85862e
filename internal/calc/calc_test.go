package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battleflow/internal/domain"
)

func TestMinimumPerformers(t *testing.T) {
	tests := []struct {
		name        string
		groupsIdeal int
		want        int
		wantErr     error
	}{
		{name: "one pool", groupsIdeal: 1, want: 3},
		{name: "two pools", groupsIdeal: 2, want: 5},
		{name: "four pools", groupsIdeal: 4, want: 9},
		{name: "zero pools", groupsIdeal: 0, wantErr: domain.ErrInvalidArgument},
		{name: "negative pools", groupsIdeal: -3, wantErr: domain.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MinimumPerformers(tt.groupsIdeal)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPoolCapacity(t *testing.T) {
	tests := []struct {
		name           string
		registered     int
		groupsIdeal    int
		wantQualifying int
		wantEliminated int
		wantErr        error
	}{
		{name: "nine performers two pools", registered: 9, groupsIdeal: 2, wantQualifying: 7, wantEliminated: 2},
		{name: "exact minimum eliminates one", registered: 5, groupsIdeal: 2, wantQualifying: 4, wantEliminated: 1},
		{name: "clamp keeps two per pool", registered: 6, groupsIdeal: 2, wantQualifying: 4, wantEliminated: 2},
		{name: "twenty performers four pools", registered: 20, groupsIdeal: 4, wantQualifying: 15, wantEliminated: 5},
		{name: "small field still cuts one", registered: 3, groupsIdeal: 1, wantQualifying: 2, wantEliminated: 1},
		{name: "below minimum", registered: 4, groupsIdeal: 2, wantErr: domain.ErrInsufficientPerformers},
		{name: "bad groups", registered: 10, groupsIdeal: 0, wantErr: domain.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qualifying, eliminated, err := PoolCapacity(tt.registered, tt.groupsIdeal)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantQualifying, qualifying)
			assert.Equal(t, tt.wantEliminated, eliminated)
		})
	}
}

// Whatever the field size, the capacity split never starves a pool below
// two performers and never lets everyone through.
func TestPoolCapacityInvariants(t *testing.T) {
	for groupsIdeal := 1; groupsIdeal <= 8; groupsIdeal++ {
		minimum, err := MinimumPerformers(groupsIdeal)
		require.NoError(t, err)

		for registered := minimum; registered <= minimum+40; registered++ {
			qualifying, eliminated, err := PoolCapacity(registered, groupsIdeal)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, qualifying, groupsIdeal*2,
				"registered=%d groups=%d", registered, groupsIdeal)
			assert.GreaterOrEqual(t, eliminated, 1,
				"registered=%d groups=%d", registered, groupsIdeal)
			assert.Equal(t, registered, qualifying+eliminated,
				"registered=%d groups=%d", registered, groupsIdeal)
		}
	}
}

func TestDistributePoolSizes(t *testing.T) {
	tests := []struct {
		name        string
		qualifying  int
		groupsIdeal int
		want        []int
		wantErr     error
	}{
		{name: "even split", qualifying: 8, groupsIdeal: 2, want: []int{4, 4}},
		{name: "remainder goes first", qualifying: 7, groupsIdeal: 2, want: []int{4, 3}},
		{name: "three pools uneven", qualifying: 10, groupsIdeal: 3, want: []int{4, 3, 3}},
		{name: "single pool", qualifying: 5, groupsIdeal: 1, want: []int{5}},
		{name: "too few qualifying", qualifying: 3, groupsIdeal: 2, wantErr: domain.ErrInsufficientPerformers},
		{name: "bad groups", qualifying: 6, groupsIdeal: 0, wantErr: domain.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DistributePoolSizes(tt.qualifying, tt.groupsIdeal)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDistributePoolSizesInvariants(t *testing.T) {
	for groupsIdeal := 1; groupsIdeal <= 8; groupsIdeal++ {
		for qualifying := groupsIdeal * 2; qualifying <= groupsIdeal*2+30; qualifying++ {
			sizes, err := DistributePoolSizes(qualifying, groupsIdeal)
			require.NoError(t, err)
			require.Len(t, sizes, groupsIdeal)

			sum, minSize, maxSize := 0, sizes[0], sizes[0]
			for i, size := range sizes {
				sum += size
				if size < minSize {
					minSize = size
				}
				if size > maxSize {
					maxSize = size
				}
				if i > 0 {
					assert.LessOrEqual(t, size, sizes[i-1], "largest pools come first")
				}
			}
			assert.Equal(t, qualifying, sum)
			assert.LessOrEqual(t, maxSize-minSize, 1)
		}
	}
}
