package random_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/contract-tester/common/random"
)

func TestUniqueness(t *testing.T) {
	tests := []struct {
		name       string
		generator  func() string
		iterations int
	}{
		{
			name:       "GetUUID should always generate unique values",
			generator:  random.GetUUID,
			iterations: 10000,
		},
		{
			name: "GetRandomString(16) should generate unique values",
			generator: func() string {
				return random.GetRandomString(16)
			},
			iterations: 10000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make(map[string]struct{}, tt.iterations)
			for range tt.iterations {
				v := tt.generator()
				_, dup := seen[v]
				require.False(t, dup, "duplicate value %q", v)
				seen[v] = struct{}{}
			}
		})
	}
}

func TestGetUUIDHasNoHyphens(t *testing.T) {
	id := random.GetUUID()
	require.Len(t, id, 32)
	require.NotContains(t, id, "-")
}

func TestRandRangeBounds(t *testing.T) {
	for range 1000 {
		n := random.RandRange(5, 10)
		require.GreaterOrEqual(t, n, 5)
		require.Less(t, n, 10)
	}
}

type fixedSource struct{ next int }

func (f *fixedSource) Intn(n int) int {
	v := f.next % n
	f.next++
	return v
}

func TestChoice(t *testing.T) {
	items := []string{"a", "b", "c"}
	src := &fixedSource{}
	require.Equal(t, "a", random.Choice(src, items))
	require.Equal(t, "b", random.Choice(src, items))
	require.Equal(t, "c", random.Choice(src, items))
	require.Equal(t, "a", random.Choice(src, items))

	for range 100 {
		require.Contains(t, items, random.Choice[string](nil, items))
	}
}

func TestSeededSourceIsReproducible(t *testing.T) {
	a, b := random.NewSeededSource(42), random.NewSeededSource(42)
	for range 100 {
		x, y := a.Intn(1000), b.Intn(1000)
		require.Equal(t, x, y)
		require.GreaterOrEqual(t, x, 0)
		require.Less(t, x, 1000)
	}
}
