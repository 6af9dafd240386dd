package operations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adshub/internal/operations"
	"adshub/internal/operations/testutil"
)

func stageIDs(steps []operations.Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	return ids
}

func TestRegistryRegister(t *testing.T) {
	r := operations.NewRegistry()
	assert.Equal(t, 0, r.Count())
	assert.NotNil(t, r.List())

	s1 := testutil.CreateSuccessfulStage("a", "A")
	s2 := testutil.CreateSuccessfulStage("b", "B")
	require.NoError(t, r.Register(s1))
	require.NoError(t, r.Register(s2))

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, s1, got)
	assert.True(t, r.Has("b"))
	assert.False(t, r.Has("c"))
	assert.Equal(t, []string{"a", "b"}, r.ListIDs())
	assert.Equal(t, 2, r.Count())
}

func TestRegistryRegisterErrors(t *testing.T) {
	r := operations.NewRegistry()

	assert.ErrorContains(t, r.Register(nil), "nil stage")
	assert.ErrorContains(t, r.Register(&testutil.MockStage{NameValue: "empty"}), "cannot be empty")

	s := testutil.CreateSuccessfulStage("dup", "Dup")
	require.NoError(t, r.Register(s))
	assert.ErrorContains(t, r.Register(s), "already registered")

	_, err := r.Get("missing")
	assert.ErrorContains(t, err, "not found")
}

func TestRegistryDependencyOrder(t *testing.T) {
	tests := []struct {
		name   string
		stages []*testutil.MockStage
		want   []string
	}{
		{
			name: "pipeline chain registered backwards",
			stages: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("master", "Master", "standardize"),
				testutil.CreateSuccessfulStage("standardize", "Standardize", "merge"),
				testutil.CreateSuccessfulStage("merge", "Merge"),
			},
			want: []string{"merge", "standardize", "master"},
		},
		{
			name: "fan out keeps registration order",
			stages: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("rolling", "Rolling"),
				testutil.CreateSuccessfulStage("persist", "Persist", "rolling"),
				testutil.CreateSuccessfulStage("publish", "Publish", "rolling"),
			},
			want: []string{"rolling", "persist", "publish"},
		},
		{
			name: "independent stages",
			stages: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("x", "X"),
				testutil.CreateSuccessfulStage("y", "Y"),
			},
			want: []string{"x", "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := operations.NewRegistry()
			for _, s := range tt.stages {
				require.NoError(t, r.Register(s))
			}
			order, err := r.GetDependencyOrder()
			require.NoError(t, err)
			assert.Equal(t, tt.want, stageIDs(order))
			assert.NoError(t, r.ValidateDependencies())
		})
	}
}

func TestRegistryDependencyErrors(t *testing.T) {
	t.Run("missing dependency", func(t *testing.T) {
		r := operations.NewRegistry()
		require.NoError(t, r.Register(testutil.CreateSuccessfulStage("a", "A", "ghost")))
		assert.ErrorContains(t, r.ValidateDependencies(), "ghost")
	})

	t.Run("cycle", func(t *testing.T) {
		r := operations.NewRegistry()
		require.NoError(t, r.Register(testutil.CreateSuccessfulStage("a", "A", "b")))
		require.NoError(t, r.Register(testutil.CreateSuccessfulStage("b", "B", "a")))
		_, err := r.GetDependencyOrder()
		assert.ErrorContains(t, err, "cycle")
	})
}

func TestRegistryGetDependents(t *testing.T) {
	r := operations.NewRegistry()
	require.NoError(t, r.Register(testutil.CreateSuccessfulStage("rolling", "Rolling")))
	require.NoError(t, r.Register(testutil.CreateSuccessfulStage("persist", "Persist", "rolling")))
	require.NoError(t, r.Register(testutil.CreateSuccessfulStage("publish", "Publish", "rolling")))

	assert.Equal(t, []string{"persist", "publish"}, stageIDs(r.GetDependents("rolling")))
	assert.Empty(t, r.GetDependents("publish"))
}
