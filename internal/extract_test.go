package internal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioDiff = "M\tsrc/app/a.go\nD\tsrc/app/b.go\nR087\told/c.go\tsrc/app/c.go\nR100\told/d.go\tsrc/app/d.go"

func TestExtractSingleCommit(t *testing.T) {
	backend := newFakeBackend()
	backend.diffs["abc123"] = scenarioDiff

	cs, failed := NewExtractor(backend, nil, 0).Extract(context.Background(), "/repo", []string{"abc123"})
	assert.Empty(t, failed)
	assert.Equal(t, []string{"src/app/a.go", "src/app/c.go"}, cs.Sorted())
}

func TestExtractRangeDiffsResolvedEnds(t *testing.T) {
	backend := newFakeBackend()
	backend.ancestors[[2]string{"v1", "v2"}] = true
	backend.diffs["v1..v2"] = "M\tcumulative.go\n"

	cs, failed := NewExtractor(backend, nil, 0).Extract(context.Background(), "/repo", []string{"v2..v1"})
	assert.Empty(t, failed)
	assert.Equal(t, []string{"cumulative.go"}, cs.Sorted())
	assert.Contains(t, backend.calls, "diff v1..v2")
}

func TestExtractWorkingTreeWithoutSpecs(t *testing.T) {
	backend := newFakeBackend()
	backend.status = "M\tdirty.go\nA\tnew.go\nD\tgone.go\n"

	cs, failed := NewExtractor(backend, nil, 0).Extract(context.Background(), "/repo", nil)
	assert.Empty(t, failed)
	assert.Equal(t, []string{"dirty.go", "new.go"}, cs.Sorted())
	assert.Equal(t, []string{"status"}, backend.calls)
}

func TestExtractWorkingTreeFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.statusErr = &QueryError{Op: "git", Err: ErrBackendUnavailable}

	cs, failed := NewExtractor(backend, nil, 0).Extract(context.Background(), "/repo", nil)
	assert.Empty(t, cs)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0], ErrBackendUnavailable)
}

func TestExtractEmptyRange(t *testing.T) {
	backend := newFakeBackend()

	cs, failed := NewExtractor(backend, nil, 0).Extract(context.Background(), "/repo", []string{".."})
	assert.Empty(t, failed)
	assert.Empty(t, cs)
	assert.Empty(t, backend.calls)
}

func TestExtractUnionIsCommutativeAndIdempotent(t *testing.T) {
	backend := newFakeBackend()
	backend.diffs["s1"] = "M\ta.go\nM\tshared.go\n"
	backend.diffs["s2"] = "A\tb.go\nM\tshared.go\nD\ta.go\n"
	ex := NewExtractor(backend, nil, 2)
	ctx := context.Background()

	forward, _ := ex.Extract(ctx, "/repo", []string{"s1", "s2"})
	backward, _ := ex.Extract(ctx, "/repo", []string{"s2", "s1"})
	assert.Equal(t, forward.Sorted(), backward.Sorted())
	// a deletion in one commit does not remove a path another commit changed
	assert.Equal(t, []string{"a.go", "b.go", "shared.go"}, forward.Sorted())

	once, _ := ex.Extract(ctx, "/repo", []string{"s1"})
	twice, _ := ex.Extract(ctx, "/repo", []string{"s1", "s1"})
	assert.Equal(t, once.Sorted(), twice.Sorted())
}

func TestExtractIsolatesFailures(t *testing.T) {
	backend := newFakeBackend()
	backend.diffs["good"] = "M\tok.go\n"
	backend.diffs["garbled"] = "R050\tonly-old\n"
	backend.diffErrs["gone"] = &QueryError{Op: "git", Err: ErrBackendUnavailable}

	cs, failed := NewExtractor(backend, nil, 0).Extract(context.Background(), "/repo",
		[]string{"good", "missing", "garbled", "gone", "a..b..c"})

	assert.Equal(t, []string{"ok.go"}, cs.Sorted())
	require.Len(t, failed, 4)

	bySpec := map[string]error{}
	for _, err := range failed {
		var se *SpecError
		require.True(t, errors.As(err, &se))
		bySpec[se.Spec] = se.Err
	}
	assert.ErrorIs(t, bySpec["missing"], ErrBackendQueryFailed)
	assert.ErrorIs(t, bySpec["garbled"], ErrMalformedDiff)
	assert.ErrorIs(t, bySpec["gone"], ErrBackendUnavailable)
	assert.ErrorIs(t, bySpec["a..b..c"], ErrInvalidSpecifier)
}

func TestExtractStopsOnCancelledContextPerSpec(t *testing.T) {
	backend := newFakeBackend()
	backend.diffs["good"] = "M\tok.go\n"
	backend.diffErrs["slow"] = context.Canceled

	cs, failed := NewExtractor(backend, nil, 1).Extract(context.Background(), "/repo", []string{"slow", "good"})
	assert.Equal(t, []string{"ok.go"}, cs.Sorted())
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0], context.Canceled)
}
