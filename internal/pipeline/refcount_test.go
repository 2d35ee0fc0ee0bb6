package pipeline

import (
	"testing"

	"github.com/ridgerun/gstd/internal/returncode"
	"github.com/stretchr/testify/require"
)

func TestCreateRefBoundaryOnly(t *testing.T) {
	r := NewRefCounter()
	calls := 0
	create := func() returncode.Code { calls++; return returncode.OK }

	require.Equal(t, returncode.OK, r.CreateRef("p0", create))
	require.Equal(t, returncode.OK, r.CreateRef("p0", create))
	require.Equal(t, 1, calls)

	c, _ := r.Counts("p0")
	require.Equal(t, 2, c)
}

func TestCreateRefFailureLeavesNoTrace(t *testing.T) {
	r := NewRefCounter()
	create := func() returncode.Code { return returncode.BadDescription }

	require.Equal(t, returncode.BadDescription, r.CreateRef("p0", create))
	c, p := r.Counts("p0")
	require.Equal(t, 0, c)
	require.Equal(t, 0, p)
}

func TestPlayRefRequiresCreate(t *testing.T) {
	r := NewRefCounter()
	play := func() returncode.Code { return returncode.OK }
	require.Equal(t, returncode.NoPipeline, r.PlayRef("p0", play))
}

func TestPlayPauseBoundary(t *testing.T) {
	r := NewRefCounter()
	require.Equal(t, returncode.OK, r.CreateRef("p0", func() returncode.Code { return returncode.OK }))

	playCalls, pauseCalls := 0, 0
	play := func() returncode.Code { playCalls++; return returncode.OK }
	pause := func() returncode.Code { pauseCalls++; return returncode.OK }

	require.Equal(t, returncode.OK, r.PlayRef("p0", play))
	require.Equal(t, returncode.OK, r.PlayRef("p0", play))
	require.Equal(t, 1, playCalls)

	require.Equal(t, returncode.OK, r.PauseRef("p0", pause))
	require.Equal(t, 0, pauseCalls)
	require.Equal(t, returncode.OK, r.PauseRef("p0", pause))
	require.Equal(t, 1, pauseCalls)

	require.Equal(t, returncode.NoPipeline, r.PauseRef("p0", pause))
}

func TestDeleteRefBoundaryAndForgets(t *testing.T) {
	r := NewRefCounter()
	require.Equal(t, returncode.OK, r.CreateRef("p0", func() returncode.Code { return returncode.OK }))
	require.Equal(t, returncode.OK, r.CreateRef("p0", func() returncode.Code { return returncode.OK }))

	delCalls := 0
	del := func() returncode.Code { delCalls++; return returncode.OK }

	require.Equal(t, returncode.OK, r.DeleteRef("p0", del))
	require.Equal(t, 0, delCalls)
	require.Equal(t, returncode.OK, r.DeleteRef("p0", del))
	require.Equal(t, 1, delCalls)

	c, p := r.Counts("p0")
	require.Equal(t, 0, c)
	require.Equal(t, 0, p)

	require.Equal(t, returncode.NoPipeline, r.DeleteRef("p0", del))
}
