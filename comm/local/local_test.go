package local

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-eval/comm"
)

func TestNewGroup(t *testing.T) {
	comms, err := NewGroup(3)
	require.NoError(t, err)
	require.Len(t, comms, 3)
	for r, c := range comms {
		assert.Equal(t, r, c.Rank())
		assert.Equal(t, 3, c.Size())
	}

	_, err = NewGroup(0)
	assert.Error(t, err)
}

func TestBroadcast(t *testing.T) {
	comms, err := NewGroup(4)
	require.NoError(t, err)

	got := make([]interface{}, 4)
	var g errgroup.Group
	for r := 0; r < 4; r++ {
		r := r
		g.Go(func() error {
			var in interface{}
			if r == 0 {
				in = "payload"
			}
			v, err := comms[r].Broadcast(in)
			got[r] = v
			return err
		})
	}
	require.NoError(t, g.Wait())

	for r := 0; r < 4; r++ {
		assert.Equal(t, "payload", got[r])
	}
}

func TestGather(t *testing.T) {
	comms, err := NewGroup(3)
	require.NoError(t, err)

	results := make([][]interface{}, 3)
	var g errgroup.Group
	for r := 0; r < 3; r++ {
		r := r
		g.Go(func() error {
			out, err := comms[r].Gather(r * 10)
			results[r] = out
			return err
		})
	}
	require.NoError(t, g.Wait())

	// Only the root sees the gathered values, in ascending rank order.
	assert.Equal(t, []interface{}{0, 10, 20}, results[0])
	assert.Nil(t, results[1])
	assert.Nil(t, results[2])
}

func TestRepeatedCollectives(t *testing.T) {
	comms, err := NewGroup(2)
	require.NoError(t, err)

	var rootSaw [][]interface{}
	var g errgroup.Group
	for r := 0; r < 2; r++ {
		r := r
		g.Go(func() error {
			for round := 0; round < 3; round++ {
				v, err := comms[r].Broadcast(round)
				if err != nil {
					return err
				}
				out, err := comms[r].Gather(v.(int)*100 + r)
				if err != nil {
					return err
				}
				if r == 0 {
					rootSaw = append(rootSaw, out)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, rootSaw, 3)
	for round, out := range rootSaw {
		assert.Equal(t, []interface{}{round * 100, round*100 + 1}, out)
	}
}

func TestSingleRankGroup(t *testing.T) {
	comms, err := NewGroup(1)
	require.NoError(t, err)

	v, err := comms[0].Broadcast("x")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	out, err := comms[0].Gather("y")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"y"}, out)
}

func TestRoleOf(t *testing.T) {
	comms, err := NewGroup(2)
	require.NoError(t, err)

	assert.Equal(t, comm.RoleRoot, comm.RoleOf(nil))
	assert.Equal(t, comm.RoleRoot, comm.RoleOf(comms[0]))
	assert.Equal(t, comm.RoleWorker, comm.RoleOf(comms[1]))
	assert.False(t, comm.Distributed(nil))
	assert.True(t, comm.Distributed(comms[0]))

	single, err := NewGroup(1)
	require.NoError(t, err)
	assert.Equal(t, comm.RoleRoot, comm.RoleOf(single[0]))
	assert.False(t, comm.Distributed(single[0]))
}
