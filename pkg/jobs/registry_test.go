package jobs_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/go-jobsh/pkg/jobs"
)

func TestAddUsesLowestFreeID(t *testing.T) {
	r := jobs.NewRegistry(4)

	for want := 1; want <= 3; want++ {
		id, err := r.Add(jobs.New([]string{"sleep", "1"}, jobs.Background))
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	require.True(t, r.Remove(2))
	id, err := r.Add(jobs.New([]string{"true"}, jobs.Background))
	require.NoError(t, err)
	assert.Equal(t, 2, id, "freed slot must be reused first")

	id, err = r.Add(jobs.New([]string{"true"}, jobs.Background))
	require.NoError(t, err)
	assert.Equal(t, 4, id)
}

func TestAddFullLeavesJobsUntouched(t *testing.T) {
	r := jobs.NewRegistry(2)
	for i := 0; i < 2; i++ {
		j := jobs.New([]string{"job"}, jobs.Background)
		_, err := r.Add(j)
		require.NoError(t, err)
		r.Update(j.ID, func(j *jobs.Job) { j.PID = 100 + j.ID })
	}

	_, err := r.Add(jobs.New([]string{"extra"}, jobs.Background))
	require.ErrorIs(t, err, jobs.ErrFull)
	_, err = r.Allocate()
	require.ErrorIs(t, err, jobs.ErrFull)

	assert.Equal(t, 2, r.Len())
	for id := 1; id <= 2; id++ {
		j, ok := r.Get(id)
		require.True(t, ok)
		assert.Equal(t, 100+id, j.PID)
		assert.Equal(t, []string{"job"}, j.Args)
	}
}

func TestInsert(t *testing.T) {
	r := jobs.NewRegistry(3)

	id, err := r.Allocate()
	require.NoError(t, err)
	require.Equal(t, 1, id)

	require.NoError(t, r.Insert(id, jobs.New([]string{"a"}, jobs.Foreground)))
	assert.ErrorIs(t, r.Insert(id, jobs.New([]string{"b"}, jobs.Foreground)), jobs.ErrOccupied)
	assert.ErrorIs(t, r.Insert(0, jobs.New([]string{"c"}, jobs.Foreground)), jobs.ErrInvalidID)
	assert.ErrorIs(t, r.Insert(4, jobs.New([]string{"c"}, jobs.Foreground)), jobs.ErrInvalidID)

	j, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, 1, j.ID)
	assert.Equal(t, jobs.StatusRunning, j.Status)
}

func TestFindAndUpdateByPID(t *testing.T) {
	r := jobs.NewRegistry(5)
	j := jobs.New([]string{"sleep", "100"}, jobs.Background)
	id, err := r.Add(j)
	require.NoError(t, err)
	r.Update(id, func(j *jobs.Job) { j.PID = 4321 })

	got, ok := r.FindByPID(4321)
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = r.FindByPID(1)
	assert.False(t, ok)
	_, ok = r.FindByPID(0)
	assert.False(t, ok)

	snap, ok := r.UpdateByPID(4321, func(j *jobs.Job) { j.Status = jobs.StatusStopped })
	require.True(t, ok)
	assert.Equal(t, jobs.StatusStopped, snap.Status)

	_, ok = r.UpdateByPID(999, func(j *jobs.Job) { t.Fatal("must not be called") })
	assert.False(t, ok)
}

func TestRemoveReleasesOnce(t *testing.T) {
	r := jobs.NewRegistry(2)
	j := jobs.New([]string{"cat"}, jobs.Background)
	calls := 0
	j.OnRelease(func() { calls++ })
	id, err := r.Add(j)
	require.NoError(t, err)

	assert.True(t, r.Remove(id))
	assert.False(t, r.Remove(id), "second removal is a no-op")
	assert.False(t, r.Remove(42))
	assert.Equal(t, 1, calls)

	_, ok := r.Get(id)
	assert.False(t, ok)
}

func TestEachAscendingAndReentrant(t *testing.T) {
	r := jobs.NewRegistry(6)
	for i := 0; i < 5; i++ {
		_, err := r.Add(jobs.New([]string{"j"}, jobs.Background))
		require.NoError(t, err)
	}
	r.Remove(2)
	r.Remove(4)

	var seen []int
	r.Each(func(j jobs.Job) {
		seen = append(seen, j.ID)
		// Re-entering the registry from the visitor must not deadlock.
		r.Get(j.ID)
	})
	assert.Equal(t, []int{1, 3, 5}, seen)
}

func TestClear(t *testing.T) {
	r := jobs.NewRegistry(3)
	released := 0
	for i := 0; i < 3; i++ {
		j := jobs.New([]string{"j"}, jobs.Background)
		j.OnRelease(func() { released++ })
		_, err := r.Add(j)
		require.NoError(t, err)
	}
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 3, released)
}

func TestIDsUniqueUnderRandomChurn(t *testing.T) {
	const capacity = 8
	r := jobs.NewRegistry(capacity)
	rng := rand.New(rand.NewSource(1))
	live := map[int]bool{}

	for step := 0; step < 2000; step++ {
		if rng.Intn(2) == 0 {
			id, err := r.Add(jobs.New([]string{"x"}, jobs.Background))
			if len(live) == capacity {
				require.ErrorIs(t, err, jobs.ErrFull)
				continue
			}
			require.NoError(t, err)
			require.False(t, live[id], "id %d handed out twice", id)
			for lower := 1; lower < id; lower++ {
				require.True(t, live[lower], "id %d allocated while %d was free", id, lower)
			}
			live[id] = true
			continue
		}
		for id := range live {
			require.True(t, r.Remove(id))
			delete(live, id)
			break
		}
	}
	assert.Equal(t, len(live), r.Len())
	assert.LessOrEqual(t, r.Len(), r.Cap())
}

func TestJobString(t *testing.T) {
	tests := []struct {
		name string
		job  jobs.Job
		want string
	}{
		{
			name: "stopped_background",
			job:  jobs.Job{ID: 2, PID: 4321, Args: []string{"sleep", "100"}, Placement: jobs.Background, Status: jobs.StatusStopped},
			want: "[2] 4321 Stopped sleep 100 &",
		},
		{
			name: "running_foreground",
			job:  jobs.Job{ID: 1, PID: 77, Args: []string{"vi", "notes"}, Placement: jobs.Foreground, Status: jobs.StatusRunning},
			want: "[1] 77 Running vi notes",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.job.String())
		})
	}
}

func TestStatusDone(t *testing.T) {
	assert.False(t, jobs.StatusRunning.Done())
	assert.False(t, jobs.StatusStopped.Done())
	assert.True(t, jobs.StatusTerminated.Done())
	assert.True(t, jobs.StatusComplete.Done())
}
