package jobs

import (
	"errors"
	"sync"
)

// DefaultCapacity is the number of job slots when none is configured.
const DefaultCapacity = 100

var (
	ErrFull      = errors.New("job table full")
	ErrInvalidID = errors.New("invalid job id")
	ErrOccupied  = errors.New("job slot occupied")
)

// Registry is a fixed-capacity slot table. Job ids are 1-based slot indexes;
// a freed slot is handed out again by the next allocation that reaches it,
// so ids are always the lowest free ones.
//
// Every multi-step mutation (allocate+insert, remove) happens under one lock
// acquisition. Callers never observe a half-updated slot.
type Registry struct {
	mu    sync.Mutex
	slots []*Job
}

// NewRegistry returns an empty registry with the given number of slots.
func NewRegistry(capacity int) *Registry {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Registry{slots: make([]*Job, capacity)}
}

// Cap returns the number of slots.
func (r *Registry) Cap() int {
	return len(r.slots)
}

// Len returns the number of live jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, j := range r.slots {
		if j != nil {
			n++
		}
	}
	return n
}

// ValidID reports whether id is within the slot range.
func (r *Registry) ValidID(id int) bool {
	return id >= 1 && id <= len(r.slots)
}

// Allocate returns the lowest free id without claiming it.
func (r *Registry) Allocate() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocateLocked()
}

func (r *Registry) allocateLocked() (int, error) {
	for i, j := range r.slots {
		if j == nil {
			return i + 1, nil
		}
	}
	return 0, ErrFull
}

// Insert places job in slot id.
func (r *Registry) Insert(id int, job *Job) error {
	if !r.ValidID(id) {
		return ErrInvalidID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slots[id-1] != nil {
		return ErrOccupied
	}
	job.ID = id
	r.slots[id-1] = job
	return nil
}

// Add allocates the lowest free id and inserts job there in a single
// critical section. It returns ErrFull when every slot is taken; existing
// jobs are left untouched.
func (r *Registry) Add(job *Job) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, err := r.allocateLocked()
	if err != nil {
		return 0, err
	}
	job.ID = id
	r.slots[id-1] = job
	return id, nil
}

// Remove frees slot id and releases the job's resources. It reports whether
// a job was present; removing an empty slot is not an error.
func (r *Registry) Remove(id int) bool {
	if !r.ValidID(id) {
		return false
	}
	r.mu.Lock()
	job := r.slots[id-1]
	r.slots[id-1] = nil
	r.mu.Unlock()
	if job == nil {
		return false
	}
	job.drop()
	return true
}

// Get returns a snapshot of the job in slot id.
func (r *Registry) Get(id int) (Job, bool) {
	if !r.ValidID(id) {
		return Job{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if j := r.slots[id-1]; j != nil {
		return *j, true
	}
	return Job{}, false
}

// FindByPID returns the id of the job whose process id is pid.
func (r *Registry) FindByPID(pid int) (int, bool) {
	if pid <= 0 {
		return 0, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(pid)
}

func (r *Registry) findLocked(pid int) (int, bool) {
	for i, j := range r.slots {
		if j != nil && j.PID == pid {
			return i + 1, true
		}
	}
	return 0, false
}

// Update applies fn to the job in slot id under the registry lock.
func (r *Registry) Update(id int, fn func(*Job)) bool {
	if !r.ValidID(id) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.slots[id-1]
	if j == nil {
		return false
	}
	fn(j)
	return true
}

// UpdateByPID applies fn to the job whose process id is pid and returns the
// resulting snapshot.
func (r *Registry) UpdateByPID(pid int, fn func(*Job)) (Job, bool) {
	if pid <= 0 {
		return Job{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.findLocked(pid)
	if !ok {
		return Job{}, false
	}
	j := r.slots[id-1]
	fn(j)
	return *j, true
}

// Each calls fn with a snapshot of every live job in ascending id order.
// The snapshot is taken up front, so fn may call back into the registry.
func (r *Registry) Each(fn func(Job)) {
	r.mu.Lock()
	snapshot := make([]Job, 0, len(r.slots))
	for _, j := range r.slots {
		if j != nil {
			snapshot = append(snapshot, *j)
		}
	}
	r.mu.Unlock()
	for _, j := range snapshot {
		fn(j)
	}
}

// Clear removes every job, releasing each one.
func (r *Registry) Clear() {
	r.mu.Lock()
	dropped := make([]*Job, 0, len(r.slots))
	for i, j := range r.slots {
		if j != nil {
			dropped = append(dropped, j)
			r.slots[i] = nil
		}
	}
	r.mu.Unlock()
	for _, j := range dropped {
		j.drop()
	}
}
