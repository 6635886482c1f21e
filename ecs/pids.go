package ecs

import (
	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
)

// pidTable is the bidirectional map between entity ids and persistent ids.
type pidTable struct {
	byPid *intmap.Map[int64, EntityId]
	pids  []int64
	next  int64
}

func newPidTable(capacity int) *pidTable {
	return &pidTable{
		byPid: intmap.New[int64, EntityId](capacity),
		pids:  make([]int64, 0, capacity+1),
		next:  1,
	}
}

// assign maps id to pid, or to the next free sequential pid when pid is 0.
func (t *pidTable) assign(id EntityId, pid int64) {
	if pid == 0 {
		for t.byPid.Has(t.next) {
			t.next++
		}
		pid = t.next
		t.next++
	}
	for int(id) >= len(t.pids) {
		t.pids = append(t.pids, 0)
	}
	t.pids[id] = pid
	t.byPid.Put(pid, id)
}

func (t *pidTable) release(id EntityId) {
	if int(id) >= len(t.pids) {
		return
	}
	if pid := t.pids[id]; pid != 0 {
		t.byPid.Del(pid)
		t.pids[id] = 0
	}
}

// PidOf returns the persistent id of a live entity.
func (s *Store) PidOf(id EntityId) (int64, error) {
	if s.pids == nil {
		return 0, eris.Wrap(ErrPersistentIdsDisabled, "")
	}
	if _, err := s.lookup(id); err != nil {
		return 0, err
	}
	return s.pids.pids[id], nil
}

// EntityByPid resolves a persistent id to the entity currently holding it.
func (s *Store) EntityByPid(pid int64) (EntityId, error) {
	if s.pids == nil {
		return InvalidEntity, eris.Wrap(ErrPersistentIdsDisabled, "")
	}
	id, ok := s.pids.byPid.Get(pid)
	if !ok {
		return InvalidEntity, eris.Wrapf(ErrPidNotFound, "pid %d", pid)
	}
	return id, nil
}
