package orchestrator

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shaiso/autoanalysis/internal/config"
	"github.com/shaiso/autoanalysis/internal/domain"
	"github.com/shaiso/autoanalysis/internal/engine"
)

// workDirAllocator выдаёт уникальные метки времени для work dir.
//
// Имя work dir имеет секундную точность, поэтому два Prepare одной пары
// (run, pipeline) в одну секунду получили бы один каталог. Под мьютексом
// пары метка сдвигается вперёд, пока имя не станет свободным.
//
// Запись пары живёт, пока на неё есть выданные и не освобождённые метки:
// каждый Allocate должен завершаться Release.
type workDirAllocator struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*allocation
}

type allocation struct {
	mu   sync.Mutex
	refs int
	last time.Time
}

func newWorkDirAllocator(now func() time.Time) *workDirAllocator {
	return &workDirAllocator{
		now:     now,
		entries: make(map[string]*allocation),
	}
}

func allocationKey(runID string, id domain.PipelineIdentity) string {
	return runID + "\x00" + id.ShortName()
}

func (a *workDirAllocator) acquire(key string) *allocation {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[key]
	if !ok {
		e = &allocation{}
		a.entries[key] = e
	}
	e.refs++
	return e
}

// Allocate возвращает метку времени, дающую ещё не занятое имя work dir.
func (a *workDirAllocator) Allocate(cfg *config.Config, runID string, id domain.PipelineIdentity) time.Time {
	e := a.acquire(allocationKey(runID, id))
	e.mu.Lock()
	defer e.mu.Unlock()

	ts := a.now().Truncate(time.Second)
	if !e.last.IsZero() && !ts.After(e.last) {
		ts = e.last.Add(time.Second)
	}

	for {
		dir := filepath.Join(cfg.AnalysisWorkDir, engine.WorkDirName(runID, id, ts))
		if _, err := os.Lstat(dir); os.IsNotExist(err) {
			break
		}
		ts = ts.Add(time.Second)
	}

	e.last = ts
	return ts
}

// Release освобождает метку, выданную Allocate. Когда выданных меток
// не остаётся, запись пары удаляется.
func (a *workDirAllocator) Release(runID string, id domain.PipelineIdentity) {
	key := allocationKey(runID, id)

	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(a.entries, key)
	}
}

// Len возвращает число отслеживаемых пар (run, pipeline).
func (a *workDirAllocator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
