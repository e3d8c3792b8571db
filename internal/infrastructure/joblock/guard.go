package joblock

import (
	"fmt"
	"sync"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
)

// Guard is the process-wide single-flight lock for named jobs. A second
// TryAcquire while the job is held is refused immediately; there is no
// queueing.
type Guard struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewGuard() *Guard {
	return &Guard{held: make(map[string]bool)}
}

// TryAcquire returns a release function on success. The release function is
// safe to call more than once; only the first call frees the job.
func (g *Guard) TryAcquire(job string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held[job] {
		return nil, domain.WrapError(domain.ErrLoadInProgress, "acquire job lock", fmt.Errorf("job %q is held", job))
	}
	g.held[job] = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.held, job)
		})
	}
	return release, nil
}
