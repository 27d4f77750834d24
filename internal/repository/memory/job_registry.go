package memory

import (
	"time"

	"trade-intel-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// JobRegistry holds in-flight chat jobs. Jobs for anonymous users never
// touch persistent storage, so the registry is the only record of them.
type JobRegistry struct {
	cache *cache.Cache
}

func NewJobRegistry(retention time.Duration) *JobRegistry {
	// Purge expired jobs every few minutes; a job only needs to survive
	// slightly past its stream token expiry plus the job timeout.
	c := cache.New(retention, 5*time.Minute)
	return &JobRegistry{
		cache: c,
	}
}

func (r *JobRegistry) Save(job *entity.ChatJob) {
	r.cache.Set(job.Id.String(), job, cache.DefaultExpiration)
}

func (r *JobRegistry) Get(jobId uuid.UUID) (*entity.ChatJob, bool) {
	if x, found := r.cache.Get(jobId.String()); found {
		return x.(*entity.ChatJob), true
	}
	return nil, false
}

func (r *JobRegistry) Delete(jobId uuid.UUID) {
	r.cache.Delete(jobId.String())
}
