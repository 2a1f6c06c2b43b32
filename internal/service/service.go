// Package service implements the essay lifecycle: the session state
// machine, topic operations, and the background scoring job.
package service

import (
	"sync"

	"github.com/lingwo/essayd/internal/kvstore"
	"github.com/lingwo/essayd/internal/repository"
	"github.com/lingwo/essayd/internal/scoring"
	"github.com/lingwo/essayd/internal/topics"
)

type Service struct {
	store  repository.Store
	kv     *kvstore.Store
	scorer *scoring.Scorer
	topics *topics.Provider

	// scoring tracks in-flight background jobs so shutdown and tests can
	// wait for them.
	scoring sync.WaitGroup
}

// New creates the service.
func New(store repository.Store, kv *kvstore.Store, scorer *scoring.Scorer, topicProvider *topics.Provider) *Service {
	return &Service{
		store:  store,
		kv:     kv,
		scorer: scorer,
		topics: topicProvider,
	}
}

// WaitScoring blocks until all in-flight scoring jobs finish.
func (s *Service) WaitScoring() {
	s.scoring.Wait()
}
