package policy

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"
)

//go:embed corpus.yaml
var embeddedCorpus []byte

// Source loads a policy corpus.
type Source interface {
	Load(ctx context.Context) (Corpus, error)
}

type EmbeddedSource struct{}

func (EmbeddedSource) Load(context.Context) (Corpus, error) {
	return ParseYAML(embeddedCorpus)
}

// DefaultCorpus returns the corpus compiled into the binary.
func DefaultCorpus() (Corpus, error) {
	return ParseYAML(embeddedCorpus)
}

type FileSource struct {
	Path string
}

func (s FileSource) Load(context.Context) (Corpus, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Corpus{}, fmt.Errorf("read policy corpus %s: %w", s.Path, err)
	}
	return ParseYAML(data)
}

// CachedSource loads once and serves the cached copy. Concurrent first loads
// share a single call to the underlying source.
type CachedSource struct {
	src   Source
	group singleflight.Group

	mu     sync.RWMutex
	corpus *Corpus
}

func NewCachedSource(src Source) *CachedSource {
	return &CachedSource{src: src}
}

func (s *CachedSource) Load(ctx context.Context) (Corpus, error) {
	s.mu.RLock()
	cached := s.corpus
	s.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	v, err, _ := s.group.Do("corpus", func() (any, error) {
		corpus, err := s.src.Load(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.corpus = &corpus
		s.mu.Unlock()
		return corpus, nil
	})
	if err != nil {
		return Corpus{}, err
	}
	return v.(Corpus), nil
}

// Invalidate drops the cached corpus so the next Load reads the source again.
func (s *CachedSource) Invalidate() {
	s.mu.Lock()
	s.corpus = nil
	s.mu.Unlock()
}
