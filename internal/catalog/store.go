package catalog

import (
	"sort"
	"sync"

	"github.com/labassist/backend/internal/domain"
)

// Store holds the loaded descriptors keyed by name. Reloads upsert.
type Store struct {
	mu    sync.RWMutex
	items map[string]domain.SoftwareDescriptor
}

func NewStore() *Store {
	return &Store{items: make(map[string]domain.SoftwareDescriptor)}
}

// UpsertResult counts what a load changed.
type UpsertResult struct {
	Added     int      `json:"added"`
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Rejected  []string `json:"rejected,omitempty"`
}

func (s *Store) Upsert(descs ...domain.SoftwareDescriptor) UpsertResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res UpsertResult
	for _, d := range descs {
		old, ok := s.items[d.Name]
		switch {
		case !ok:
			res.Added++
		case equal(old, d):
			res.Unchanged++
		default:
			res.Updated++
		}
		s.items[d.Name] = d
	}
	return res
}

func (s *Store) Get(name string) (domain.SoftwareDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.items[name]
	return d, ok
}

// List returns descriptors sorted by name.
func (s *Store) List() []domain.SoftwareDescriptor {
	s.mu.RLock()
	out := make([]domain.SoftwareDescriptor, 0, len(s.items))
	for _, d := range s.items {
		out = append(out, d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// LoadFile reads path and upserts every valid entry.
func (s *Store) LoadFile(path string) (UpsertResult, error) {
	descs, rejects, err := ReadFile(path)
	if err != nil {
		return UpsertResult{}, err
	}
	res := s.Upsert(descs...)
	for _, r := range rejects {
		res.Rejected = append(res.Rejected, r.Error())
	}
	return res, nil
}

func equal(a, b domain.SoftwareDescriptor) bool {
	if a.Name != b.Name || a.Kind != b.Kind || a.Method != b.Method || a.Target != b.Target ||
		a.Source != b.Source || a.Platform != b.Platform || a.InstallMode != b.InstallMode ||
		a.MinVersion != b.MinVersion || a.SHA256 != b.SHA256 || len(a.InstallArgs) != len(b.InstallArgs) {
		return false
	}
	for i := range a.InstallArgs {
		if a.InstallArgs[i] != b.InstallArgs[i] {
			return false
		}
	}
	return true
}
