package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/ZanzyTHEbar/virtualtools"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

var errUnreadablePlan = errors.New("cached plan is not a list of tool calls with numeric arguments")

// DefaultPath is the cache location used when none is configured.
const DefaultPath = "virtual_tools.json"

// FilePlanStore is a PlanStore mirrored to a single JSON object on any afs
// backed location (local path, file://, mem://, gs://, s3://).
//
// The whole mapping is loaded once at construction and rewritten in full on
// every insert. A missing or unparseable file yields an empty store. Entries
// whose plan cannot be decoded are kept verbatim and written back unchanged;
// Get reports them as cache errors. Concurrent processes sharing one file can
// lose updates.
type FilePlanStore struct {
	store    map[string]virtualtools.Plan
	raw      map[string]json.RawMessage // undecodable entries, keyed by question
	mutex    sync.RWMutex
	location string
	fs       afs.Service
	logger   Logger
}

// FileOption configures a FilePlanStore.
type FileOption func(*FilePlanStore)

// WithLogger sets the structured logger.
func WithLogger(logger Logger) FileOption {
	return func(s *FilePlanStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFileSystem overrides the afs service.
func WithFileSystem(fs afs.Service) FileOption {
	return func(s *FilePlanStore) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// NewFilePlanStore creates a store backed by location and loads its contents.
func NewFilePlanStore(ctx context.Context, location string, options ...FileOption) *FilePlanStore {
	if location == "" {
		location = DefaultPath
	}
	s := &FilePlanStore{
		store:    make(map[string]virtualtools.Plan),
		raw:      make(map[string]json.RawMessage),
		location: url.Normalize(location, file.Scheme),
		fs:       afs.New(),
		logger:   nopLogger{},
	}
	for _, option := range options {
		option(s)
	}
	s.loadFromFile(ctx)
	return s
}

// Location returns the normalized URL of the backing file.
func (s *FilePlanStore) Location() string {
	return s.location
}

// loadFromFile loads the mapping. Absence or a file that is not a JSON object
// leaves the store empty. Each entry is decoded on its own.
func (s *FilePlanStore) loadFromFile(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	exists, err := s.fs.Exists(ctx, s.location)
	if err != nil || !exists {
		s.logger.Info("Plan cache file not found, starting empty", map[string]interface{}{"location": s.location})
		return
	}
	data, err := s.fs.DownloadWithURL(ctx, s.location)
	if err != nil {
		s.logger.Error("Failed to read plan cache file, starting empty", map[string]interface{}{"location": s.location, "error": err.Error()})
		return
	}
	entries := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Error("Plan cache file is corrupt, starting empty", map[string]interface{}{"location": s.location, "error": err.Error()})
		return
	}
	for question, entry := range entries {
		var plan virtualtools.Plan
		if err := json.Unmarshal(entry, &plan); err != nil {
			s.logger.Error("Cached plan is unreadable, keeping it as is", map[string]interface{}{"location": s.location, "question": question, "error": err.Error()})
			s.raw[question] = entry
			continue
		}
		s.store[question] = plan
	}
	s.logger.Info("Plan cache loaded", map[string]interface{}{"location": s.location, "entries": len(s.store), "unreadable": len(s.raw)})
}

// saveToFile rewrites the full mapping. Caller must hold the write lock.
func (s *FilePlanStore) saveToFile(ctx context.Context) error {
	entries := make(map[string]json.RawMessage, len(s.store)+len(s.raw))
	for question, entry := range s.raw {
		entries[question] = entry
	}
	for question, plan := range s.store {
		encoded, err := json.Marshal(plan)
		if err != nil {
			return virtualtools.NewCacheError("persistence", "encode", err)
		}
		entries[question] = encoded
	}
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return virtualtools.NewCacheError("persistence", "encode", err)
	}
	if parent, _ := url.Split(s.location, file.Scheme); parent != "" {
		if ok, _ := s.fs.Exists(ctx, parent); !ok {
			if err := s.fs.Create(ctx, parent, file.DefaultDirOsMode, true); err != nil {
				return virtualtools.NewCacheError("persistence", "mkdir", err)
			}
		}
	}
	if err := s.fs.Upload(ctx, s.location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return virtualtools.NewCacheError("persistence", "write", err)
	}
	return nil
}

// Exists reports whether question has a cached plan.
func (s *FilePlanStore) Exists(ctx context.Context, question string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.has(question)
}

// has reports whether question is present, readable or not. Caller must hold the lock.
func (s *FilePlanStore) has(question string) bool {
	if _, found := s.store[question]; found {
		return true
	}
	_, found := s.raw[question]
	return found
}

// Get retrieves a copy of the cached plan for question.
func (s *FilePlanStore) Get(ctx context.Context, question string) (virtualtools.Plan, error) {
	if err := errbuilder.WrapIfContextDone(ctx, ctx.Err()); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if _, unreadable := s.raw[question]; unreadable {
		return nil, virtualtools.NewCacheError("lookup", "decode", errUnreadablePlan)
	}
	plan, found := s.store[question]
	if !found {
		return nil, errbuilder.NotFoundErr(errbuilder.GenericErr("cached plan not found", nil))
	}
	return plan.Clone(), nil
}

// Add inserts plan under question unless the key already exists, then
// rewrites the file. An existing key leaves both the entry and the file
// untouched. When the write fails the entry is dropped again and the error is
// returned.
func (s *FilePlanStore) Add(ctx context.Context, question string, plan virtualtools.Plan) (bool, error) {
	if err := errbuilder.WrapIfContextDone(ctx, ctx.Err()); err != nil {
		return false, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.has(question) {
		return false, nil
	}
	s.store[question] = plan.Clone()
	if err := s.saveToFile(ctx); err != nil {
		delete(s.store, question)
		s.logger.Error("Failed to persist plan cache", map[string]interface{}{"location": s.location, "question": question, "error": err.Error()})
		return false, err
	}
	s.logger.Info("Plan cached", map[string]interface{}{"question": question, "steps": len(plan)})
	return true, nil
}

// Questions returns the cached questions in sorted order.
func (s *FilePlanStore) Questions(ctx context.Context) []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	questions := sortedKeys(s.store)
	for question := range s.raw {
		questions = append(questions, question)
	}
	sort.Strings(questions)
	return questions
}
