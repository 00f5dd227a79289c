package model

// RecordSet accumulates records keyed by their dedupe key.
// A later record with the same key replaces the earlier one but keeps the
// position of the first insertion, so iteration order is stable.
//
// RecordSet is not safe for concurrent use; each crawl owns its own set.
type RecordSet struct {
	index   map[string]int
	records []SearchRecord
}

// NewRecordSet returns an empty RecordSet.
func NewRecordSet() *RecordSet {
	return &RecordSet{
		index:   make(map[string]int),
		records: make([]SearchRecord, 0),
	}
}

// Add inserts or replaces r. It returns false when r has no dedupe key
// and was therefore not admitted.
func (s *RecordSet) Add(r SearchRecord) bool {
	key := r.DedupeKey()
	if key == "" {
		return false
	}
	if i, ok := s.index[key]; ok {
		s.records[i] = r
		return true
	}
	s.index[key] = len(s.records)
	s.records = append(s.records, r)
	return true
}

// Len returns the number of distinct dedupe keys.
func (s *RecordSet) Len() int {
	return len(s.records)
}

// Get returns the record stored under key.
func (s *RecordSet) Get(key string) (SearchRecord, bool) {
	i, ok := s.index[key]
	if !ok {
		return SearchRecord{}, false
	}
	return s.records[i], true
}

// Records returns a copy of the accumulated records.
func (s *RecordSet) Records() []SearchRecord {
	out := make([]SearchRecord, len(s.records))
	copy(out, s.records)
	return out
}
