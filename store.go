package fakeprod

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/tomhaynes/fakeprod/filter"
)

// Attributes stored as integers when their CSV field parses as one. Matches
// the column types of the original user dataset.
var integerAttributes = map[string]bool{
	"uidnumber":          true,
	"gidnumber":          true,
	"useraccountcontrol": true,
}

// multiValueSeparator joins list attributes such as memberOf in CSV fields.
const multiValueSeparator = ";"

// UserStore is the in-memory record collection the filter engine scans.
// Writers take the exclusive lock; readers work on snapshots, so a scan never
// observes a concurrent mutation.
type UserStore struct {
	mu    sync.RWMutex
	users []filter.Record
}

// NewUserStore creates an empty store.
func NewUserStore() *UserStore {
	return &UserStore{}
}

// LoadCSV seeds the store from a CSV file whose first row names the
// attributes. Loaded records are appended to any existing ones.
func (s *UserStore) LoadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open users csv %s", path)
	}
	defer f.Close()

	records, err := readUsersCSV(f)
	if err != nil {
		return errors.Wrapf(err, "read users csv %s", path)
	}

	s.mu.Lock()
	s.users = append(s.users, records...)
	s.mu.Unlock()
	return nil
}

func readUsersCSV(r io.Reader) ([]filter.Record, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []filter.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rec := make(filter.Record, len(header))
		for i, name := range header {
			if i >= len(row) {
				break
			}
			rec[name] = csvValue(name, row[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

// csvValue types a raw CSV field: memberOf becomes a list, the known integer
// columns become integers (empty or malformed fields become 0, as the
// original dataset loader did), everything else stays a string.
func csvValue(attribute, raw string) filter.Value {
	lower := strings.ToLower(attribute)
	if lower == "memberof" {
		var groups []string
		for _, g := range strings.Split(raw, multiValueSeparator) {
			if g = strings.TrimSpace(g); g != "" {
				groups = append(groups, g)
			}
		}
		return filter.ListValue(groups...)
	}
	if integerAttributes[lower] {
		n, err := cast.ToInt64E(strings.TrimSpace(raw))
		if err != nil {
			n = 0
		}
		return filter.IntValue(n)
	}
	return filter.StringValue(raw)
}

// All returns a snapshot of every record in insertion order.
func (s *UserStore) All() []filter.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]filter.Record, len(s.users))
	copy(snapshot, s.users)
	return snapshot
}

// Len returns the number of records.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Get looks up a user by sAMAccountName, case-insensitively.
func (s *UserStore) Get(name string) (filter.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.users {
		if v, ok := rec.Get("sAMAccountName"); ok && strings.EqualFold(v.String(), name) {
			return rec, true
		}
	}
	return nil, false
}

// Search parses filterStr and returns the matching records in store order.
// An empty filter matches everything. A syntax error surfaces as the filter
// package's *ParseError.
func (s *UserStore) Search(filterStr string) ([]filter.Record, error) {
	trimmed := strings.TrimSpace(filterStr)
	if trimmed == "" {
		return s.All(), nil
	}
	node, err := filter.Parse(trimmed)
	if err != nil {
		return nil, err
	}
	return filter.FilterRecords(node, s.All()), nil
}

// Create inserts a record, replacing any existing record with the same dn.
// The record must carry non-empty dn and sAMAccountName attributes.
func (s *UserStore) Create(rec filter.Record) error {
	dn, ok := rec.Get("dn")
	if !ok || dn.IsEmpty() {
		return errors.New("record requires a dn attribute")
	}
	if v, ok := rec.Get("sAMAccountName"); !ok || v.IsEmpty() {
		return errors.New("record requires a sAMAccountName attribute")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.users {
		if v, ok := existing.Get("dn"); ok && strings.EqualFold(v.String(), dn.String()) {
			s.users[i] = rec
			return nil
		}
	}
	s.users = append(s.users, rec)
	return nil
}
