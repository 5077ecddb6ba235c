// Package storage is the namespace persistence boundary: for a given
// knowledge-graph namespace it round-trips (catalog, rule source text,
// fact tables) to and from a badger.DB, following a tuned-Options,
// db.Update/db.View transactional badger idiom, generalized from a
// per-index EAVT key layout to a flat namespace-prefixed key space,
// since the core no longer indexes facts itself -- that is the
// dataflow generator's job at query time, not the storage layer's job
// at rest.
package storage

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/lumendb/datalogx/datalog"
)

// Store wraps a badger.DB holding every namespace's persisted state,
// keyed by "<namespace>:catalog", "<namespace>:rules" and
// "<namespace>:facts:<relation>".
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) a badger database at path, tuned
// for a read-heavy, small-value workload.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.MemTableSize = 128 << 20
	opts.BlockCacheSize = 256 << 20
	opts.IndexCacheSize = 100 << 20
	opts.DetectConflicts = false
	opts.NumCompactors = 4
	opts.ValueThreshold = 1 << 10

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Namespace is the unit Load/Save round-trips: a knowledge graph's
// relation schemas, the rule source text defining its IDB relations,
// and the current contents of every EDB relation's fact table.
type Namespace struct {
	Name    string
	Rules   string
	Schemas map[string]datalog.TupleSchema
	Facts   map[string][]datalog.Tuple
}

func catalogKey(namespace string) []byte { return []byte(namespace + ":catalog") }
func rulesKey(namespace string) []byte   { return []byte(namespace + ":rules") }
func factsKey(namespace, relation string) []byte {
	return []byte(namespace + ":facts:" + relation)
}
func factsPrefix(namespace string) []byte {
	return []byte(namespace + ":facts:")
}

// wireValue is the gob-serializable projection of a datalog.Value: the
// Value type itself keeps its fields unexported so the hot dataflow
// path never pays for a reflection-friendly layout, so the namespace
// snapshot envelope converts through this instead.
type wireValue struct {
	Kind datalog.Kind
	I    int64
	F    float64
	S    string
	Vec  []float32
	VI8  []int8
}

func encodeValue(v datalog.Value) wireValue {
	w := wireValue{Kind: v.Kind()}
	switch w.Kind {
	case datalog.KindInt32:
		i, _ := v.AsInt32()
		w.I = int64(i)
	case datalog.KindInt64:
		w.I, _ = v.AsInt64()
	case datalog.KindBool:
		b, _ := v.AsBool()
		if b {
			w.I = 1
		}
	case datalog.KindString:
		w.S, _ = v.AsString()
	case datalog.KindTimestamp:
		w.I, _ = v.AsTimestamp()
	case datalog.KindFloat64:
		w.F, _ = v.AsFloat64()
	case datalog.KindVector:
		vec, _ := v.AsVector()
		w.Vec = append([]float32(nil), vec...)
	case datalog.KindVectorInt8:
		vi8, _ := v.AsVectorInt8()
		w.VI8 = append([]int8(nil), vi8...)
	}
	return w
}

func decodeValue(w wireValue) datalog.Value {
	switch w.Kind {
	case datalog.KindInt32:
		return datalog.Int32(int32(w.I))
	case datalog.KindInt64:
		return datalog.Int64(w.I)
	case datalog.KindBool:
		return datalog.Bool(w.I != 0)
	case datalog.KindString:
		return datalog.String(w.S)
	case datalog.KindTimestamp:
		return datalog.Timestamp(w.I)
	case datalog.KindFloat64:
		return datalog.Float64(w.F)
	case datalog.KindVector:
		return datalog.Vector(w.Vec)
	case datalog.KindVectorInt8:
		return datalog.VectorInt8(w.VI8)
	default:
		return datalog.Null
	}
}

func encodeTuple(t datalog.Tuple) []wireValue {
	out := make([]wireValue, len(t))
	for i, v := range t {
		out[i] = encodeValue(v)
	}
	return out
}

func decodeTuple(w []wireValue) datalog.Tuple {
	out := make(datalog.Tuple, len(w))
	for i, v := range w {
		out[i] = decodeValue(v)
	}
	return out
}

func gobEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// SaveNamespace persists ns, replacing whatever was previously stored
// under ns.Name. Every write lands in a single badger transaction, so a
// crash mid-save leaves the previous snapshot intact rather than a
// half-written one.
func (s *Store) SaveNamespace(ns Namespace) error {
	catalogBytes, err := gobEncode(ns.Schemas)
	if err != nil {
		return fmt.Errorf("storage: encode catalog: %w", err)
	}
	rulesBytes, err := gobEncode(ns.Rules)
	if err != nil {
		return fmt.Errorf("storage: encode rules: %w", err)
	}

	factBlobs := make(map[string][]byte, len(ns.Facts))
	for relation, tuples := range ns.Facts {
		wire := make([][]wireValue, len(tuples))
		for i, t := range tuples {
			wire[i] = encodeTuple(t)
		}
		blob, err := gobEncode(wire)
		if err != nil {
			return fmt.Errorf("storage: encode facts for %q: %w", relation, err)
		}
		factBlobs[relation] = blob
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(catalogKey(ns.Name), catalogBytes); err != nil {
			return fmt.Errorf("storage: write catalog: %w", err)
		}
		if err := txn.Set(rulesKey(ns.Name), rulesBytes); err != nil {
			return fmt.Errorf("storage: write rules: %w", err)
		}
		if err := clearFacts(txn, ns.Name); err != nil {
			return err
		}
		for relation, blob := range factBlobs {
			if err := txn.Set(factsKey(ns.Name, relation), blob); err != nil {
				return fmt.Errorf("storage: write facts for %q: %w", relation, err)
			}
		}
		return nil
	})
}

// clearFacts deletes every "<namespace>:facts:*" key before a save
// rewrites the current relation set, so a relation dropped from ns
// since the last save does not linger as stale facts.
func clearFacts(txn *badger.Txn, namespace string) error {
	prefix := factsPrefix(namespace)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var stale [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		stale = append(stale, append([]byte(nil), it.Item().Key()...))
	}
	for _, key := range stale {
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("storage: clear stale facts: %w", err)
		}
	}
	return nil
}

// LoadNamespace reads back the (catalog, rules, fact tables) previously
// saved under name. A namespace with no saved catalog yet is reported
// as an empty Namespace rather than an error, the same "absent means
// fresh" convention a missing-key read typically uses.
func (s *Store) LoadNamespace(name string) (Namespace, error) {
	ns := Namespace{
		Name:    name,
		Schemas: make(map[string]datalog.TupleSchema),
		Facts:   make(map[string][]datalog.Tuple),
	}

	err := s.db.View(func(txn *badger.Txn) error {
		if item, err := txn.Get(catalogKey(name)); err == nil {
			if err := item.Value(func(val []byte) error {
				return gobDecode(val, &ns.Schemas)
			}); err != nil {
				return fmt.Errorf("storage: decode catalog: %w", err)
			}
		} else if err != badger.ErrKeyNotFound {
			return fmt.Errorf("storage: read catalog: %w", err)
		}

		if item, err := txn.Get(rulesKey(name)); err == nil {
			if err := item.Value(func(val []byte) error {
				return gobDecode(val, &ns.Rules)
			}); err != nil {
				return fmt.Errorf("storage: decode rules: %w", err)
			}
		} else if err != badger.ErrKeyNotFound {
			return fmt.Errorf("storage: read rules: %w", err)
		}

		prefix := factsPrefix(name)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			relation := string(key[len(prefix):])
			var wire [][]wireValue
			if err := it.Item().Value(func(val []byte) error {
				return gobDecode(val, &wire)
			}); err != nil {
				return fmt.Errorf("storage: decode facts for %q: %w", relation, err)
			}
			tuples := make([]datalog.Tuple, len(wire))
			for i, w := range wire {
				tuples[i] = decodeTuple(w)
			}
			ns.Facts[relation] = tuples
		}
		return nil
	})
	if err != nil {
		return Namespace{}, err
	}
	return ns, nil
}

// ListNamespaces returns the distinct namespace names with a saved
// catalog, by scanning the ":catalog" suffix rather than maintaining a
// separate index -- namespace count is expected to stay small enough
// that a full key scan is cheap.
func (s *Store) ListNamespaces() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		const suffix = ":catalog"
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if len(key) > len(suffix) && key[len(key)-len(suffix):] == suffix {
				names = append(names, key[:len(key)-len(suffix)])
			}
		}
		return nil
	})
	return names, err
}
