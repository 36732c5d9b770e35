package annostorage

import (
	"iter"
	"regexp"
	"sort"
	"strings"

	"github.com/korpling/graphannis-go/internal/keycodec"
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/symtab"
)

// matchingKeySyms resolves every interned key symbol matching key. A
// key with an empty namespace matches every namespace sharing its name,
// mirroring how a qualified-name-free search spans all layers.
func (s *Storage[I]) matchingKeySyms(key gmodel.AnnoKey) []symtab.Symbol {
	if key.Namespace != "" {
		if sym, ok := s.keys.GetSymbol(key); ok {
			return []symtab.Symbol{sym}
		}
		return nil
	}
	var syms []symtab.Symbol
	for _, qname := range s.qnameOrder {
		if qname.Name == key.Name {
			if sym, ok := s.keys.GetSymbol(qname); ok {
				syms = append(syms, sym)
			}
		}
	}
	return syms
}

// ExactAnnoSearch lazily yields every item annotated under key whose
// value matches search. Iteration stops as soon as the consumer stops
// pulling, without materializing the full result set.
func (s *Storage[I]) ExactAnnoSearch(key gmodel.AnnoKey, search ValueSearch) iter.Seq[AnnoMatch[I]] {
	return func(yield func(AnnoMatch[I]) bool) {
		s.mu.RLock()
		keySyms := s.matchingKeySyms(key)
		s.mu.RUnlock()

		for _, keySym := range keySyms {
			s.mu.RLock()
			resolvedKey, _ := s.keys.GetValue(keySym)
			s.mu.RUnlock()

			switch search.Kind {
			case Some:
				s.mu.RLock()
				valSym, ok := s.values.GetSymbol(search.Value)
				s.mu.RUnlock()
				if !ok {
					continue
				}
				prefix := s.byAnnoValuePrefix(keySym, valSym)
				stop := false
				_ = s.kv.Range(prefix, keycodec.PrefixUpperBound(prefix), func(k, _ []byte) (bool, error) {
					item := s.codec.Decode(k[len(prefix):])
					if !yield(AnnoMatch[I]{Item: item, Key: resolvedKey, Value: search.Value}) {
						stop = true
						return false, nil
					}
					return true, nil
				})
				if stop {
					return
				}
			default:
				prefix := s.byAnnoKeyPrefix(keySym)
				stop := false
				_ = s.kv.Range(prefix, keycodec.PrefixUpperBound(prefix), func(k, _ []byte) (bool, error) {
					rest := k[len(prefix):]
					valSym := symtab.Symbol(keycodec.DecodeUint32(rest))
					item := s.codec.Decode(rest[4:])
					s.mu.RLock()
					val, _ := s.values.GetValue(valSym)
					s.mu.RUnlock()
					if search.Kind == NotSome && val == search.Value {
						return true, nil
					}
					if !yield(AnnoMatch[I]{Item: item, Key: resolvedKey, Value: val}) {
						stop = true
						return false, nil
					}
					return true, nil
				})
				if stop {
					return
				}
			}
		}
	}
}

// RegexAnnoSearch lazily yields every item annotated under key whose
// value fully matches pattern.
func (s *Storage[I]) RegexAnnoSearch(key gmodel.AnnoKey, pattern string) (iter.Seq[AnnoMatch[I]], error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, err
	}
	return func(yield func(AnnoMatch[I]) bool) {
		for m := range s.ExactAnnoSearch(key, ValueSearch{Kind: Any}) {
			if re.MatchString(m.Value) {
				if !yield(m) {
					return
				}
			}
		}
	}, nil
}

// GetAllValues returns every distinct value interned under key, sorted.
func (s *Storage[I]) GetAllValues(key gmodel.AnnoKey) []string {
	s.mu.RLock()
	keySyms := s.matchingKeySyms(key)
	s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, keySym := range keySyms {
		prefix := s.byAnnoKeyPrefix(keySym)
		_ = s.kv.Range(prefix, keycodec.PrefixUpperBound(prefix), func(k, _ []byte) (bool, error) {
			valSym := symtab.Symbol(keycodec.DecodeUint32(k[len(prefix):]))
			s.mu.RLock()
			val, _ := s.values.GetValue(valSym)
			s.mu.RUnlock()
			if !seen[val] {
				seen[val] = true
				out = append(out, val)
			}
			return true, nil
		})
	}
	sort.Strings(out)
	return out
}

// Bucket is one histogram bar: the lexicographically smallest sampled
// value in the bucket's range, paired with how many sampled items fell
// into it.
type Bucket struct {
	Value string
	Count int64
}

// Statistics summarizes the value distribution for a single annotation
// key, binned into at most DefaultMaxBuckets buckets, for the planner's
// selectivity estimates. Every stored value is counted; no sampling
// bound is applied, so SampledCount is the full number of entries read.
type Statistics struct {
	Count         int64
	SampledCount  int64
	DistinctCount int64
	Buckets       []Bucket
}

// CalculateStatistics reads every value stored under key (it does not
// sample, and DefaultMaxSample is not applied) and bins the sorted
// distinct values into at most DefaultMaxBuckets buckets. Each bucket
// spans the same number of consecutive distinct values (the last one may
// span fewer); buckets are not balanced by item count.
func (s *Storage[I]) CalculateStatistics(key gmodel.AnnoKey) Statistics {
	s.mu.RLock()
	keySyms := s.matchingKeySyms(key)
	s.mu.RUnlock()

	var total int64
	valueCounts := make(map[string]int64)
	for _, keySym := range keySyms {
		s.mu.RLock()
		total += int64(s.keySizes[keySym])
		s.mu.RUnlock()

		prefix := s.byAnnoKeyPrefix(keySym)
		_ = s.kv.Range(prefix, keycodec.PrefixUpperBound(prefix), func(k, _ []byte) (bool, error) {
			rest := k[len(prefix):]
			valSym := symtab.Symbol(keycodec.DecodeUint32(rest))
			s.mu.RLock()
			val, _ := s.values.GetValue(valSym)
			s.mu.RUnlock()
			valueCounts[val]++
			return true, nil
		})
	}

	values := make([]string, 0, len(valueCounts))
	for v := range valueCounts {
		values = append(values, v)
	}
	sort.Strings(values)

	var sampled int64
	for _, v := range values {
		sampled += valueCounts[v]
	}

	stats := Statistics{Count: total, SampledCount: sampled, DistinctCount: int64(len(values))}
	if len(values) == 0 {
		return stats
	}

	numBuckets := len(values)
	if numBuckets > DefaultMaxBuckets {
		numBuckets = DefaultMaxBuckets
	}
	step := (len(values) + numBuckets - 1) / numBuckets
	for i := 0; i < len(values); i += step {
		var count int64
		end := i + step
		if end > len(values) {
			end = len(values)
		}
		for _, v := range values[i:end] {
			count += valueCounts[v]
		}
		stats.Buckets = append(stats.Buckets, Bucket{Value: values[i], Count: count})
	}
	return stats
}

// GuessMaxCount estimates how many items hold value under key, using the
// histogram built by CalculateStatistics. Per an explicit modeling
// decision, an estimate of zero is rounded up to one: an absent value
// still costs at least one probe to rule out, so treating it as
// impossible would make the planner overconfident.
func (s *Storage[I]) GuessMaxCount(key gmodel.AnnoKey, value string) int64 {
	stats := s.CalculateStatistics(key)
	if stats.SampledCount == 0 {
		return 1
	}
	for _, b := range stats.Buckets {
		if b.Value == value {
			est := b.Count
			if stats.Count > stats.SampledCount {
				est = est * stats.Count / stats.SampledCount
			}
			if est == 0 {
				est = 1
			}
			return est
		}
	}
	return 1
}

// GuessMaxCountRegex estimates how many items hold a value matching
// pattern under key. When pattern has a non-empty literal prefix, the
// estimate is narrowed to the buckets that prefix could fall in;
// otherwise every bucket is considered.
func (s *Storage[I]) GuessMaxCountRegex(key gmodel.AnnoKey, pattern string) int64 {
	prefix, complete := regexpLiteralPrefix(pattern)
	if complete {
		return s.GuessMaxCount(key, prefix)
	}

	stats := s.CalculateStatistics(key)
	if stats.SampledCount == 0 {
		return 1
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return stats.Count
	}
	var matched int64
	for _, b := range stats.Buckets {
		if prefix == "" || strings.HasPrefix(b.Value, prefix) || re.MatchString(b.Value) {
			matched += b.Count
		}
	}
	if stats.Count > stats.SampledCount {
		matched = matched * stats.Count / stats.SampledCount
	}
	if matched == 0 {
		matched = 1
	}
	return matched
}

// GuessMostFrequentValue returns the most frequently occurring value
// under key, if any.
func (s *Storage[I]) GuessMostFrequentValue(key gmodel.AnnoKey) (string, bool) {
	stats := s.CalculateStatistics(key)
	var best string
	var bestCount int64 = -1
	for _, b := range stats.Buckets {
		if b.Count > bestCount {
			best, bestCount = b.Value, b.Count
		}
	}
	return best, bestCount >= 0
}

// regexpLiteralPrefix extracts the longest literal prefix a regexp is
// guaranteed to start with, and whether the whole pattern is exactly
// that literal (no further variation possible).
func regexpLiteralPrefix(pattern string) (string, bool) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", false
	}
	prefix, complete := re.LiteralPrefix()
	return prefix, complete
}
