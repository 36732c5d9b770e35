package annostorage

import (
	"github.com/korpling/graphannis-go/internal/keycodec"
	"github.com/korpling/graphannis-go/pkg/gmodel"
	"github.com/korpling/graphannis-go/pkg/symtab"
)

const (
	prefixKeyReg byte = 'K'
	prefixQName  byte = 'Q'
	prefixValReg byte = 'V'
)

func (s *Storage[I]) byItemKey(item I, keySym symtab.Symbol) []byte {
	return keycodec.Concat([]byte{prefixByItem}, s.codec.Encode(item), keycodec.EncodeUint32(uint32(keySym)))
}

func (s *Storage[I]) byItemPrefix(item I) []byte {
	return keycodec.Concat([]byte{prefixByItem}, s.codec.Encode(item))
}

func (s *Storage[I]) byAnnoKey(keySym, valSym symtab.Symbol, item I) []byte {
	return keycodec.Concat([]byte{prefixByAnno}, keycodec.EncodeUint32(uint32(keySym)), keycodec.EncodeUint32(uint32(valSym)), s.codec.Encode(item))
}

func (s *Storage[I]) byAnnoKeyPrefix(keySym symtab.Symbol) []byte {
	return keycodec.Concat([]byte{prefixByAnno}, keycodec.EncodeUint32(uint32(keySym)))
}

func (s *Storage[I]) byAnnoValuePrefix(keySym, valSym symtab.Symbol) []byte {
	return keycodec.Concat([]byte{prefixByAnno}, keycodec.EncodeUint32(uint32(keySym)), keycodec.EncodeUint32(uint32(valSym)))
}

func keyRegKey(sym symtab.Symbol) []byte {
	return keycodec.Concat([]byte{prefixKeyReg}, keycodec.EncodeUint32(uint32(sym)))
}

func valRegKey(sym symtab.Symbol) []byte {
	return keycodec.Concat([]byte{prefixValReg}, keycodec.EncodeUint32(uint32(sym)))
}

func qnameKey(seq uint32) []byte {
	return keycodec.Concat([]byte{prefixQName}, keycodec.EncodeUint32(seq))
}

func encodeAnnoKey(k gmodel.AnnoKey) []byte {
	return keycodec.Concat(keycodec.EncodeString(k.Namespace), keycodec.EncodeString(k.Name))
}

func decodeAnnoKey(b []byte) gmodel.AnnoKey {
	ns, n := keycodec.DecodeString(b)
	name, _ := keycodec.DecodeString(b[n:])
	return gmodel.AnnoKey{Namespace: ns, Name: name}
}

// internKey interns key, persisting its registry row and recording
// qname order on first sight.
func (s *Storage[I]) internKey(key gmodel.AnnoKey) symtab.Symbol {
	if existing, ok := s.keys.GetSymbol(key); ok {
		s.keys.InsertShared(existing)
		return existing
	}
	sym := s.keys.Insert(key)
	_ = s.kv.Insert(keyRegKey(sym), encodeAnnoKey(key))
	if !s.seenQName[key] {
		s.seenQName[key] = true
		s.qnameOrder = append(s.qnameOrder, key)
		_ = s.kv.Insert(qnameKey(uint32(len(s.qnameOrder)-1)), keycodec.EncodeUint32(uint32(sym)))
	}
	return sym
}

func (s *Storage[I]) internValue(v string) symtab.Symbol {
	if existing, ok := s.values.GetSymbol(v); ok {
		s.values.InsertShared(existing)
		return existing
	}
	sym := s.values.Insert(v)
	_ = s.kv.Insert(valRegKey(sym), []byte(v))
	return sym
}

// Insert replaces any existing annotation for the same key on item and
// returns the previous value, if any.
func (s *Storage[I]) Insert(item I, anno gmodel.Anno) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keySym := s.internKey(anno.Key)
	valSym := s.internValue(anno.Value)

	itemKey := s.byItemKey(item, keySym)
	prevBytes, existed, err := s.kv.Get(itemKey)
	if err != nil {
		return "", false, err
	}

	var prevValue string
	if existed {
		prevSym := symtab.Symbol(keycodec.DecodeUint32(prevBytes))
		if prevSym == valSym {
			// No change; still counts as one reference, undo the
			// redundant interning increments above.
			s.keys.Remove(keySym)
			s.values.Remove(valSym)
			prevValue, _ = s.values.GetValue(prevSym)
			return prevValue, true, nil
		}
		prevValue, _ = s.values.GetValue(prevSym)
		_ = s.kv.Remove(s.byAnnoKey(keySym, prevSym, item))
		s.values.Remove(prevSym)
		// Same item/key pair retained: undo the extra key reference
		// Insert added above, since it's a replace, not a new binding.
		s.keys.Remove(keySym)
	} else {
		s.keySizes[keySym]++
	}

	if err := s.kv.Insert(itemKey, keycodec.EncodeUint32(uint32(valSym))); err != nil {
		return "", false, err
	}
	if err := s.kv.Insert(s.byAnnoKey(keySym, valSym, item), []byte{}); err != nil {
		return "", false, err
	}

	if existed {
		return prevValue, true, nil
	}
	return "", false, nil
}

// RemoveAnnotationForItem removes the annotation for key on item, if
// present.
func (s *Storage[I]) RemoveAnnotationForItem(item I, key gmodel.AnnoKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keySym, ok := s.keys.GetSymbol(key)
	if !ok {
		return nil
	}
	itemKey := s.byItemKey(item, keySym)
	valBytes, existed, err := s.kv.Get(itemKey)
	if err != nil || !existed {
		return err
	}
	valSym := symtab.Symbol(keycodec.DecodeUint32(valBytes))

	if err := s.kv.Remove(itemKey); err != nil {
		return err
	}
	if err := s.kv.Remove(s.byAnnoKey(keySym, valSym, item)); err != nil {
		return err
	}
	s.values.Remove(valSym)
	s.keys.Remove(keySym)
	if s.keySizes[keySym] > 0 {
		s.keySizes[keySym]--
		if s.keySizes[keySym] == 0 {
			delete(s.keySizes, keySym)
		}
	}
	return nil
}

// RemoveItem removes every annotation held for item.
func (s *Storage[I]) RemoveItem(item I) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toRemove []symtab.Symbol
	prefix := s.byItemPrefix(item)
	if err := s.kv.Range(prefix, keycodec.PrefixUpperBound(prefix), func(k, v []byte) (bool, error) {
		keySym := symtab.Symbol(keycodec.DecodeUint32(k[len(prefix):]))
		toRemove = append(toRemove, keySym)
		return true, nil
	}); err != nil {
		return err
	}

	for _, keySym := range toRemove {
		itemKey := s.byItemKey(item, keySym)
		valBytes, existed, err := s.kv.Get(itemKey)
		if err != nil || !existed {
			continue
		}
		valSym := symtab.Symbol(keycodec.DecodeUint32(valBytes))
		_ = s.kv.Remove(itemKey)
		_ = s.kv.Remove(s.byAnnoKey(keySym, valSym, item))
		s.values.Remove(valSym)
		s.keys.Remove(keySym)
		if s.keySizes[keySym] > 0 {
			s.keySizes[keySym]--
			if s.keySizes[keySym] == 0 {
				delete(s.keySizes, keySym)
			}
		}
	}
	return nil
}

// Clear removes every annotation from the storage.
func (s *Storage[I]) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys [][]byte
	if err := s.kv.Range(nil, nil, func(k, _ []byte) (bool, error) {
		cp := append([]byte{}, k...)
		keys = append(keys, cp)
		return true, nil
	}); err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.kv.Remove(k); err != nil {
			return err
		}
	}
	s.keys = symtab.New[gmodel.AnnoKey]()
	s.values = symtab.New[string]()
	s.keySizes = make(map[symtab.Symbol]int)
	s.qnameOrder = nil
	s.seenQName = make(map[gmodel.AnnoKey]bool)
	s.histograms = make(map[symtab.Symbol][]string)
	return nil
}

// GetValueForItem looks up the value for key on item.
func (s *Storage[I]) GetValueForItem(item I, key gmodel.AnnoKey) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keySym, ok := s.keys.GetSymbol(key)
	if !ok {
		return "", false, nil
	}
	valBytes, existed, err := s.kv.Get(s.byItemKey(item, keySym))
	if err != nil || !existed {
		return "", false, err
	}
	valSym := symtab.Symbol(keycodec.DecodeUint32(valBytes))
	v, _ := s.values.GetValue(valSym)
	return v, true, nil
}

// GetAllKeysForItem returns every key item carries an annotation for.
func (s *Storage[I]) GetAllKeysForItem(item I) ([]gmodel.AnnoKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []gmodel.AnnoKey
	prefix := s.byItemPrefix(item)
	err := s.kv.Range(prefix, keycodec.PrefixUpperBound(prefix), func(k, _ []byte) (bool, error) {
		keySym := symtab.Symbol(keycodec.DecodeUint32(k[len(prefix):]))
		if key, ok := s.keys.GetValue(keySym); ok {
			out = append(out, key)
		}
		return true, nil
	})
	return out, err
}

// GetAnnotationsForItem returns every annotation held for item.
func (s *Storage[I]) GetAnnotationsForItem(item I) ([]gmodel.Anno, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []gmodel.Anno
	prefix := s.byItemPrefix(item)
	err := s.kv.Range(prefix, keycodec.PrefixUpperBound(prefix), func(k, v []byte) (bool, error) {
		keySym := symtab.Symbol(keycodec.DecodeUint32(k[len(prefix):]))
		valSym := symtab.Symbol(keycodec.DecodeUint32(v))
		key, ok1 := s.keys.GetValue(keySym)
		val, ok2 := s.values.GetValue(valSym)
		if ok1 && ok2 {
			out = append(out, gmodel.Anno{Key: key, Value: val})
		}
		return true, nil
	})
	return out, err
}

// AnnotationKeys returns every distinct qualified key ever interned, in
// the order they were first observed.
func (s *Storage[I]) AnnotationKeys() []gmodel.AnnoKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]gmodel.AnnoKey, len(s.qnameOrder))
	copy(out, s.qnameOrder)
	return out
}

// GetLargestItem returns the item whose encoded byte representation is
// largest among all items currently carrying at least one annotation.
func (s *Storage[I]) GetLargestItem() (I, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero I
	var largest []byte
	var result I
	found := false
	err := s.kv.Range([]byte{prefixByItem}, keycodec.PrefixUpperBound([]byte{prefixByItem}), func(k, _ []byte) (bool, error) {
		itemBytes := k[1 : 1+s.codec.Len()]
		if !found || string(itemBytes) > string(largest) {
			largest = append([]byte{}, itemBytes...)
			result = s.codec.Decode(itemBytes)
			found = true
		}
		return true, nil
	})
	if err != nil {
		return zero, false, err
	}
	return result, found, nil
}

// rebuildFromDisk repopulates the in-memory symbol tables and caches
// from a previously persisted store. It is called once by Open.
func (s *Storage[I]) rebuildFromDisk() error {
	keyValues := make(map[symtab.Symbol]gmodel.AnnoKey)
	var maxKeySym symtab.Symbol
	if err := s.kv.Range([]byte{prefixKeyReg}, keycodec.PrefixUpperBound([]byte{prefixKeyReg}), func(k, v []byte) (bool, error) {
		sym := symtab.Symbol(keycodec.DecodeUint32(k[1:]))
		keyValues[sym] = decodeAnnoKey(v)
		if sym > maxKeySym {
			maxKeySym = sym
		}
		return true, nil
	}); err != nil {
		return err
	}

	valValues := make(map[symtab.Symbol]string)
	var maxValSym symtab.Symbol
	if err := s.kv.Range([]byte{prefixValReg}, keycodec.PrefixUpperBound([]byte{prefixValReg}), func(k, v []byte) (bool, error) {
		sym := symtab.Symbol(keycodec.DecodeUint32(k[1:]))
		valValues[sym] = string(v)
		if sym > maxValSym {
			maxValSym = sym
		}
		return true, nil
	}); err != nil {
		return err
	}

	type qrow struct {
		seq uint32
		sym symtab.Symbol
	}
	var qrows []qrow
	if err := s.kv.Range([]byte{prefixQName}, keycodec.PrefixUpperBound([]byte{prefixQName}), func(k, v []byte) (bool, error) {
		qrows = append(qrows, qrow{seq: keycodec.DecodeUint32(k[1:]), sym: symtab.Symbol(keycodec.DecodeUint32(v))})
		return true, nil
	}); err != nil {
		return err
	}
	for i := 0; i < len(qrows); i++ {
		for j := i + 1; j < len(qrows); j++ {
			if qrows[j].seq < qrows[i].seq {
				qrows[i], qrows[j] = qrows[j], qrows[i]
			}
		}
	}
	for _, qr := range qrows {
		if key, ok := keyValues[qr.sym]; ok {
			s.qnameOrder = append(s.qnameOrder, key)
			s.seenQName[key] = true
		}
	}

	keySizes := make(map[symtab.Symbol]int)
	valCounts := make(map[symtab.Symbol]int)
	if err := s.kv.Range([]byte{prefixByItem}, keycodec.PrefixUpperBound([]byte{prefixByItem}), func(k, v []byte) (bool, error) {
		keySym := symtab.Symbol(keycodec.DecodeUint32(k[1+s.codec.Len():]))
		valSym := symtab.Symbol(keycodec.DecodeUint32(v))
		keySizes[keySym]++
		valCounts[valSym]++
		return true, nil
	}); err != nil {
		return err
	}

	for sym, key := range keyValues {
		s.keys.LoadReserved(sym, key, uint32(keySizes[sym]))
	}
	for sym, val := range valValues {
		s.values.LoadReserved(sym, val, uint32(valCounts[sym]))
	}
	s.keys.Seed(maxKeySym + 1)
	s.values.Seed(maxValSym + 1)
	s.keySizes = keySizes
	return nil
}
