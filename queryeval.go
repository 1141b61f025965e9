package odm

import (
	"sort"
	"strings"
	"time"
)

// typeOrder ranks kinds for cross-kind comparison.
func typeOrder(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindNumber:
		return 2
	case KindTime:
		return 3
	case KindString:
		return 4
	case KindArray:
		return 5
	case KindMap:
		return 6
	}
	return 7
}

// Compare defines the total order used for sorting query results:
// null < bool < number < time < string < array < map. Arrays compare
// element-wise, maps by their sorted keys and then values.
func Compare(a, b interface{}) int {
	ka, kb := KindOf(a), KindOf(b)
	if oa, ob := typeOrder(ka), typeOrder(kb); oa != ob {
		if oa < ob {
			return -1
		}
		return 1
	}

	switch ka {
	case KindBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		}
		return 1
	case KindNumber:
		na, _ := toNumber(a)
		nb, _ := toNumber(b)
		return compareNumbers(na, nb)
	case KindTime:
		return a.(time.Time).Compare(b.(time.Time))
	case KindString:
		return strings.Compare(a.(string), b.(string))
	case KindArray:
		aa, ba := a.([]interface{}), b.([]interface{})
		for i := 0; i < len(aa) && i < len(ba); i++ {
			if c := Compare(aa[i], ba[i]); c != 0 {
				return c
			}
		}
		return compareInts(len(aa), len(ba))
	case KindMap:
		am, bm := a.(map[string]interface{}), b.(map[string]interface{})
		ak, bk := sortedKeys(am), sortedKeys(bm)
		for i := 0; i < len(ak) && i < len(bk); i++ {
			if c := strings.Compare(ak[i], bk[i]); c != 0 {
				return c
			}
			if c := Compare(am[ak[i]], bm[bk[i]]); c != 0 {
				return c
			}
		}
		return compareInts(len(ak), len(bk))
	}

	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// LookupField resolves a dotted field path inside a snapshot. DocumentID
// resolves to the document id.
func LookupField(snap RawSnapshot, field string) (interface{}, bool) {
	if field == DocumentID {
		return snap.ID(), true
	}

	var current interface{} = snap.Data
	for _, segment := range strings.Split(field, PathSeparator) {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Matches reports whether an existing document satisfies every where clause
// and has every field the query is ordered by.
func (q QueryDescriptor) Matches(snap RawSnapshot) bool {
	if !snap.Exists {
		return false
	}

	for _, w := range q.Wheres {
		value, ok := LookupField(snap, w.Field)
		if !ok || !w.matches(value) {
			return false
		}
	}

	for _, o := range q.Orders {
		if _, ok := LookupField(snap, o.Field); !ok {
			return false
		}
	}

	return true
}

func (w WhereClause) matches(value interface{}) bool {
	switch w.Op {
	case Eq:
		return Equal(value, w.Value)
	case NotEq:
		return value != nil && !Equal(value, w.Value)
	case Lt, LtEq, Gt, GtEq:
		if typeOrder(KindOf(value)) != typeOrder(KindOf(w.Value)) {
			return false
		}
		c := Compare(value, w.Value)
		switch w.Op {
		case Lt:
			return c < 0
		case LtEq:
			return c <= 0
		case Gt:
			return c > 0
		}
		return c >= 0
	case ArrayContains:
		arr, ok := value.([]interface{})
		return ok && containsValue(arr, w.Value)
	case ArrayContainsAny:
		arr, ok := value.([]interface{})
		if !ok {
			return false
		}
		for _, candidate := range w.Value.([]interface{}) {
			if containsValue(arr, candidate) {
				return true
			}
		}
		return false
	case In:
		return containsValue(w.Value.([]interface{}), value)
	case NotIn:
		return value != nil && !containsValue(w.Value.([]interface{}), value)
	}
	return false
}

// compareSnapshots orders two documents by the query's order specs with the
// document path as the final tiebreak.
func (q QueryDescriptor) compareSnapshots(a, b RawSnapshot) int {
	for _, o := range q.Orders {
		av, _ := LookupField(a, o.Field)
		bv, _ := LookupField(b, o.Field)
		c := Compare(av, bv)
		if o.Direction == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}

	c := strings.Compare(a.Path, b.Path)
	if n := len(q.Orders); n > 0 && q.Orders[n-1].Direction == Desc {
		c = -c
	}
	return c
}

func (c *Cursor) snapshot() RawSnapshot {
	return RawSnapshot{Path: c.Path, Data: c.Data, Exists: true}
}

// Evaluate runs the query over a set of documents. Documents outside the
// query's collection are ignored. Stores without a native query engine can
// use it directly.
func (q QueryDescriptor) Evaluate(docs []RawSnapshot) []RawSnapshot {
	var result []RawSnapshot
	for _, doc := range docs {
		if ParentCollection(doc.Path) == q.Collection && q.Matches(doc) {
			result = append(result, doc)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return q.compareSnapshots(result[i], result[j]) < 0
	})

	if q.Start != nil {
		start := q.Start.snapshot()
		result = filterSnapshots(result, func(doc RawSnapshot) bool {
			c := q.compareSnapshots(doc, start)
			return c > 0 || (c == 0 && q.Start.Inclusive)
		})
	}

	if q.End != nil {
		end := q.End.snapshot()
		result = filterSnapshots(result, func(doc RawSnapshot) bool {
			c := q.compareSnapshots(doc, end)
			return c < 0 || (c == 0 && q.End.Inclusive)
		})
	}

	if q.Limit > 0 && len(result) > q.Limit {
		if q.LimitToLast {
			result = result[len(result)-q.Limit:]
		} else {
			result = result[:q.Limit]
		}
	}

	return result
}

func filterSnapshots(docs []RawSnapshot, keep func(RawSnapshot) bool) []RawSnapshot {
	result := docs[:0]
	for _, doc := range docs {
		if keep(doc) {
			result = append(result, doc)
		}
	}
	return result
}
