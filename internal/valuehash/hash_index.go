package valuehash

// Index maps the hash of every element of a list to the positions holding it,
// in ascending order.
type Index struct {
	Data map[Hash][]int
}

func NewIndex(values []interface{}) *Index {
	index := &Index{
		Data: make(map[Hash][]int, len(values)),
	}

	for idx, value := range values {
		h := Of(value)
		index.Data[h] = append(index.Data[h], idx)
	}

	return index
}

// Candidates returns the positions whose element may be equal to value.
func (index *Index) Candidates(value interface{}) []int {
	return index.Data[Of(value)]
}
