package odm

// updateMaker collects the directives for one DiffNode. Nested makers share
// the Updates of the root maker and prefix every key with their own path.
type updateMaker struct {
	prefix  string
	updates Updates
}

func rootMaker() *updateMaker {
	return &updateMaker{updates: Updates{}}
}

func (m *updateMaker) fieldPath(key Key) string {
	if m.prefix == "" {
		return key.String()
	}
	return m.prefix + PathSeparator + key.String()
}

func (m *updateMaker) Enter(key Key) *updateMaker {
	return &updateMaker{
		prefix:  m.fieldPath(key),
		updates: m.updates,
	}
}

func (m *updateMaker) Set(key Key, value interface{}) {
	m.updates[m.fieldPath(key)] = value
}
