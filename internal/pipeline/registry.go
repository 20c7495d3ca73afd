package pipeline

// nameIndex maps bare names to stored record ids for cross-reference
// resolution. Registration is first-wins: the earliest declaration in
// file order claims the name, so a lookup always attributes a name to
// exactly one record even when the codebase declares it several times.
type nameIndex struct {
	types   map[string]int64
	methods map[string]int64
}

func newNameIndex() *nameIndex {
	return &nameIndex{
		types:   make(map[string]int64),
		methods: make(map[string]int64),
	}
}

func (ix *nameIndex) addType(name string, id int64) {
	if _, ok := ix.types[name]; !ok {
		ix.types[name] = id
	}
}

func (ix *nameIndex) addMethod(name string, id int64) {
	if _, ok := ix.methods[name]; !ok {
		ix.methods[name] = id
	}
}

func (ix *nameIndex) resolveType(name string) (int64, bool) {
	id, ok := ix.types[name]
	return id, ok
}

func (ix *nameIndex) resolveMethod(name string) (int64, bool) {
	id, ok := ix.methods[name]
	return id, ok
}
