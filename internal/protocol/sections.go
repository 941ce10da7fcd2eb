package protocol

// SectionMap maps section names to section text, remembering the order in
// which names were first added. The zero value is an empty map ready to use.
type SectionMap struct {
	names []string
	text  map[string]string
}

// Set stores text under name. A name seen before keeps its original
// position; its text is replaced.
func (m *SectionMap) Set(name, text string) {
	if m.text == nil {
		m.text = make(map[string]string)
	}
	if _, ok := m.text[name]; !ok {
		m.names = append(m.names, name)
	}
	m.text[name] = text
}

// Get returns the text stored under name.
func (m *SectionMap) Get(name string) (string, bool) {
	if m == nil || m.text == nil {
		return "", false
	}
	t, ok := m.text[name]
	return t, ok
}

// Names returns the section names in insertion order. The returned slice
// is a copy and is never nil.
func (m *SectionMap) Names() []string {
	if m == nil {
		return []string{}
	}
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Len returns the number of sections.
func (m *SectionMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.names)
}
