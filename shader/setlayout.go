package shader

import (
	"fmt"

	"github.com/gogpu/gputypes"

	coil "github.com/quyse/coil-core-sub001"
)

// BindingType is the resource class of a descriptor slot.
type BindingType uint8

// Binding types. BindingUnused marks a hole in a set layout; it merges
// with every other type.
const (
	BindingUnused BindingType = iota
	BindingUniformBuffer
	BindingStorageBuffer
	BindingSampledImage
)

func (t BindingType) String() string {
	switch t {
	case BindingUnused:
		return "unused"
	case BindingUniformBuffer:
		return "uniform"
	case BindingStorageBuffer:
		return "storage"
	case BindingSampledImage:
		return "sampled_image"
	}
	return fmt.Sprintf("BindingType(%d)", uint8(t))
}

// Binding is one descriptor slot.
type Binding struct {
	Type   BindingType
	Count  int
	Stages gputypes.ShaderStage
}

// SetLayout is a descriptor-set layout indexed by slot id.
// Slots absent from a shader are BindingUnused.
type SetLayout struct {
	Bindings []Binding
}

// Binding returns the binding of slot, BindingUnused when out of range.
func (l SetLayout) Binding(slot int) Binding {
	if slot < 0 || slot >= len(l.Bindings) {
		return Binding{}
	}
	return l.Bindings[slot]
}

// Set stores b at slot, growing the layout as needed.
func (l *SetLayout) Set(slot int, b Binding) {
	for len(l.Bindings) <= slot {
		l.Bindings = append(l.Bindings, Binding{})
	}
	l.Bindings[slot] = b
}

// Used reports whether any slot is bound.
func (l SetLayout) Used() bool {
	for _, b := range l.Bindings {
		if b.Type != BindingUnused {
			return true
		}
	}
	return false
}

// Equal compares two layouts ignoring trailing unused slots.
func (l SetLayout) Equal(o SetLayout) bool {
	n := max(len(l.Bindings), len(o.Bindings))
	for i := range n {
		if l.Binding(i) != o.Binding(i) {
			return false
		}
	}
	return true
}

// Key returns a string uniquely identifying the layout, used to dedup
// backend objects.
func (l SetLayout) Key() string {
	var b []byte
	for i, s := range l.Bindings {
		if s.Type == BindingUnused {
			continue
		}
		b = fmt.Appendf(b, "%d:%d:%d:%d;", i, s.Type, s.Count, s.Stages)
	}
	return string(b)
}

// MergeBinding merges two bindings of one slot: types must match unless
// one side is unused, counts take the maximum and stages are combined.
func MergeBinding(a, b Binding) (Binding, error) {
	switch {
	case a.Type == BindingUnused:
		return b, nil
	case b.Type == BindingUnused:
		return a, nil
	case a.Type != b.Type:
		return Binding{}, coil.Errorf(coil.Validation, "merge layouts", "binding type %v conflicts with %v", a.Type, b.Type)
	}
	return Binding{Type: a.Type, Count: max(a.Count, b.Count), Stages: a.Stages | b.Stages}, nil
}

// MergeSetLayouts merges two set layouts slot by slot.
func MergeSetLayouts(a, b SetLayout) (SetLayout, error) {
	var r SetLayout
	for i := range max(len(a.Bindings), len(b.Bindings)) {
		m, err := MergeBinding(a.Binding(i), b.Binding(i))
		if err != nil {
			return SetLayout{}, fmt.Errorf("slot %d: %w", i, err)
		}
		r.Set(i, m)
	}
	return r, nil
}

// MergeLayouts merges per-stage pipeline layouts set by set.
// The result is the least layout every input is Within.
func MergeLayouts(layouts ...[]SetLayout) ([]SetLayout, error) {
	var r []SetLayout
	for _, layout := range layouts {
		for len(r) < len(layout) {
			r = append(r, SetLayout{})
		}
		for set, l := range layout {
			m, err := MergeSetLayouts(r[set], l)
			if err != nil {
				return nil, fmt.Errorf("set %d: %w", set, err)
			}
			r[set] = m
		}
	}
	return r, nil
}

// Within reports whether l is covered by o: every used slot of l has the
// same type in o, a count not above o's and stages contained in o's.
func (l SetLayout) Within(o SetLayout) bool {
	for i, b := range l.Bindings {
		if b.Type == BindingUnused {
			continue
		}
		ob := o.Binding(i)
		if ob.Type != b.Type || b.Count > ob.Count || b.Stages&^ob.Stages != 0 {
			return false
		}
	}
	return true
}

// LayoutsWithin applies Within set by set.
func LayoutsWithin(a, b []SetLayout) bool {
	for i, l := range a {
		var o SetLayout
		if i < len(b) {
			o = b[i]
		}
		if !l.Within(o) {
			return false
		}
	}
	return true
}

// LayoutsEqual compares pipeline layouts ignoring trailing empty sets.
func LayoutsEqual(a, b []SetLayout) bool {
	n := max(len(a), len(b))
	for i := range n {
		var x, y SetLayout
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if !x.Equal(y) {
			return false
		}
	}
	return true
}

// StageLayouts collects the descriptor-set layout used by one stage root.
func StageLayouts(root Stmt, stage gputypes.ShaderStage) ([]SetLayout, error) {
	var layouts []SetLayout
	var err error
	Walk(root.n, func(n *Node) {
		if err != nil {
			return
		}
		var t BindingType
		switch n.Kind {
		case NodeUniformBuffer:
			t = BindingUniformBuffer
		case NodeStorageBuffer:
			t = BindingStorageBuffer
		case NodeSampledImage:
			t = BindingSampledImage
		default:
			return
		}
		for len(layouts) <= n.Set {
			layouts = append(layouts, SetLayout{})
		}
		b := Binding{Type: t, Count: 1, Stages: stage}
		m, e := MergeBinding(layouts[n.Set].Binding(n.Slot), b)
		if e != nil {
			err = fmt.Errorf("set %d slot %d: %w", n.Set, n.Slot, e)
			return
		}
		layouts[n.Set].Set(n.Slot, m)
	})
	return layouts, err
}

// ProgramLayouts merges the layouts of every present stage of p.
func ProgramLayouts(p Program) ([]SetLayout, error) {
	var per [][]SetLayout
	for _, stage := range []gputypes.ShaderStage{gputypes.ShaderStageVertex, gputypes.ShaderStageFragment, gputypes.ShaderStageCompute} {
		root := p.Root(stage)
		if root.IsEmpty() {
			continue
		}
		l, err := StageLayouts(root, stage)
		if err != nil {
			return nil, err
		}
		per = append(per, l)
	}
	return MergeLayouts(per...)
}

// SortedSlots returns the used slot ids of l in increasing order.
func (l SetLayout) SortedSlots() []int {
	var slots []int
	for i, b := range l.Bindings {
		if b.Type != BindingUnused {
			slots = append(slots, i)
		}
	}
	return slots
}
