package shader

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	coil "github.com/quyse/coil-core-sub001"
)

var (
	vs = gputypes.ShaderStageVertex
	fs = gputypes.ShaderStageFragment
)

func ub(stages gputypes.ShaderStage) Binding {
	return Binding{Type: BindingUniformBuffer, Count: 1, Stages: stages}
}

func img(count int, stages gputypes.ShaderStage) Binding {
	return Binding{Type: BindingSampledImage, Count: count, Stages: stages}
}

func layoutOf(bindings ...Binding) SetLayout {
	return SetLayout{Bindings: bindings}
}

func TestMergeLayouts(t *testing.T) {
	a := []SetLayout{layoutOf(ub(vs)), layoutOf(Binding{}, img(1, fs))}
	b := []SetLayout{layoutOf(ub(fs), img(2, fs))}
	got, err := MergeLayouts(a, b)
	if err != nil {
		t.Fatalf("MergeLayouts() error = %v", err)
	}
	want := []SetLayout{
		layoutOf(ub(vs|fs), img(2, fs)),
		layoutOf(Binding{}, img(1, fs)),
	}
	if !LayoutsEqual(got, want) {
		t.Errorf("MergeLayouts() = %v, want %v", got, want)
	}
}

// Every input must be within the merged layout, and merging in any order
// must give the same result.
func TestMergeLayoutsLeastUpperBound(t *testing.T) {
	inputs := [][]SetLayout{
		{layoutOf(ub(vs))},
		{layoutOf(Binding{}, img(3, fs)), layoutOf(ub(fs))},
		{layoutOf(ub(fs), img(1, vs))},
		{},
	}
	merged, err := MergeLayouts(inputs...)
	if err != nil {
		t.Fatalf("MergeLayouts() error = %v", err)
	}
	for i, in := range inputs {
		if !LayoutsWithin(in, merged) {
			t.Errorf("input %d is not within merged layout", i)
		}
	}
	reversed, err := MergeLayouts(inputs[3], inputs[2], inputs[1], inputs[0])
	if err != nil {
		t.Fatalf("MergeLayouts(reversed) error = %v", err)
	}
	if !LayoutsEqual(merged, reversed) {
		t.Errorf("merge order changed result: %v vs %v", merged, reversed)
	}
	// Least: dropping anything from the merged layout breaks containment.
	shrunk := []SetLayout{layoutOf(ub(vs|fs), img(2, fs|vs)), layoutOf(ub(fs))}
	if LayoutsWithin(inputs[1], shrunk) {
		t.Error("count 3 image fits a count 2 slot")
	}
}

func TestMergeLayoutsConflict(t *testing.T) {
	a := []SetLayout{layoutOf(ub(vs))}
	b := []SetLayout{layoutOf(img(1, fs))}
	_, err := MergeLayouts(a, b)
	if !errors.Is(err, coil.ErrValidation) {
		t.Errorf("MergeLayouts(conflict) error = %v, want VALIDATION", err)
	}
}

func TestSetLayoutEqualIgnoresTrailingUnused(t *testing.T) {
	a := layoutOf(ub(vs))
	b := layoutOf(ub(vs), Binding{}, Binding{})
	if !a.Equal(b) {
		t.Error("Equal() = false for layouts differing only in trailing unused slots")
	}
	if a.Key() != b.Key() {
		t.Errorf("Key() = %q and %q, want equal", a.Key(), b.Key())
	}
	if layoutOf(Binding{}).Used() {
		t.Error("Used() = true for empty layout")
	}
}

func TestProgramLayouts(t *testing.T) {
	cam := NewUniformBuffer(StructOf("Camera", Field{"viewProj", TMat4}), 0, 0)
	tex := NewSampledImage(Dim2D, 1, 2)
	pos := NewAttribute(0, TVec3)
	uv := NewInterpolant(0, TVec2)
	color := NewFragment(0, TVec4)

	p := Program{
		Vertex: Seq(
			NewInterpolantBuiltin(BuiltinPosition).Write(Mul(cam.Field("viewProj"), Vec(pos.Read(), F(1)))),
			uv.Write(pos.Read().Swizzle("xy")),
		),
		Fragment: Seq(
			color.Write(Mul(tex.Sample(uv.Read()), cam.Field("viewProj").At(0).Swizzle("x"))),
		),
	}
	got, err := ProgramLayouts(p)
	if err != nil {
		t.Fatalf("ProgramLayouts() error = %v", err)
	}
	want := []SetLayout{
		layoutOf(ub(vs | fs)),
		layoutOf(Binding{}, Binding{}, img(1, fs)),
	}
	if !LayoutsEqual(got, want) {
		t.Errorf("ProgramLayouts() = %v, want %v", got, want)
	}
	if slots := got[1].SortedSlots(); len(slots) != 1 || slots[0] != 2 {
		t.Errorf("SortedSlots() = %v, want [2]", slots)
	}
}
