// Package rendercache batches draw calls by render state.
//
// Every call to Cache.Render queues a Knob: a piece of render state with a
// key. Flush sorts the queue by key, keeping queue order for equal keys, and
// applies the knobs to a context one after another. Each knob after the
// first is applied relative to its predecessor, so state shared by
// neighbours is bound only once:
//
//	rc := rendercache.New()
//	for _, obj := range scene {
//		rc.Render(rendercache.Tuple{
//			rendercache.PipelineKnob{Pipeline: obj.Pipeline},
//			rendercache.MeshKnob{Mesh: obj.Mesh},
//			rendercache.NewInstanceData(1, obj.Transform),
//		})
//	}
//	err := rc.Flush(ctx)
//
// Knobs keyed by address (UniformBufferKnob) refer to caller memory that
// must stay alive and unchanged until Flush returns.
package rendercache
