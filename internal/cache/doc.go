// Package cache provides the keyed cache the device uses to deduplicate
// immutable backend objects such as descriptor set layouts and samplers.
//
//	layouts := cache.New[string, backend.DescriptorSetLayout](0)
//	l, err := layouts.GetOrCreate(key, func() (backend.DescriptorSetLayout, error) {
//		return dev.CreateDescriptorSetLayout(desc)
//	})
//
// Entries are kept in least-recently-used order. With a soft limit the
// oldest entries are evicted through the OnEvict callback; without one
// the owner releases everything with Drain.
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
