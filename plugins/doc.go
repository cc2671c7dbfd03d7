// Package plugins hosts the reference plugin subpackages. It holds no runtime
// code itself; the architecture guard next to this file keeps every plugin
// on the public pkg/pluginapi, pkg/behaviour, pkg/reactive and pkg/graph
// packages.
package plugins
