// Package pkg provides the core libraries of the flowkeeper node-graph editor
// engine.
//
// # Overview
//
// A flowkeeper project is a set of named flow graphs. Each graph holds typed
// nodes with ports (handles) and edges between those ports. The engine keeps
// such a project consistent while an editor mutates it: it validates
// connections, folds canvas change batches, keeps group containers sized
// around their members, and persists the result with migration of older
// records.
//
// # Architecture
//
// The data flow for one editor interaction:
//
//	editor intent (canvas change batch or command)
//	         ↓
//	    [session] (one open project, serialized access, debounced flush)
//	         ↓
//	    [mutate] / [command] (pure reducers over the project)
//	         ↓
//	    [connect], [group], [catalog] (validation, container layout, kind profiles)
//	         ↓
//	    [snapshot] → [kv] (encode, migrate, store)
//
// # Main Packages
//
// ## Model
//
// [flow] - Nodes, edges, graph documents and project snapshots.
//
// [handle] - Port identifiers: direction, semantic, multi-port suffixes.
//
// [catalog] - Node kinds with their ports, default payloads and sizes.
//
// ## Engine
//
// [connect] - Connection validation with typed rejection reasons.
//
// [mutate] - Change batches from the canvas: moves, removals, resizes,
// drop-to-group confirmation and container propagation.
//
// [command] - Every structural edit (add/delete nodes, items, groups,
// graphs, connections) as a serializable command with one reducer.
//
// [group] and [geom] - Container bounds derived from member boxes.
//
// ## Persistence
//
// [snapshot] - Versioned project records, legacy migration, logic export,
// editor layout side records and the starter project.
//
// [kv] - Key/value stores behind a session: file, memory and null in
// process, plus BadgerDB, Redis, MongoDB and PostgreSQL backends.
//
// [session] - The stateful editor session tying engine and store together.
//
// ## Support
//
// [config] - TOML/YAML configuration with environment overrides.
//
// [errors] - Coded errors shared by the CLI and HTTP API.
//
// [observability] - Hooks for metrics on engine and store events.
//
// [render] - Graphviz DOT and SVG renderings of a graph.
//
// [buildinfo] - Version information injected at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./...                              # All tests
//	go test ./pkg/mutate/...                   # Specific package
//	FLOWKEEPER_TEST_REDIS=localhost:6379 go test ./pkg/kv/rediskv/...
//
// [flow]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/flow
// [handle]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/handle
// [catalog]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/catalog
// [connect]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/connect
// [mutate]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/mutate
// [command]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/command
// [group]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/group
// [geom]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/geom
// [snapshot]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/snapshot
// [kv]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/kv
// [session]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/session
// [config]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/observability
// [render]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/render
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/flowkeeper/pkg/buildinfo
package pkg
