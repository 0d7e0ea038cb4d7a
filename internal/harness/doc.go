// Package harness runs YAML circuit scenarios against the simulator.
//
// A scenario is a simulate request (inline or in a JSON file next to the
// scenario) plus expectations about the run:
//
//	name: lever_dust_lamp
//	description: A lever switched on at tick 2 lights a lamp through one dust
//	request:
//	  ticks: 5
//	  simulation: {edition: java, version: "1.21"}
//	  world:
//	    blocks:
//	      - {x: 0, y: 0, z: -1, type: lamp}
//	      - {x: 0, y: 0, z: 0, type: dust}
//	      - {x: 0, y: 0, z: 1, type: lever, facing: north}
//	      - {x: 0, y: 0, z: 1, type: lever, facing: north, powered: true, tick_at: 2}
//	expect:
//	  terminated: settled
//	assertions:
//	  - type: state
//	    tick: 3
//	    at: [0, 0, -1]
//	    expect: {on: true}
//
// The request goes through the same decode path as a live call, so a
// scenario also checks schema validation. Rejected requests are results, not
// errors: expect.error names the code the scenario expects.
//
// # Assertions
//
//   - state: the observable fields of the block at a position after a tick
//     (tick 0 is the initial layout), subset match on wire field names
//   - changed: the position appears in the diff of a tick
//   - unchanged: the position appears in no diff
//   - change_count: total number of recorded changes
//   - final: observable fields after the last simulated tick
//
// # Golden files
//
// Snapshot renders a result as canonical JSON: the diff log, the
// termination state, warnings and any rejection. Elapsed time is excluded so
// snapshots are byte-stable. RunWithGolden compares the snapshot with
// testdata/golden/{name}.golden using goldie; run with -update to regenerate.
//
// Every scenario runs with a deterministic clock and discarded logs.
package harness
