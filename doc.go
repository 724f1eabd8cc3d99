// Package hsm is a hierarchical finite-state-machine engine.
//
// A graph of [State] values, some composite (with children reached through
// [State.Parent]), is assembled into a [TransitionMap] by registering
// [State]s and [Transition]s and calling [TransitionMap.Build]. Build
// validates the graph once - exactly one Start state, at least one End
// state, every registered state reachable from Start, and every non-End
// registered state with a genuine way out - and the map is immutable from
// that point on.
//
// A [StateMachine] walks a built TransitionMap one event at a time via
// [StateMachine.ApplyEvent]: it finds the best-matching transition out of
// the current state (or an ancestor, for a state that declares no
// transition of its own), fires exit actions up to the least common
// ancestor of source and destination, the transition's own action, then
// entry actions back down to the destination, and repeats while forward
// chaining is enabled, the state keeps changing, and some transition out of
// the new state still accepts the same event.
//
// [EventDispatcher] wraps a StateMachine with a single-worker FIFO queue so
// events can be delivered from multiple goroutines; [StateTransitionLatch]
// lets a caller block until the machine reaches a particular state (or its
// error state). [TransitionMap.DiagramPUML] renders the built graph as
// PlantUML for documentation.
package hsm
