package hsm

// Entity is the caller-supplied subject a StateMachine drives through its
// graph - the thing that "has" a current state. The engine never inspects an
// Entity; it is threaded opaquely through Guard.Accept and Action.Do so that
// guards and actions can read or mutate domain data (a connection, an order,
// a device) alongside the transition.
type Entity = any
