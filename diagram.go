package hsm

import (
	"fmt"
	"strings"
)

// edge identifies a pair of states a diagram arrow connects, for the
// purposes of per-edge arrow style overrides.
type edge struct {
	src, dst *State
}

// DiagramBuilder allows minor customizations of PlantUML diagram layout
// before rendering the diagram. Obtain one with TransitionMap.DiagramBuilder.
type DiagramBuilder struct {
	tmap         *TransitionMap
	defaultArrow string
	arrows       map[edge]string
}

// DiagramBuilder creates a builder for customizing the PlantUML diagram of
// a built TransitionMap before rendering it.
func (m *TransitionMap) DiagramBuilder() *DiagramBuilder {
	return &DiagramBuilder{
		tmap:         m,
		defaultArrow: "-->",
		arrows:       make(map[edge]string),
	}
}

// DiagramPUML renders a PlantUML diagram of a built TransitionMap. It is a
// shorthand for m.DiagramBuilder().Build().
func (m *TransitionMap) DiagramPUML() string {
	return m.DiagramBuilder().Build()
}

// DefaultArrow changes the arrow style used for transitions that have no
// per-edge override. The default is "-->".
func (db *DiagramBuilder) DefaultArrow(arrow string) *DiagramBuilder {
	db.defaultArrow = arrow
	return db
}

// Arrow specifies the arrow style used for every transition from src to
// dst. See https://crashedmind.github.io/PlantUMLHitchhikersGuide/layout/layout.html
// for the available styles.
func (db *DiagramBuilder) Arrow(src, dst *State, arrow string) *DiagramBuilder {
	db.arrows[edge{src, dst}] = arrow
	return db
}

// Build renders the PlantUML diagram as a string. It panics if the
// underlying TransitionMap has not been built.
func (db *DiagramBuilder) Build() string {
	m := db.tmap
	if !m.built {
		panic("hsm: DiagramBuilder.Build called before TransitionMap.Build")
	}

	var bld, bldTrans strings.Builder

	arrow := func(src, dst *State) string {
		if a, ok := db.arrows[edge{src, dst}]; ok {
			return a
		}
		return db.defaultArrow
	}

	var dump func(s *State)
	dump = func(s *State) {
		fmt.Fprintf(&bld, "state %q as %s\n", s.QualifiedName(), diagramAlias(s))
		if s.Kind() == Start {
			fmt.Fprintf(&bld, "[*] --> %s\n", diagramAlias(s))
		}
		if s.Kind() == End {
			fmt.Fprintf(&bld, "%s --> [*]\n", diagramAlias(s))
		}
		if s.Entry() != nil {
			fmt.Fprintf(&bld, "%s : entry /\n", diagramAlias(s))
		}
		if s.Exit() != nil {
			fmt.Fprintf(&bld, "%s : exit /\n", diagramAlias(s))
		}
		for _, child := range s.Children() {
			dump(child)
		}
		for _, t := range m.transitions[s.QualifiedName()] {
			label := t.Name()
			if t.IsInternal() {
				fmt.Fprintf(&bld, "%s : %s\n", diagramAlias(s), label)
				continue
			}
			fmt.Fprintf(&bldTrans, "%s %s %s : %s\n", diagramAlias(t.From()), arrow(t.From(), t.To()), diagramAlias(t.To()), label)
		}
	}

	bld.WriteString("@startuml\n\n")
	for _, s := range m.States() {
		if s.Parent() == nil {
			dump(s)
		}
	}
	bld.WriteString(bldTrans.String())
	bld.WriteString("\n@enduml\n")
	return bld.String()
}

// diagramAlias derives a PlantUML-safe identifier from a state's qualified
// name, since PlantUML state aliases cannot contain the ':' the package
// uses to separate levels of the hierarchy.
func diagramAlias(s *State) string {
	return strings.NewReplacer(":", "_", " ", "_").Replace(s.QualifiedName())
}
