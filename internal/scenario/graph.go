package scenario

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/tether/internal/observable"
	"github.com/roach88/tether/internal/relation"
	"github.com/roach88/tether/internal/store"
)

// Relation names, used as resolver properties and store relation keys.
const (
	PropChildren = "children"
	PropParent   = "parent"
	PropLinks    = "links"
)

// Node is the demo entity. A node owns an ordered children sequence whose
// members point back through parent, and an unordered links set that is
// mirrored on every linked node.
type Node struct {
	Name     string
	parent   *relation.BackRef[*Node, *Node]
	children *observable.Sequence[*Node]
	links    *observable.Set[*Node]
}

// Navigate exposes links to the resolver; children and parent are
// registered as accessors instead.
func (n *Node) Navigate(property string) (any, bool) {
	if property == PropLinks {
		return n.links, true
	}
	return nil, false
}

// String returns the node name.
func (n *Node) String() string { return n.Name }

// Parent returns the current parent or nil.
func (n *Node) Parent() *Node { return n.parent.Get() }

// Children returns the children sequence.
func (n *Node) Children() *observable.Sequence[*Node] { return n.children }

// Links returns the links set.
func (n *Node) Links() *observable.Set[*Node] { return n.links }

func nodeKey(n *Node) string {
	if n == nil {
		return ""
	}
	return n.Name
}

func nodeKeys(nodes []*Node) []string {
	keys := make([]string, len(nodes))
	for i, n := range nodes {
		keys[i] = nodeKey(n)
	}
	return keys
}

// Graph wires nodes to the sync engine and the store.
type Graph struct {
	engine *relation.Engine
	family *relation.OneToMany[*Node, *Node]
	mesh   *relation.ManyToMany[*Node, *Node]
	store  *store.Store
	nodes  map[string]*Node
	order  []string

	// detach undoes every subscription Build made on a container.
	detach []func()
}

// NewGraph creates an empty graph on engine, persisting through st.
func NewGraph(engine *relation.Engine, st *store.Store) *Graph {
	g := &Graph{
		engine: engine,
		family: relation.NewOneToMany[*Node, *Node](engine, PropChildren, PropParent),
		mesh:   relation.NewManyToMany[*Node, *Node](engine, PropLinks, PropLinks),
		store:  st,
		nodes:  make(map[string]*Node),
	}

	r := engine.Resolver()
	relation.RegisterCollection(r, PropChildren, func(n *Node) observable.Collection[*Node] {
		return n.children
	})
	relation.RegisterReference(r, PropParent,
		func(n *Node) *Node { return n.parent.Get() },
		func(n *Node, p *Node) error { return n.parent.Set(p) },
	)
	return g
}

// Node returns the node called name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns every node in declaration order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	for i, name := range g.order {
		out[i] = g.nodes[name]
	}
	return out
}

// Subscriber is attached to every container before tracking and sync, so
// it sees each change ahead of its consequences.
type Subscriber func(n *Node, property string, change observable.Change[*Node])

// Build creates the nodes in specs. Seeds are written to the store as a
// reset entry plus membership so the journal replays; lazy nodes then load
// from the store, eager nodes start with their seeds.
func (g *Graph) Build(ctx context.Context, specs []NodeSpec, watch Subscriber) error {
	for _, spec := range specs {
		if _, dup := g.nodes[spec.Name]; dup {
			return fmt.Errorf("build graph: duplicate node %q", spec.Name)
		}
		n := &Node{Name: spec.Name}
		n.parent = relation.NewBackRef(g.family, n)
		g.nodes[spec.Name] = n
		g.order = append(g.order, spec.Name)
	}

	for _, spec := range specs {
		n := g.nodes[spec.Name]
		children, err := g.resolve(spec.Children)
		if err != nil {
			return fmt.Errorf("build graph: node %q: %w", spec.Name, err)
		}
		links, err := g.resolve(spec.Links)
		if err != nil {
			return fmt.Errorf("build graph: node %q: %w", spec.Name, err)
		}
		links = unique(links)

		if err := g.seed(ctx, PropChildren, n.Name, spec.Children); err != nil {
			return err
		}
		if err := g.seed(ctx, PropLinks, n.Name, nodeKeys(links)); err != nil {
			return err
		}

		if spec.Lazy {
			n.children = observable.NewSequence(observable.WithLoader(
				store.Loader(ctx, g.store, PropChildren, n.Name, g.Node)))
			n.links = observable.NewSet(observable.WithLoader(
				store.Loader(ctx, g.store, PropLinks, n.Name, g.Node)))
		} else {
			n.children = observable.NewSequence(observable.WithItems(children...))
			n.links = observable.NewSet(observable.WithItems(links...))
		}
		for _, c := range children {
			c.parent.Restore(n)
		}

		if watch != nil {
			g.subscribe(n.children, func(c observable.Change[*Node]) error {
				watch(n, PropChildren, c)
				return nil
			})
			g.subscribe(n.links, func(c observable.Change[*Node]) error {
				watch(n, PropLinks, c)
				return nil
			})
		}

		g.keep(n.children, store.Track(ctx, g.store, PropChildren, n.Name, n.children, nodeKey,
			store.WithPropagation(g.engine.Token)))
		g.keep(n.links, store.Track(ctx, g.store, PropLinks, n.Name, n.links, nodeKey,
			store.WithPropagation(g.engine.Token)))

		g.family.Attach(n, n.children)
		g.mesh.Attach(n, n.links)
	}
	return nil
}

func (g *Graph) subscribe(c observable.Collection[*Node], h observable.Handler[*Node]) {
	g.keep(c, c.Subscribe(h))
}

func (g *Graph) keep(c observable.Collection[*Node], id observable.SubscriptionID) {
	g.detach = append(g.detach, func() { c.Unsubscribe(id) })
}

// Close detaches the graph from its containers: watchers and journal
// tracking are unsubscribed and both relations are torn down. Nodes keep
// their contents; later edits are neither synced nor journaled.
func (g *Graph) Close() {
	for _, fn := range g.detach {
		fn()
	}
	g.detach = nil
	g.family.Teardown()
	g.mesh.Teardown()
}

func (g *Graph) resolve(names []string) ([]*Node, error) {
	out := make([]*Node, 0, len(names))
	for _, name := range names {
		n, ok := g.nodes[name]
		if !ok {
			return nil, fmt.Errorf("unknown node %q", name)
		}
		out = append(out, n)
	}
	return out, nil
}

// unique drops repeated nodes, keeping first occurrences in order.
func unique(nodes []*Node) []*Node {
	seen := make(map[*Node]bool, len(nodes))
	return slices.DeleteFunc(nodes, func(n *Node) bool {
		if seen[n] {
			return true
		}
		seen[n] = true
		return false
	})
}

func (g *Graph) seed(ctx context.Context, rel, owner string, members []string) error {
	if len(members) == 0 {
		return nil
	}
	if _, err := g.store.AppendChange(ctx, store.Entry{
		Relation: rel,
		Owner:    owner,
		Action:   observable.ActionReset.String(),
		NewItems: members,
		NewIndex: -1,
		OldIndex: -1,
	}); err != nil {
		return fmt.Errorf("seed %s/%s: %w", rel, owner, err)
	}
	if err := g.store.ReplaceMembers(ctx, rel, owner, members); err != nil {
		return fmt.Errorf("seed %s/%s: %w", rel, owner, err)
	}
	return nil
}

// Inconsistencies reports every broken pairing among loaded containers: a
// child whose parent is not this node, a parent whose loaded children miss
// the child, and a link without its mirror.
func (g *Graph) Inconsistencies() []string {
	var problems []string
	for _, n := range g.Nodes() {
		if n.children.LoadState() == observable.Loaded {
			for _, c := range n.children.Items() {
				if c.Parent() != n {
					problems = append(problems, fmt.Sprintf("%s.children holds %s but %s.parent is %q",
						n.Name, c.Name, c.Name, nodeKey(c.Parent())))
				}
			}
		}
		if p := n.Parent(); p != nil && p.children.LoadState() == observable.Loaded && !p.children.Contains(n) {
			problems = append(problems, fmt.Sprintf("%s.parent is %s but %s.children misses it",
				n.Name, p.Name, p.Name))
		}
		if n.links.LoadState() == observable.Loaded {
			for _, l := range n.links.Items() {
				if l.links.LoadState() == observable.Loaded && !l.links.Contains(n) {
					problems = append(problems, fmt.Sprintf("%s.links holds %s but %s.links misses it",
						n.Name, l.Name, l.Name))
				}
			}
		}
	}
	slices.Sort(problems)
	return problems
}

// VerifyJournal replays the journal of every container and compares it
// with the stored membership.
func (g *Graph) VerifyJournal(ctx context.Context) error {
	for _, name := range g.order {
		for _, rel := range []string{PropChildren, PropLinks} {
			if err := g.store.Verify(ctx, rel, name); err != nil {
				return err
			}
		}
	}
	return nil
}
