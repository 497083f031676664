// Package chain implements an ordered, mutable pipeline of input event
// transmitters with first-consumer-wins delivery.
//
// A Chain owns its sequence of nodes. Traversals run without a global lock:
// each one takes a snapshot (a generation) of the sequence and registers
// itself as in flight on it. Mutations publish a new generation and then wait
// until every traversal of the old one has finished, so a node returned from
// Remove or SetNext is no longer reachable and may be destroyed safely.
//
// Mutating a chain from inside one of its own handlers deadlocks, since the
// mutation waits for the traversal that issued it.
package chain

import (
	"fmt"
	"sync"

	"github.com/mj1618/a11y-chain/internal/model"
)

type generation struct {
	nodes    []Transmitter
	inflight sync.WaitGroup
}

func (g *generation) release() { g.inflight.Done() }

func (g *generation) indexOf(t Transmitter) int {
	for i, n := range g.nodes {
		if n == t {
			return i
		}
	}
	return -1
}

func (g *generation) pointerFrom(i int, ev *model.PointerEvent) bool {
	for ; i < len(g.nodes); i++ {
		n := g.nodes[i]
		if isDestroyed(n) {
			continue
		}
		if n.OnPointerEvent(ev) {
			return true
		}
	}
	return false
}

func (g *generation) keyFrom(i int, ev *model.KeyEvent) bool {
	for ; i < len(g.nodes); i++ {
		n := g.nodes[i]
		if isDestroyed(n) {
			continue
		}
		if n.OnKeyEvent(ev) {
			return true
		}
	}
	return false
}

func (g *generation) moveFrom(i int, offsetX, offsetY int32) {
	for ; i < len(g.nodes); i++ {
		n := g.nodes[i]
		if isDestroyed(n) {
			continue
		}
		n.OnMoveMouse(offsetX, offsetY)
	}
}

// Chain is an ordered sequence of transmitters. The zero value is not usable;
// create chains with New.
type Chain struct {
	name string

	mu       sync.RWMutex // guards gen and observer
	gen      *generation
	observer Observer

	mutate sync.Mutex // serializes mutations including their quiescence wait
}

// New creates a chain holding nodes in order.
func New(name string, nodes ...Transmitter) (*Chain, error) {
	c := &Chain{name: name, gen: &generation{}}
	if len(nodes) > 0 {
		if err := c.Append(nodes...); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Name returns the chain's name.
func (c *Chain) Name() string { return c.name }

// SetObserver sets the receiver of accessibility events published by nodes.
// A nil observer discards them.
func (c *Chain) SetObserver(o Observer) {
	c.mu.Lock()
	c.observer = o
	c.mu.Unlock()
}

func (c *Chain) acquire() *generation {
	c.mu.RLock()
	g := c.gen
	g.inflight.Add(1)
	c.mu.RUnlock()
	return g
}

// acquireAfter returns the current generation and the index following t, or
// -1 when t is no longer linked.
func (c *Chain) acquireAfter(t Transmitter) (*generation, int) {
	g := c.acquire()
	i := g.indexOf(t)
	if i < 0 {
		return g, -1
	}
	return g, i + 1
}

func (c *Chain) publish(ev model.AccessibilityEvent) {
	c.mu.RLock()
	o := c.observer
	c.mu.RUnlock()
	if o != nil {
		o.OnAccessibilityEvent(ev)
	}
}

// OnPointerEvent delivers ev to each node in order until one consumes it.
// It reports whether any node consumed the event.
func (c *Chain) OnPointerEvent(ev *model.PointerEvent) bool {
	g := c.acquire()
	defer g.release()
	return g.pointerFrom(0, ev)
}

// OnKeyEvent delivers ev to each node in order until one consumes it.
func (c *Chain) OnKeyEvent(ev *model.KeyEvent) bool {
	g := c.acquire()
	defer g.release()
	return g.keyFrom(0, ev)
}

// OnMoveMouse delivers the offset to every node exactly once.
func (c *Chain) OnMoveMouse(offsetX, offsetY int32) {
	g := c.acquire()
	defer g.release()
	g.moveFrom(0, offsetX, offsetY)
}

// OnAccessibilityEvent publishes ev to the chain's observer.
func (c *Chain) OnAccessibilityEvent(ev model.AccessibilityEvent) {
	c.publish(ev)
}

// ClearEvents drops buffered state for source in every node.
func (c *Chain) ClearEvents(source model.SourceID) {
	g := c.acquire()
	defer g.release()
	for _, n := range g.nodes {
		if isDestroyed(n) {
			continue
		}
		n.ClearEvents(source)
	}
}

// DestroyEvents tears the chain down. See Teardown.
func (c *Chain) DestroyEvents() { c.Teardown() }

// Len returns the number of linked nodes.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.gen.nodes)
}

// Nodes returns a snapshot of the linked nodes in order.
func (c *Chain) Nodes() []Transmitter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Transmitter(nil), c.gen.nodes...)
}

// Names returns the display names of the linked nodes in order.
func (c *Chain) Names() []string {
	nodes := c.Nodes()
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = NameOf(n)
	}
	return names
}

// Head returns the first node, or nil for an empty chain.
func (c *Chain) Head() Transmitter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.gen.nodes) == 0 {
		return nil
	}
	return c.gen.nodes[0]
}

// GetNext returns the successor of node, or nil if node is last or not linked.
func (c *Chain) GetNext(node Transmitter) Transmitter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.gen.indexOf(node)
	if i < 0 || i+1 >= len(c.gen.nodes) {
		return nil
	}
	return c.gen.nodes[i+1]
}

// Append links nodes at the end of the chain.
func (c *Chain) Append(nodes ...Transmitter) error {
	_, err := c.swap(func(cur []Transmitter) ([]Transmitter, error) {
		return append(cur, nodes...), nil
	})
	return err
}

// InsertAfter links node directly after anchor. A nil anchor inserts at the head.
func (c *Chain) InsertAfter(anchor, node Transmitter) error {
	_, err := c.swap(func(cur []Transmitter) ([]Transmitter, error) {
		at := 0
		if anchor != nil {
			i := position(cur, anchor)
			if i < 0 {
				return nil, fmt.Errorf("insert after %s: %w", NameOf(anchor), ErrNotLinked)
			}
			at = i + 1
		}
		next := make([]Transmitter, 0, len(cur)+1)
		next = append(next, cur[:at]...)
		next = append(next, node)
		return append(next, cur[at:]...), nil
	})
	return err
}

// SetNext makes next the successor of node. Nodes between node and next are
// unlinked; if next was not linked, every node after node is unlinked and
// next becomes the tail. A nil next truncates the chain after node. The
// unlinked nodes are returned once no traversal can reach them; they are not
// destroyed.
func (c *Chain) SetNext(node, next Transmitter) ([]Transmitter, error) {
	return c.swap(func(cur []Transmitter) ([]Transmitter, error) {
		i := position(cur, node)
		if i < 0 {
			return nil, fmt.Errorf("set next of %s: %w", NameOf(node), ErrNotLinked)
		}
		head := append([]Transmitter(nil), cur[:i+1]...)
		if next == nil {
			return head, nil
		}
		j := position(cur, next)
		switch {
		case j > i:
			return append(head, cur[j:]...), nil
		case j >= 0:
			return nil, fmt.Errorf("set next of %s to %s: %w", NameOf(node), NameOf(next), ErrAlreadyLinked)
		}
		return append(head, next), nil
	})
}

// Remove unlinks node and returns once no traversal can reach it. The node is
// not destroyed.
func (c *Chain) Remove(node Transmitter) error {
	_, err := c.swap(func(cur []Transmitter) ([]Transmitter, error) {
		i := position(cur, node)
		if i < 0 {
			return nil, fmt.Errorf("remove %s: %w", NameOf(node), ErrNotLinked)
		}
		return append(cur[:i:i], cur[i+1:]...), nil
	})
	return err
}

// Replace swaps old for node in place and returns once old is unreachable.
func (c *Chain) Replace(old, node Transmitter) error {
	_, err := c.swap(func(cur []Transmitter) ([]Transmitter, error) {
		i := position(cur, old)
		if i < 0 {
			return nil, fmt.Errorf("replace %s: %w", NameOf(old), ErrNotLinked)
		}
		cur[i] = node
		return cur, nil
	})
	return err
}

// Reset replaces the whole sequence with nodes and returns the nodes that
// were unlinked.
func (c *Chain) Reset(nodes ...Transmitter) ([]Transmitter, error) {
	return c.swap(func([]Transmitter) ([]Transmitter, error) {
		return append([]Transmitter(nil), nodes...), nil
	})
}

// Destroy unlinks node, waits until no traversal can reach it and then
// destroys it.
func (c *Chain) Destroy(node Transmitter) error {
	if err := c.Remove(node); err != nil {
		return err
	}
	node.DestroyEvents()
	return nil
}

// Teardown unlinks every node and destroys them in chain order. It returns
// the destroyed nodes.
func (c *Chain) Teardown() []Transmitter {
	removed, _ := c.Reset()
	for _, n := range removed {
		n.DestroyEvents()
	}
	return removed
}

// swap publishes the sequence built from a copy of the current one, attaches
// emitters to new nodes and waits for the previous generation to drain. It
// returns the nodes that are no longer linked.
func (c *Chain) swap(build func(cur []Transmitter) ([]Transmitter, error)) ([]Transmitter, error) {
	c.mutate.Lock()
	defer c.mutate.Unlock()

	c.mu.RLock()
	old := c.gen
	c.mu.RUnlock()

	next, err := build(append([]Transmitter(nil), old.nodes...))
	if err != nil {
		return nil, err
	}
	seen := make(map[Transmitter]struct{}, len(next))
	for _, n := range next {
		if n == nil {
			return nil, ErrNilTransmitter
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("link %s: %w", NameOf(n), ErrAlreadyLinked)
		}
		seen[n] = struct{}{}
	}

	for _, n := range next {
		if old.indexOf(n) < 0 {
			if a, ok := n.(Attacher); ok {
				a.Attach(&link{chain: c, node: n})
			}
		}
	}

	c.mu.Lock()
	c.gen = &generation{nodes: next}
	c.mu.Unlock()

	var removed []Transmitter
	for _, n := range old.nodes {
		if _, ok := seen[n]; !ok {
			removed = append(removed, n)
		}
	}
	old.inflight.Wait()
	for _, n := range removed {
		if a, ok := n.(Attacher); ok {
			a.Attach(nil)
		}
	}
	return removed, nil
}

func position(nodes []Transmitter, t Transmitter) int {
	for i, n := range nodes {
		if n == t {
			return i
		}
	}
	return -1
}
