package domain

// RunNode is a node of the run tree: the declared graph rooted at the
// requested target, with each instance appearing exactly once (at its first
// discovery position in declaration order). It backs dry runs and failure
// chain reporting; the scheduler itself operates on the edge lists.
type RunNode struct {
	Instance *Instance
	Children []*RunNode
}

// NewRunTree builds the run tree for a declared root instance.
func NewRunTree(root *Instance) *RunNode {
	included := make(map[InstanceKey]bool)
	return buildRunNode(root, included)
}

func buildRunNode(inst *Instance, included map[InstanceKey]bool) *RunNode {
	included[inst.Key()] = true
	node := &RunNode{Instance: inst}

	for _, dep := range inst.Dependencies() {
		if included[dep.Key()] {
			continue
		}
		node.Children = append(node.Children, buildRunNode(dep, included))
	}

	return node
}

// Flatten returns the tree's nodes in execution order: every child before
// its parent, children in declaration order. This is the deterministic
// sequential fallback order.
func (n *RunNode) Flatten() []*RunNode {
	nodes := make([]*RunNode, 0, 32)
	for _, child := range n.Children {
		nodes = append(nodes, child.Flatten()...)
	}
	return append(nodes, n)
}

// Locate finds the subtree rooted at the instance with the given key.
func (n *RunNode) Locate(key InstanceKey) *RunNode {
	if n.Instance.Key() == key {
		return n
	}
	for _, child := range n.Children {
		if found := child.Locate(key); found != nil {
			return found
		}
	}
	return nil
}

// PathTo returns the chain of instance IDs from the root down to the
// instance with the given key, or nil if the instance is not in the tree.
func (n *RunNode) PathTo(key InstanceKey) []string {
	if n.Instance.Key() == key {
		return []string{n.Instance.ID()}
	}
	for _, child := range n.Children {
		if path := child.PathTo(key); path != nil {
			return append([]string{n.Instance.ID()}, path...)
		}
	}
	return nil
}
