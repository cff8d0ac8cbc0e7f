// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package bstree provides an unbalanced binary search tree of key references.
//
// The tree never owns its keys: each node holds a *K pointing into storage the
// caller keeps alive (for the stressor, the key buffer). Ordering comes from a
// caller supplied Compare func. Duplicate keys are not stored; inserting a key
// equal to one already present returns the existing node.
//
// Nodes live in an arena and are named by NodeRef (an index into it). Deleted
// nodes are threaded onto a free list and reused by later inserts, so the
// arena only grows to the high water mark of live nodes.
//
// No rebalancing is ever done. Each operation costs O(depth) and the depth may
// reach Len() for adversarial insertion orders.
//
// A Tree is not safe for concurrent use.
package bstree

// Compare returns a negative value if *key1 < *key2, 0 if they are equal, and a
// positive value if *key1 > *key2.
type Compare[K any] func(key1 *K, key2 *K) int

// NodeRef names a node of a Tree. NodeRefs are only valid until the node is
// deleted or the Tree is Reset.
type NodeRef uint32

// NotFound is the NodeRef of no node (the empty subtree).
const NotFound NodeRef = 0

// Tree is an arena-backed unbalanced binary search tree.
type Tree[K any] struct {
	compare  Compare[K]
	maxNodes int
	nodes    []nodeStruct[K] // nodes[0] is never used so that NotFound can mean "no node"
	freeHead NodeRef         // free list threaded through nodeStruct.left
	root     NodeRef
	count    int
}

// New returns an empty tree ordered by compare.
//
// If maxNodes is non-zero, Insert() fails with blunder.NodeAllocError once
// maxNodes nodes are live.
func New[K any](compare Compare[K], maxNodes int) (tree *Tree[K]) {
	tree = &Tree[K]{
		compare:  compare,
		maxNodes: maxNodes,
		nodes:    make([]nodeStruct[K], 1, initialArenaCapacity),
	}
	return
}

// Insert adds key to the tree. If an equal key is already present, the
// existing node is returned and the tree is unchanged.
//
// Failure to allocate a node is reported as blunder.NodeAllocError and also
// leaves the tree unchanged.
func (tree *Tree[K]) Insert(key *K) (ref NodeRef, err error) {
	ref, err = tree.insert(key)
	return
}

// Find returns the node holding a key equal to *key, or NotFound.
func (tree *Tree[K]) Find(key *K) (ref NodeRef) {
	ref = tree.find(key)
	return
}

// Delete removes the node holding a key equal to *key. It returns the key
// reference that node held, or found == false if there was no such node.
func (tree *Tree[K]) Delete(key *K) (removed *K, found bool) {
	removed, found = tree.delete(key)
	return
}

// Key returns the key reference held by node ref.
func (tree *Tree[K]) Key(ref NodeRef) *K {
	return tree.nodes[ref].key
}

// Children returns the left and right children of node ref.
func (tree *Tree[K]) Children(ref NodeRef) (left NodeRef, right NodeRef) {
	left = tree.nodes[ref].left
	right = tree.nodes[ref].right
	return
}

func (tree *Tree[K]) Root() NodeRef {
	return tree.root
}

func (tree *Tree[K]) Len() int {
	return tree.count
}

func (tree *Tree[K]) IsEmpty() bool {
	return NotFound == tree.root
}

// InOrder calls f with each key in ascending order until f returns false.
func (tree *Tree[K]) InOrder(f func(key *K) bool) {
	tree.inOrder(f)
}

// Depth returns the number of nodes on the longest root to leaf path.
func (tree *Tree[K]) Depth() int {
	return tree.depth()
}

// Validate walks the whole tree checking the ordering invariant, the child
// links, and that exactly Len() nodes are reachable. Any violation is
// reported as blunder.CorruptTreeError.
func (tree *Tree[K]) Validate() (err error) {
	err = tree.validate()
	return
}

// Reset discards every node (and the free list) leaving an empty tree.
func (tree *Tree[K]) Reset() {
	tree.nodes = tree.nodes[:1]
	tree.freeHead = NotFound
	tree.root = NotFound
	tree.count = 0
}

// CompareInt32 orders int32 keys numerically.
func CompareInt32(key1 *int32, key2 *int32) int {
	switch {
	case *key1 < *key2:
		return -1
	case *key1 > *key2:
		return 1
	default:
		return 0
	}
}
