// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bstree

import (
	"math"

	"github.com/NVIDIA/treestress/blunder"
	"github.com/NVIDIA/treestress/halter"
	"github.com/NVIDIA/treestress/logger"
)

const initialArenaCapacity = 1024

type nodeStruct[K any] struct {
	left  NodeRef
	right NodeRef
	key   *K
}

// linkStruct names the child link that refers to a node: the left or right
// link of parent, or the root link when parent is NotFound.
type linkStruct struct {
	parent NodeRef
	isLeft bool
}

func (tree *Tree[K]) setLink(link linkStruct, child NodeRef) {
	if NotFound == link.parent {
		tree.root = child
	} else if link.isLeft {
		tree.nodes[link.parent].left = child
	} else {
		tree.nodes[link.parent].right = child
	}
}

func (tree *Tree[K]) allocNode(key *K) (ref NodeRef, err error) {
	if (0 != tree.maxNodes) && (tree.count >= tree.maxNodes) {
		err = blunder.NewError(blunder.NodeAllocError, "bstree node limit (%d) reached", tree.maxNodes)
		return
	}
	if halter.Trigger(halter.BstreeAllocNode) {
		err = blunder.NewError(blunder.NodeAllocError, "bstree cannot allocate new tree node")
		return
	}

	if NotFound != tree.freeHead {
		ref = tree.freeHead
		tree.freeHead = tree.nodes[ref].left
		tree.nodes[ref] = nodeStruct[K]{key: key}
	} else {
		if uint64(len(tree.nodes)) > math.MaxUint32 {
			err = blunder.NewError(blunder.NodeAllocError, "bstree arena exhausted")
			return
		}
		ref = NodeRef(len(tree.nodes))
		tree.nodes = append(tree.nodes, nodeStruct[K]{key: key})
	}

	tree.count++

	err = nil
	return
}

func (tree *Tree[K]) freeNode(ref NodeRef) {
	tree.nodes[ref] = nodeStruct[K]{left: tree.freeHead}
	tree.freeHead = ref
	tree.count--
}

func (tree *Tree[K]) insert(key *K) (ref NodeRef, err error) {
	var (
		link linkStruct
		cmp  int
	)

	ref = tree.root
	for NotFound != ref {
		cmp = tree.compare(key, tree.nodes[ref].key)
		if 0 == cmp {
			err = nil
			return
		}
		link.parent = ref
		if cmp < 0 {
			link.isLeft = true
			ref = tree.nodes[ref].left
		} else {
			link.isLeft = false
			ref = tree.nodes[ref].right
		}
	}

	ref, err = tree.allocNode(key)
	if nil != err {
		ref = NotFound
		return
	}

	tree.setLink(link, ref)

	return
}

func (tree *Tree[K]) find(key *K) (ref NodeRef) {
	var cmp int

	ref = tree.root
	for NotFound != ref {
		cmp = tree.compare(key, tree.nodes[ref].key)
		if 0 == cmp {
			return
		}
		if cmp < 0 {
			ref = tree.nodes[ref].left
		} else {
			ref = tree.nodes[ref].right
		}
	}

	return
}

func (tree *Tree[K]) delete(key *K) (removed *K, found bool) {
	var (
		cmp         int
		link        linkStruct
		ref         NodeRef
		succ        NodeRef
		succLink    linkStruct
		nodeToFree  NodeRef
		replacement NodeRef
	)

	ref = tree.root
	for {
		if NotFound == ref {
			found = false
			return
		}
		cmp = tree.compare(key, tree.nodes[ref].key)
		if 0 == cmp {
			break
		}
		link.parent = ref
		if cmp < 0 {
			link.isLeft = true
			ref = tree.nodes[ref].left
		} else {
			link.isLeft = false
			ref = tree.nodes[ref].right
		}
	}

	removed = tree.nodes[ref].key
	found = true

	switch {
	case NotFound == tree.nodes[ref].left:
		replacement = tree.nodes[ref].right
		tree.setLink(link, replacement)
		nodeToFree = ref
	case NotFound == tree.nodes[ref].right:
		replacement = tree.nodes[ref].left
		tree.setLink(link, replacement)
		nodeToFree = ref
	default:
		// Two children: the in-order successor (leftmost of the right subtree)
		// gives its key to ref and is unlinked in its place. The successor has
		// no left child, so its right subtree takes over its parent's link; when
		// the successor is ref's own right child that link is ref.right.
		succLink = linkStruct{parent: ref, isLeft: false}
		succ = tree.nodes[ref].right
		for NotFound != tree.nodes[succ].left {
			succLink = linkStruct{parent: succ, isLeft: true}
			succ = tree.nodes[succ].left
		}
		tree.nodes[ref].key = tree.nodes[succ].key
		tree.setLink(succLink, tree.nodes[succ].right)
		nodeToFree = succ
	}

	tree.freeNode(nodeToFree)

	return
}

func (tree *Tree[K]) inOrder(f func(key *K) bool) {
	var (
		ref   NodeRef
		stack []NodeRef
	)

	ref = tree.root
	for (NotFound != ref) || (0 < len(stack)) {
		for NotFound != ref {
			stack = append(stack, ref)
			ref = tree.nodes[ref].left
		}
		ref = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !f(tree.nodes[ref].key) {
			return
		}
		ref = tree.nodes[ref].right
	}
}

func (tree *Tree[K]) depth() (maxDepth int) {
	type frameStruct struct {
		ref   NodeRef
		depth int
	}

	var stack []frameStruct

	if NotFound == tree.root {
		return 0
	}

	stack = append(stack, frameStruct{tree.root, 1})
	for 0 < len(stack) {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if frame.depth > maxDepth {
			maxDepth = frame.depth
		}
		if left := tree.nodes[frame.ref].left; NotFound != left {
			stack = append(stack, frameStruct{left, frame.depth + 1})
		}
		if right := tree.nodes[frame.ref].right; NotFound != right {
			stack = append(stack, frameStruct{right, frame.depth + 1})
		}
	}

	return
}

func (tree *Tree[K]) validate() (err error) {
	// Each frame carries the open interval (low, high) its subtree's keys must
	// fall within; nil means unbounded.
	type frameStruct struct {
		ref  NodeRef
		low  *K
		high *K
	}

	var (
		reached int
		stack   []frameStruct
	)

	if NotFound != tree.root {
		stack = append(stack, frameStruct{ref: tree.root})
	}

	for 0 < len(stack) {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if int(frame.ref) >= len(tree.nodes) {
			err = blunder.NewError(blunder.CorruptTreeError, "bstree link to node %d beyond arena (len %d)", frame.ref, len(tree.nodes))
			break
		}

		reached++
		if reached > tree.count {
			err = blunder.NewError(blunder.CorruptTreeError, "bstree reaches more than its %d nodes (cycle or leaked free node)", tree.count)
			break
		}

		node := &tree.nodes[frame.ref]
		if nil == node.key {
			err = blunder.NewError(blunder.CorruptTreeError, "bstree node %d has no key", frame.ref)
			break
		}
		if (nil != frame.low) && (tree.compare(node.key, frame.low) <= 0) {
			err = blunder.NewError(blunder.CorruptTreeError, "bstree node %d is not greater than an ancestor it is right of", frame.ref)
			break
		}
		if (nil != frame.high) && (tree.compare(node.key, frame.high) >= 0) {
			err = blunder.NewError(blunder.CorruptTreeError, "bstree node %d is not less than an ancestor it is left of", frame.ref)
			break
		}

		if NotFound != node.left {
			stack = append(stack, frameStruct{ref: node.left, low: frame.low, high: node.key})
		}
		if NotFound != node.right {
			stack = append(stack, frameStruct{ref: node.right, low: node.key, high: frame.high})
		}
	}

	if (nil == err) && (reached != tree.count) {
		err = blunder.NewError(blunder.CorruptTreeError, "bstree reaches %d nodes but holds %d", reached, tree.count)
	}

	if nil != err {
		logger.ErrorfWithError(err, "bstree validation failed")
	}

	return
}
