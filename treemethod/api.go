// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package treemethod puts the ordered tree implementations the stressor can
// exercise behind a single interface.
//
// Method "tsearch" is the unbalanced bstree; the rest wrap balanced trees from
// third party packages. All of them store key references (never copies) and
// treat inserting an already present key as a no-op.
package treemethod

import (
	"sort"

	"github.com/NVIDIA/treestress/blunder"
)

// Tree is a set of *int32 ordered by a Compare func.
type Tree interface {
	// Insert adds key unless an equal key is present. It fails (with
	// blunder.NodeAllocError) only when a node cannot be allocated.
	Insert(key *int32) (err error)

	// Find returns the stored reference equal to *key.
	Find(key *int32) (found *int32, ok bool)

	// Delete removes the stored reference equal to *key.
	Delete(key *int32) (ok bool)

	Len() int

	// Reset discards every key.
	Reset()
}

// Compare returns <0, 0, or >0 as *key1 is less than, equal to, or greater than *key2.
type Compare func(key1 *int32, key2 *int32) int

const (
	MethodTsearch = "tsearch"
	MethodLLRB    = "llrb"
	MethodBTree   = "btree"
	MethodGoLLRB  = "gollrb"
	MethodRBTree  = "rbtree"
	MethodAVL     = "avl"

	DefaultMethod = MethodTsearch
)

type constructor func(compare Compare, maxNodes int) Tree

var methods = map[string]constructor{
	MethodTsearch: newBstreeTree,
	MethodLLRB:    newLLRBTree,
	MethodBTree:   newBTreeTree,
	MethodGoLLRB:  newGoLLRBTree,
	MethodRBTree:  newRBTreeTree,
	MethodAVL:     newAVLTree,
}

// New returns an empty Tree of the named method.
//
// If maxNodes is non-zero, Insert() fails once maxNodes keys are present.
func New(method string, compare Compare, maxNodes int) (tree Tree, err error) {
	newTree, ok := methods[method]
	if !ok {
		err = blunder.NewError(blunder.UnknownMethodError, "unknown tree method \"%s\" (want one of %v)", method, Methods())
		return
	}

	tree = newTree(compare, maxNodes)

	err = nil
	return
}

// Methods returns the sorted names accepted by New().
func Methods() (methodNames []string) {
	methodNames = make([]string, 0, len(methods))
	for methodName := range methods {
		methodNames = append(methodNames, methodName)
	}
	sort.Strings(methodNames)
	return
}

// IsMethod reports whether New() accepts method.
func IsMethod(method string) bool {
	_, ok := methods[method]
	return ok
}
