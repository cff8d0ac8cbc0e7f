// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package treemethod

import (
	"github.com/google/btree"
	"github.com/petar/GoLLRB/llrb"
)

const btreeDegree = 32

// btree

type btreeTreeStruct struct {
	budgetStruct
	tree *btree.BTreeG[*int32]
}

func newBTreeTree(compare Compare, maxNodes int) Tree {
	return &btreeTreeStruct{
		budgetStruct: budgetStruct{maxNodes: maxNodes},
		tree: btree.NewG[*int32](btreeDegree, func(key1 *int32, key2 *int32) bool {
			return compare(key1, key2) < 0
		}),
	}
}

func (tree *btreeTreeStruct) Insert(key *int32) (err error) {
	if tree.tree.Has(key) {
		return
	}

	err = tree.reserve(MethodBTree, tree.tree.Len())
	if nil != err {
		return
	}

	_, _ = tree.tree.ReplaceOrInsert(key)
	return
}

func (tree *btreeTreeStruct) Find(key *int32) (found *int32, ok bool) {
	found, ok = tree.tree.Get(key)
	return
}

func (tree *btreeTreeStruct) Delete(key *int32) (ok bool) {
	_, ok = tree.tree.Delete(key)
	return
}

func (tree *btreeTreeStruct) Len() int {
	return tree.tree.Len()
}

func (tree *btreeTreeStruct) Reset() {
	tree.tree.Clear(false)
}

// gollrb

type gollrbTreeStruct struct {
	budgetStruct
	compare Compare
	tree    *llrb.LLRB
}

// gollrbItemStruct adapts a key reference to llrb.Item
type gollrbItemStruct struct {
	key  *int32
	tree *gollrbTreeStruct
}

func (item *gollrbItemStruct) Less(than llrb.Item) bool {
	return item.tree.compare(item.key, than.(*gollrbItemStruct).key) < 0
}

func newGoLLRBTree(compare Compare, maxNodes int) Tree {
	return &gollrbTreeStruct{
		budgetStruct: budgetStruct{maxNodes: maxNodes},
		compare:      compare,
		tree:         llrb.New(),
	}
}

func (tree *gollrbTreeStruct) Insert(key *int32) (err error) {
	item := &gollrbItemStruct{key: key, tree: tree}

	if tree.tree.Has(item) {
		return
	}

	err = tree.reserve(MethodGoLLRB, tree.tree.Len())
	if nil != err {
		return
	}

	tree.tree.InsertNoReplace(item)
	return
}

func (tree *gollrbTreeStruct) Find(key *int32) (found *int32, ok bool) {
	item := tree.tree.Get(&gollrbItemStruct{key: key, tree: tree})
	if nil == item {
		return nil, false
	}
	return item.(*gollrbItemStruct).key, true
}

func (tree *gollrbTreeStruct) Delete(key *int32) (ok bool) {
	ok = nil != tree.tree.Delete(&gollrbItemStruct{key: key, tree: tree})
	return
}

func (tree *gollrbTreeStruct) Len() int {
	return tree.tree.Len()
}

func (tree *gollrbTreeStruct) Reset() {
	tree.tree = llrb.New()
}
