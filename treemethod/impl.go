// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package treemethod

import (
	"fmt"

	"github.com/NVIDIA/sortedmap"

	"github.com/NVIDIA/treestress/blunder"
	"github.com/NVIDIA/treestress/bstree"
	"github.com/NVIDIA/treestress/halter"
	"github.com/NVIDIA/treestress/logger"
)

// budgetStruct stands in for node allocation in trees that allocate
// internally: a node may be added only while below maxNodes and while the
// treemethod.allocNode trip point stays quiet.
type budgetStruct struct {
	maxNodes int
}

func (budget *budgetStruct) reserve(method string, count int) (err error) {
	if (0 != budget.maxNodes) && (count >= budget.maxNodes) {
		err = blunder.NewError(blunder.NodeAllocError, "%s node limit (%d) reached", method, budget.maxNodes)
		return
	}
	if halter.Trigger(halter.TreemethodAllocNode) {
		err = blunder.NewError(blunder.NodeAllocError, "%s cannot allocate new tree node", method)
		return
	}
	err = nil
	return
}

// tsearch

type bstreeTreeStruct struct {
	tree *bstree.Tree[int32]
}

func newBstreeTree(compare Compare, maxNodes int) Tree {
	return &bstreeTreeStruct{tree: bstree.New(bstree.Compare[int32](compare), maxNodes)}
}

func (tree *bstreeTreeStruct) Insert(key *int32) (err error) {
	_, err = tree.tree.Insert(key)
	return
}

func (tree *bstreeTreeStruct) Find(key *int32) (found *int32, ok bool) {
	ref := tree.tree.Find(key)
	if bstree.NotFound == ref {
		return nil, false
	}
	return tree.tree.Key(ref), true
}

func (tree *bstreeTreeStruct) Delete(key *int32) (ok bool) {
	_, ok = tree.tree.Delete(key)
	return
}

func (tree *bstreeTreeStruct) Len() int {
	return tree.tree.Len()
}

func (tree *bstreeTreeStruct) Reset() {
	tree.tree.Reset()
}

// llrb

type llrbTreeStruct struct {
	budgetStruct
	compare Compare
	tree    sortedmap.LLRBTree
}

func newLLRBTree(compare Compare, maxNodes int) Tree {
	tree := &llrbTreeStruct{
		budgetStruct: budgetStruct{maxNodes: maxNodes},
		compare:      compare,
	}
	tree.tree = sortedmap.NewLLRBTree(tree.compareKeys, tree)
	return tree
}

func (tree *llrbTreeStruct) compareKeys(key1 sortedmap.Key, key2 sortedmap.Key) (result int, err error) {
	result = tree.compare(key1.(*int32), key2.(*int32))
	err = nil
	return
}

func (tree *llrbTreeStruct) DumpKey(key sortedmap.Key) (keyAsString string, err error) {
	keyAsString = fmt.Sprintf("%d", *key.(*int32))
	err = nil
	return
}

func (tree *llrbTreeStruct) DumpValue(value sortedmap.Value) (valueAsString string, err error) {
	valueAsString = fmt.Sprintf("%p", value.(*int32))
	err = nil
	return
}

// corrupt reports an error from package sortedmap; given only *int32 keys
// and a total order it has no way to fail short of a bug.
func (tree *llrbTreeStruct) corrupt(op string, err error) {
	logger.PanicfWithError(blunder.AddError(err, blunder.CorruptTreeError), "sortedmap LLRB %s failed", op)
}

func (tree *llrbTreeStruct) Insert(key *int32) (err error) {
	_, ok, err := tree.tree.GetByKey(key)
	if nil != err {
		tree.corrupt("GetByKey()", err)
	}
	if ok {
		return
	}

	err = tree.reserve(MethodLLRB, tree.Len())
	if nil != err {
		return
	}

	_, err = tree.tree.Put(key, key)
	if nil != err {
		tree.corrupt("Put()", err)
	}
	return
}

func (tree *llrbTreeStruct) Find(key *int32) (found *int32, ok bool) {
	value, ok, err := tree.tree.GetByKey(key)
	if nil != err {
		tree.corrupt("GetByKey()", err)
	}
	if !ok {
		return nil, false
	}
	return value.(*int32), true
}

func (tree *llrbTreeStruct) Delete(key *int32) (ok bool) {
	ok, err := tree.tree.DeleteByKey(key)
	if nil != err {
		tree.corrupt("DeleteByKey()", err)
	}
	return
}

func (tree *llrbTreeStruct) Len() int {
	numberOfItems, err := tree.tree.Len()
	if nil != err {
		tree.corrupt("Len()", err)
	}
	return numberOfItems
}

func (tree *llrbTreeStruct) Reset() {
	tree.tree.Reset()
}
