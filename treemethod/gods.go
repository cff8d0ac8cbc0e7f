// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package treemethod

import (
	"github.com/emirpasic/gods/trees/avltree"
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
)

// godsTree is the method set shared by the gods red-black and AVL trees
type godsTree interface {
	Put(key interface{}, value interface{})
	Get(key interface{}) (value interface{}, found bool)
	Remove(key interface{})
	Size() int
	Clear()
}

type godsTreeStruct struct {
	budgetStruct
	method string
	tree   godsTree
}

func godsComparator(compare Compare) utils.Comparator {
	return func(a interface{}, b interface{}) int {
		return compare(a.(*int32), b.(*int32))
	}
}

func newRBTreeTree(compare Compare, maxNodes int) Tree {
	return &godsTreeStruct{
		budgetStruct: budgetStruct{maxNodes: maxNodes},
		method:       MethodRBTree,
		tree:         redblacktree.NewWith(godsComparator(compare)),
	}
}

func newAVLTree(compare Compare, maxNodes int) Tree {
	return &godsTreeStruct{
		budgetStruct: budgetStruct{maxNodes: maxNodes},
		method:       MethodAVL,
		tree:         avltree.NewWith(godsComparator(compare)),
	}
}

func (tree *godsTreeStruct) Insert(key *int32) (err error) {
	if _, found := tree.tree.Get(key); found {
		return
	}

	err = tree.reserve(tree.method, tree.tree.Size())
	if nil != err {
		return
	}

	tree.tree.Put(key, key)
	return
}

func (tree *godsTreeStruct) Find(key *int32) (found *int32, ok bool) {
	value, ok := tree.tree.Get(key)
	if !ok {
		return nil, false
	}
	return value.(*int32), true
}

func (tree *godsTreeStruct) Delete(key *int32) (ok bool) {
	_, ok = tree.tree.Get(key)
	if ok {
		tree.tree.Remove(key)
	}
	return
}

func (tree *godsTreeStruct) Len() int {
	return tree.tree.Size()
}

func (tree *godsTreeStruct) Reset() {
	tree.tree.Clear()
}
