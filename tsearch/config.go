// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package tsearch

import (
	"github.com/NVIDIA/treestress/blunder"
	"github.com/NVIDIA/treestress/conf"
	"github.com/NVIDIA/treestress/keygen"
	"github.com/NVIDIA/treestress/logger"
	"github.com/NVIDIA/treestress/treemethod"
)

// ParseConfMap fills a Config from the named section of confMap.
//
// Every option is optional:
//
//   Size      - number of keys; absent means 65536, or 4194304 if Maximize
//               is set, or 1024 if Minimize is set (Minimize wins)
//   Maximize  - bool
//   Minimize  - bool
//   Method    - one of treemethod.Methods() (default "tsearch")
//   Verify    - bool (default false)
//   MaxNodes  - node allocation budget (default 0, meaning unbounded)
func ParseConfMap(confMap conf.ConfMap, section string) (config Config, err error) {
	var (
		maximize bool
		minimize bool
	)

	if confMap.HasOption(section, "Size") {
		config.Size, err = confMap.FetchOptionValueUint64(section, "Size")
		if nil != err {
			err = blunder.AddError(err, blunder.InvalidArgError)
			return
		}
		if (config.Size < keygen.MinSize) || (config.Size > keygen.MaxSize) {
			err = blunder.NewError(blunder.OutOfRangeError, "[%s]Size %d must be in [%d,%d]", section, config.Size, keygen.MinSize, keygen.MaxSize)
			return
		}
	} else {
		config.Size = keygen.DefaultSize
		maximize, err = fetchOptionalBool(confMap, section, "Maximize")
		if nil != err {
			return
		}
		if maximize {
			config.Size = keygen.MaxSize
		}
		minimize, err = fetchOptionalBool(confMap, section, "Minimize")
		if nil != err {
			return
		}
		if minimize {
			config.Size = keygen.MinSize
		}
	}

	config.Method = treemethod.DefaultMethod
	if confMap.HasOption(section, "Method") {
		config.Method, err = confMap.FetchOptionValueString(section, "Method")
		if nil != err {
			err = blunder.AddError(err, blunder.InvalidArgError)
			return
		}
		if !treemethod.IsMethod(config.Method) {
			err = blunder.NewError(blunder.UnknownMethodError, "[%s]Method \"%s\" must be one of %v", section, config.Method, treemethod.Methods())
			return
		}
	}

	config.Verify, err = fetchOptionalBool(confMap, section, "Verify")
	if nil != err {
		return
	}

	if confMap.HasOption(section, "MaxNodes") {
		config.MaxNodes, err = confMap.FetchOptionValueInt(section, "MaxNodes")
		if nil != err {
			err = blunder.AddError(err, blunder.InvalidArgError)
			return
		}
		if config.MaxNodes < 0 {
			err = blunder.NewError(blunder.OutOfRangeError, "[%s]MaxNodes %d must not be negative", section, config.MaxNodes)
			return
		}
	}

	logger.Infof("tsearch config: Size=%d Method=%s Verify=%v MaxNodes=%d", config.Size, config.Method, config.Verify, config.MaxNodes)

	err = nil
	return
}

func fetchOptionalBool(confMap conf.ConfMap, section string, option string) (value bool, err error) {
	if !confMap.HasOption(section, option) {
		value = false
		err = nil
		return
	}

	value, err = confMap.FetchOptionValueBool(section, option)
	if nil != err {
		err = blunder.AddError(err, blunder.InvalidArgError)
	}
	return
}
